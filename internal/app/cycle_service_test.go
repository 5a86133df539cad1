package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"cycle_tracker_bot/internal/domain/cycle"
	idb "cycle_tracker_bot/internal/infra/database"
)

type serviceFixture struct {
	svc     *CycleService
	users   *memUserRepo
	history *memHistoryRepo
	now     *time.Time
}

func newServiceFixture(t *testing.T, nowStr string) *serviceFixture {
	t.Helper()
	current, err := time.Parse(time.RFC3339, nowStr)
	if err != nil {
		t.Fatalf("bad fixture time %q: %v", nowStr, err)
	}
	users := newMemUserRepo()
	hist := newMemHistoryRepo()
	svc := NewCycleService(users, hist, cycle.NewReferenceTable(), testLogger())
	svc.now = func() time.Time { return current }
	return &serviceFixture{svc: svc, users: users, history: hist, now: &current}
}

func (f *serviceFixture) advanceTo(t *testing.T, nowStr string) {
	t.Helper()
	current, err := time.Parse(time.RFC3339, nowStr)
	if err != nil {
		t.Fatalf("bad fixture time %q: %v", nowStr, err)
	}
	*f.now = current
}

func day(t *testing.T, s string) cycle.Date {
	t.Helper()
	d, err := cycle.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestSetupRecordsFirstCycle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	p, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-15"))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !p.Info.LastMenstruationStart.Equal(day(t, "2026-01-15")) {
		t.Errorf("partition start: got %s", p.Info.LastMenstruationStart)
	}

	u, err := f.users.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !u.Configured() {
		t.Error("profile must be configured after setup")
	}
	if u.CycleLength != 28 || u.PeriodLength != 5 {
		t.Errorf("profile lengths: got %d/%d", u.CycleLength, u.PeriodLength)
	}

	rec, err := f.history.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !rec.CycleStartDate.Equal(day(t, "2026-01-15")) {
		t.Errorf("history start: got %s", rec.CycleStartDate)
	}
}

func TestSetupValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-21")); !errors.Is(err, ErrStartDateInFuture) {
		t.Errorf("future start: got %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-05")); !errors.Is(err, ErrStartDateTooOld) {
		t.Errorf("start beyond backdate window: got %v", err)
	}
	// Exactly at the window edge is allowed.
	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-06")); err != nil {
		t.Errorf("start at window edge: got %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 20, 5, day(t, "2026-01-15")); !errors.Is(err, cycle.ErrInvalidInput) {
		t.Errorf("short cycle length: got %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 28, 11, day(t, "2026-01-15")); !errors.Is(err, cycle.ErrInvalidInput) {
		t.Errorf("long menstruation: got %v", err)
	}
}

func TestEffectiveLengthAdaptsToHistory(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2025-12-18T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2025-12-18")); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	// A single record gives no observable gap, so the nominal length holds.
	u, _ := f.users.GetByID(ctx, 1)
	if got, err := f.svc.EffectiveLength(ctx, u); err != nil || got != 28 {
		t.Fatalf("one record: got %d, %v", got, err)
	}

	// The next start 30 days later becomes an observation.
	f.advanceTo(t, "2026-01-17T12:00:00Z")
	if _, err := f.svc.UpdateStartDate(ctx, 1, day(t, "2026-01-17")); err != nil {
		t.Fatalf("UpdateStartDate: %v", err)
	}
	u, _ = f.users.GetByID(ctx, 1)
	if got, err := f.svc.EffectiveLength(ctx, u); err != nil || got != 30 {
		t.Fatalf("two records: got %d, %v", got, err)
	}
}

func TestCorrectCycleEnd(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-15")); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if _, err := f.svc.CorrectCycleEnd(ctx, 1, day(t, "2026-01-10")); !errors.Is(err, idb.ErrInvalidEndDate) {
		t.Errorf("end before start: got %v", err)
	}
	if _, err := f.svc.CorrectCycleEnd(ctx, 1, day(t, "2026-01-25")); !errors.Is(err, idb.ErrInvalidEndDate) {
		t.Errorf("end in the future: got %v", err)
	}

	rec, err := f.svc.CorrectCycleEnd(ctx, 1, day(t, "2026-01-18"))
	if err != nil {
		t.Fatalf("CorrectCycleEnd: %v", err)
	}
	if !rec.ActualEndDate.Equal(day(t, "2026-01-18")) {
		t.Errorf("actual end: got %s", rec.ActualEndDate)
	}
}

func TestCorrectCycleEndWithoutRecords(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	// A configured profile without history records (e.g. after partial
	// manual cleanup) must surface not-found, not invalid input.
	f.users.users[1].LastPeriodStart = day(t, "2026-01-15")

	if _, err := f.svc.CorrectCycleEnd(ctx, 1, day(t, "2026-01-18")); !errors.Is(err, idb.ErrHistoryRecordNotFound) {
		t.Errorf("expected ErrHistoryRecordNotFound, got %v", err)
	}
}

func TestExtendCycle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	// Extension needs a recorded cycle to defer.
	if _, err := f.svc.ExtendCycle(ctx, 1); !errors.Is(err, ErrProfileNotConfigured) {
		t.Errorf("unconfigured profile: got %v", err)
	}

	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-15")); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if got, err := f.svc.ExtendCycle(ctx, 1); err != nil || got != 1 {
		t.Fatalf("first extension: got %d, %v", got, err)
	}
	if got, err := f.svc.ExtendCycle(ctx, 1); err != nil || got != 2 {
		t.Fatalf("second extension: got %d, %v", got, err)
	}
	if f.users.users[1].CycleExtendedDays != 2 {
		t.Errorf("extension not persisted: got %d", f.users.users[1].CycleExtendedDays)
	}

	// Recording a new cycle start clears the accumulated extension.
	if _, err := f.svc.UpdateStartDate(ctx, 1, day(t, "2026-01-20")); err != nil {
		t.Fatalf("UpdateStartDate: %v", err)
	}
	if f.users.users[1].CycleExtendedDays != 0 {
		t.Errorf("extension not reset on new start: got %d", f.users.users[1].CycleExtendedDays)
	}
}

func TestResetProfile(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 30, 6, day(t, "2026-01-15")); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if err := f.svc.ResetProfile(ctx, 1); err != nil {
		t.Fatalf("ResetProfile: %v", err)
	}
	if _, err := f.history.Latest(ctx, 1); !errors.Is(err, idb.ErrHistoryRecordNotFound) {
		t.Errorf("history must be empty after reset, got %v", err)
	}
	u, _ := f.users.GetByID(ctx, 1)
	if u.Configured() {
		t.Error("profile must be unconfigured after reset")
	}
	if u.CycleLength != 28 || u.PeriodLength != 5 {
		t.Errorf("defaults not restored: got %d/%d", u.CycleLength, u.PeriodLength)
	}

	// Resetting again is a no-op.
	if err := f.svc.ResetProfile(ctx, 1); err != nil {
		t.Errorf("second reset: %v", err)
	}
}

func TestProfileSettings(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if err := f.svc.SetNotificationTime(ctx, 1, "25:99"); !errors.Is(err, cycle.ErrInvalidInput) {
		t.Errorf("bad time: got %v", err)
	}
	if err := f.svc.SetNotificationTime(ctx, 1, "08:30"); err != nil {
		t.Fatalf("SetNotificationTime: %v", err)
	}

	if err := f.svc.SetTimezoneOffset(ctx, 1, 15); !errors.Is(err, cycle.ErrInvalidInput) {
		t.Errorf("offset above range: got %v", err)
	}
	if err := f.svc.SetTimezoneOffset(ctx, 1, -3); err != nil {
		t.Fatalf("SetTimezoneOffset: %v", err)
	}

	if err := f.svc.SetNames(ctx, 1, "Иван", "Анна"); err != nil {
		t.Fatalf("SetNames: %v", err)
	}

	enabled, err := f.svc.ToggleNotifications(ctx, 1)
	if err != nil || enabled {
		t.Fatalf("first toggle: got %v, %v", enabled, err)
	}
	enabled, err = f.svc.ToggleNotifications(ctx, 1)
	if err != nil || !enabled {
		t.Fatalf("second toggle: got %v, %v", enabled, err)
	}

	u, _ := f.users.GetByID(ctx, 1)
	if u.NotificationTime != "08:30" || u.TimezoneOffset != -3 {
		t.Errorf("settings not persisted: %q offset %d", u.NotificationTime, u.TimezoneOffset)
	}
	if u.PartnerName.String != "Анна" {
		t.Errorf("partner name: got %q", u.PartnerName.String)
	}
}

func TestStatusInsideWindow(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-15")); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	status, err := f.svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Located {
		t.Fatal("today is inside the partition window")
	}
	want := cycle.Location{Phase: cycle.PhaseFollicular, Stage: cycle.StageEarly}
	if status.Location != want {
		t.Errorf("location: got %+v, want %+v", status.Location, want)
	}
	if status.CurrentDay != 6 {
		t.Errorf("current day: got %d, want 6", status.CurrentDay)
	}
	if !status.NextPeriodDate.Equal(day(t, "2026-02-12")) {
		t.Errorf("next period: got %s", status.NextPeriodDate)
	}
	if !status.NextOvulation.Equal(day(t, "2026-01-30")) {
		t.Errorf("next ovulation: got %s", status.NextOvulation)
	}
}

func TestStatusOverdueCycle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := f.svc.Setup(ctx, 1, 28, 5, day(t, "2026-01-15")); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	// The partitioned window ends 2026-02-11; past it the absolute view has
	// no answer but the idealized projection still does.
	f.advanceTo(t, "2026-02-15T12:00:00Z")
	status, err := f.svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Located {
		t.Error("overdue cycle must not locate in the partition")
	}
	if status.CurrentDay != 4 {
		t.Errorf("wrapped current day: got %d, want 4", status.CurrentDay)
	}
}

func TestStatusUnconfigured(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "2026-01-20T12:00:00Z")
	if _, err := f.svc.RegisterUser(ctx, 1, "anna", "Anna"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := f.svc.Status(ctx, 1); !errors.Is(err, ErrProfileNotConfigured) {
		t.Errorf("expected ErrProfileNotConfigured, got %v", err)
	}
}
