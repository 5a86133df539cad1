package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cycle_tracker_bot/internal/domain/cycle"
	"cycle_tracker_bot/internal/domain/history"
	"cycle_tracker_bot/internal/domain/user"
	idb "cycle_tracker_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the cycle service.
var ErrProfileNotConfigured = fmt.Errorf("cycle profile is not configured yet")
var ErrStartDateInFuture = fmt.Errorf("cycle start date is in the future")
var ErrStartDateTooOld = fmt.Errorf("cycle start date is beyond the backdate window")

// backdateWindowDays bounds how far back a cycle start may be recorded; users
// often report the start with a delay.
const backdateWindowDays = 14

// maxHistoryForEstimate is how many records feed the adaptive length estimate.
const maxHistoryForEstimate = 4

// CycleService orchestrates cycle setup and corrections: validation, adaptive
// length estimation, partitioning and the history record behind it.
type CycleService struct {
	users     user.Repository
	history   history.Repository
	reference cycle.ReferenceTable
	logger    *logrus.Entry
	now       func() time.Time
}

func NewCycleService(
	ur user.Repository,
	hr history.Repository,
	reference cycle.ReferenceTable,
	logger *logrus.Entry,
) *CycleService {
	return &CycleService{
		users:     ur,
		history:   hr,
		reference: reference,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *CycleService) today() cycle.Date {
	return cycle.DateOf(s.now())
}

// RegisterUser creates the profile on first contact, refreshing Telegram
// identity fields for returning users.
func (s *CycleService) RegisterUser(ctx context.Context, id int64, username, firstName string) (*user.User, error) {
	u := &user.User{
		ID:        id,
		Username:  nullString(username),
		FirstName: nullString(firstName),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to register user %d: %w", id, err)
	}
	return s.users.GetByID(ctx, id)
}

// Setup records the initial cycle parameters and start date, computes the
// first partition and appends it to history.
func (s *CycleService) Setup(ctx context.Context, userID int64, cycleLength, periodLength int, start cycle.Date) (*cycle.Partition, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cycleLength < cycle.MinCycleLength || cycleLength > cycle.MaxCycleLength {
		return nil, fmt.Errorf("%w: cycle length %d outside [%d, %d]",
			cycle.ErrInvalidInput, cycleLength, cycle.MinCycleLength, cycle.MaxCycleLength)
	}
	if periodLength < cycle.MinMenstruationLength || periodLength > cycle.MaxMenstruationLength {
		return nil, fmt.Errorf("%w: menstruation length %d outside [%d, %d]",
			cycle.ErrInvalidInput, periodLength, cycle.MinMenstruationLength, cycle.MaxMenstruationLength)
	}
	if err := s.validateStartDate(start); err != nil {
		return nil, err
	}

	u.CycleLength = cycleLength
	u.PeriodLength = periodLength
	u.LastPeriodStart = start
	u.CycleExtendedDays = 0
	return s.recordCycle(ctx, u)
}

// UpdateStartDate commits a new cycle start (manual correction or confirmed
// rollover) using the stored profile parameters.
func (s *CycleService) UpdateStartDate(ctx context.Context, userID int64, start cycle.Date) (*cycle.Partition, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.CycleLength == 0 || u.PeriodLength == 0 {
		return nil, ErrProfileNotConfigured
	}
	if err := s.validateStartDate(start); err != nil {
		return nil, err
	}

	u.LastPeriodStart = start
	u.CycleExtendedDays = 0
	return s.recordCycle(ctx, u)
}

// ExtendCycle defers the rollover prompt by one more day for a cycle that has
// not ended yet, returning the accumulated extension.
func (s *CycleService) ExtendCycle(ctx context.Context, userID int64) (int, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !u.Configured() {
		return 0, ErrProfileNotConfigured
	}
	u.CycleExtendedDays++
	if err := s.users.Update(ctx, u); err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"extended_days": u.CycleExtendedDays,
	}).Info("Cycle extended by one day")
	return u.CycleExtendedDays, nil
}

// recordCycle computes the partition with the effective length, appends the
// history record and then persists the profile. Append is atomic: a failed
// append leaves no partial record and the profile untouched.
func (s *CycleService) recordCycle(ctx context.Context, u *user.User) (*cycle.Partition, error) {
	effectiveLength, err := s.EffectiveLength(ctx, u)
	if err != nil {
		return nil, err
	}
	p, err := cycle.NewPartition(effectiveLength, u.PeriodLength, u.LastPeriodStart)
	if err != nil {
		return nil, err
	}
	if _, err := s.history.Append(ctx, u.ID, p); err != nil {
		return nil, fmt.Errorf("failed to append cycle record for user %d: %w", u.ID, err)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update profile for user %d: %w", u.ID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"user_id":          u.ID,
		"cycle_start":      u.LastPeriodStart.String(),
		"effective_length": effectiveLength,
	}).Info("New cycle recorded")
	return p, nil
}

func (s *CycleService) validateStartDate(start cycle.Date) error {
	today := s.today()
	if start.After(today) {
		return ErrStartDateInFuture
	}
	if start.DaysUntil(today) > backdateWindowDays {
		return ErrStartDateTooOld
	}
	return nil
}

// CorrectCycleEnd marks the most recent history record as having ended early.
func (s *CycleService) CorrectCycleEnd(ctx context.Context, userID int64, end cycle.Date) (*history.Record, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Configured() {
		return nil, ErrProfileNotConfigured
	}
	rec, err := s.history.CorrectLastEnd(ctx, userID, end, s.today())
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"actual_end": end.String(),
	}).Info("Cycle end date corrected")
	return rec, nil
}

// EffectiveLength derives the adaptive cycle length for the user, falling
// back to the stored nominal value.
func (s *CycleService) EffectiveLength(ctx context.Context, u *user.User) (int, error) {
	return effectiveLength(ctx, s.history, u)
}

// ResetProfile removes every history record and restores profile defaults.
// Idempotent.
func (s *CycleService) ResetProfile(ctx context.Context, userID int64) error {
	if err := s.history.ResetAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset history for user %d: %w", userID, err)
	}
	if err := s.users.Reset(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset profile for user %d: %w", userID, err)
	}
	s.logger.WithField("user_id", userID).Info("Profile fully reset")
	return nil
}

// SetNotificationTime updates the preferred local delivery time ("HH:MM").
func (s *CycleService) SetNotificationTime(ctx context.Context, userID int64, hhmm string) error {
	if _, err := time.Parse("15:04", hhmm); err != nil {
		return fmt.Errorf("%w: notification time %q is not HH:MM", cycle.ErrInvalidInput, hhmm)
	}
	return s.updateUser(ctx, userID, func(u *user.User) { u.NotificationTime = hhmm })
}

// SetTimezoneOffset updates the integer offset from the reference zone.
func (s *CycleService) SetTimezoneOffset(ctx context.Context, userID int64, offset int) error {
	if offset < -12 || offset > 14 {
		return fmt.Errorf("%w: timezone offset %d outside [-12, 14]", cycle.ErrInvalidInput, offset)
	}
	return s.updateUser(ctx, userID, func(u *user.User) { u.TimezoneOffset = offset })
}

// SetNames stores the user's and the partner's display names.
func (s *CycleService) SetNames(ctx context.Context, userID int64, name, partnerName string) error {
	return s.updateUser(ctx, userID, func(u *user.User) {
		u.Name = nullString(name)
		u.PartnerName = nullString(partnerName)
	})
}

// ToggleNotifications flips the notification flag and reports the new state.
func (s *CycleService) ToggleNotifications(ctx context.Context, userID int64) (bool, error) {
	var enabled bool
	err := s.updateUser(ctx, userID, func(u *user.User) {
		u.NotificationsEnabled = !u.NotificationsEnabled
		enabled = u.NotificationsEnabled
	})
	return enabled, err
}

func (s *CycleService) updateUser(ctx context.Context, userID int64, mutate func(*user.User)) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	mutate(u)
	return s.users.Update(ctx, u)
}

// CycleStatus is the full runtime view of a user's cycle for display.
type CycleStatus struct {
	User            *user.User
	EffectiveLength int
	Partition       *cycle.Partition
	Located         bool // false when today is outside the partitioned window
	Location        cycle.Location
	DaysInUnit      int
	DaysLeftInUnit  int
	CurrentDay      int
	NextPeriodDate  cycle.Date
	LastOvulation   cycle.Date
	NextOvulation   cycle.Date
	NextTransition  cycle.Transition
}

// Status computes the current state for the user: the partitioned view for
// today plus the idealized projections. The two can diverge for an overdue
// cycle; both are reported.
func (s *CycleService) Status(ctx context.Context, userID int64) (*CycleStatus, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Configured() {
		return nil, ErrProfileNotConfigured
	}
	effectiveLength, err := s.EffectiveLength(ctx, u)
	if err != nil {
		return nil, err
	}
	p, err := cycle.NewPartition(effectiveLength, u.PeriodLength, u.LastPeriodStart)
	if err != nil {
		return nil, err
	}

	today := s.today()
	status := &CycleStatus{
		User:            u,
		EffectiveLength: effectiveLength,
		Partition:       p,
	}

	if !today.Before(p.Info.LastMenstruationStart) && !today.After(p.Info.CycleEndDate) {
		loc, err := p.Locate(today)
		if err != nil {
			// Inside the window a miss violates the contiguity invariant.
			return nil, err
		}
		daysIn, daysLeft, err := p.Position(today)
		if err != nil {
			return nil, err
		}
		status.Located = true
		status.Location = loc
		status.DaysInUnit = daysIn
		status.DaysLeftInUnit = daysLeft
	}

	proj := cycle.NewProjector(u.LastPeriodStart, effectiveLength, u.PeriodLength, s.reference)
	status.CurrentDay = proj.CurrentDay(today)
	status.NextPeriodDate = proj.NextCycleStart(today)
	status.LastOvulation = proj.LastOvulationDate(today)
	status.NextOvulation = proj.NextOvulationDate(today)
	status.NextTransition = proj.NextPhaseTransition(today)
	return status, nil
}

// effectiveLength is shared by the cycle and notification services.
func effectiveLength(ctx context.Context, hr history.Repository, u *user.User) (int, error) {
	records, err := hr.LatestN(ctx, u.ID, maxHistoryForEstimate)
	if err != nil && err != idb.ErrHistoryRecordNotFound {
		return 0, fmt.Errorf("failed to load history for user %d: %w", u.ID, err)
	}
	observations := make([]cycle.LengthObservation, 0, len(records))
	for _, rec := range records {
		observations = append(observations, rec.Observation())
	}
	fallback := u.CycleLength
	if fallback == 0 {
		fallback = user.DefaultCycleLength
	}
	return cycle.EstimateLength(observations, fallback), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
