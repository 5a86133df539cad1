package cycle

import (
	"errors"
	"testing"
)

func TestLocate(t *testing.T) {
	p, err := NewPartition(28, 5, mustDate(t, "2026-01-15"))
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}

	cases := []struct {
		date string
		want Location
	}{
		{"2026-01-15", Location{Phase: PhaseMenstrual, Stage: StageEarly}},
		{"2026-01-17", Location{Phase: PhaseMenstrual, Stage: StageMid}},
		{"2026-01-19", Location{Phase: PhaseMenstrual, Stage: StageLate}},
		{"2026-01-20", Location{Phase: PhaseFollicular, Stage: StageEarly}},
		{"2026-01-24", Location{Phase: PhaseFollicular, Stage: StageMid}},
		{"2026-01-29", Location{Phase: PhaseFollicular, Stage: StageLate}},
		{"2026-01-30", Location{Phase: PhaseOvulation}},
		{"2026-01-31", Location{Phase: PhaseOvulation}},
		{"2026-02-01", Location{Phase: PhaseLuteal, Stage: StageEarly}},
		{"2026-02-06", Location{Phase: PhaseLuteal, Stage: StageMid}},
		{"2026-02-11", Location{Phase: PhaseLuteal, Stage: StageLate}},
	}
	for _, tc := range cases {
		got, err := p.Locate(mustDate(t, tc.date))
		if err != nil {
			t.Errorf("Locate(%s): %v", tc.date, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Locate(%s): got %+v, want %+v", tc.date, got, tc.want)
		}
	}
}

func TestLocateOutsideWindow(t *testing.T) {
	p, err := NewPartition(28, 5, mustDate(t, "2026-01-15"))
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	for _, s := range []string{"2026-01-14", "2026-02-12"} {
		if _, err := p.Locate(mustDate(t, s)); !errors.Is(err, ErrInconsistentPartition) {
			t.Errorf("Locate(%s): expected ErrInconsistentPartition, got %v", s, err)
		}
	}
}

// Every day of every valid partition locates to exactly one phase and stage.
func TestLocateCoversFullWindow(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	for cycleLength := MinCycleLength; cycleLength <= MaxCycleLength; cycleLength++ {
		for menses := MinMenstruationLength; menses <= MaxMenstruationLength; menses++ {
			p, err := NewPartition(cycleLength, menses, start)
			if err != nil {
				t.Fatalf("NewPartition(%d, %d): %v", cycleLength, menses, err)
			}
			for offset := 0; offset < cycleLength; offset++ {
				d := start.AddDays(offset)
				if _, err := p.Locate(d); err != nil {
					t.Errorf("(%d, %d): Locate(%s): %v", cycleLength, menses, d, err)
				}
			}
		}
	}
}

func TestStartingOn(t *testing.T) {
	p, err := NewPartition(28, 5, mustDate(t, "2026-01-15"))
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}

	starts := p.StartingOn(mustDate(t, "2026-01-30"))
	if len(starts) != 1 {
		t.Fatalf("expected 1 start on ovulation date, got %d", len(starts))
	}
	if starts[0].Phase != PhaseOvulation || starts[0].Stage != "" {
		t.Errorf("ovulation start: got %+v", starts[0])
	}

	starts = p.StartingOn(mustDate(t, "2026-01-17"))
	if len(starts) != 1 || starts[0] != (Location{Phase: PhaseMenstrual, Stage: StageMid}) {
		t.Errorf("mid menstrual start: got %+v", starts)
	}

	if starts := p.StartingOn(mustDate(t, "2026-01-21")); len(starts) != 0 {
		t.Errorf("expected no starts on an interior day, got %+v", starts)
	}
}

func TestPosition(t *testing.T) {
	p, err := NewPartition(28, 5, mustDate(t, "2026-01-15"))
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}

	cases := []struct {
		date               string
		elapsed, remaining int
	}{
		{"2026-01-15", 1, 1}, // first day of the early menstrual third
		{"2026-01-30", 1, 1}, // first of the two ovulation days
		{"2026-01-31", 2, 0},
		{"2026-02-09", 1, 2}, // late luteal third spans three days
	}
	for _, tc := range cases {
		elapsed, remaining, err := p.Position(mustDate(t, tc.date))
		if err != nil {
			t.Errorf("Position(%s): %v", tc.date, err)
			continue
		}
		if elapsed != tc.elapsed || remaining != tc.remaining {
			t.Errorf("Position(%s): got (%d, %d), want (%d, %d)",
				tc.date, elapsed, remaining, tc.elapsed, tc.remaining)
		}
	}

	if _, _, err := p.Position(mustDate(t, "2026-03-01")); !errors.Is(err, ErrInconsistentPartition) {
		t.Errorf("expected ErrInconsistentPartition, got %v", err)
	}
}
