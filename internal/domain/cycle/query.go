package cycle

import "fmt"

// ErrInconsistentPartition signals that a date inside the cycle window matched
// no phase range. Given the contiguity invariant this cannot happen for a
// well-formed partition; callers must treat it as an internal error and never
// recover silently.
var ErrInconsistentPartition = fmt.Errorf("date falls outside every phase range of the partition")

// Location names the phase, and sub-stage when present, containing a date.
// Stage is empty for the ovulatory phase.
type Location struct {
	Phase PhaseName
	Stage Stage
}

func contains(start, end, d Date) bool {
	return !d.Before(start) && !d.After(end)
}

// Locate returns the phase and sub-stage whose inclusive range contains d.
func (p *Partition) Locate(d Date) (Location, error) {
	for _, ph := range p.Phases {
		if len(ph.SubPhases) == 0 {
			if contains(ph.StartDate, ph.EndDate, d) {
				return Location{Phase: ph.Name}, nil
			}
			continue
		}
		for _, sub := range ph.SubPhases {
			if contains(sub.StartDate, sub.EndDate, d) {
				return Location{Phase: ph.Name, Stage: sub.Stage}, nil
			}
		}
	}
	return Location{}, fmt.Errorf("%w: %s", ErrInconsistentPartition, d)
}

// StartingOn returns every phase or sub-phase whose start date equals d, in
// phase order. Within one partition at most one entry is expected, but the
// list contract stays uniform for callers scanning several partitions.
func (p *Partition) StartingOn(d Date) []Location {
	var starts []Location
	for _, ph := range p.Phases {
		if len(ph.SubPhases) == 0 {
			if ph.StartDate.Equal(d) {
				starts = append(starts, Location{Phase: ph.Name})
			}
			continue
		}
		for _, sub := range ph.SubPhases {
			if sub.StartDate.Equal(d) {
				starts = append(starts, Location{Phase: ph.Name, Stage: sub.Stage})
			}
		}
	}
	return starts
}

// Position reports how far d is into its containing unit (a sub-phase, or the
// whole ovulatory phase) and how many days remain. Elapsed counts d itself.
func (p *Partition) Position(d Date) (daysElapsed, daysRemaining int, err error) {
	for _, ph := range p.Phases {
		if len(ph.SubPhases) == 0 {
			if contains(ph.StartDate, ph.EndDate, d) {
				return ph.StartDate.DaysUntil(d) + 1, d.DaysUntil(ph.EndDate), nil
			}
			continue
		}
		for _, sub := range ph.SubPhases {
			if contains(sub.StartDate, sub.EndDate, d) {
				return sub.StartDate.DaysUntil(d) + 1, d.DaysUntil(sub.EndDate), nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrInconsistentPartition, d)
}
