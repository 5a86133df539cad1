package history

import (
	"time"

	"cycle_tracker_bot/internal/domain/cycle"
)

// Record is one persisted cycle partition tied to a user and start date.
// Records are append-only: ActualEndDate is the only field ever mutated, set
// once per "cycle ended early" correction on the most recent record.
type Record struct {
	ID             int64
	UserID         int64
	CycleStartDate cycle.Date
	Partition      *cycle.Partition
	ActualEndDate  cycle.Date // zero when the cycle ran its computed course
	CreatedAt      time.Time
}

// Observation converts the record into the estimator's input shape.
func (r *Record) Observation() cycle.LengthObservation {
	return cycle.LengthObservation{Start: r.CycleStartDate, ActualEnd: r.ActualEndDate}
}
