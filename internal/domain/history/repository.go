package history

import (
	"context"

	"cycle_tracker_bot/internal/domain/cycle"
)

// Repository defines persistence for cycle history records. Mutating calls
// are serialized per user by the implementation; reads need no coordination.
type Repository interface {
	// Append stores a newly computed partition as a fresh record. It never
	// mutates existing records and is atomic per call.
	Append(ctx context.Context, userID int64, p *cycle.Partition) (*Record, error)
	// CorrectLastEnd sets the actual end date on the user's most recent
	// record. Fails when the user has no records, or when the date precedes
	// the record's start or lies after today.
	CorrectLastEnd(ctx context.Context, userID int64, actualEnd, today cycle.Date) (*Record, error)
	// Latest returns the most recent record by cycle start date.
	Latest(ctx context.Context, userID int64) (*Record, error)
	// LatestN returns up to n records ordered by cycle start date descending.
	LatestN(ctx context.Context, userID int64, n int) ([]*Record, error)
	// ResetAll deletes every record for the user. Idempotent.
	ResetAll(ctx context.Context, userID int64) error
}
