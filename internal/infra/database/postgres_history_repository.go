package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cycle_tracker_bot/internal/domain/cycle"
	"cycle_tracker_bot/internal/domain/history"
)

// Custom errors specific to the history repository.
var ErrHistoryRecordNotFound = fmt.Errorf("cycle history record not found")
var ErrInvalidEndDate = fmt.Errorf("invalid cycle end date")

type PostgresHistoryRepository struct {
	db *sql.DB
}

func NewPostgresHistoryRepository(db *sql.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Append stores a computed partition as a new record. The owning user's row
// is locked for the duration of the transaction, serializing writes per user.
func (r *PostgresHistoryRepository) Append(ctx context.Context, userID int64, p *cycle.Partition) (*history.Record, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("error encoding partition for user %d: %w", userID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	if err = lockUserRow(ctx, tx, userID); err != nil {
		return nil, err
	}

	rec := &history.Record{
		UserID:         userID,
		CycleStartDate: p.Info.LastMenstruationStart,
		Partition:      p,
	}
	query := `INSERT INTO cycle_records (user_id, cycle_start_date, partition_json)
               VALUES ($1, $2, $3)
               RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, query, userID, rec.CycleStartDate.Time(), payload).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting cycle record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing cycle record: %w", err)
	}
	return rec, nil
}

// CorrectLastEnd sets the actual end date on the user's most recent record.
func (r *PostgresHistoryRepository) CorrectLastEnd(ctx context.Context, userID int64, actualEnd, today cycle.Date) (*history.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning correction transaction: %w", err)
	}
	defer tx.Rollback()

	if err = lockUserRow(ctx, tx, userID); err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, cycle_start_date, partition_json, actual_end_date, created_at
               FROM cycle_records
               WHERE user_id = $1
               ORDER BY cycle_start_date DESC
               LIMIT 1
               FOR UPDATE`
	rec, err := scanRecord(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrHistoryRecordNotFound
		}
		return nil, fmt.Errorf("error loading latest cycle record: %w", err)
	}

	if actualEnd.Before(rec.CycleStartDate) {
		return nil, fmt.Errorf("%w: %s precedes cycle start %s", ErrInvalidEndDate, actualEnd, rec.CycleStartDate)
	}
	if actualEnd.After(today) {
		return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidEndDate, actualEnd)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE cycle_records SET actual_end_date = $1 WHERE id = $2`,
		actualEnd.Time(), rec.ID)
	if err != nil {
		return nil, fmt.Errorf("error updating actual end date: %w", err)
	}
	rec.ActualEndDate = actualEnd

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing end date correction: %w", err)
	}
	return rec, nil
}

func (r *PostgresHistoryRepository) Latest(ctx context.Context, userID int64) (*history.Record, error) {
	records, err := r.LatestN(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrHistoryRecordNotFound
	}
	return records[0], nil
}

func (r *PostgresHistoryRepository) LatestN(ctx context.Context, userID int64, n int) ([]*history.Record, error) {
	query := `SELECT id, user_id, cycle_start_date, partition_json, actual_end_date, created_at
               FROM cycle_records
               WHERE user_id = $1
               ORDER BY cycle_start_date DESC
               LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("error listing cycle records: %w", err)
	}
	defer rows.Close()

	records := make([]*history.Record, 0, n)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning cycle record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycle records: %w", err)
	}
	return records, nil
}

func (r *PostgresHistoryRepository) ResetAll(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cycle_records WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error deleting cycle records for user %d: %w", userID, err)
	}
	return nil
}

// lockUserRow takes the per-user write lock backing history mutations.
func lockUserRow(ctx context.Context, tx *sql.Tx, userID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		return fmt.Errorf("error locking user row %d: %w", userID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*history.Record, error) {
	rec := &history.Record{}
	var start sql.NullTime
	var actualEnd sql.NullTime
	var payload []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &start, &payload, &actualEnd, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if start.Valid {
		rec.CycleStartDate = cycle.DateOf(start.Time)
	}
	if actualEnd.Valid {
		rec.ActualEndDate = cycle.DateOf(actualEnd.Time)
	}
	p := &cycle.Partition{}
	if err := json.Unmarshal(payload, p); err != nil {
		return nil, fmt.Errorf("error decoding stored partition: %w", err)
	}
	rec.Partition = p
	return rec, nil
}
