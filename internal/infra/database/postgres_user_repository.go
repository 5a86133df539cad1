package database

import (
	"context"
	"database/sql"
	"fmt"

	"cycle_tracker_bot/internal/domain/cycle"
	"cycle_tracker_bot/internal/domain/user"
)

var ErrUserNotFound = fmt.Errorf("user not found")

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, username, first_name, name, partner_name,
        cycle_length, period_length, last_period_start, cycle_extended_days,
        notifications_enabled, notification_time, timezone_offset, notify_phase_start,
        days_with_notifications, last_notification_date, last_phase_advance_date,
        pinned_message_id, created_at`

// Create inserts a profile with defaults. On conflict only the Telegram
// identity fields are refreshed; cycle data stays untouched.
func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (id, username, first_name, notification_time)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
               RETURNING created_at`
	notificationTime := u.NotificationTime
	if notificationTime == "" {
		notificationTime = user.DefaultNotificationTime
	}
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Username, u.FirstName, notificationTime).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating user %d: %w", u.ID, err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, u *user.User) error {
	query := `UPDATE users
               SET name = $1, partner_name = $2,
                   cycle_length = $3, period_length = $4, last_period_start = $5,
                   cycle_extended_days = $6,
                   notifications_enabled = $7, notification_time = $8,
                   timezone_offset = $9, notify_phase_start = $10,
                   days_with_notifications = $11, last_notification_date = $12,
                   last_phase_advance_date = $13, pinned_message_id = $14
               WHERE id = $15`
	result, err := r.db.ExecContext(ctx, query,
		u.Name, u.PartnerName,
		u.CycleLength, u.PeriodLength, nullDate(u.LastPeriodStart),
		u.CycleExtendedDays,
		u.NotificationsEnabled, u.NotificationTime,
		u.TimezoneOffset, u.NotifyPhaseStart,
		u.DaysWithNotifications, nullDate(u.LastNotificationDate),
		nullDate(u.LastPhaseAdvanceDate), u.PinnedMessageID,
		u.ID)
	if err != nil {
		return fmt.Errorf("error updating user %d: %w", u.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking update result for user %d: %w", u.ID, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) ListNotifiable(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
               WHERE notifications_enabled = TRUE AND last_period_start IS NOT NULL
               ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing notifiable users: %w", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notifiable user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifiable users: %w", err)
	}
	return users, nil
}

// Reset restores cycle and notification fields to their defaults while
// keeping the account row itself.
func (r *PostgresUserRepository) Reset(ctx context.Context, id int64) error {
	query := `UPDATE users
               SET name = NULL, partner_name = NULL,
                   cycle_length = $1, period_length = $2, last_period_start = NULL,
                   cycle_extended_days = 0,
                   notifications_enabled = TRUE, notification_time = $3,
                   notify_phase_start = TRUE, days_with_notifications = 0,
                   last_notification_date = NULL, last_phase_advance_date = NULL,
                   pinned_message_id = NULL
               WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query,
		user.DefaultCycleLength, user.DefaultPeriodLength, user.DefaultNotificationTime, id)
	if err != nil {
		return fmt.Errorf("error resetting user %d: %w", id, err)
	}
	return nil
}

func scanUser(row rowScanner) (*user.User, error) {
	u := &user.User{}
	var lastPeriodStart, lastNotification, lastPhaseAdvance sql.NullTime
	err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.Name, &u.PartnerName,
		&u.CycleLength, &u.PeriodLength, &lastPeriodStart, &u.CycleExtendedDays,
		&u.NotificationsEnabled, &u.NotificationTime, &u.TimezoneOffset, &u.NotifyPhaseStart,
		&u.DaysWithNotifications, &lastNotification, &lastPhaseAdvance,
		&u.PinnedMessageID, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastPeriodStart.Valid {
		u.LastPeriodStart = cycle.DateOf(lastPeriodStart.Time)
	}
	if lastNotification.Valid {
		u.LastNotificationDate = cycle.DateOf(lastNotification.Time)
	}
	if lastPhaseAdvance.Valid {
		u.LastPhaseAdvanceDate = cycle.DateOf(lastPhaseAdvance.Time)
	}
	return u, nil
}

func nullDate(d cycle.Date) sql.NullTime {
	if d.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time(), Valid: true}
}
