package user

import (
	"database/sql"
	"time"

	"cycle_tracker_bot/internal/domain/cycle"
)

// Defaults applied when a profile has not been configured yet.
const (
	DefaultCycleLength      = 28
	DefaultPeriodLength     = 5
	DefaultNotificationTime = "09:00"
)

// User is one tracked account. ID is the Telegram user id. TimezoneOffset is
// whole hours relative to the reference zone; legacy installations stored it
// as text, which a startup migration converts once (no runtime sniffing).
type User struct {
	ID          int64
	Username    sql.NullString
	FirstName   sql.NullString
	Name        sql.NullString
	PartnerName sql.NullString

	CycleLength     int
	PeriodLength    int
	LastPeriodStart cycle.Date // zero until the first cycle is recorded

	// CycleExtendedDays defers the rollover prompt by one day per "cycle has
	// not ended yet" answer. Reset to zero when a new cycle start is recorded.
	CycleExtendedDays int

	NotificationsEnabled bool
	NotificationTime     string // "HH:MM" in the user's local time
	TimezoneOffset       int
	NotifyPhaseStart     bool

	DaysWithNotifications int
	LastNotificationDate  cycle.Date
	LastPhaseAdvanceDate  cycle.Date
	PinnedMessageID       sql.NullInt64

	CreatedAt time.Time
}

// Configured reports whether the profile carries enough data to compute a
// cycle partition.
func (u *User) Configured() bool {
	return !u.LastPeriodStart.IsZero() && u.CycleLength > 0 && u.PeriodLength > 0
}

// DisplayPartnerName falls back to a neutral placeholder when unset.
func (u *User) DisplayPartnerName() string {
	if u.PartnerName.Valid && u.PartnerName.String != "" {
		return u.PartnerName.String
	}
	return "неё"
}
