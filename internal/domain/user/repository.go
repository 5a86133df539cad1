package user

import "context"

// Repository defines persistence for user profiles.
type Repository interface {
	// Create inserts a new profile with defaults, or leaves an existing one
	// untouched apart from refreshed Telegram identity fields.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, u *User) error
	// ListNotifiable returns users with notifications enabled and a recorded
	// cycle start.
	ListNotifiable(ctx context.Context) ([]*User, error)
	// Reset restores the profile's cycle and notification fields to defaults.
	Reset(ctx context.Context, id int64) error
}
