package users

import "context"

// Repo persists users keyed by provider subject id.
type Repo interface {
	GetByID(ctx context.Context, userID string) (User, error)
	// Create inserts a new row; ErrConflict when the id is taken.
	Create(ctx context.Context, user User) error
	// Update overwrites email, names and updated_at; ErrNotFound when absent.
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, userID string) (bool, error)
	Exists(ctx context.Context, userID string) (bool, error)
}
