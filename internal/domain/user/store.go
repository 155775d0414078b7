package user

import (
	"context"
	"time"
)

// Store is the persistence capability the service depends on. Get returns
// ErrNotFound for a missing id; Update and Delete return ErrNotFound when no
// row matched.
type Store interface {
	List(ctx context.Context, page Page) ([]User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, in NewUser) (User, error)
	Update(ctx context.Context, id int64, patch Patch, updatedAt time.Time) (User, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
