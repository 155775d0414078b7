package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
)

// UsersRepo is a map-backed user.Store for tests and local runs.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[int64]user.User),
	}
}

func (r *UsersRepo) List(ctx context.Context, page user.Page) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}
	r.mu.RUnlock()

	// ids are assigned in insertion order
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if page.Offset > 0 {
		if page.Offset >= len(out) {
			return []user.User{}, nil
		}
		out = out[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(in.Email, 0) {
		return user.User{}, user.ErrEmailTaken
	}

	r.nextID++
	u := user.User{
		ID:           r.nextID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    in.CreatedAt,
		UpdatedAt:    in.CreatedAt,
	}
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, patch user.Patch, updatedAt time.Time) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if patch.Email != nil && r.emailTakenLocked(*patch.Email, id) {
		return user.User{}, user.ErrEmailTaken
	}

	u = patch.Apply(u)
	u.UpdatedAt = updatedAt
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return nil
}

func (r *UsersRepo) emailTakenLocked(email string, exceptID int64) bool {
	for id, u := range r.items {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
