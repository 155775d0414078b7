package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/actorctx"
	"github.com/geocoder89/userhub/internal/domain/user"
)

type UserService struct {
	store user.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewUserService(store user.Store, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

func (s *UserService) ListUsers(ctx context.Context, page user.Page) ([]user.User, error) {
	users, err := s.store.List(ctx, page)
	if err != nil {
		s.log.ErrorContext(ctx, "error getting users", "err", err)
		return nil, err
	}
	return users, nil
}

// GetUser returns nil, nil when no row has the id.
func (s *UserService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}
		s.log.ErrorContext(ctx, "error getting user by id", "user_id", id, "err", err)
		return nil, err
	}
	return &u, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, patch user.Patch) (user.User, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return user.User{}, s.fail(ctx, "error updating user", id, err)
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}

	updated, err := s.store.Update(ctx, id, patch, s.nextUpdatedAt(existing.UpdatedAt))
	if err != nil {
		return user.User{}, s.fail(ctx, "error updating user", id, err)
	}

	s.log.InfoContext(ctx, "user updated", append(actorAttrs(ctx), "user_id", updated.ID, "email", updated.Email)...)
	return updated, nil
}

// DeleteUser returns the row as it was before removal.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (user.User, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return user.User{}, s.fail(ctx, "error deleting user", id, err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return user.User{}, s.fail(ctx, "error deleting user", id, err)
	}

	s.log.InfoContext(ctx, "user deleted", append(actorAttrs(ctx), "user_id", existing.ID, "email", existing.Email)...)
	return existing, nil
}

// nextUpdatedAt is strictly after prev at the microsecond precision
// postgres keeps.
func (s *UserService) nextUpdatedAt(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

// actorAttrs names the caller in audit log lines when one is attached.
func actorAttrs(ctx context.Context) []any {
	p, ok := actorctx.PrincipalFrom(ctx)
	if !ok {
		return nil
	}
	return []any{"actor_id", p.UserID, "actor_role", p.Role}
}

func (s *UserService) fail(ctx context.Context, msg string, id int64, err error) error {
	switch {
	case errors.Is(err, user.ErrNotFound):
		s.log.DebugContext(ctx, msg, "user_id", id, "err", err)
	case errors.Is(err, user.ErrEmailTaken):
		s.log.InfoContext(ctx, msg, "user_id", id, "err", err)
	default:
		s.log.ErrorContext(ctx, msg, "user_id", id, "err", err)
	}
	return err
}
