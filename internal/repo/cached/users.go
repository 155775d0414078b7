package cached

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/domain/user"
)

// UsersRepo wraps a user.Store with a read-through cache on GetByID.
// Cached rows never carry the password hash; credential checks go through
// GetByEmail, which always hits the inner store.
type UsersRepo struct {
	inner   user.Store
	cache   cache.Backend
	log     *slog.Logger
	metrics Metrics

	// gen is bumped by every invalidation; a refill that observed an older
	// value must not leave its row behind.
	gen atomic.Uint64
}

// Metrics counts lookups by result: hit, miss or error.
type Metrics interface {
	ObserveCache(result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCache(string) {}

func NewUsersRepo(inner user.Store, backend cache.Backend, log *slog.Logger) *UsersRepo {
	if log == nil {
		log = slog.Default()
	}
	return &UsersRepo{inner: inner, cache: backend, log: log, metrics: noopMetrics{}}
}

func (r *UsersRepo) WithMetrics(m Metrics) *UsersRepo {
	if m != nil {
		r.metrics = m
	}
	return r
}

func cacheKey(id int64) string {
	return "user:id:" + strconv.FormatInt(id, 10)
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	key := cacheKey(id)

	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.metrics.ObserveCache("error")
		r.log.WarnContext(ctx, "user cache read failed", "cache_key", key, "err", err)
	}
	if ok {
		var u user.User
		if err := json.Unmarshal(raw, &u); err == nil {
			r.metrics.ObserveCache("hit")
			r.log.DebugContext(ctx, "user cache hit", "cache_key", key)
			return u, nil
		}
		r.log.DebugContext(ctx, "discarding undecodable cache entry", "cache_key", key)
	}
	if err == nil {
		r.metrics.ObserveCache("miss")
	}

	gen := r.gen.Load()
	u, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	r.store(ctx, key, u, gen)
	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, patch user.Patch, updatedAt time.Time) (user.User, error) {
	u, err := r.inner.Update(ctx, id, patch, updatedAt)
	if err == nil || errors.Is(err, user.ErrNotFound) {
		r.invalidate(ctx, id)
	}
	return u, err
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	err := r.inner.Delete(ctx, id)
	if err == nil || errors.Is(err, user.ErrNotFound) {
		r.invalidate(ctx, id)
	}
	return err
}

func (r *UsersRepo) List(ctx context.Context, page user.Page) ([]user.User, error) {
	return r.inner.List(ctx, page)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.inner.GetByEmail(ctx, email)
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	return r.inner.Create(ctx, in)
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.inner.Ping(ctx)
}

func (r *UsersRepo) store(ctx context.Context, key string, u user.User, gen uint64) {
	if r.gen.Load() != gen {
		r.log.DebugContext(ctx, "skipping stale cache refill", "cache_key", key)
		return
	}
	b, err := json.Marshal(u)
	if err != nil {
		r.log.WarnContext(ctx, "failed to marshal user for cache", "err", err)
		return
	}
	if err := r.cache.Set(ctx, key, b); err != nil {
		r.log.WarnContext(ctx, "failed to cache user", "cache_key", key, "err", err)
		return
	}
	// an invalidation may have landed between the check above and Set
	if r.gen.Load() != gen {
		if err := r.cache.Delete(ctx, key); err != nil {
			r.log.WarnContext(ctx, "failed to drop stale cached user", "cache_key", key, "err", err)
		}
	}
}

func (r *UsersRepo) invalidate(ctx context.Context, id int64) {
	r.gen.Add(1)
	key := cacheKey(id)
	if err := r.cache.Delete(ctx, key); err != nil {
		r.log.WarnContext(ctx, "failed to invalidate cached user", "cache_key", key, "err", err)
	}
}
