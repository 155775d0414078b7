package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

// DB is the slice of pgxpool.Pool the repo needs; pgxmock satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Observer times a logical DB operation. observability.Prom implements it.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

type UsersRepo struct {
	db  DB
	obs Observer
	sb  squirrel.StatementBuilderType
}

func NewUsersRepo(db DB, obs Observer) *UsersRepo {
	if obs == nil {
		obs = noopObserver{}
	}
	return &UsersRepo{
		db:  db,
		obs: obs,
		sb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *UsersRepo) List(ctx context.Context, page user.Page) ([]user.User, error) {
	qb := r.sb.Select(userColumns...).From("users").OrderBy("id ASC")
	if page.Limit > 0 {
		qb = qb.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		qb = qb.Offset(uint64(page.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	users := make([]user.User, 0)
	err = r.obs.ObserveDB("users.list", func() error {
		return pgxscan.Select(ctx, r.db, &users, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", squirrel.Eq{"id": id})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", squirrel.Expr("lower(email) = lower(?)", email))
}

func (r *UsersRepo) getOne(ctx context.Context, op string, pred squirrel.Sqlizer) (user.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users").Where(pred).Limit(1).ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("building select query: %w", err)
	}

	var u user.User
	err = r.obs.ObserveDB(op, func() error {
		return pgxscan.Get(ctx, r.db, &u, query, args...)
	})
	if err != nil {
		if pgxscan.NotFound(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	query, args, err := r.sb.Insert("users").
		Columns("name", "email", "password_hash", "role", "created_at", "updated_at").
		Values(in.Name, in.Email, in.PasswordHash, in.Role, in.CreatedAt, in.CreatedAt).
		Suffix("RETURNING id, name, email, password_hash, role, created_at, updated_at").
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("building insert query: %w", err)
	}

	var u user.User
	err = r.obs.ObserveDB("users.create", func() error {
		return pgxscan.Get(ctx, r.db, &u, query, args...)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, patch user.Patch, updatedAt time.Time) (user.User, error) {
	ub := r.sb.Update("users")
	if patch.Name != nil {
		ub = ub.Set("name", *patch.Name)
	}
	if patch.Email != nil {
		ub = ub.Set("email", *patch.Email)
	}
	if patch.Role != nil {
		ub = ub.Set("role", *patch.Role)
	}

	query, args, err := ub.Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, name, email, password_hash, role, created_at, updated_at").
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("building update query: %w", err)
	}

	var u user.User
	err = r.obs.ObserveDB("users.update", func() error {
		return pgxscan.Get(ctx, r.db, &u, query, args...)
	})
	if err != nil {
		if pgxscan.NotFound(err) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("updating user: %w", err)
	}
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}

	var tag pgconn.CommandTag
	err = r.obs.ObserveDB("users.delete", func() error {
		var execErr error
		tag, execErr = r.db.Exec(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
