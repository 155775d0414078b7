package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/mattn/go-sqlite3"
)

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

type Observer interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

type UsersRepo struct {
	db  *sql.DB
	obs Observer
	sb  squirrel.StatementBuilderType
}

func NewUsersRepo(db *sql.DB, obs Observer) *UsersRepo {
	if obs == nil {
		obs = noopObserver{}
	}
	return &UsersRepo{
		db:  db,
		obs: obs,
		sb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func (r *UsersRepo) List(ctx context.Context, page user.Page) ([]user.User, error) {
	qb := r.sb.Select(userColumns...).From("users").OrderBy("id ASC")
	if page.Limit > 0 {
		qb = qb.Limit(uint64(page.Limit))
	} else if page.Offset > 0 {
		// sqlite only accepts OFFSET after a LIMIT
		qb = qb.Limit(math.MaxInt64)
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
		return sqlscan.Select(ctx, r.db, &users, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	for i := range users {
		users[i] = normalize(users[i])
	}
	return users, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", squirrel.Eq{"id": id})
}

// email is declared COLLATE NOCASE, so equality is case-insensitive.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", squirrel.Eq{"email": email})
}

func (r *UsersRepo) getOne(ctx context.Context, op string, pred squirrel.Sqlizer) (user.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users").Where(pred).Limit(1).ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("building select query: %w", err)
	}

	var u user.User
	err = r.obs.ObserveDB(op, func() error {
		return sqlscan.Get(ctx, r.db, &u, query, args...)
	})
	if err != nil {
		if sqlscan.NotFound(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("scanning user: %w", err)
	}
	return normalize(u), nil
}

// RETURNING columns carry no declared type in sqlite, so the driver would
// hand timestamps back as text; re-read the row instead.
func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	query, args, err := r.sb.Insert("users").
		Columns("name", "email", "password_hash", "role", "created_at", "updated_at").
		Values(in.Name, in.Email, in.PasswordHash, in.Role, in.CreatedAt, in.CreatedAt).
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("building insert query: %w", err)
	}

	var res sql.Result
	err = r.obs.ObserveDB("users.create", func() error {
		var execErr error
		res, execErr = r.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return user.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return r.GetByID(ctx, id)
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
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("building update query: %w", err)
	}

	var res sql.Result
	err = r.obs.ObserveDB("users.update", func() error {
		var execErr error
		res, execErr = r.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("updating user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return user.User{}, fmt.Errorf("updating user: %w", err)
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}

	var res sql.Result
	err = r.obs.ObserveDB("users.delete", func() error {
		var execErr error
		res, execErr = r.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// the driver hands timestamps back in whatever zone it parsed them with
func normalize(u user.User) user.User {
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
