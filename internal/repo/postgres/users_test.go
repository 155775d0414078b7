package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *postgres.UsersRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, postgres.NewUsersRepo(mockPool, nil)
}

func TestUsersRepo_List(t *testing.T) {
	t.Run("Should list whole table ordered by id", func(t *testing.T) {
		mockPool, repo := newMock(t)
		now := time.Now().UTC()
		rows := mockPool.NewRows(cols).
			AddRow(int64(1), "Ann", "ann@x.com", "", "user", now, now).
			AddRow(int64(2), "Bob", "bob@x.com", "", "admin", now, now)
		mockPool.ExpectQuery("SELECT (.+) FROM users ORDER BY id ASC$").
			WillReturnRows(rows)

		got, err := repo.List(context.Background(), user.Page{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(1), got[0].ID)
		assert.Equal(t, "admin", got[1].Role)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should apply limit and offset", func(t *testing.T) {
		mockPool, repo := newMock(t)
		mockPool.ExpectQuery("SELECT (.+) FROM users ORDER BY id ASC LIMIT 10 OFFSET 20").
			WillReturnRows(mockPool.NewRows(cols))

		got, err := repo.List(context.Background(), user.Page{Limit: 10, Offset: 20})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUsersRepo_GetByID(t *testing.T) {
	t.Run("Should get user by id", func(t *testing.T) {
		mockPool, repo := newMock(t)
		now := time.Now().UTC()
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1 LIMIT 1").
			WithArgs(int64(7)).
			WillReturnRows(mockPool.NewRows(cols).AddRow(int64(7), "Ann", "ann@x.com", "hash", "user", now, now))

		got, err := repo.GetByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map no rows to ErrNotFound", func(t *testing.T) {
		mockPool, repo := newMock(t)
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs(int64(8)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 8)
		assert.ErrorIs(t, err, user.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should wrap backend errors", func(t *testing.T) {
		mockPool, repo := newMock(t)
		boom := errors.New("connection reset")
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs(int64(9)).
			WillReturnError(boom)

		_, err := repo.GetByID(context.Background(), 9)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, user.ErrNotFound)
	})
}

func TestUsersRepo_GetByEmail(t *testing.T) {
	mockPool, repo := newMock(t)
	now := time.Now().UTC()
	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE lower\\(email\\) = lower\\(\\$1\\)").
		WithArgs("Ann@X.com").
		WillReturnRows(mockPool.NewRows(cols).AddRow(int64(1), "Ann", "ann@x.com", "hash", "user", now, now))

	got, err := repo.GetByEmail(context.Background(), "Ann@X.com")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUsersRepo_Create(t *testing.T) {
	t.Run("Should insert and return the new row", func(t *testing.T) {
		mockPool, repo := newMock(t)
		now := time.Now().UTC()
		in := user.NewUser{Name: "Ann", Email: "ann@x.com", PasswordHash: "hash", Role: "user", CreatedAt: now}
		mockPool.ExpectQuery("INSERT INTO users (.+) RETURNING").
			WithArgs("Ann", "ann@x.com", "hash", "user", now, now).
			WillReturnRows(mockPool.NewRows(cols).AddRow(int64(1), "Ann", "ann@x.com", "hash", "user", now, now))

		got, err := repo.Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map unique violation to ErrEmailTaken", func(t *testing.T) {
		mockPool, repo := newMock(t)
		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Create(context.Background(), user.NewUser{Name: "Ann", Email: "ann@x.com", Role: "user"})
		assert.ErrorIs(t, err, user.ErrEmailTaken)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUsersRepo_Update(t *testing.T) {
	t.Run("Should only set patched columns plus updated_at", func(t *testing.T) {
		mockPool, repo := newMock(t)
		created := time.Now().UTC().Add(-time.Hour)
		now := time.Now().UTC()
		name := "Annie"
		mockPool.ExpectQuery("UPDATE users SET name = \\$1, updated_at = \\$2 WHERE id = \\$3 RETURNING").
			WithArgs("Annie", now, int64(1)).
			WillReturnRows(mockPool.NewRows(cols).AddRow(int64(1), "Annie", "ann@x.com", "", "user", created, now))

		got, err := repo.Update(context.Background(), 1, user.Patch{Name: &name}, now)
		require.NoError(t, err)
		assert.Equal(t, "Annie", got.Name)
		assert.Equal(t, created, got.CreatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return ErrNotFound when nothing matched", func(t *testing.T) {
		mockPool, repo := newMock(t)
		role := "admin"
		now := time.Now().UTC()
		mockPool.ExpectQuery("UPDATE users SET role = \\$1, updated_at = \\$2 WHERE id = \\$3").
			WithArgs("admin", now, int64(5)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Update(context.Background(), 5, user.Patch{Role: &role}, now)
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("Should map unique violation to ErrEmailTaken", func(t *testing.T) {
		mockPool, repo := newMock(t)
		email := "bob@x.com"
		now := time.Now().UTC()
		mockPool.ExpectQuery("UPDATE users SET email = \\$1, updated_at = \\$2 WHERE id = \\$3").
			WithArgs("bob@x.com", now, int64(1)).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Update(context.Background(), 1, user.Patch{Email: &email}, now)
		assert.ErrorIs(t, err, user.ErrEmailTaken)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUsersRepo_Delete(t *testing.T) {
	t.Run("Should delete existing row", func(t *testing.T) {
		mockPool, repo := newMock(t)
		mockPool.ExpectExec("DELETE FROM users WHERE id = \\$1").
			WithArgs(int64(3)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Delete(context.Background(), 3))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return ErrNotFound when no rows affected", func(t *testing.T) {
		mockPool, repo := newMock(t)
		mockPool.ExpectExec("DELETE FROM users WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), 4), user.ErrNotFound)
	})
}
