package service

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/memory"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*AuthService, *memory.UsersRepo, *auth.Manager) {
	t.Helper()
	store := memory.NewUsersRepo()
	tokens := auth.NewManager("test-secret", time.Minute)
	return NewAuthService(store, security.NewHasher(bcrypt.MinCost), tokens, quietLogger()), store, tokens
}

func TestAuthService_SignUpSignIn(t *testing.T) {
	svc, store, tokens := newAuthService(t)
	ctx := context.Background()

	u, token, err := svc.SignUp(ctx, SignUpInput{Name: " Ann ", Email: "Ann@X.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.Equal(t, user.RoleUser, u.Role)

	claims, err := tokens.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, user.RoleUser, claims.Role)

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)

	t.Run("Should reject duplicate emails", func(t *testing.T) {
		_, _, err := svc.SignUp(ctx, SignUpInput{Name: "Other", Email: "ann@x.com", Password: "password123"})
		assert.ErrorIs(t, err, user.ErrEmailTaken)
	})

	t.Run("Should sign in with correct credentials", func(t *testing.T) {
		got, token, err := svc.SignIn(ctx, "ANN@x.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.NotEmpty(t, token)
	})

	t.Run("Should reject a wrong password", func(t *testing.T) {
		_, _, err := svc.SignIn(ctx, "ann@x.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Should reject an unknown email", func(t *testing.T) {
		_, _, err := svc.SignIn(ctx, "nobody@x.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	svc, store, _ := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "Root", "", "secret"))
	all, _ := store.List(ctx, user.Page{})
	assert.Empty(t, all)

	require.NoError(t, svc.EnsureAdmin(ctx, "Root", "root@x.com", "secret"))
	require.NoError(t, svc.EnsureAdmin(ctx, "Root", "ROOT@x.com", "secret"))

	all, _ = store.List(ctx, user.Page{})
	require.Len(t, all, 1)
	assert.Equal(t, user.RoleAdmin, all[0].Role)

	_, _, err := svc.SignIn(ctx, "root@x.com", "secret")
	assert.NoError(t, err)
}

// countingHasher records Compare calls on top of a real hasher.
type countingHasher struct {
	*security.Hasher
	compares int
}

func (h *countingHasher) Compare(hash, plain string) error {
	h.compares++
	return h.Hasher.Compare(hash, plain)
}

func TestAuthService_SignInUnknownEmailStillHashes(t *testing.T) {
	hasher := &countingHasher{Hasher: security.NewHasher(bcrypt.MinCost)}
	svc := NewAuthService(memory.NewUsersRepo(), hasher, auth.NewManager("test-secret", time.Minute), quietLogger())

	_, _, err := svc.SignIn(context.Background(), "nobody@x.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.compares)
	assert.NotEmpty(t, svc.dummyHash)
}
