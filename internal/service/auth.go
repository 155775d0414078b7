package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/security"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type TokenIssuer interface {
	GenerateAccessToken(userID int64, email, role string) (string, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

type AuthService struct {
	store  user.Store
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger

	// dummyHash is compared against on unknown emails so both sign-in
	// failures cost one hash check.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store user.Store, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{store: store, hasher: hasher, tokens: tokens, log: log}
}

// SignUp creates a regular user and returns it with a fresh access token.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (user.User, string, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.ErrorContext(ctx, "error hashing password", "err", err)
		return user.User{}, "", err
	}

	u, err := s.store.Create(ctx, user.NewUser{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         user.RoleUser, // default role for new users
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		if !errors.Is(err, user.ErrEmailTaken) {
			s.log.ErrorContext(ctx, "error creating user", "err", err)
		}
		return user.User{}, "", err
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		s.log.ErrorContext(ctx, "error signing token", "user_id", u.ID, "err", err)
		return user.User{}, "", err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID, "email", u.Email)
	return u, token, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (user.User, string, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_ = s.hasher.Compare(s.unknownUserHash(), password)
			return user.User{}, "", ErrInvalidCredentials
		}
		s.log.ErrorContext(ctx, "error looking up user", "err", err)
		return user.User{}, "", err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return user.User{}, "", ErrInvalidCredentials
		}
		return user.User{}, "", err
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		s.log.ErrorContext(ctx, "error signing token", "user_id", u.ID, "err", err)
		return user.User{}, "", err
	}

	s.log.InfoContext(ctx, "user signed in", "user_id", u.ID)
	return u, token, nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("userhub-unknown-user")
		if err != nil {
			s.log.Warn("could not build dummy password hash", "err", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// EnsureAdmin creates an admin account at startup when none exists for
// email. Empty email or password disables seeding.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	u, err := s.store.Create(ctx, user.NewUser{
		Name:         name,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "admin user seeded", "user_id", u.ID, "email", u.Email)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
