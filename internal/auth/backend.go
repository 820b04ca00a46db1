package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tombotower/tower-server/internal/domain"
	"github.com/tombotower/tower-server/internal/store"
	"github.com/tombotower/tower-server/internal/store/sqlite"
)

// Signup failure kinds, surfaced to handlers as flash messages.
var (
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrWeakPassword  = errors.New("password must be at least 8 characters long")
	ErrUsernameTaken = errors.New("username already taken")
	ErrWrongPassword = errors.New("current password is incorrect")
)

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// Use form tag names for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("form")
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}()

// dummyHash is verified when a login names an unknown user, so the
// not-found and wrong-password paths cost the same.
var dummyHash = func() string {
	h, err := HashPassword("correct horse battery staple")
	if err != nil {
		panic(fmt.Sprintf("hash dummy password: %v", err))
	}
	return h
}()

// Backend verifies credentials and rehydrates session users from the store.
type Backend struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// NewBackend creates an authentication backend over the sqlite store.
func NewBackend(s *sqlite.Store, logger *slog.Logger) *Backend {
	return &Backend{store: s, logger: logger}
}

// signupRequest carries the validated signup form fields.
type signupRequest struct {
	Username string `form:"username" validate:"required"`
	Email    string `form:"email"`
	Password string `form:"password" validate:"required,min=8"`
}

// Authenticate looks up the user by username and verifies the password
// against the stored Argon2id hash. A missing user and a wrong password are
// indistinguishable: both return (nil, nil). Only storage failures error.
func (b *Backend) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := b.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// Burn the same hashing cost as a real verification.
		_, _ = VerifyPassword(dummyHash, password)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return user, nil
}

// LoadUser fetches a user by primary key. Returns (nil, nil) when the user
// no longer exists.
func (b *Backend) LoadUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := b.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// SessionAuthHash returns the stable bytes bound into a session at login.
// Derived from the password hash: changing a password invalidates every
// session carrying the old value.
func SessionAuthHash(user *domain.User) []byte {
	return []byte(user.PasswordHash)
}

// Signup validates and creates a new account. Failure kinds are
// ErrEmptyUsername, ErrWeakPassword, ErrUsernameTaken, or a storage error.
func (b *Backend) Signup(ctx context.Context, username, email, password string) (*domain.User, error) {
	req := signupRequest{
		Username: strings.TrimSpace(username),
		Email:    email,
		Password: password,
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			switch fieldErrs[0].Field() {
			case "username":
				return nil, ErrEmptyUsername
			case "password":
				return nil, ErrWeakPassword
			}
		}
		return nil, fmt.Errorf("validate signup: %w", err)
	}

	// Early duplicate check for a friendly error; the unique constraint
	// still catches the race below.
	if _, err := b.store.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := b.store.CreateUser(ctx, req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	b.logger.Info("New user created", "username", req.Username)

	return &domain.User{
		ID:           id,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}, nil
}

// ChangePassword verifies the current password and replaces it. Returns the
// user with the new hash so callers can rebind their session. Failure kinds
// are ErrWrongPassword, ErrWeakPassword, or a storage error.
func (b *Backend) ChangePassword(ctx context.Context, user *domain.User, current, next string) (*domain.User, error) {
	ok, err := VerifyPassword(user.PasswordHash, current)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrWrongPassword
	}

	if len(next) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(next)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := b.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	b.logger.Info("Password changed", "username", user.Username)

	updated := *user
	updated.PasswordHash = hash
	return &updated, nil
}
