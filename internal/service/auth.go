// Package service contains the business rules of the bucketlist API.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates input, enforces ownership, orchestrates
//	Repository      → reads/writes the database
//
// Services take repository interfaces, never a concrete store, so the same
// rules run on SQLite, on Postgres, and on the in-memory fakes in the tests.
// They return apperror values and know nothing about HTTP status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/auth"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

// Validation limits for account fields.
const (
	MaxNameLength     = 100
	MaxUsernameLength = 80
	MaxEmailLength    = 120
	MinPasswordLength = 6
)

// invalidCredentials is the single answer for every failed login, whether
// the account is unknown or the password is wrong.
const invalidCredentials = "invalid username or password"

// AuthService registers accounts, checks credentials and issues tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is everything needed to open an account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// LoginResult bundles the authenticated user and their new token.
type LoginResult struct {
	User  *model.User
	Token *auth.IssuedToken
}

// Register validates the input, hashes the password and stores the user.
// A taken username or email comes back as apperror.ErrConflict from the
// store's unique constraint.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	user := &model.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Username:  normalizeUsername(in.Username),
		Email:     normalizeEmail(in.Email),
	}

	if err := validateName("first_name", user.FirstName); err != nil {
		return nil, err
	}
	if err := validateName("last_name", user.LastName); err != nil {
		return nil, err
	}
	if err := validateUsername(user.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(user.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("username", user.Username),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate checks a password against the account named by identifier.
// An identifier containing "@" is looked up as an email, anything else as a
// username.
//
// ok is false both for an unknown identifier and for a wrong password, and
// the two cases cost the same bcrypt work. err is reserved for store failures.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*model.User, bool, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		user *model.User
		err  error
	)
	switch {
	case identifier == "":
		err = apperror.NotFound("user", "")
	case strings.Contains(identifier, "@"):
		user, err = s.users.GetByEmail(ctx, normalizeEmail(identifier))
	default:
		user, err = s.users.GetByUsername(ctx, normalizeUsername(identifier))
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("authenticating: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash is unreadable",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, false, nil
	}
	return user, true, nil
}

// Login authenticates and, on success, issues a token for the user.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, ok, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("login failed", slog.String("identifier", identifier))
		return nil, apperror.Unauthorized("invalid_credentials", invalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("logging in: %w", err)
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return &LoginResult{User: user, Token: token}, nil
}

// ValidateToken reports whether a token is valid, expired or invalid.
func (s *AuthService) ValidateToken(token string) (*auth.Claims, error) {
	return s.tokens.Validate(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeUsername folds case so "Alice" and "alice" name one account.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateName(field, v string) error {
	if v == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	if len(v) > MaxNameLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, MaxNameLength))
	}
	return nil
}

func validateUsername(v string) error {
	if v == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(v) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if strings.Contains(v, "@") || strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return apperror.ValidationFailed("username", "username may not contain spaces or @")
	}
	return nil
}

func validateEmail(v string) error {
	if v == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(v) > MaxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return apperror.ValidationFailed("email", "email is not a valid address")
	}
	return nil
}

func validatePassword(v string) error {
	if len(v) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(v) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}

// validateID rejects ids that cannot name a row before any query runs.
func validateID(resource string, id int64) error {
	if id <= 0 {
		return apperror.ValidationFailed("id", resource+" id must be a positive integer")
	}
	return nil
}
