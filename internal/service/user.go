package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/auth"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

// UserService reads and edits accounts. Edits are only allowed on the
// caller's own account.
type UserService struct {
	users       repository.UserRepository
	bucketlists repository.BucketlistRepository
	passwords   *auth.PasswordService
	logger      *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	bucketlists repository.BucketlistRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:       users,
		bucketlists: bucketlists,
		passwords:   passwords,
		logger:      logger,
	}
}

// UpdateUserInput carries the fields to change. Nil fields are left alone.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
	Password  *string
}

func (in UpdateUserInput) empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.Username == nil &&
		in.Email == nil && in.Password == nil
}

// Get returns one user with their bucketlists and items nested.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	if err := validateID("user", id); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lists, err := s.bucketlists.ListByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading bucketlists for user %d: %w", id, err)
	}
	user.Bucketlists = lists
	return user, nil
}

// List returns every user, ordered by last name.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// Update changes the caller's own account.
func (s *UserService) Update(ctx context.Context, callerID, id int64, in UpdateUserInput) (*model.User, error) {
	if err := validateID("user", id); err != nil {
		return nil, err
	}
	if callerID != id {
		return nil, apperror.Forbidden("you can only edit your own account")
	}
	if in.empty() {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if err := validateName("first_name", v); err != nil {
			return nil, err
		}
		user.FirstName = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if err := validateName("last_name", v); err != nil {
			return nil, err
		}
		user.LastName = v
	}
	if in.Username != nil {
		v := normalizeUsername(*in.Username)
		if err := validateUsername(v); err != nil {
			return nil, err
		}
		user.Username = v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		if err := validateEmail(v); err != nil {
			return nil, err
		}
		user.Email = v
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("updating user %d: %w", id, err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to update user",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("user updated", slog.Int64("id", id))
	return user, nil
}

// Delete removes the caller's own account together with everything they own.
func (s *UserService) Delete(ctx context.Context, callerID, id int64) error {
	if err := validateID("user", id); err != nil {
		return err
	}
	if callerID != id {
		return apperror.Forbidden("you can only delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.Int64("id", id))
	return nil
}
