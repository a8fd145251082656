package users

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/operate360/operate360/internal/auth"
	"github.com/operate360/operate360/internal/shared"
)

// Client-facing failures.
var (
	ErrInvalidUserID          = shared.NewError(shared.ErrValidation, "Invalid user ID")
	ErrProfileFieldsRequired  = shared.NewError(shared.ErrValidation, "All fields are required")
	ErrPasswordFieldsRequired = shared.NewError(shared.ErrValidation, "Old password and new password are required")
	ErrIncorrectPassword      = shared.NewError(shared.ErrAuthentication, "Incorrect old password")
	ErrForbidden              = shared.NewError(shared.ErrAuthorization, "Forbidden")
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, in ProfileUpdate) (*User, error)
	ReplacePassword(ctx context.Context, id int64, fn func(current string) (string, error)) error
	DeleteUser(ctx context.Context, id int64) error
}

// ProfileInput is the body of an update-profile request.
type ProfileInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	RoleID   int64  `json:"roleId" validate:"required"`
}

// PasswordInput is the body of a change-password request.
type PasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Service handles user business logic.
type Service struct {
	repo        RepositoryPort
	hasher      auth.PasswordHasher
	adminRoleID int64
	validate    *validator.Validate
}

// NewService builds Service instance. Principals holding adminRoleID may
// act on any account.
func NewService(repo RepositoryPort, hasher auth.PasswordHasher, adminRoleID int64) *Service {
	return &Service{repo: repo, hasher: hasher, adminRoleID: adminRoleID, validate: validator.New()}
}

// IsAdmin reports whether p holds the administrator role.
func (s *Service) IsAdmin(p shared.Principal) bool {
	return p.RoleID == s.adminRoleID
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, shared.Internal("users: list", err)
	}
	return users, nil
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, s.mapLookup("users: get", err)
	}
	return user, nil
}

// UpdateProfile changes username, email and role of id on behalf of actor.
// Only administrators may edit other accounts or change a role.
func (s *Service) UpdateProfile(ctx context.Context, actor shared.Principal, id int64, in ProfileInput) (*User, error) {
	if actor.UserID != id && !s.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	in.Username = auth.NormalizeUsername(in.Username)
	in.Email = auth.NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, ErrProfileFieldsRequired
	}
	if err := s.validate.Var(in.Email, "email"); err != nil {
		return nil, auth.ErrInvalidEmail
	}

	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, s.mapLookup("users: update lookup", err)
	}
	if in.RoleID != current.RoleID && !s.IsAdmin(actor) {
		return nil, ErrForbidden
	}

	updated, err := s.repo.UpdateProfile(ctx, id, ProfileUpdate{Username: in.Username, Email: in.Email, RoleID: in.RoleID})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return nil, auth.ErrEmailTaken
		}
		return nil, s.mapLookup("users: update profile", err)
	}
	return updated, nil
}

// ChangePassword replaces the password of id after checking the old one.
// The check applies to administrators too.
func (s *Service) ChangePassword(ctx context.Context, actor shared.Principal, id int64, in PasswordInput) error {
	if actor.UserID != id && !s.IsAdmin(actor) {
		return ErrForbidden
	}
	if err := s.validate.Struct(in); err != nil {
		return ErrPasswordFieldsRequired
	}
	if len(in.NewPassword) > auth.MaxPasswordBytes {
		return auth.ErrPasswordTooLong
	}

	err := s.repo.ReplacePassword(ctx, id, func(current string) (string, error) {
		if !s.hasher.Verify(in.OldPassword, current) {
			return "", ErrIncorrectPassword
		}
		return s.hasher.Hash(in.NewPassword)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrIncorrectPassword):
		return ErrIncorrectPassword
	default:
		return s.mapLookup("users: change password", err)
	}
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return s.mapLookup("users: delete", err)
	}
	return nil
}

func (s *Service) mapLookup(op string, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return auth.ErrUserNotFound
	}
	return shared.Internal(op, err)
}
