package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/operate360/operate360/internal/shared"
)

// Client-facing failures. Both login failure paths return ErrInvalidLogin.
var (
	ErrLoginFieldsRequired    = shared.NewError(shared.ErrValidation, "Email and password are required")
	ErrRegisterFieldsRequired = shared.NewError(shared.ErrValidation, "All fields are required")
	ErrInvalidEmail           = shared.NewError(shared.ErrValidation, "A valid email address is required")
	ErrPasswordTooLong        = shared.NewError(shared.ErrValidation, "Password must be at most 72 bytes")
	ErrInvalidLogin           = shared.NewError(shared.ErrAuthentication, "Invalid email or password")
	ErrEmailTaken             = shared.NewError(shared.ErrConflict, "Email is already registered")
	ErrUnauthorized           = shared.NewError(shared.ErrAuthentication, "Unauthorized")
	ErrUserNotFound           = shared.NewError(shared.ErrNotFound, "User not found")
)

const dummyPassword = "operate360-timing-equaliser"

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	RoleID   int64  `json:"roleId" validate:"required"`
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	hasher      PasswordHasher
	tokens      *TokenCodec
	revocations RevocationRegistry
	validate    *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher PasswordHasher, tokens *TokenCodec, revocations RevocationRegistry) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		validate:    validator.New(),
	}
}

// Login validates email/password credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, ErrLoginFieldsRequired
	}
	cred, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Verify(in.Password, s.dummy())
			return nil, ErrInvalidLogin
		}
		return nil, shared.Internal("auth: login lookup", err)
	}
	if !s.hasher.Verify(in.Password, cred.PasswordHash) {
		return nil, ErrInvalidLogin
	}
	return s.issue(cred.Identity())
}

// Register creates a credential and issues a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = NormalizeUsername(in.Username)
	in.Email = NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, ErrRegisterFieldsRequired
	}
	if err := s.validate.Var(in.Email, "email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	_, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, shared.ErrNotFound):
		return nil, shared.Internal("auth: register lookup", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, shared.Internal("auth: register hash", err)
	}
	cred, err := s.repo.Create(ctx, NewCredential{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       in.RoleID,
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, shared.Internal("auth: register create", err)
	}
	return s.issue(cred.Identity())
}

// Logout revokes token without verifying it. Expired or malformed tokens are
// recorded too; they are rejected by the codec regardless.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	if err := s.revocations.Revoke(ctx, token, s.tokens.ExpiresAt(token)); err != nil {
		return shared.Internal("auth: revoke token", err)
	}
	return nil
}

// Me returns the identity behind an authenticated principal.
func (s *Service) Me(ctx context.Context, userID int64) (Identity, error) {
	cred, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Identity{}, ErrUserNotFound
		}
		return Identity{}, shared.Internal("auth: me lookup", err)
	}
	return cred.Identity(), nil
}

func (s *Service) issue(id Identity) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(id)
	if err != nil {
		return nil, shared.Internal("auth: issue token", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Identity: id}, nil
}

// dummy returns a hash compared against on unknown emails so that both login
// failure paths pay for one bcrypt comparison.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		if hash, err := s.hasher.Hash(dummyPassword); err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
