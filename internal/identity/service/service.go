// Package service implements account registration and authentication: the
// identity provider the rest of the core treats as an external collaborator.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sou1357/bloodbankapp/internal/identity/models"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
	"github.com/sou1357/bloodbankapp/pkg/requestcontext"
)

// UserStore is the persistence seam for accounts.
type UserStore interface {
	CreateIfEmailAvailable(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer signs access tokens for authenticated identities.
type TokenIssuer interface {
	Generate(caller domain.Identity) (string, error)
}

// RegisterInput carries everything a registration needs. Organization fields
// apply to BLOOD_SERVICE accounts, the blood group to DONOR accounts.
type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	Role             domain.Role
	OrganizationKind domain.OrganizationKind
	LicenseNumber    string
	DonorBloodGroup  domain.BloodGroup
}

type Service struct {
	users  UserStore
	tokens TokenIssuer
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(users UserStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{users: users, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns it with a signed access token.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	if input.Password == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if input.Role == domain.RoleBloodService && !input.OrganizationKind.IsValid() {
		return nil, "", dErrors.New(dErrors.CodeValidation, "organization kind must be HOSPITAL or BLOOD_BANK")
	}
	if input.Role == domain.RoleDonor && input.DonorBloodGroup != "" && !input.DonorBloodGroup.IsValid() {
		return nil, "", dErrors.Newf(dErrors.CodeValidation, "invalid blood group %q", input.DonorBloodGroup)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user, err := models.NewUser(uuid.NewString(), input.Name, input.Email, string(hash), input.Role, requestcontext.Now(ctx))
	if err != nil {
		return nil, "", err
	}
	if input.Role == domain.RoleBloodService {
		user.OrganizationKind = input.OrganizationKind
		user.LicenseNumber = strings.TrimSpace(input.LicenseNumber)
	}
	if input.Role == domain.RoleDonor {
		user.DonorBloodGroup = input.DonorBloodGroup
	}

	if err := s.users.CreateIfEmailAvailable(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	signedToken, err := s.tokens.Generate(user.Identity())
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"role", user.Role,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	return user, signedToken, nil
}

// Login verifies credentials and returns the account with a fresh token.
// Unknown email and wrong password share one message so login cannot be used
// as an account oracle.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	signedToken, err := s.tokens.Generate(user.Identity())
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return user, signedToken, nil
}

// Me returns the account behind an authenticated identity.
func (s *Service) Me(ctx context.Context, callerID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// PublicProfile exposes another account's public fields, used by the
// blood-bank request listing to show the owning hospital.
func (s *Service) PublicProfile(ctx context.Context, userID string) (models.PublicProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.PublicProfile{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.PublicProfile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user.Public(), nil
}
