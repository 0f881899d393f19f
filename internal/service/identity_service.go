package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/domain"
	pw "github.com/smallbiznis/valora-identity/internal/password"
	"github.com/smallbiznis/valora-identity/internal/repository"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	IsStaff     bool
	IsSuperuser bool
}

// IdentityService owns account creation and credential checks.
type IdentityService struct {
	users  repository.UserRepository
	hasher *pw.Hasher
	instrumentation
}

// NewIdentityService wires dependencies.
func NewIdentityService(users repository.UserRepository, hasher *pw.Hasher, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		users:           users,
		hasher:          hasher,
		instrumentation: newInstrumentation(logger),
	}
}

// CreateUser persists a new active user together with its default organisation.
func (s *IdentityService) CreateUser(ctx context.Context, input NewUser) (domain.User, domain.Organisation, error) {
	ctx, span := s.startSpan(ctx, "IdentityService.CreateUser")
	defer span.End()

	email := normalizeEmail(input.Email)
	if email == "" {
		return domain.User{}, domain.Organisation{}, ErrEmailRequired
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, domain.Organisation{}, fmt.Errorf("hash password: %w", err)
	}

	firstName := strings.TrimSpace(input.FirstName)
	user := domain.User{
		UserID:       uuid.New(),
		FirstName:    firstName,
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hashed,
		IsActive:     true,
		IsStaff:      input.IsStaff,
		IsSuperuser:  input.IsSuperuser,
	}
	org := domain.Organisation{
		OrgID:   uuid.New(),
		Name:    domain.DefaultOrganisationName(firstName),
		OwnerID: user.UserID,
	}

	created, createdOrg, err := s.users.CreateWithOrganisation(ctx, user, org)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, domain.Organisation{}, fmt.Errorf("create user: %w", err)
	}

	s.log().Info("user created",
		zap.String("user_id", created.UserID.String()),
		zap.String("org_id", createdOrg.OrgID.String()),
	)
	return created, createdOrg, nil
}

// GetUserByID loads a user by identifier.
func (s *IdentityService) GetUserByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "IdentityService.GetUserByID")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// GetUserByEmail loads a user by case-insensitive email.
func (s *IdentityService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "IdentityService.GetUserByEmail")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// VerifyCredentials returns the active user matching email and password.
// Unknown emails, wrong passwords and inactive accounts all yield ErrInvalidCredentials.
func (s *IdentityService) VerifyCredentials(ctx context.Context, email, password string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "IdentityService.VerifyCredentials")
	defer span.End()

	normalized := normalizeEmail(email)
	if normalized == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log().Warn("stored password hash unreadable", zap.String("user_id", user.UserID.String()), zap.Error(err))
		return domain.User{}, ErrInvalidCredentials
	}
	if !valid || !user.IsActive {
		return domain.User{}, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.log().Debug("password hash uses outdated parameters", zap.String("user_id", user.UserID.String()))
	}
	return user, nil
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
