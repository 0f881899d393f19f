package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/domain"
	"github.com/smallbiznis/valora-identity/internal/repository"
)

// CreateOrganisationInput is the organisation creation body.
type CreateOrganisationInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// AddMemberInput is the add-member body.
type AddMemberInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

const (
	msgUserNotFound         = "User not found"
	msgOrganisationNotFound = "Organisation not found"
)

// DirectoryService serves user and organisation lookups scoped to the requester.
type DirectoryService struct {
	users     repository.UserRepository
	orgs      repository.OrganisationRepository
	ownerOnly bool
	validate  *validator.Validate
	instrumentation
}

// NewDirectoryService wires dependencies.
func NewDirectoryService(users repository.UserRepository, orgs repository.OrganisationRepository, cfg config.Config, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		users:           users,
		orgs:            orgs,
		ownerOnly:       cfg.MembershipOwnerOnly,
		validate:        newValidator(),
		instrumentation: newInstrumentation(logger),
	}
}

// GetUser returns target if it is the requester's own record.
func (s *DirectoryService) GetUser(ctx context.Context, requester domain.User, targetID string) (UserViewModel, error) {
	ctx, span := s.startSpan(ctx, "DirectoryService.GetUser")
	defer span.End()

	id, err := uuid.Parse(targetID)
	if err != nil {
		return UserViewModel{}, NewError(KindNotFound, http.StatusUnauthorized, msgUserNotFound).withCause(err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return UserViewModel{}, NewError(KindNotFound, http.StatusUnauthorized, msgUserNotFound).withCause(err)
		}
		span.RecordError(err)
		return UserViewModel{}, fmt.Errorf("load user: %w", err)
	}

	if user.UserID != requester.UserID {
		return UserViewModel{}, NewError(KindAuthorization, http.StatusUnauthorized, "Unauthorized to access this record")
	}
	return newUserViewModel(user), nil
}

// ListMyOrganisations returns every organisation the requester owns or belongs to.
func (s *DirectoryService) ListMyOrganisations(ctx context.Context, requester domain.User) ([]OrganisationViewModel, error) {
	ctx, span := s.startSpan(ctx, "DirectoryService.ListMyOrganisations")
	defer span.End()

	orgs, err := s.orgs.ListForUser(ctx, requester.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list organisations: %w", err)
	}

	views := make([]OrganisationViewModel, 0, len(orgs))
	for _, org := range orgs {
		views = append(views, newOrganisationViewModel(org))
	}
	return views, nil
}

// CreateOrganisation creates an organisation owned by the requester, who is
// also added as its first member.
func (s *DirectoryService) CreateOrganisation(ctx context.Context, requester domain.User, input CreateOrganisationInput) (OrganisationViewModel, error) {
	ctx, span := s.startSpan(ctx, "DirectoryService.CreateOrganisation")
	defer span.End()

	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	fields, err := fieldErrors(s.validate, input)
	if err != nil {
		span.RecordError(err)
		return OrganisationViewModel{}, err
	}
	if len(fields) > 0 {
		return OrganisationViewModel{}, errClient(KindValidation).withFields(fields)
	}

	org, err := s.orgs.Create(ctx, domain.Organisation{
		OrgID:       uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     requester.UserID,
	}, true)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateOrganisationName) {
			return OrganisationViewModel{}, errClient(KindDuplicate).withCause(err).
				withFields(map[string]string{"name": "An organisation with this name already exists."})
		}
		span.RecordError(err)
		return OrganisationViewModel{}, fmt.Errorf("create organisation: %w", err)
	}

	s.log().Info("organisation created",
		zap.String("org_id", org.OrgID.String()),
		zap.String("owner_id", requester.UserID.String()),
	)
	return newOrganisationViewModel(org), nil
}

// GetOrganisation returns the organisation when the requester is one of its members.
func (s *DirectoryService) GetOrganisation(ctx context.Context, requester domain.User, orgID string) (OrganisationViewModel, error) {
	ctx, span := s.startSpan(ctx, "DirectoryService.GetOrganisation")
	defer span.End()

	org, err := s.loadOrganisation(ctx, orgID, http.StatusUnauthorized)
	if err != nil {
		return OrganisationViewModel{}, err
	}

	member, err := s.orgs.IsMember(ctx, org.OrgID, requester.UserID)
	if err != nil {
		span.RecordError(err)
		return OrganisationViewModel{}, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return OrganisationViewModel{}, NewError(KindAuthorization, http.StatusForbidden, "You do not have permission to access this organisation")
	}
	return newOrganisationViewModel(org), nil
}

// AddOrganisationMember adds a user to an organisation. When owner-only
// membership is configured, only the organisation owner may do so.
func (s *DirectoryService) AddOrganisationMember(ctx context.Context, requester domain.User, orgID string, input AddMemberInput) error {
	ctx, span := s.startSpan(ctx, "DirectoryService.AddOrganisationMember")
	defer span.End()

	org, err := s.loadOrganisation(ctx, orgID, http.StatusNotFound)
	if err != nil {
		return err
	}

	input.UserID = strings.ToLower(strings.TrimSpace(input.UserID))
	fields, err := fieldErrors(s.validate, input)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if len(fields) > 0 {
		return NewError(KindValidation, http.StatusBadRequest, "Invalid user data").withFields(fields)
	}

	userID := uuid.MustParse(input.UserID)
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errMemberNotFound(err)
		}
		span.RecordError(err)
		return fmt.Errorf("load user: %w", err)
	}

	if s.ownerOnly && org.OwnerID != requester.UserID {
		return NewError(KindAuthorization, http.StatusForbidden, "Only the organisation owner can add members")
	}

	if err := s.orgs.AddMember(ctx, org.OrgID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyMember):
			return NewError(KindConflict, http.StatusBadRequest, "User is already a member of this organisation").withCause(err)
		case errors.Is(err, repository.ErrOrganisationNotFound):
			return NewError(KindNotFound, http.StatusNotFound, msgOrganisationNotFound).withCause(err)
		case errors.Is(err, repository.ErrUserNotFound):
			return errMemberNotFound(err)
		}
		span.RecordError(err)
		return fmt.Errorf("add member: %w", err)
	}

	s.log().Info("organisation member added",
		zap.String("org_id", org.OrgID.String()),
		zap.String("user_id", userID.String()),
		zap.String("added_by", requester.UserID.String()),
	)
	return nil
}

// loadOrganisation resolves orgID, reporting a missing organisation with notFoundStatus.
func (s *DirectoryService) loadOrganisation(ctx context.Context, orgID string, notFoundStatus int) (domain.Organisation, error) {
	id, err := uuid.Parse(orgID)
	if err != nil {
		return domain.Organisation{}, NewError(KindNotFound, notFoundStatus, msgOrganisationNotFound).withCause(err)
	}

	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrganisationNotFound) {
			return domain.Organisation{}, NewError(KindNotFound, notFoundStatus, msgOrganisationNotFound).withCause(err)
		}
		return domain.Organisation{}, fmt.Errorf("load organisation: %w", err)
	}
	return org, nil
}

func errClient(kind Kind) *Error {
	return NewError(kind, http.StatusBadRequest, "Client error")
}

func errMemberNotFound(cause error) *Error {
	return NewError(KindNotFound, http.StatusNotFound, "User with the provided ID not found").withCause(cause)
}
