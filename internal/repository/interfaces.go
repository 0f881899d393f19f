package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smallbiznis/valora-identity/internal/domain"
)

// UserRepository exposes persistence for accounts.
type UserRepository interface {
	// CreateWithOrganisation persists user together with its default
	// organisation and the owner's membership, atomically.
	CreateWithOrganisation(ctx context.Context, user domain.User, org domain.Organisation) (domain.User, domain.Organisation, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// OrganisationRepository exposes organisation and membership queries.
type OrganisationRepository interface {
	// Create inserts org after checking no organisation already uses its name.
	// When addOwner is set the owner is inserted as a member in the same transaction.
	Create(ctx context.Context, org domain.Organisation, addOwner bool) (domain.Organisation, error)
	GetByID(ctx context.Context, orgID uuid.UUID) (domain.Organisation, error)
	// ListForUser returns organisations owned by or including userID, without duplicates.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Organisation, error)
	AddMember(ctx context.Context, orgID, userID uuid.UUID) error
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// SessionStore records login session markers. Markers expire with the
// access token and are never read back for authorization.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}
