package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Organisation is a named tenant grouping with a single owner and a member set.
// OwnerID is set at creation and never reassigned.
type Organisation struct {
	OrgID       uuid.UUID
	Name        string
	Description string
	OwnerID     uuid.UUID
	CreatedAt   time.Time
}

// DefaultOrganisationName returns the name of the organisation created at registration.
func DefaultOrganisationName(firstName string) string {
	return fmt.Sprintf("%s's Organisation", firstName)
}
