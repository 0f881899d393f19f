// Package memory is an in-process implementation of the repository
// interfaces for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smallbiznis/valora-identity/internal/domain"
	"github.com/smallbiznis/valora-identity/internal/repository"
)

var (
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.OrganisationRepository = (*OrganisationRepo)(nil)
	_ repository.Pinger                 = (*UserRepo)(nil)
)

type membershipKey struct {
	orgID  uuid.UUID
	userID uuid.UUID
}

// Store holds users, organisations and memberships behind one lock so that
// multi-entity writes are atomic.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[uuid.UUID]domain.User
	emails   map[string]uuid.UUID
	orgs     map[uuid.UUID]domain.Organisation
	members  map[membershipKey]time.Time
	userRepo *UserRepo
	orgRepo  *OrganisationRepo
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		now:     time.Now,
		users:   make(map[uuid.UUID]domain.User),
		emails:  make(map[string]uuid.UUID),
		orgs:    make(map[uuid.UUID]domain.Organisation),
		members: make(map[membershipKey]time.Time),
	}
	s.userRepo = &UserRepo{s: s}
	s.orgRepo = &OrganisationRepo{s: s}
	return s
}

// Users returns the UserRepository view of the store.
func (s *Store) Users() *UserRepo { return s.userRepo }

// Organisations returns the OrganisationRepository view of the store.
func (s *Store) Organisations() *OrganisationRepo { return s.orgRepo }

// UserRepo implements repository.UserRepository.
type UserRepo struct {
	s *Store
}

func (r *UserRepo) CreateWithOrganisation(ctx context.Context, user domain.User, org domain.Organisation) (domain.User, domain.Organisation, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, exists := s.emails[key]; exists {
		return domain.User{}, domain.Organisation{}, repository.ErrDuplicateEmail
	}

	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	org.CreatedAt = now

	s.users[user.UserID] = user
	s.emails[key] = user.UserID
	s.orgs[org.OrgID] = org
	s.members[membershipKey{orgID: org.OrgID, userID: user.UserID}] = now
	return user, org, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[userID]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[emailKey(email)]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return r.s.users[id], nil
}

// Ping always succeeds.
func (r *UserRepo) Ping(ctx context.Context) error { return nil }

// OrganisationRepo implements repository.OrganisationRepository.
type OrganisationRepo struct {
	s *Store
}

func (r *OrganisationRepo) Create(ctx context.Context, org domain.Organisation, addOwner bool) (domain.Organisation, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[org.OwnerID]; !ok {
		return domain.Organisation{}, repository.ErrUserNotFound
	}
	for _, existing := range s.orgs {
		if existing.Name == org.Name {
			return domain.Organisation{}, repository.ErrDuplicateOrganisationName
		}
	}

	org.CreatedAt = s.now().UTC()
	s.orgs[org.OrgID] = org
	if addOwner {
		s.members[membershipKey{orgID: org.OrgID, userID: org.OwnerID}] = org.CreatedAt
	}
	return org, nil
}

func (r *OrganisationRepo) GetByID(ctx context.Context, orgID uuid.UUID) (domain.Organisation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	org, ok := r.s.orgs[orgID]
	if !ok {
		return domain.Organisation{}, repository.ErrOrganisationNotFound
	}
	return org, nil
}

func (r *OrganisationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Organisation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orgs := make([]domain.Organisation, 0)
	for id, org := range r.s.orgs {
		_, member := r.s.members[membershipKey{orgID: id, userID: userID}]
		if org.OwnerID == userID || member {
			orgs = append(orgs, org)
		}
	}
	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].CreatedAt.Equal(orgs[j].CreatedAt) {
			return orgs[i].OrgID.String() < orgs[j].OrgID.String()
		}
		return orgs[i].CreatedAt.Before(orgs[j].CreatedAt)
	})
	return orgs, nil
}

func (r *OrganisationRepo) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[orgID]; !ok {
		return repository.ErrOrganisationNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return repository.ErrUserNotFound
	}
	key := membershipKey{orgID: orgID, userID: userID}
	if _, ok := s.members[key]; ok {
		return repository.ErrAlreadyMember
	}
	s.members[key] = s.now().UTC()
	return nil
}

func (r *OrganisationRepo) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.members[membershipKey{orgID: orgID, userID: userID}]
	return ok, nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
