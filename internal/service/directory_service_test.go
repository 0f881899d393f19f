package service_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/domain"
	"github.com/smallbiznis/valora-identity/internal/service"
)

func (f *fixture) userOf(t *testing.T, result service.AuthResult) domain.User {
	t.Helper()
	user, err := f.store.Users().GetByID(context.Background(), uuid.MustParse(result.User.UserID))
	require.NoError(t, err)
	return user
}

func TestGetUserOnlyOwnRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.userOf(t, f.register(t, "alice@example.com", "Alice"))
	bob := f.userOf(t, f.register(t, "bob@example.com", "Bob"))

	view, err := f.directory.GetUser(ctx, alice, alice.UserID.String())
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", view.Email)

	_, err = f.directory.GetUser(ctx, alice, bob.UserID.String())
	require.Equal(t, service.KindAuthorization, service.KindOf(err))
	require.Equal(t, http.StatusUnauthorized, service.StatusOf(err))

	_, err = f.directory.GetUser(ctx, alice, uuid.NewString())
	require.Equal(t, service.KindNotFound, service.KindOf(err))
	require.Equal(t, http.StatusUnauthorized, service.StatusOf(err))

	_, err = f.directory.GetUser(ctx, alice, "not-a-uuid")
	require.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestCreateAndListOrganisations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.userOf(t, f.register(t, "alice@example.com", "Alice"))

	created, err := f.directory.CreateOrganisation(ctx, alice, service.CreateOrganisationInput{Name: " Acme ", Description: "Widgets"})
	require.NoError(t, err)
	require.Equal(t, "Acme", created.Name)

	// the creator can open the organisation straight away
	got, err := f.directory.GetOrganisation(ctx, alice, created.OrgID)
	require.NoError(t, err)
	require.Equal(t, "Widgets", got.Description)

	list, err := f.directory.ListMyOrganisations(ctx, alice)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, o := range list {
		names = append(names, o.Name)
	}
	require.ElementsMatch(t, []string{"Alice's Organisation", "Acme"}, names)

	_, err = f.directory.CreateOrganisation(ctx, alice, service.CreateOrganisationInput{Name: "Acme"})
	require.Equal(t, service.KindDuplicate, service.KindOf(err))
	require.Equal(t, http.StatusBadRequest, service.StatusOf(err))

	_, err = f.directory.CreateOrganisation(ctx, alice, service.CreateOrganisationInput{Name: "   "})
	require.Equal(t, service.KindValidation, service.KindOf(err))
	require.Equal(t, http.StatusBadRequest, service.StatusOf(err))
}

func TestGetOrganisationRequiresMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.userOf(t, f.register(t, "alice@example.com", "Alice"))
	bob := f.userOf(t, f.register(t, "bob@example.com", "Bob"))

	aliceOrgs, err := f.directory.ListMyOrganisations(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceOrgs, 1)
	orgID := aliceOrgs[0].OrgID

	_, err = f.directory.GetOrganisation(ctx, alice, orgID)
	require.NoError(t, err)

	_, err = f.directory.GetOrganisation(ctx, bob, orgID)
	require.Equal(t, service.KindAuthorization, service.KindOf(err))
	require.Equal(t, http.StatusForbidden, service.StatusOf(err))

	_, err = f.directory.GetOrganisation(ctx, bob, uuid.NewString())
	require.Equal(t, service.KindNotFound, service.KindOf(err))
	require.Equal(t, http.StatusUnauthorized, service.StatusOf(err))
}

func TestAddOrganisationMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.userOf(t, f.register(t, "alice@example.com", "Alice"))
	bob := f.userOf(t, f.register(t, "bob@example.com", "Bob"))

	aliceOrgs, err := f.directory.ListMyOrganisations(ctx, alice)
	require.NoError(t, err)
	orgID := aliceOrgs[0].OrgID

	require.NoError(t, f.directory.AddOrganisationMember(ctx, alice, orgID, service.AddMemberInput{UserID: strings.ToUpper(bob.UserID.String())}))

	err = f.directory.AddOrganisationMember(ctx, alice, orgID, service.AddMemberInput{UserID: bob.UserID.String()})
	require.Equal(t, service.KindConflict, service.KindOf(err))
	require.Equal(t, http.StatusBadRequest, service.StatusOf(err))

	_, err = f.directory.GetOrganisation(ctx, bob, orgID)
	require.NoError(t, err)

	err = f.directory.AddOrganisationMember(ctx, alice, uuid.NewString(), service.AddMemberInput{UserID: bob.UserID.String()})
	require.Equal(t, http.StatusNotFound, service.StatusOf(err))

	err = f.directory.AddOrganisationMember(ctx, alice, orgID, service.AddMemberInput{UserID: uuid.NewString()})
	require.Equal(t, service.KindNotFound, service.KindOf(err))
	require.Equal(t, http.StatusNotFound, service.StatusOf(err))

	err = f.directory.AddOrganisationMember(ctx, alice, orgID, service.AddMemberInput{UserID: "nope"})
	require.Equal(t, service.KindValidation, service.KindOf(err))
	require.Equal(t, http.StatusBadRequest, service.StatusOf(err))

	err = f.directory.AddOrganisationMember(ctx, alice, orgID, service.AddMemberInput{})
	require.Equal(t, http.StatusBadRequest, service.StatusOf(err))
}

func TestAddOrganisationMemberByNonOwner(t *testing.T) {
	ctx := context.Background()

	open := newFixture(t)
	alice := open.userOf(t, open.register(t, "alice@example.com", "Alice"))
	bob := open.userOf(t, open.register(t, "bob@example.com", "Bob"))
	carol := open.userOf(t, open.register(t, "carol@example.com", "Carol"))
	orgs, err := open.directory.ListMyOrganisations(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, open.directory.AddOrganisationMember(ctx, bob, orgs[0].OrgID, service.AddMemberInput{UserID: carol.UserID.String()}))

	strict := newFixture(t, func(cfg *config.Config) { cfg.MembershipOwnerOnly = true })
	alice = strict.userOf(t, strict.register(t, "alice@example.com", "Alice"))
	bob = strict.userOf(t, strict.register(t, "bob@example.com", "Bob"))
	orgs, err = strict.directory.ListMyOrganisations(ctx, alice)
	require.NoError(t, err)

	err = strict.directory.AddOrganisationMember(ctx, bob, orgs[0].OrgID, service.AddMemberInput{UserID: bob.UserID.String()})
	require.Equal(t, service.KindAuthorization, service.KindOf(err))
	require.Equal(t, http.StatusForbidden, service.StatusOf(err))

	require.NoError(t, strict.directory.AddOrganisationMember(ctx, alice, orgs[0].OrgID, service.AddMemberInput{UserID: bob.UserID.String()}))
}
