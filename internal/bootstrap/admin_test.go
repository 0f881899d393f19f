package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/password"
	"github.com/smallbiznis/valora-identity/internal/repository/memory"
	"github.com/smallbiznis/valora-identity/internal/service"
)

func newIdentity() (*service.IdentityService, *memory.Store) {
	store := memory.NewStore()
	hasher := password.NewHasher(config.PasswordParams{Time: 1, Memory: 64, Threads: 1})
	return service.NewIdentityService(store.Users(), hasher, zap.NewNop()), store
}

func TestEnsureSuperuserCreatesOnce(t *testing.T) {
	ctx := context.Background()
	identity, store := newIdentity()
	cfg := config.Config{AdminEmail: "Root@Example.com", AdminPassword: "changeme", AdminFirstName: "Admin", AdminLastName: "User"}

	require.NoError(t, ensureSuperuser(ctx, cfg, identity, zap.NewNop()))
	require.NoError(t, ensureSuperuser(ctx, cfg, identity, zap.NewNop()))

	user, err := store.Users().GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	require.True(t, user.IsSuperuser)
	require.True(t, user.IsStaff)
	require.True(t, user.IsActive)

	orgs, err := store.Organisations().ListForUser(ctx, user.UserID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, "Admin's Organisation", orgs[0].Name)

	_, err = identity.VerifyCredentials(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
}

func TestEnsureSuperuserDisabled(t *testing.T) {
	identity, _ := newIdentity()
	require.NoError(t, ensureSuperuser(context.Background(), config.Config{}, identity, nil))

	err := ensureSuperuser(context.Background(), config.Config{AdminEmail: "root@example.com"}, identity, nil)
	require.Error(t, err)
}
