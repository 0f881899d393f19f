//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/domain"
	"github.com/smallbiznis/valora-identity/internal/repository"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "identity",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgres://test:test@%s:%s/identity?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, repository.Migrate(ctx, pool, zap.NewNop()))
	// second run is a no-op
	require.NoError(t, repository.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

func seedUser(t *testing.T, users *repository.PostgresUserRepo, email, firstName string) (domain.User, domain.Organisation) {
	t.Helper()
	user := domain.User{
		UserID:       uuid.New(),
		FirstName:    firstName,
		LastName:     "Doe",
		Email:        email,
		Phone:        "1234567890",
		PasswordHash: "hash",
		IsActive:     true,
	}
	org := domain.Organisation{OrgID: uuid.New(), Name: domain.DefaultOrganisationName(firstName), OwnerID: user.UserID}
	createdUser, createdOrg, err := users.CreateWithOrganisation(context.Background(), user, org)
	require.NoError(t, err)
	return createdUser, createdOrg
}

func TestIntegration_PostgresRepositories(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t)
	users := repository.NewPostgresUserRepo(pool)
	orgs := repository.NewPostgresOrganisationRepo(pool)

	john, johnOrg := seedUser(t, users, "john.doe@example.com", "John")
	jane, janeOrg := seedUser(t, users, "jane.doe@example.com", "Jane")

	t.Run("lookup", func(t *testing.T) {
		byEmail, err := users.GetByEmail(ctx, "JOHN.DOE@example.com")
		require.NoError(t, err)
		require.Equal(t, john.UserID, byEmail.UserID)
		require.Equal(t, "1234567890", byEmail.Phone)

		_, err = users.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, repository.ErrUserNotFound)

		org, err := orgs.GetByID(ctx, johnOrg.OrgID)
		require.NoError(t, err)
		require.Equal(t, "John's Organisation", org.Name)
		require.Equal(t, john.UserID, org.OwnerID)
	})

	t.Run("duplicate email rolls back", func(t *testing.T) {
		dup := domain.User{UserID: uuid.New(), FirstName: "Dup", LastName: "Doe", Email: "John.Doe@example.com", PasswordHash: "hash", IsActive: true}
		dupOrg := domain.Organisation{OrgID: uuid.New(), Name: "Dup's Organisation", OwnerID: dup.UserID}
		_, _, err := users.CreateWithOrganisation(ctx, dup, dupOrg)
		require.ErrorIs(t, err, repository.ErrDuplicateEmail)

		_, err = orgs.GetByID(ctx, dupOrg.OrgID)
		require.ErrorIs(t, err, repository.ErrOrganisationNotFound)
	})

	t.Run("concurrent registrations", func(t *testing.T) {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				user := domain.User{UserID: uuid.New(), FirstName: "Race", LastName: "Doe", Email: "race@example.com", PasswordHash: "hash", IsActive: true}
				org := domain.Organisation{OrgID: uuid.New(), Name: "Race's Organisation", OwnerID: user.UserID}
				if _, _, err := users.CreateWithOrganisation(ctx, user, org); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, successes)
	})

	t.Run("explicit create", func(t *testing.T) {
		acme, err := orgs.Create(ctx, domain.Organisation{OrgID: uuid.New(), Name: "Acme", Description: "Widgets", OwnerID: john.UserID}, true)
		require.NoError(t, err)
		member, err := orgs.IsMember(ctx, acme.OrgID, john.UserID)
		require.NoError(t, err)
		require.True(t, member)

		_, err = orgs.Create(ctx, domain.Organisation{OrgID: uuid.New(), Name: "Acme", OwnerID: jane.UserID}, true)
		require.ErrorIs(t, err, repository.ErrDuplicateOrganisationName)

		_, err = orgs.Create(ctx, domain.Organisation{OrgID: uuid.New(), Name: "Ghost", OwnerID: uuid.New()}, false)
		require.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("membership", func(t *testing.T) {
		require.NoError(t, orgs.AddMember(ctx, janeOrg.OrgID, john.UserID))
		require.ErrorIs(t, orgs.AddMember(ctx, janeOrg.OrgID, john.UserID), repository.ErrAlreadyMember)
		require.ErrorIs(t, orgs.AddMember(ctx, uuid.New(), john.UserID), repository.ErrOrganisationNotFound)
		require.ErrorIs(t, orgs.AddMember(ctx, janeOrg.OrgID, uuid.New()), repository.ErrUserNotFound)

		list, err := orgs.ListForUser(ctx, john.UserID)
		require.NoError(t, err)
		names := make([]string, 0, len(list))
		for _, o := range list {
			names = append(names, o.Name)
		}
		require.ElementsMatch(t, []string{"John's Organisation", "Acme", "Jane's Organisation"}, names)
	})
}
