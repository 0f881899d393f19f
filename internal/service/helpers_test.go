package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/jwt"
	"github.com/smallbiznis/valora-identity/internal/password"
	"github.com/smallbiznis/valora-identity/internal/repository/memory"
	"github.com/smallbiznis/valora-identity/internal/service"
)

type fixture struct {
	cfg       config.Config
	store     *memory.Store
	jwt       *jwt.Generator
	sessions  *recordingSessions
	identity  *service.IdentityService
	auth      *service.AuthService
	directory *service.DirectoryService
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Config{
		JWTSigningKey:   []byte("0123456789abcdef0123456789abcdef"),
		JWTIssuer:       "valora-identity-test",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Password:        config.PasswordParams{Time: 1, Memory: 64, Threads: 1},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	generator, err := jwt.NewGenerator(cfg)
	require.NoError(t, err)

	logger := zap.NewNop()
	store := memory.NewStore()
	sessions := &recordingSessions{saved: map[string]uuid.UUID{}}
	identity := service.NewIdentityService(store.Users(), password.NewHasher(cfg.Password), logger)

	return &fixture{
		cfg:       cfg,
		store:     store,
		jwt:       generator,
		sessions:  sessions,
		identity:  identity,
		auth:      service.NewAuthService(identity, generator, sessions, logger),
		directory: service.NewDirectoryService(store.Users(), store.Organisations(), cfg, logger),
	}
}

func (f *fixture) register(t *testing.T, email, firstName string) service.AuthResult {
	t.Helper()
	result, err := f.auth.Register(context.Background(), service.RegisterInput{
		Email:     email,
		Password:  "password123",
		FirstName: firstName,
		LastName:  "Doe",
		Phone:     "1234567890",
	})
	require.NoError(t, err)
	return result
}

type recordingSessions struct {
	saved map[string]uuid.UUID
	ttl   time.Duration
	err   error
}

func (r *recordingSessions) Save(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	if r.err != nil {
		return r.err
	}
	r.saved[sessionID] = userID
	r.ttl = ttl
	return nil
}

func passwordHash(f *fixture) (string, error) {
	return password.NewHasher(f.cfg.Password).Hash("password123")
}
