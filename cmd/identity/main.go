package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/smallbiznis/valora-identity/internal/adapter/cache"
	"github.com/smallbiznis/valora-identity/internal/bootstrap"
	"github.com/smallbiznis/valora-identity/internal/config"
	httptransport "github.com/smallbiznis/valora-identity/internal/http"
	"github.com/smallbiznis/valora-identity/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/valora-identity/internal/http/middleware"
	"github.com/smallbiznis/valora-identity/internal/jwt"
	"github.com/smallbiznis/valora-identity/internal/password"
	"github.com/smallbiznis/valora-identity/internal/repository"
	"github.com/smallbiznis/valora-identity/internal/repository/memory"
	"github.com/smallbiznis/valora-identity/internal/server"
	"github.com/smallbiznis/valora-identity/internal/service"
	"github.com/smallbiznis/valora-identity/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newStores,
			newSessionStore,
			newHasher,
			newTokenGenerator,
			service.NewIdentityService,
			service.NewAuthService,
			service.NewDirectoryService,
			handler.NewAuthHandler,
			handler.NewUserHandler,
			handler.NewOrganisationHandler,
			newHealthHandler,
			newHandlers,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureSuperuser, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

type stores struct {
	fx.Out

	Users         repository.UserRepository
	Organisations repository.OrganisationRepository
}

func newStores(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return stores{Users: store.Users(), Organisations: store.Organisations()}, nil
	}

	pool, err := newPGXPool(lc, cfg)
	if err != nil {
		return stores{}, err
	}

	if cfg.DatabaseAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repository.Migrate(ctx, pool, logger); err != nil {
			return stores{}, fmt.Errorf("migrate database: %w", err)
		}
	}

	return stores{
		Users:         repository.NewPostgresUserRepo(pool),
		Organisations: repository.NewPostgresOrganisationRepo(pool),
	}, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.DatabaseMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DatabaseMaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newSessionStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (repository.SessionStore, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, session markers disabled")
		return cacheadapter.NoopSessionStore{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return cacheadapter.NewRedisSessionStore(client), nil
}

func newHasher(cfg config.Config) *password.Hasher {
	return password.NewHasher(cfg.Password)
}

func newTokenGenerator(cfg config.Config) (*jwt.Generator, error) {
	return jwt.NewGenerator(cfg)
}

func newHealthHandler(users repository.UserRepository, sessions repository.SessionStore) *handler.HealthHandler {
	checks := make(map[string]repository.Pinger)
	if p, ok := users.(repository.Pinger); ok {
		checks["store"] = p
	}
	if p, ok := sessions.(repository.Pinger); ok {
		checks["redis"] = p
	}
	return handler.NewHealthHandler(checks)
}

func newHandlers(auth *handler.AuthHandler, users *handler.UserHandler, orgs *handler.OrganisationHandler, health *handler.HealthHandler) httptransport.Handlers {
	return httptransport.Handlers{
		Auth:          auth,
		Users:         users,
		Organisations: orgs,
		Health:        health,
	}
}

func newAuthMiddleware(authService *service.AuthService) *httpmiddleware.Auth {
	return httpmiddleware.NewAuth(authService)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
