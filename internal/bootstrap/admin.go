package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/repository"
	"github.com/smallbiznis/valora-identity/internal/service"
)

// EnsureSuperuser creates the configured superuser at start-up if missing.
// It does nothing when ADMIN_EMAIL is unset.
func EnsureSuperuser(lc fx.Lifecycle, cfg config.Config, identity *service.IdentityService, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureSuperuser(ctx, cfg, identity, logger)
		},
	})
}

func ensureSuperuser(ctx context.Context, cfg config.Config, identity *service.IdentityService, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return fmt.Errorf("superuser bootstrap missing password")
	}

	if _, err := identity.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	created, org, err := identity.CreateUser(ctx, service.NewUser{
		Email:       email,
		Password:    cfg.AdminPassword,
		FirstName:   cfg.AdminFirstName,
		LastName:    cfg.AdminLastName,
		IsStaff:     true,
		IsSuperuser: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap superuser created",
			zap.String("email", created.Email),
			zap.String("user_id", created.UserID.String()),
			zap.String("org_id", org.OrgID.String()),
		)
	}
	return nil
}
