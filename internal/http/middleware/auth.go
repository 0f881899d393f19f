package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/valora-identity/internal/domain"
	"github.com/smallbiznis/valora-identity/internal/http/response"
	"github.com/smallbiznis/valora-identity/internal/service"
)

const currentUserKey = "currentUser"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// Auth validates the Authorization header and attaches the user.
type Auth struct {
	Authenticator Authenticator
}

// NewAuth constructs the bearer middleware.
func NewAuth(authenticator Authenticator) *Auth {
	return &Auth{Authenticator: authenticator}
}

// RequireUser rejects requests without a valid bearer access token.
func (m *Auth) RequireUser(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		response.Abort(c, service.NewError(service.KindAuthentication, http.StatusUnauthorized, "Authentication credentials were not provided."))
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		response.Abort(c, service.NewError(service.KindAuthentication, http.StatusUnauthorized, "Bearer token required."))
		return
	}

	user, err := m.Authenticator.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.Set(currentUserKey, user)
	c.Next()
}

// CurrentUser returns the user attached by RequireUser.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
