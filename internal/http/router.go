package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/valora-identity/internal/http/middleware"
	"github.com/smallbiznis/valora-identity/internal/http/response"
	"github.com/smallbiznis/valora-identity/internal/service"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Organisations *handler.OrganisationHandler
	Health        *handler.HealthHandler
}

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, logger *zap.Logger, h Handlers, authMiddleware *httpmiddleware.Auth) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(httpmiddleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", h.Health.Healthz)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	api := r.Group("/api")
	{
		api.POST("/token/", h.Auth.TokenPair)
		api.POST("/token/refresh", h.Auth.TokenRefresh)

		protected := api.Group("", authMiddleware.RequireUser)
		protected.GET("/users/:id", h.Users.Get)

		orgs := protected.Group("/organisations")
		{
			orgs.GET("", h.Organisations.List)
			orgs.POST("", h.Organisations.Create)
			orgs.GET("/:id", h.Organisations.Get)
			orgs.POST("/:id/users", h.Organisations.AddMember)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, service.NewError(service.KindNotFound, http.StatusNotFound, "Not found"))
	})

	return r
}
