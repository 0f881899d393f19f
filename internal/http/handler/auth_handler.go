package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/http/response"
	"github.com/smallbiznis/valora-identity/internal/service"
)

// AuthHandler serves registration, login and token endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	cfg  config.Config
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, cfg: cfg}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, service.NewError(service.KindValidation, http.StatusUnprocessableEntity, "Registration unsuccessful"))
		return
	}

	result, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Registration successful", result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, service.NewError(service.KindAuthentication, http.StatusUnauthorized, "Authentication failed"))
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.SessionID != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cfg.SessionCookieName, result.SessionID, int(h.cfg.AccessTokenTTL.Seconds()), "/", "", h.cfg.SessionCookieSecure, true)
	}
	response.Success(c, http.StatusOK, "Login successful", result.AuthResult)
}

// TokenPair handles POST /api/token/.
func (h *AuthHandler) TokenPair(c *gin.Context) {
	var req service.LoginInput
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, service.NewError(service.KindBadRequest, http.StatusBadRequest, "Invalid request body"))
		return
	}

	pair, err := h.Auth.ObtainTokenPair(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Token pair issued", pair)
}

// TokenRefresh handles POST /api/token/refresh.
func (h *AuthHandler) TokenRefresh(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, service.NewError(service.KindBadRequest, http.StatusBadRequest, "Invalid request body"))
		return
	}

	token, err := h.Auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Token refreshed", token)
}

// bindJSON decodes the body into dst. An empty body leaves dst zeroed.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
