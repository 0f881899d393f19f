package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/valora-identity/internal/http/middleware"
	"github.com/smallbiznis/valora-identity/internal/http/response"
	"github.com/smallbiznis/valora-identity/internal/service"
)

// UserHandler serves user records.
type UserHandler struct {
	Directory *service.DirectoryService
}

func NewUserHandler(directory *service.DirectoryService) *UserHandler {
	return &UserHandler{Directory: directory}
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	requester, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthenticated)
		return
	}

	user, err := h.Directory.GetUser(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User details retrieved successfully", user)
}

var errUnauthenticated = service.NewError(service.KindAuthentication, http.StatusUnauthorized, "Authentication credentials were not provided.")
