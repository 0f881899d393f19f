package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/valora-identity/internal/http/middleware"
	"github.com/smallbiznis/valora-identity/internal/http/response"
	"github.com/smallbiznis/valora-identity/internal/service"
)

// OrganisationHandler serves organisation listing, creation and membership.
type OrganisationHandler struct {
	Directory *service.DirectoryService
}

func NewOrganisationHandler(directory *service.DirectoryService) *OrganisationHandler {
	return &OrganisationHandler{Directory: directory}
}

// List handles GET /api/organisations.
func (h *OrganisationHandler) List(c *gin.Context) {
	requester, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthenticated)
		return
	}

	orgs, err := h.Directory.ListMyOrganisations(c.Request.Context(), requester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User's organisations retrieved successfully", gin.H{"organisations": orgs})
}

// Create handles POST /api/organisations.
func (h *OrganisationHandler) Create(c *gin.Context) {
	requester, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthenticated)
		return
	}

	var req service.CreateOrganisationInput
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, service.NewError(service.KindBadRequest, http.StatusBadRequest, "Client error"))
		return
	}

	org, err := h.Directory.CreateOrganisation(c.Request.Context(), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Organisation created successfully", org)
}

// Get handles GET /api/organisations/:id.
func (h *OrganisationHandler) Get(c *gin.Context) {
	requester, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthenticated)
		return
	}

	org, err := h.Directory.GetOrganisation(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Organisation details retrieved successfully", org)
}

// AddMember handles POST /api/organisations/:id/users.
func (h *OrganisationHandler) AddMember(c *gin.Context) {
	requester, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthenticated)
		return
	}

	var req service.AddMemberInput
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, service.NewError(service.KindBadRequest, http.StatusBadRequest, "Invalid user data"))
		return
	}

	if err := h.Directory.AddOrganisationMember(c.Request.Context(), requester, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User added to organisation successfully", nil)
}
