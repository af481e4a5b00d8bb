package handler

import (
	"net/http"
	"strings"

	"callcenter_backend/internal/leads/assignment"
	"callcenter_backend/internal/leads/disposition"
	"callcenter_backend/internal/leads/management"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the authenticated lead routes.
type Handler struct {
	dispositions *disposition.Service
	assignments  *assignment.Service
	intake       *management.Service
	val          *validator.Validator
}

func New(dispositions *disposition.Service, assignments *assignment.Service, intake *management.Service, val *validator.Validator) *Handler {
	return &Handler{dispositions: dispositions, assignments: assignments, intake: intake, val: val}
}

// RegisterRoutes mounts routes open to every authenticated user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads/check-duplicate", h.CheckDuplicate)
	rg.GET("/leads/:id", h.GetByID)
	rg.PUT("/leads/:id/disposition", h.UpdateDisposition)
	rg.GET("/dispositions", h.ListDispositions)
}

// RegisterSupervisorRoutes mounts assignment routes; rg must already restrict roles.
func (h *Handler) RegisterSupervisorRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/campaign/bulk", h.BulkAssignCampaign)
	rg.POST("/leads/agent/bulk", h.BulkAssignAgent)
	rg.POST("/leads/:id/campaign", h.AssignCampaign)
	rg.PUT("/leads/:id/agent", h.AssignAgent)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.intake.GetLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) CheckDuplicate(c *gin.Context) {
	phoneNumber := strings.TrimSpace(c.Query("phone"))
	if phoneNumber == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "phone is required")
		return
	}

	result, err := h.intake.CheckDuplicate(c.Request.Context(), phoneNumber)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) UpdateDisposition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateDispositionRequest
	if !h.bind(c, &req) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.dispositions.Update(c.Request.Context(), id, req, identity.UserID(), identity.Roles())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListDispositions(c *gin.Context) {
	catalog, err := h.dispositions.Catalog(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, catalog)
}

func (h *Handler) AssignCampaign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AssignCampaignRequest
	if !h.bind(c, &req) {
		return
	}

	lead, err := h.assignments.AssignToCampaign(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) BulkAssignCampaign(c *gin.Context) {
	var req transport.BulkAssignCampaignRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.assignments.BulkAssignToCampaign(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) AssignAgent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AssignAgentRequest
	if !h.bind(c, &req) {
		return
	}

	lead, err := h.assignments.AssignToAgent(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) BulkAssignAgent(c *gin.Context) {
	var req transport.BulkAssignAgentRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.assignments.BulkAssignToAgent(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// bind decodes and validates a JSON body, writing the 400 response itself.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	return bindJSON(c, h.val, req)
}

func bindJSON(c *gin.Context, val *validator.Validator, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
