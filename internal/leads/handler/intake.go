package handler

import (
	"callcenter_backend/internal/leads/management"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// IntakeHandler serves lead creation: the public form and agent quick entry.
type IntakeHandler struct {
	svc *management.Service
	val *validator.Validator
}

func NewIntakeHandler(svc *management.Service, val *validator.Validator) *IntakeHandler {
	return &IntakeHandler{svc: svc, val: val}
}

// RegisterPublicRoutes mounts unauthenticated routes; rg should be rate limited.
func (h *IntakeHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.Create)
}

// RegisterAgentRoutes mounts routes for agents entering leads from a call.
func (h *IntakeHandler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/campaigns/:id/leads", h.QuickEntry)
}

func (h *IntakeHandler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	lead, err := h.svc.CreateLead(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, lead)
}

func (h *IntakeHandler) QuickEntry(c *gin.Context) {
	campaignID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.QuickEntryRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.QuickEntry(c.Request.Context(), campaignID, req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, lead)
}
