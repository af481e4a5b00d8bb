package handler

import (
	"fmt"
	"io"
	"net/http"

	"callcenter_backend/internal/leads/pools"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const defaultMaxUploadBytes int64 = 10 << 20

// PoolHandler serves pool management, distribution and import.
type PoolHandler struct {
	svc            *pools.Service
	val            *validator.Validator
	maxUploadBytes int64
}

// NewPoolHandler creates a pool handler. A non-positive maxUploadBytes uses 10 MiB.
func NewPoolHandler(svc *pools.Service, val *validator.Validator, maxUploadBytes int64) *PoolHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &PoolHandler{svc: svc, val: val, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts pool routes; rg must already restrict roles.
func (h *PoolHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/leads", h.ListLeads)
	rg.POST("/:id/distribute", h.Distribute)
	rg.POST("/:id/import", h.Import)
	rg.POST("/:id/import/file", h.ImportFile)
}

func (h *PoolHandler) Create(c *gin.Context) {
	var req transport.CreatePoolRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	pool, err := h.svc.Create(c.Request.Context(), req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, pool)
}

func (h *PoolHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	pool, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, pool)
}

func (h *PoolHandler) ListLeads(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	unassignedOnly := c.Query("unassigned") == "true"
	result, err := h.svc.ListLeads(c.Request.Context(), id, unassignedOnly)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *PoolHandler) Distribute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.DistributeRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	result, err := h.svc.Distribute(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *PoolHandler) Import(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.BulkImportRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	actorID := identity.UserID()

	result, err := h.svc.BulkImport(c.Request.Context(), id, req.Rows, &actorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ImportFile accepts a multipart upload in the "file" field.
func (h *PoolHandler) ImportFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "file is required")
		return
	}
	if fh.Size > h.maxUploadBytes {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes), nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	actorID := identity.UserID()

	result, err := h.svc.ImportFile(c.Request.Context(), id, fh.Filename, content, &actorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
