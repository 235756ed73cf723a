package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/service"
)

// ModuleHandler handles curated module endpoints
type ModuleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewModuleHandler creates a new ModuleHandler
func NewModuleHandler(services *service.Services, log zerolog.Logger) *ModuleHandler {
	return &ModuleHandler{
		services: services,
		log:      log.With().Str("handler", "module").Logger(),
	}
}

// ListLive handles GET /v1/modules?placement=&scope=
func (h *ModuleHandler) ListLive(c *gin.Context) {
	modules, err := h.services.Module.ListLive(c.Request.Context(), models.Placement(c.Query("placement")), c.Query("scope"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": modules})
}

// List handles GET /v1/editor/modules?placement=&scope=
func (h *ModuleHandler) List(c *gin.Context) {
	modules, err := h.services.Module.List(c.Request.Context(), identityFrom(c), models.Placement(c.Query("placement")), c.Query("scope"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": modules})
}

// Create handles POST /v1/editor/modules
func (h *ModuleHandler) Create(c *gin.Context) {
	var in models.ModuleInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.log, err)
		return
	}

	module, err := h.services.Module.Create(c.Request.Context(), identityFrom(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, module)
}

// Get handles GET /v1/editor/modules/:id
func (h *ModuleHandler) Get(c *gin.Context) {
	h.respond(c, func(id int64) (*models.ModuleView, error) {
		return h.services.Module.Get(c.Request.Context(), identityFrom(c), id)
	})
}

// Update handles PATCH /v1/editor/modules/:id
func (h *ModuleHandler) Update(c *gin.Context) {
	var patch models.ModulePatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respond(c, func(id int64) (*models.ModuleView, error) {
		return h.services.Module.Update(c.Request.Context(), identityFrom(c), id, &patch)
	})
}

// Delete handles DELETE /v1/editor/modules/:id
func (h *ModuleHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.services.Module.Delete(c.Request.Context(), identityFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReplaceItems handles POST /v1/editor/modules/:id/replace-items with {"items": [...]}
func (h *ModuleHandler) ReplaceItems(c *gin.Context) {
	var req struct {
		Items []models.ItemInput `json:"items"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.Items == nil {
		req.Items = []models.ItemInput{}
	}
	h.respond(c, func(id int64) (*models.ModuleView, error) {
		return h.services.Module.ReplaceItems(c.Request.Context(), identityFrom(c), id, req.Items)
	})
}

// CopyItems handles POST /v1/editor/modules/:id/copy-items with {"source_module_id": n}
func (h *ModuleHandler) CopyItems(c *gin.Context) {
	var req struct {
		SourceModuleID int64 `json:"source_module_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.SourceModuleID <= 0 {
		respondError(c, h.log, models.Invalid("source_module_id is required", models.ValidationError{Field: "source_module_id", Message: "must be a positive integer"}))
		return
	}
	h.respond(c, func(id int64) (*models.ModuleView, error) {
		return h.services.Module.CopyItems(c.Request.Context(), identityFrom(c), id, req.SourceModuleID)
	})
}

// BulkFill handles POST /v1/editor/modules/:id/bulk-fill with {"count": n}
func (h *ModuleHandler) BulkFill(c *gin.Context) {
	var req struct {
		Count int `json:"count"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respond(c, func(id int64) (*models.ModuleView, error) {
		return h.services.Module.BulkFill(c.Request.Context(), identityFrom(c), id, req.Count)
	})
}

func (h *ModuleHandler) respond(c *gin.Context, run func(id int64) (*models.ModuleView, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	module, err := run(id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, module)
}
