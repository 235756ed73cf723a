package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/service"
)

// TaxonomyHandler handles author, category, series and tag endpoints
type TaxonomyHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewTaxonomyHandler creates a new TaxonomyHandler
func NewTaxonomyHandler(services *service.Services, log zerolog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		services: services,
		log:      log.With().Str("handler", "taxonomy").Logger(),
	}
}

// List handles GET /v1/taxonomy/:kind
func (h *TaxonomyHandler) List(c *gin.Context) {
	kind, ok := models.TaxonomyKindFromPath(c.Param("kind"))
	if !ok {
		respondError(c, h.log, models.NotFound("unknown taxonomy %q", c.Param("kind")))
		return
	}

	entities, err := h.services.Taxonomy.List(c.Request.Context(), kind)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entities})
}

// Create handles POST /v1/editor/taxonomy/:kind
func (h *TaxonomyHandler) Create(c *gin.Context) {
	kind, ok := models.TaxonomyKindFromPath(c.Param("kind"))
	if !ok {
		respondError(c, h.log, models.NotFound("unknown taxonomy %q", c.Param("kind")))
		return
	}
	var in models.TaxonomyInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.log, err)
		return
	}

	entity, err := h.services.Taxonomy.Create(c.Request.Context(), identityFrom(c), kind, &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, entity)
}
