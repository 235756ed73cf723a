package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/service"
)

// ArticleHandler handles article reads, edits and pipeline actions
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// GetPublished handles GET /v1/articles/:ref
// A preview_token query parameter serves the bound snapshot instead.
func (h *ArticleHandler) GetPublished(c *gin.Context) {
	ctx := c.Request.Context()
	ref := c.Param("ref")

	var (
		view *models.ArticleView
		err  error
	)
	if token := c.Query("preview_token"); token != "" {
		view, err = h.services.Article.Preview(ctx, ref, token)
	} else {
		view, err = h.services.Article.GetPublished(ctx, ref)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ByIDs handles GET /v1/articles/by-ids?ids=1,2,3
func (h *ArticleHandler) ByIDs(c *gin.Context) {
	articles, err := h.services.Article.ByIDs(c.Request.Context(), c.Query("ids"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// List handles GET /v1/articles?category=&series=&author=&tag=&limit=&offset=
func (h *ArticleHandler) List(c *gin.Context) {
	var q models.ArticleQuery
	if err := bindQuery(c, &q); err != nil {
		respondError(c, h.log, err)
		return
	}

	articles, err := h.services.Article.List(c.Request.Context(), &q)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// ListEditorial handles GET /v1/editor/articles?status=
func (h *ArticleHandler) ListEditorial(c *gin.Context) {
	var q models.ArticleQuery
	if err := bindQuery(c, &q); err != nil {
		respondError(c, h.log, err)
		return
	}

	articles, err := h.services.Article.ListEditorial(c.Request.Context(), identityFrom(c), &q)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// Create handles POST /v1/editor/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var in models.ArticleInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.log, err)
		return
	}

	article, err := h.services.Article.Create(c.Request.Context(), identityFrom(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

// Get handles GET /v1/editor/articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	article, err := h.services.Article.Get(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Update handles PATCH /v1/editor/articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var patch models.ArticlePatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, h.log, err)
		return
	}

	article, err := h.services.Article.Update(c.Request.Context(), identityFrom(c), id, &patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Delete handles DELETE /v1/editor/articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.services.Article.Delete(c.Request.Context(), identityFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MoveWidget handles POST /v1/editor/articles/:id/widgets/move
func (h *ArticleHandler) MoveWidget(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.From == nil || req.To == nil {
		respondError(c, h.log, models.Invalid("from and to are required"))
		return
	}

	article, err := h.services.Article.MoveWidget(c.Request.Context(), identityFrom(c), id, *req.From, *req.To)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Versions handles GET /v1/editor/articles/:id/versions
func (h *ArticleHandler) Versions(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	versions, err := h.services.Article.Versions(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// PreviewToken handles POST /v1/editor/articles/:id/preview-token
func (h *ArticleHandler) PreviewToken(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	token, err := h.services.Article.MintPreviewToken(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

type publishAtRequest struct {
	PublishAt *time.Time `json:"publish_at"`
}

// Submit handles POST /v1/editor/articles/:id/submit
func (h *ArticleHandler) Submit(c *gin.Context) {
	h.transition(c, func(id int64) (*models.Article, error) {
		return h.services.Pipeline.Submit(c.Request.Context(), identityFrom(c), id)
	})
}

// Approve handles POST /v1/editor/articles/:id/approve with an optional {"publish_at"}
func (h *ArticleHandler) Approve(c *gin.Context) {
	var req publishAtRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.transition(c, func(id int64) (*models.Article, error) {
		return h.services.Pipeline.Approve(c.Request.Context(), identityFrom(c), id, req.PublishAt)
	})
}

// Reject handles POST /v1/editor/articles/:id/reject
func (h *ArticleHandler) Reject(c *gin.Context) {
	h.transition(c, func(id int64) (*models.Article, error) {
		return h.services.Pipeline.Reject(c.Request.Context(), identityFrom(c), id)
	})
}

// PublishNow handles POST /v1/editor/articles/:id/publish-now
func (h *ArticleHandler) PublishNow(c *gin.Context) {
	h.transition(c, func(id int64) (*models.Article, error) {
		return h.services.Pipeline.PublishNow(c.Request.Context(), identityFrom(c), id)
	})
}

// Schedule handles POST /v1/editor/articles/:id/schedule with {"publish_at"}
func (h *ArticleHandler) Schedule(c *gin.Context) {
	var req publishAtRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.PublishAt == nil {
		respondError(c, h.log, models.Invalid("publish_at is required", models.ValidationError{Field: "publish_at", Message: "publish_at is required"}))
		return
	}
	h.transition(c, func(id int64) (*models.Article, error) {
		return h.services.Pipeline.Schedule(c.Request.Context(), identityFrom(c), id, *req.PublishAt)
	})
}

func (h *ArticleHandler) transition(c *gin.Context, apply func(id int64) (*models.Article, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	article, err := apply(id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}
