package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/cache"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/config"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/metrics"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/render"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/validation"
)

// ArticleService defines article record operations outside the pipeline
type ArticleService interface {
	Create(ctx context.Context, id *models.Identity, in *models.ArticleInput) (*models.Article, error)
	Get(ctx context.Context, id *models.Identity, articleID int64) (*models.Article, error)
	Update(ctx context.Context, id *models.Identity, articleID int64, patch *models.ArticlePatch) (*models.Article, error)
	Delete(ctx context.Context, id *models.Identity, articleID int64) error
	MoveWidget(ctx context.Context, id *models.Identity, articleID int64, from, to int) (*models.Article, error)
	List(ctx context.Context, q *models.ArticleQuery) ([]models.ArticleSummary, error)
	ListEditorial(ctx context.Context, id *models.Identity, q *models.ArticleQuery) ([]models.ArticleSummary, error)
	GetPublished(ctx context.Context, ref string) (*models.ArticleView, error)
	Preview(ctx context.Context, slug, token string) (*models.ArticleView, error)
	ByIDs(ctx context.Context, raw string) ([]models.ArticleSummary, error)
	Versions(ctx context.Context, id *models.Identity, articleID int64) ([]*models.ArticleVersion, error)
	MintPreviewToken(ctx context.Context, id *models.Identity, articleID int64) (*models.PreviewToken, error)
}

// PipelineService defines the editorial status transitions
type PipelineService interface {
	Submit(ctx context.Context, id *models.Identity, articleID int64) (*models.Article, error)
	Approve(ctx context.Context, id *models.Identity, articleID int64, publishAt *time.Time) (*models.Article, error)
	Reject(ctx context.Context, id *models.Identity, articleID int64) (*models.Article, error)
	PublishNow(ctx context.Context, id *models.Identity, articleID int64) (*models.Article, error)
	Schedule(ctx context.Context, id *models.Identity, articleID int64, publishAt time.Time) (*models.Article, error)
	PublishDue(ctx context.Context, now time.Time) (int, error)
}

// ModuleService defines the curated module engine
type ModuleService interface {
	Create(ctx context.Context, id *models.Identity, in *models.ModuleInput) (*models.ModuleView, error)
	Get(ctx context.Context, id *models.Identity, moduleID int64) (*models.ModuleView, error)
	List(ctx context.Context, id *models.Identity, placement models.Placement, scope string) ([]models.ModuleView, error)
	ListLive(ctx context.Context, placement models.Placement, scope string) ([]models.ModuleView, error)
	Update(ctx context.Context, id *models.Identity, moduleID int64, patch *models.ModulePatch) (*models.ModuleView, error)
	Delete(ctx context.Context, id *models.Identity, moduleID int64) error
	ReplaceItems(ctx context.Context, id *models.Identity, moduleID int64, items []models.ItemInput) (*models.ModuleView, error)
	CopyItems(ctx context.Context, id *models.Identity, targetID, sourceID int64) (*models.ModuleView, error)
	BulkFill(ctx context.Context, id *models.Identity, moduleID int64, n int) (*models.ModuleView, error)
}

// TaxonomyService defines the author/category/series/tag operations
type TaxonomyService interface {
	List(ctx context.Context, kind models.TaxonomyKind) ([]*models.TaxonomyEntity, error)
	Create(ctx context.Context, id *models.Identity, kind models.TaxonomyKind, in *models.TaxonomyInput) (*models.TaxonomyEntity, error)
}

// Services holds all service interfaces
type Services struct {
	Article  ArticleService
	Pipeline PipelineService
	Module   ModuleService
	Taxonomy TaxonomyService
}

// Deps carries the collaborators shared by every service
type Deps struct {
	Repos   *repository.Repositories
	Config  *config.Config
	Cache   cache.Cache
	Metrics metrics.Recorder
	Log     zerolog.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// NewServices creates all services
func NewServices(deps Deps) *Services {
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	b := &base{
		repos:     deps.Repos,
		cfg:       deps.Config,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		validator: validation.NewValidator(deps.Config.Curation.EmbedProviders),
		now:       func() time.Time { return deps.Now().UTC() },
	}

	return &Services{
		Article:  newArticleService(b, render.New(), deps.Log),
		Pipeline: newPipelineService(b, deps.Log),
		Module:   newModuleService(b, deps.Log),
		Taxonomy: newTaxonomyService(b, deps.Log),
	}
}

// base bundles what the concrete services share
type base struct {
	repos     *repository.Repositories
	cfg       *config.Config
	cache     cache.Cache
	metrics   metrics.Recorder
	validator *validation.Validator
	now       func() time.Time
}

// invalidate bumps cache generations after a write; failures only cost freshness within the TTL
func (b *base) invalidate(ctx context.Context, log zerolog.Logger, namespaces ...string) {
	for _, ns := range namespaces {
		if err := b.cache.Bump(ctx, ns); err != nil {
			log.Warn().Err(err).Str("namespace", ns).Msg("Failed to bump cache generation")
		}
	}
}

// remember wraps cache.Remember and records the lookup
func remember[T any](ctx context.Context, b *base, namespace string, load func() (T, error), parts ...string) (T, error) {
	v, hit, err := cache.Remember(ctx, b.cache, namespace, b.cfg.Cache.TTL, load, parts...)
	if err == nil {
		b.metrics.RecordCache(namespace, hit)
	}
	return v, err
}

// storageErr maps repository failures onto the error taxonomy
func storageErr(what string, err error) error {
	if err == nil {
		return nil
	}
	var typed *models.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return models.Conflict("%s already exists", what)
	}
	return models.Internal("failed to access "+what, err)
}

// missingRefs reports ids absent from found; list fields are reported per index
func missingRefs(field string, ids []int64, found map[int64]bool, list bool) []models.ValidationError {
	var errs []models.ValidationError
	for i, id := range ids {
		if found[id] {
			continue
		}
		f := field
		if list {
			f = fmt.Sprintf("%s[%d]", field, i)
		}
		errs = append(errs, models.ValidationError{Field: f, Message: "referenced entity does not exist", Value: id})
	}
	return errs
}
