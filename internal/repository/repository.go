package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

var (
	// ErrDuplicate is returned when a unique slug is already taken
	ErrDuplicate = errors.New("duplicate key")
	// ErrSlugLocked is returned when an update would rename a published article
	ErrSlugLocked = errors.New("slug is locked after publication")
)

// Transition describes a conditional status change.
// It applies only while the article is in one of From.
type Transition struct {
	ArticleID int64
	From      []models.ArticleStatus
	To        models.ArticleStatus
	PublishAt *time.Time
	Now       time.Time
	Kind      models.VersionKind
	Actor     string
	// DueBy, when set, additionally requires publish_at <= DueBy
	DueBy *time.Time
}

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article, snapshot models.VersionKind) error
	GetByID(ctx context.Context, id int64) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	Update(ctx context.Context, article *models.Article) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Transition(ctx context.Context, t Transition) (*models.Article, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error)
	ListPublishedByIDs(ctx context.Context, ids []int64) ([]*models.Article, error)
	ListRecentPublished(ctx context.Context, limit int, exclude []int64) ([]*models.Article, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]int64, error)
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// TaxonomyRepository defines the interface for author/category/series/tag data
type TaxonomyRepository interface {
	Create(ctx context.Context, entity *models.TaxonomyEntity) error
	List(ctx context.Context, kind models.TaxonomyKind) ([]*models.TaxonomyEntity, error)
	GetBySlug(ctx context.Context, kind models.TaxonomyKind, slug string) (*models.TaxonomyEntity, error)
	GetByIDs(ctx context.Context, kind models.TaxonomyKind, ids []int64) (map[int64]*models.TaxonomyEntity, error)
	ExistingIDs(ctx context.Context, kind models.TaxonomyKind, ids []int64) (map[int64]bool, error)
}

// ModuleRepository defines the interface for curated module data
type ModuleRepository interface {
	Create(ctx context.Context, module *models.Module) error
	GetByID(ctx context.Context, id int64) (*models.Module, error)
	List(ctx context.Context, filter models.ModuleFilter) ([]*models.Module, error)
	Update(ctx context.Context, module *models.Module) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ReplaceItems(ctx context.Context, moduleID int64, items []models.ModuleItem) (bool, error)
}

// VersionRepository defines the interface for article snapshots
type VersionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.ArticleVersion, error)
	ListByArticle(ctx context.Context, articleID int64) ([]*models.ArticleVersion, error)
	Latest(ctx context.Context, articleID int64, kind models.VersionKind) (*models.ArticleVersion, error)
}

// PreviewTokenRepository defines the interface for preview tokens
type PreviewTokenRepository interface {
	Create(ctx context.Context, token *models.PreviewToken) error
	Get(ctx context.Context, token string) (*models.PreviewToken, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article  ArticleRepository
	Taxonomy TaxonomyRepository
	Module   ModuleRepository
	Version  VersionRepository
	Preview  PreviewTokenRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:  NewArticleRepo(db),
		Taxonomy: NewTaxonomyRepo(db),
		Module:   NewModuleRepo(db),
		Version:  NewVersionRepo(db),
		Preview:  NewPreviewTokenRepo(db),
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
