package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/cache"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/render"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
)

const (
	defaultByIDsMax  = 50
	defaultListLimit = 20
	maxListLimit     = 100
)

// writerEditable are the statuses in which a writer may still edit their own article
var writerEditable = map[models.ArticleStatus]bool{
	models.StatusDraft:    true,
	models.StatusInReview: true,
	models.StatusRejected: true,
}

// articleService is the concrete implementation of ArticleService
type articleService struct {
	*base
	renderer *render.Renderer
	log      zerolog.Logger
}

func newArticleService(b *base, renderer *render.Renderer, log zerolog.Logger) *articleService {
	return &articleService{
		base:     b,
		renderer: renderer,
		log:      log.With().Str("service", "article").Logger(),
	}
}

// Create stores a new DRAFT article owned by the caller
func (s *articleService) Create(ctx context.Context, id *models.Identity, in *models.ArticleInput) (*models.Article, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}

	article := &models.Article{
		Slug:         strings.TrimSpace(in.Slug),
		Title:        strings.TrimSpace(in.Title),
		Dek:          in.Dek,
		BodyMD:       in.BodyMD,
		BodyHTML:     in.BodyHTML,
		Widgets:      in.Widgets,
		Status:       models.StatusDraft,
		PublishAt:    in.PublishAt,
		CategoryID:   in.CategoryID,
		SeriesID:     in.SeriesID,
		SeriesOrder:  in.SeriesOrder,
		AuthorIDs:    in.AuthorIDs,
		TagIDs:       in.TagIDs,
		IsEditorPick: in.IsEditorPick,
		CreatedBy:    id.Subject,
	}
	if article.Widgets == nil {
		article.Widgets = models.WidgetList{}
	}

	if err := s.check(ctx, article); err != nil {
		return nil, err
	}
	if err := s.repos.Article.Create(ctx, article, models.VersionManual); err != nil {
		return nil, storageErr("article with slug "+article.Slug, err)
	}

	s.log.Info().
		Int64("article_id", article.ID).
		Str("slug", article.Slug).
		Str("actor", id.Subject).
		Msg("Article created")
	return article, nil
}

// Get returns the editorial view of any article
func (s *articleService) Get(ctx context.Context, id *models.Identity, articleID int64) (*models.Article, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	return s.load(ctx, articleID)
}

// Update applies patch and rewrites the whole document
func (s *articleService) Update(ctx context.Context, id *models.Identity, articleID int64, patch *models.ArticlePatch) (*models.Article, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	article, err := s.load(ctx, articleID)
	if err != nil {
		return nil, err
	}

	if err := canEdit(id, article); err != nil {
		return nil, err
	}

	var errs []models.ValidationError
	if patch.Slug != nil && *patch.Slug != article.Slug && article.PublishedAt != nil {
		errs = append(errs, models.ValidationError{Field: "slug", Message: "slug cannot change once the article has been published", Value: *patch.Slug})
	}
	if patch.PublishAt.Set && article.Status == models.StatusScheduled {
		errs = append(errs, models.ValidationError{Field: "publish_at", Message: "use the schedule action to move a scheduled article"})
	}
	if len(errs) > 0 {
		return nil, models.Invalid("article validation failed", errs...)
	}

	patch.Apply(article)
	article.Slug = strings.TrimSpace(article.Slug)
	article.Title = strings.TrimSpace(article.Title)
	if article.Widgets == nil {
		article.Widgets = models.WidgetList{}
	}

	if err := s.check(ctx, article); err != nil {
		return nil, err
	}
	if err := s.save(ctx, article); err != nil {
		return nil, err
	}

	s.log.Info().Int64("article_id", articleID).Str("actor", id.Subject).Msg("Article updated")
	return article, nil
}

// MoveWidget reorders one widget; the caller needs the same rights as for Update
func (s *articleService) MoveWidget(ctx context.Context, id *models.Identity, articleID int64, from, to int) (*models.Article, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	article, err := s.load(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if err := canEdit(id, article); err != nil {
		return nil, err
	}

	widgets, err := article.Widgets.Move(from, to)
	if err != nil {
		return nil, models.Invalid("invalid widget move", models.ValidationError{Field: "from", Message: err.Error(), Value: from})
	}
	article.Widgets = widgets

	if err := s.save(ctx, article); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("article_id", articleID).
		Int("from", from).
		Int("to", to).
		Str("actor", id.Subject).
		Msg("Article widget moved")
	return article, nil
}

// save persists an edited article and drops cached views of it
func (s *articleService) save(ctx context.Context, article *models.Article) error {
	ok, err := s.repos.Article.Update(ctx, article)
	if errors.Is(err, repository.ErrSlugLocked) {
		return models.Invalid("article validation failed",
			models.ValidationError{Field: "slug", Message: "slug cannot change once the article has been published", Value: article.Slug})
	}
	if err != nil {
		return storageErr("article with slug "+article.Slug, err)
	}
	if !ok {
		return models.NotFound("article %d not found", article.ID)
	}

	s.invalidate(ctx, s.log, cache.NamespaceArticles, cache.NamespaceModules)
	return nil
}

// canEdit applies the writer ownership and status rules; editors may edit anything
func canEdit(id *models.Identity, article *models.Article) error {
	if id.Role.AtLeast(models.RoleEditor) {
		return nil
	}
	if article.CreatedBy != id.Subject {
		return models.Forbidden("writers may only edit their own articles")
	}
	if !writerEditable[article.Status] {
		return models.Forbidden("writers cannot edit an article in status %s", article.Status)
	}
	return nil
}

// Delete removes an article irreversibly
func (s *articleService) Delete(ctx context.Context, id *models.Identity, articleID int64) error {
	if err := id.Require(models.RoleEditor); err != nil {
		return err
	}

	ok, err := s.repos.Article.Delete(ctx, articleID)
	if err != nil {
		return storageErr("article", err)
	}
	if !ok {
		return models.NotFound("article %d not found", articleID)
	}

	s.invalidate(ctx, s.log, cache.NamespaceArticles, cache.NamespaceModules)
	s.log.Info().Int64("article_id", articleID).Str("actor", id.Subject).Msg("Article deleted")
	return nil
}

// GetPublished resolves a numeric id or a slug to the reader view of a PUBLISHED article
func (s *articleService) GetPublished(ctx context.Context, ref string) (*models.ArticleView, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, models.NotFound("article not found")
	}

	return remember(ctx, s.base, cache.NamespaceArticles, func() (*models.ArticleView, error) {
		var (
			article *models.Article
			err     error
		)
		if n, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
			article, err = s.repos.Article.GetByID(ctx, n)
		}
		// All-digit slugs are legal, so an id miss falls through to a slug lookup
		if err == nil && (article == nil || !article.IsPublished()) {
			article, err = s.repos.Article.GetBySlug(ctx, ref)
		}
		if err != nil {
			return nil, storageErr("article", err)
		}
		if article == nil || !article.IsPublished() {
			return nil, models.NotFound("article %s not found", ref)
		}
		return s.view(ctx, article)
	}, "ref", ref)
}

// List returns published summaries filtered by taxonomy slugs, newest first
func (s *articleService) List(ctx context.Context, q *models.ArticleQuery) ([]models.ArticleSummary, error) {
	filter, err := s.filter(ctx, q)
	if err != nil {
		return nil, err
	}
	filter.Status = models.StatusPublished

	return remember(ctx, s.base, cache.NamespaceArticles, func() ([]models.ArticleSummary, error) {
		return s.summaries(ctx, filter)
	}, "list", q.Category, q.Series, q.Author, q.Tag, strconv.Itoa(filter.Limit), strconv.Itoa(filter.Offset))
}

// ListEditorial lists articles in any status for the editorial desk
func (s *articleService) ListEditorial(ctx context.Context, id *models.Identity, q *models.ArticleQuery) ([]models.ArticleSummary, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	filter, err := s.filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Status != "" {
		status := models.ArticleStatus(strings.ToUpper(strings.TrimSpace(q.Status)))
		if !models.ValidStatuses[status] {
			return nil, models.Invalid("invalid article query",
				models.ValidationError{Field: "status", Message: "unknown article status", Value: q.Status})
		}
		filter.Status = status
	}
	return s.summaries(ctx, filter)
}

func (s *articleService) summaries(ctx context.Context, filter models.ArticleFilter) ([]models.ArticleSummary, error) {
	articles, err := s.repos.Article.List(ctx, filter)
	if err != nil {
		return nil, storageErr("articles", err)
	}
	out := make([]models.ArticleSummary, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Summary())
	}
	return out, nil
}

// filter validates paging and resolves taxonomy slugs to ids
func (s *articleService) filter(ctx context.Context, q *models.ArticleQuery) (models.ArticleFilter, error) {
	filter := models.ArticleFilter{Limit: q.Limit, Offset: q.Offset}

	var errs []models.ValidationError
	if q.Limit < 0 || q.Limit > maxListLimit {
		errs = append(errs, models.ValidationError{Field: "limit", Message: "limit must be between 1 and 100", Value: q.Limit})
	}
	if q.Offset < 0 {
		errs = append(errs, models.ValidationError{Field: "offset", Message: "offset cannot be negative", Value: q.Offset})
	}
	if len(errs) > 0 {
		return filter, models.Invalid("invalid article query", errs...)
	}
	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}

	slugs := []struct {
		kind models.TaxonomyKind
		slug string
		dst  **int64
	}{
		{models.KindCategory, q.Category, &filter.CategoryID},
		{models.KindSeries, q.Series, &filter.SeriesID},
		{models.KindAuthor, q.Author, &filter.AuthorID},
		{models.KindTag, q.Tag, &filter.TagID},
	}
	for _, sl := range slugs {
		slug := strings.TrimSpace(sl.slug)
		if slug == "" {
			continue
		}
		entity, err := s.repos.Taxonomy.GetBySlug(ctx, sl.kind, slug)
		if err != nil {
			return filter, storageErr(string(sl.kind), err)
		}
		if entity == nil {
			return filter, models.NotFound("%s %s not found", sl.kind, slug)
		}
		entityID := entity.ID
		*sl.dst = &entityID
	}
	return filter, nil
}

// Preview renders the snapshot bound to a valid preview token
func (s *articleService) Preview(ctx context.Context, slug, token string) (*models.ArticleView, error) {
	tok, err := s.repos.Preview.Get(ctx, token)
	if err != nil {
		return nil, storageErr("preview token", err)
	}
	if tok == nil || !s.now().Before(tok.ExpiresAt) {
		return nil, models.NotFound("preview not found")
	}

	article, err := s.repos.Article.GetByID(ctx, tok.ArticleID)
	if err != nil {
		return nil, storageErr("article", err)
	}
	if article == nil || article.Slug != slug {
		return nil, models.NotFound("preview not found")
	}

	if tok.VersionID != nil {
		version, err := s.repos.Version.GetByID(ctx, *tok.VersionID)
		if err != nil {
			return nil, storageErr("article version", err)
		}
		if version != nil {
			article.Title = version.Title
			article.Dek = version.Dek
			article.Widgets = version.Widgets
			article.CategoryID = version.CategoryID
			article.SeriesID = version.SeriesID
			if version.BodyMD != "" {
				article.BodyMD = version.BodyMD
				article.BodyHTML = ""
			}
		}
	}
	return s.view(ctx, article)
}

// ByIDs returns published summaries for a comma or space separated id list, in request order
func (s *articleService) ByIDs(ctx context.Context, raw string) ([]models.ArticleSummary, error) {
	limit := s.cfg.Curation.ByIDsMax
	if limit <= 0 {
		limit = defaultByIDsMax
	}

	ids := ParseIDList(raw, limit)
	out := make([]models.ArticleSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	articles, err := s.repos.Article.ListPublishedByIDs(ctx, ids)
	if err != nil {
		return nil, storageErr("articles", err)
	}
	for _, a := range articles {
		out = append(out, a.Summary())
	}
	return out, nil
}

// ParseIDList keeps positive integers in first-seen order, ignoring junk, up to limit
func ParseIDList(raw string, limit int) []int64 {
	tokens := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	seen := make(map[int64]bool, len(tokens))
	ids := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
		if len(ids) == limit {
			break
		}
	}
	return ids
}

// Versions lists snapshots newest first
func (s *articleService) Versions(ctx context.Context, id *models.Identity, articleID int64) ([]*models.ArticleVersion, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, articleID); err != nil {
		return nil, err
	}

	versions, err := s.repos.Version.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, storageErr("article versions", err)
	}
	if versions == nil {
		versions = []*models.ArticleVersion{}
	}
	return versions, nil
}

// MintPreviewToken binds a 24h token to the newest submitted snapshot, else the newest of any kind
func (s *articleService) MintPreviewToken(ctx context.Context, id *models.Identity, articleID int64) (*models.PreviewToken, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, articleID); err != nil {
		return nil, err
	}

	version, err := s.repos.Version.Latest(ctx, articleID, models.VersionSubmit)
	if err == nil && version == nil {
		version, err = s.repos.Version.Latest(ctx, articleID, "")
	}
	if err != nil {
		return nil, storageErr("article versions", err)
	}

	now := s.now()
	token := &models.PreviewToken{
		Token:     uuid.NewString(),
		ArticleID: articleID,
		CreatedBy: id.Subject,
		ExpiresAt: now.Add(models.PreviewTokenTTL),
	}
	if version != nil {
		token.VersionID = &version.ID
	}
	if err := s.repos.Preview.Create(ctx, token); err != nil {
		return nil, storageErr("preview token", err)
	}

	s.log.Info().Int64("article_id", articleID).Str("actor", id.Subject).Msg("Preview token minted")
	return token, nil
}

func (s *articleService) load(ctx context.Context, articleID int64) (*models.Article, error) {
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, storageErr("article", err)
	}
	if article == nil {
		return nil, models.NotFound("article %d not found", articleID)
	}
	return article, nil
}

// check validates the document and, if it is well formed, its taxonomy references
func (s *articleService) check(ctx context.Context, a *models.Article) error {
	if errs := s.validator.ValidateArticle(a); len(errs) > 0 {
		return models.Invalid("article validation failed", errs...)
	}

	type ref struct {
		kind  models.TaxonomyKind
		field string
		ids   []int64
		list  bool
	}
	refs := []ref{
		{models.KindAuthor, "author_ids", a.AuthorIDs, true},
		{models.KindTag, "tag_ids", a.TagIDs, true},
	}
	if a.CategoryID != nil {
		refs = append(refs, ref{models.KindCategory, "category_id", []int64{*a.CategoryID}, false})
	}
	if a.SeriesID != nil {
		refs = append(refs, ref{models.KindSeries, "series_id", []int64{*a.SeriesID}, false})
	}

	var errs []models.ValidationError
	for _, r := range refs {
		if len(r.ids) == 0 {
			continue
		}
		found, err := s.repos.Taxonomy.ExistingIDs(ctx, r.kind, r.ids)
		if err != nil {
			return storageErr(string(r.kind), err)
		}
		errs = append(errs, missingRefs(r.field, r.ids, found, r.list)...)
	}
	if len(errs) > 0 {
		return models.Invalid("article references unknown entities", errs...)
	}
	return nil
}

// view renders the body and resolves taxonomy relations
func (s *articleService) view(ctx context.Context, a *models.Article) (*models.ArticleView, error) {
	body, err := s.renderer.Render(a)
	if err != nil {
		return nil, models.Internal("failed to render article", err)
	}

	v := &models.ArticleView{
		Article:             *a,
		BodyHTML:            body.HTML,
		TOC:                 body.TOC,
		UnrenderableWidgets: body.Unrenderable,
		Authors:             []*models.TaxonomyEntity{},
		Tags:                []*models.TaxonomyEntity{},
	}

	if a.CategoryID != nil {
		found, err := s.repos.Taxonomy.GetByIDs(ctx, models.KindCategory, []int64{*a.CategoryID})
		if err != nil {
			return nil, storageErr("category", err)
		}
		v.Category = found[*a.CategoryID]
	}
	if a.SeriesID != nil {
		found, err := s.repos.Taxonomy.GetByIDs(ctx, models.KindSeries, []int64{*a.SeriesID})
		if err != nil {
			return nil, storageErr("series", err)
		}
		v.Series = found[*a.SeriesID]
	}
	if v.Authors, err = s.entities(ctx, models.KindAuthor, a.AuthorIDs); err != nil {
		return nil, err
	}
	if v.Tags, err = s.entities(ctx, models.KindTag, a.TagIDs); err != nil {
		return nil, err
	}
	return v, nil
}

// entities resolves ids preserving their order
func (s *articleService) entities(ctx context.Context, kind models.TaxonomyKind, ids []int64) ([]*models.TaxonomyEntity, error) {
	out := []*models.TaxonomyEntity{}
	if len(ids) == 0 {
		return out, nil
	}
	found, err := s.repos.Taxonomy.GetByIDs(ctx, kind, ids)
	if err != nil {
		return nil, storageErr(string(kind), err)
	}
	for _, id := range ids {
		if e, ok := found[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
