package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

const articleColumns = `
	a.id, a.slug, a.title, a.dek, a.body_md, a.body_html, a.widgets, a.status,
	a.publish_at, a.published_at, a.category_id, a.series_id, a.series_order, a.is_editor_pick,
	a.created_by, a.created_at, a.updated_at,
	ARRAY(SELECT aa.author_id FROM article_authors aa WHERE aa.article_id = a.id ORDER BY aa.position),
	ARRAY(SELECT atg.tag_id FROM article_tags atg WHERE atg.article_id = a.id ORDER BY atg.position)`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

// Create inserts a new article, its relations and an initial snapshot
func (r *articleRepo) Create(ctx context.Context, article *models.Article, snapshot models.VersionKind) error {
	widgets, err := article.Widgets.Document()
	if err != nil {
		return fmt.Errorf("encode widgets: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO articles (slug, title, dek, body_md, body_html, widgets, status, publish_at,
				category_id, series_id, series_order, is_editor_pick, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			article.Slug, article.Title, article.Dek, article.BodyMD, article.BodyHTML, widgets,
			string(article.Status), article.PublishAt, article.CategoryID, article.SeriesID,
			article.SeriesOrder, article.IsEditorPick, article.CreatedBy, time.Now().UTC(),
		).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert article: %w", err)
		}

		if err := writeRelations(ctx, tx, article); err != nil {
			return err
		}
		return insertVersion(ctx, tx, models.SnapshotOf(article, snapshot, article.CreatedBy))
	})
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	return getArticle(ctx, r.db, "a.id = $1", id)
}

// GetBySlug retrieves an article by slug
func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	return getArticle(ctx, r.db, "a.slug = $1", slug)
}

// Update rewrites the editable fields of an article; status and published_at are owned by Transition.
// A published article keeps its slug: renaming one fails with ErrSlugLocked.
func (r *articleRepo) Update(ctx context.Context, article *models.Article) (bool, error) {
	widgets, err := article.Widgets.Document()
	if err != nil {
		return false, fmt.Errorf("encode widgets: %w", err)
	}

	updated := false
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE articles SET slug = $2, title = $3, dek = $4, body_md = $5, body_html = $6, widgets = $7,
				publish_at = $8, category_id = $9, series_id = $10, series_order = $11, is_editor_pick = $12,
				updated_at = $13
			WHERE id = $1 AND (published_at IS NULL OR slug = $2)
			RETURNING updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			article.ID, article.Slug, article.Title, article.Dek, article.BodyMD, article.BodyHTML, widgets,
			article.PublishAt, article.CategoryID, article.SeriesID, article.SeriesOrder, article.IsEditorPick,
			time.Now().UTC(),
		).Scan(&article.UpdatedAt)
		if err == sql.ErrNoRows {
			// Either the article is gone or it was published under another slug
			var published bool
			err := tx.QueryRowContext(ctx, "SELECT published_at IS NOT NULL FROM articles WHERE id = $1", article.ID).Scan(&published)
			if err == sql.ErrNoRows {
				return nil
			}
			if err != nil {
				return fmt.Errorf("recheck article: %w", err)
			}
			return ErrSlugLocked
		}
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("update article: %w", err)
		}

		updated = true
		return writeRelations(ctx, tx, article)
	})
	return updated, err
}

// Delete removes an article; versions, tokens and module items cascade
func (r *articleRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Transition applies a status change only while the article is in one of t.From,
// writing a t.Kind snapshot when Kind is set. It returns nil, nil when the
// article was not in a source state (or does not exist).
func (r *articleRepo) Transition(ctx context.Context, t Transition) (*models.Article, error) {
	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}

	var article *models.Article
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE articles SET
				status = $2,
				updated_at = $3,
				published_at = CASE WHEN $2 = 'PUBLISHED' THEN COALESCE(published_at, $3) ELSE published_at END,
				publish_at = COALESCE($4, CASE WHEN $2 = 'PUBLISHED' THEN COALESCE(publish_at, $3) ELSE publish_at END)
			WHERE id = $1 AND status = ANY($5) AND ($6::timestamptz IS NULL OR publish_at <= $6)
		`
		res, err := tx.ExecContext(ctx, query, t.ArticleID, string(t.To), t.Now, t.PublishAt, pq.Array(from), t.DueBy)
		if err != nil {
			return fmt.Errorf("transition article: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}

		article, err = getArticle(ctx, tx, "a.id = $1", t.ArticleID)
		if err != nil || t.Kind == "" {
			return err
		}
		return insertVersion(ctx, tx, models.SnapshotOf(article, t.Kind, t.Actor))
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

// List returns articles matching filter, newest publication first
func (r *articleRepo) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	where, tail, args := articleFilterClause(filter)
	return listArticles(ctx, r.db, where, tail, args...)
}

// articleFilterClause builds the WHERE and ORDER/LIMIT parts of an article listing
func articleFilterClause(f models.ArticleFilter) (string, string, []interface{}) {
	conds := []string{"TRUE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conds = append(conds, "a.status = "+arg(string(f.Status)))
	}
	if f.CategoryID != nil {
		conds = append(conds, "a.category_id = "+arg(*f.CategoryID))
	}
	if f.SeriesID != nil {
		conds = append(conds, "a.series_id = "+arg(*f.SeriesID))
	}
	if f.AuthorID != nil {
		conds = append(conds, "EXISTS (SELECT 1 FROM article_authors x WHERE x.article_id = a.id AND x.author_id = "+arg(*f.AuthorID)+")")
	}
	if f.TagID != nil {
		conds = append(conds, "EXISTS (SELECT 1 FROM article_tags x WHERE x.article_id = a.id AND x.tag_id = "+arg(*f.TagID)+")")
	}

	tail := "ORDER BY a.published_at DESC NULLS LAST, a.updated_at DESC, a.id DESC"
	if f.Limit > 0 {
		tail += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		tail += " OFFSET " + arg(f.Offset)
	}
	return strings.Join(conds, " AND "), tail, args
}

// ListPublishedByIDs returns the published subset of ids in request order
func (r *articleRepo) ListPublishedByIDs(ctx context.Context, ids []int64) ([]*models.Article, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	articles, err := listArticles(ctx, r.db, "a.id = ANY($1) AND a.status = 'PUBLISHED'", "", pq.Array(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}
	ordered := make([]*models.Article, 0, len(articles))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

// ListRecentPublished returns the most recently published articles not in exclude
func (r *articleRepo) ListRecentPublished(ctx context.Context, limit int, exclude []int64) ([]*models.Article, error) {
	if exclude == nil {
		exclude = []int64{}
	}
	return listArticles(ctx, r.db,
		"a.status = 'PUBLISHED' AND NOT (a.id = ANY($1))",
		"ORDER BY a.published_at DESC NULLS LAST, a.id DESC LIMIT $2",
		pq.Array(exclude), limit,
	)
}

// ListDueScheduled returns ids of scheduled articles whose publish_at has passed
func (r *articleRepo) ListDueScheduled(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM articles
		WHERE status = 'SCHEDULED' AND publish_at IS NOT NULL AND publish_at <= $1
		ORDER BY publish_at, id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExistingIDs reports which of ids exist in any status
func (r *articleRepo) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return existingIDs(ctx, r.db, "articles", ids)
}

func getArticle(ctx context.Context, q querier, where string, arg interface{}) (*models.Article, error) {
	row := q.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles a WHERE "+where, arg)
	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return article, err
}

func listArticles(ctx context.Context, q querier, where, tail string, args ...interface{}) ([]*models.Article, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+articleColumns+" FROM articles a WHERE "+where+" "+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(s scanner) (*models.Article, error) {
	var (
		a                      models.Article
		widgets                []byte
		publishAt, publishedAt sql.NullTime
		categoryID, seriesID   sql.NullInt64
		authorIDs, tagIDs      pq.Int64Array
	)

	err := s.Scan(
		&a.ID, &a.Slug, &a.Title, &a.Dek, &a.BodyMD, &a.BodyHTML, &widgets, &a.Status,
		&publishAt, &publishedAt, &categoryID, &seriesID, &a.SeriesOrder, &a.IsEditorPick,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt, &authorIDs, &tagIDs,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(widgets, &a.Widgets); err != nil {
		return nil, fmt.Errorf("decode widgets of article %d: %w", a.ID, err)
	}
	a.PublishAt = nullTime(publishAt)
	a.PublishedAt = nullTime(publishedAt)
	a.CategoryID = nullInt(categoryID)
	a.SeriesID = nullInt(seriesID)
	a.AuthorIDs = []int64(authorIDs)
	a.TagIDs = []int64(tagIDs)
	return &a, nil
}

func writeRelations(ctx context.Context, tx *sql.Tx, article *models.Article) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM article_authors WHERE article_id = $1", article.ID); err != nil {
		return fmt.Errorf("clear authors: %w", err)
	}
	for i, id := range dedupeIDs(article.AuthorIDs) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO article_authors (article_id, author_id, position) VALUES ($1, $2, $3)",
			article.ID, id, i,
		); err != nil {
			return fmt.Errorf("insert author %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM article_tags WHERE article_id = $1", article.ID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for i, id := range dedupeIDs(article.TagIDs) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO article_tags (article_id, tag_id, position) VALUES ($1, $2, $3)",
			article.ID, id, i,
		); err != nil {
			return fmt.Errorf("insert tag %d: %w", id, err)
		}
	}
	return nil
}

func existingIDs(ctx context.Context, q querier, table string, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := q.QueryContext(ctx, "SELECT id FROM "+table+" WHERE id = ANY($1)", pq.Array(dedupeIDs(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}
