package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

const versionColumns = `id, article_id, kind, title, slug, dek, body_md, widgets, category_id, series_id, created_by, created_at`

// versionRepo reads article snapshots; they are written by articleRepo inside its transactions
type versionRepo struct {
	db *database.DB
}

// NewVersionRepo creates a new version repository
func NewVersionRepo(db *database.DB) VersionRepository {
	return &versionRepo{db: db}
}

func (r *versionRepo) GetByID(ctx context.Context, id int64) (*models.ArticleVersion, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, "SELECT "+versionColumns+" FROM article_versions WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// ListByArticle returns snapshots newest first
func (r *versionRepo) ListByArticle(ctx context.Context, articleID int64) ([]*models.ArticleVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM article_versions WHERE article_id = $1 ORDER BY created_at DESC, id DESC",
		articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*models.ArticleVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Latest returns the newest snapshot of the given kind; an empty kind matches any
func (r *versionRepo) Latest(ctx context.Context, articleID int64, kind models.VersionKind) (*models.ArticleVersion, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM article_versions
		WHERE article_id = $1 AND ($2::text = '' OR kind = $2::text)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, articleID, string(kind))
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func insertVersion(ctx context.Context, tx *sql.Tx, v *models.ArticleVersion) error {
	widgets, err := v.Widgets.Document()
	if err != nil {
		return fmt.Errorf("encode snapshot widgets: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO article_versions (article_id, kind, title, slug, dek, body_md, widgets, category_id, series_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, v.ArticleID, string(v.Kind), v.Title, v.Slug, v.Dek, v.BodyMD, widgets, v.CategoryID, v.SeriesID, v.CreatedBy,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert %s snapshot: %w", v.Kind, err)
	}
	return nil
}

func scanVersion(s scanner) (*models.ArticleVersion, error) {
	var (
		v                    models.ArticleVersion
		widgets              []byte
		categoryID, seriesID sql.NullInt64
	)
	err := s.Scan(&v.ID, &v.ArticleID, &v.Kind, &v.Title, &v.Slug, &v.Dek, &v.BodyMD, &widgets,
		&categoryID, &seriesID, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(widgets, &v.Widgets); err != nil {
		return nil, fmt.Errorf("decode widgets of version %d: %w", v.ID, err)
	}
	v.CategoryID = nullInt(categoryID)
	v.SeriesID = nullInt(seriesID)
	return &v, nil
}
