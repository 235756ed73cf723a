package repository

import (
	"context"
	"database/sql"

	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

type previewTokenRepo struct {
	db *database.DB
}

// NewPreviewTokenRepo creates a new preview token repository
func NewPreviewTokenRepo(db *database.DB) PreviewTokenRepository {
	return &previewTokenRepo{db: db}
}

func (r *previewTokenRepo) Create(ctx context.Context, token *models.PreviewToken) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO preview_tokens (token, article_id, version_id, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, token.Token, token.ArticleID, token.VersionID, token.CreatedBy, token.ExpiresAt).Scan(&token.CreatedAt)
}

// Get returns the token regardless of expiry; callers check ExpiresAt
func (r *previewTokenRepo) Get(ctx context.Context, token string) (*models.PreviewToken, error) {
	var (
		t         models.PreviewToken
		versionID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT token, article_id, version_id, created_by, created_at, expires_at
		FROM preview_tokens WHERE token = $1
	`, token).Scan(&t.Token, &t.ArticleID, &versionID, &t.CreatedBy, &t.CreatedAt, &t.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.VersionID = nullInt(versionID)
	return &t, nil
}
