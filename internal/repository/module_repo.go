package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

const moduleColumns = `id, placement, COALESCE(category_id, series_id, author_id), title, subtitle, sort_order,
	is_active, publish_at, expires_at, created_at, updated_at`

const itemColumns = `id, module_id, sort_order, item_type, COALESCE(article_id, category_id, series_id, author_id),
	override_title, override_dek, created_at`

// moduleRepo is the concrete implementation of ModuleRepository
type moduleRepo struct {
	db *database.DB
}

// NewModuleRepo creates a new curated module repository
func NewModuleRepo(db *database.DB) ModuleRepository {
	return &moduleRepo{db: db}
}

// scopeColumns splits a module scope into the category/series/author columns
func scopeColumns(placement models.Placement, scopeID *int64) (category, series, author *int64) {
	switch placement {
	case models.PlacementCategory:
		return scopeID, nil, nil
	case models.PlacementSeries:
		return nil, scopeID, nil
	case models.PlacementAuthor:
		return nil, nil, scopeID
	}
	return nil, nil, nil
}

// targetColumns splits an item target the same way, adding the article column
func targetColumns(ref models.ItemRef) (article, category, series, author *int64) {
	id := ref.ID
	switch ref.Type {
	case models.ItemArticle:
		article = &id
	case models.ItemCategory:
		category = &id
	case models.ItemSeries:
		series = &id
	case models.ItemAuthor:
		author = &id
	}
	return
}

// Create inserts a new module without items
func (r *moduleRepo) Create(ctx context.Context, module *models.Module) error {
	category, series, author := scopeColumns(module.Placement, module.ScopeID)
	now := time.Now().UTC()

	query := `
		INSERT INTO curated_modules (placement, category_id, series_id, author_id, title, subtitle, sort_order,
			is_active, publish_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		string(module.Placement), category, series, author, module.Title, module.Subtitle, module.Order,
		module.IsActive, module.PublishAt, module.ExpiresAt, now,
	).Scan(&module.ID, &module.CreatedAt, &module.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert module: %w", err)
	}
	module.Items = []models.ModuleItem{}
	return nil
}

// GetByID retrieves a module with its items in order
func (r *moduleRepo) GetByID(ctx context.Context, id int64) (*models.Module, error) {
	module, err := scanModule(r.db.QueryRowContext(ctx, "SELECT "+moduleColumns+" FROM curated_modules WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := r.items(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	module.Items = items[id]
	if module.Items == nil {
		module.Items = []models.ModuleItem{}
	}
	return module, nil
}

// List returns modules matching filter ordered by (order, id), each with items
func (r *moduleRepo) List(ctx context.Context, filter models.ModuleFilter) ([]*models.Module, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+moduleColumns+` FROM curated_modules
		WHERE ($1::text = '' OR placement = $1::text)
		  AND ($2::bigint IS NULL OR COALESCE(category_id, series_id, author_id) = $2::bigint)
		ORDER BY sort_order, id
	`, string(filter.Placement), filter.ScopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		modules []*models.Module
		ids     []int64
	)
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		m.Items = items[m.ID]
		if m.Items == nil {
			m.Items = []models.ModuleItem{}
		}
	}
	return modules, nil
}

// Update rewrites the module fields; items are untouched
func (r *moduleRepo) Update(ctx context.Context, module *models.Module) (bool, error) {
	category, series, author := scopeColumns(module.Placement, module.ScopeID)

	err := r.db.QueryRowContext(ctx, `
		UPDATE curated_modules SET placement = $2, category_id = $3, series_id = $4, author_id = $5,
			title = $6, subtitle = $7, sort_order = $8, is_active = $9, publish_at = $10, expires_at = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING updated_at
	`, module.ID, string(module.Placement), category, series, author, module.Title, module.Subtitle, module.Order,
		module.IsActive, module.PublishAt, module.ExpiresAt, time.Now().UTC(),
	).Scan(&module.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update module: %w", err)
	}
	return true, nil
}

// Delete removes a module and, by cascade, its items
func (r *moduleRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM curated_modules WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReplaceItems swaps the full item list of a module in one transaction.
// Items must already be deduplicated and densely ordered.
func (r *moduleRepo) ReplaceItems(ctx context.Context, moduleID int64, items []models.ModuleItem) (bool, error) {
	found := false
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM curated_modules WHERE id = $1 FOR UPDATE", moduleID).Scan(&id)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock module: %w", err)
		}
		found = true

		if _, err := tx.ExecContext(ctx, "DELETE FROM curated_module_items WHERE module_id = $1", moduleID); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO curated_module_items (module_id, sort_order, item_type, article_id, category_id, series_id,
				author_id, override_title, override_dek)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`)
		if err != nil {
			return fmt.Errorf("prepare item insert: %w", err)
		}
		defer stmt.Close()

		for i := range items {
			it := &items[i]
			article, category, series, author := targetColumns(it.Target)
			err := stmt.QueryRowContext(ctx, moduleID, it.Order, string(it.Target.Type), article, category, series,
				author, it.OverrideTitle, it.OverrideDek,
			).Scan(&it.ID, &it.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert item %s: %w", it.Target, err)
			}
			it.ModuleID = moduleID
		}

		_, err = tx.ExecContext(ctx, "UPDATE curated_modules SET updated_at = $2 WHERE id = $1", moduleID, time.Now().UTC())
		return err
	})
	return found, err
}

func (r *moduleRepo) items(ctx context.Context, moduleIDs []int64) (map[int64][]models.ModuleItem, error) {
	out := make(map[int64][]models.ModuleItem, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM curated_module_items WHERE module_id = ANY($1) ORDER BY module_id, sort_order, id",
		pq.Array(moduleIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it models.ModuleItem
		if err := rows.Scan(&it.ID, &it.ModuleID, &it.Order, &it.Target.Type, &it.Target.ID,
			&it.OverrideTitle, &it.OverrideDek, &it.CreatedAt); err != nil {
			return nil, err
		}
		// Deleted targets leave gaps in sort_order; readers always see 0..n-1
		it.Order = len(out[it.ModuleID])
		out[it.ModuleID] = append(out[it.ModuleID], it)
	}
	return out, rows.Err()
}

func scanModule(s scanner) (*models.Module, error) {
	var (
		m                    models.Module
		scopeID              sql.NullInt64
		publishAt, expiresAt sql.NullTime
	)
	err := s.Scan(&m.ID, &m.Placement, &scopeID, &m.Title, &m.Subtitle, &m.Order,
		&m.IsActive, &publishAt, &expiresAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.ScopeID = nullInt(scopeID)
	m.PublishAt = nullTime(publishAt)
	m.ExpiresAt = nullTime(expiresAt)
	return &m, nil
}
