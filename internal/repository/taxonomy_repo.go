package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

var taxonomyTables = map[models.TaxonomyKind]string{
	models.KindAuthor:   "authors",
	models.KindCategory: "categories",
	models.KindSeries:   "series",
	models.KindTag:      "tags",
}

func taxonomyTable(kind models.TaxonomyKind) (string, error) {
	table, ok := taxonomyTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown taxonomy kind %q", kind)
	}
	return table, nil
}

// taxonomyRepo is the concrete implementation of TaxonomyRepository
type taxonomyRepo struct {
	db *database.DB
}

// NewTaxonomyRepo creates a new taxonomy repository
func NewTaxonomyRepo(db *database.DB) TaxonomyRepository {
	return &taxonomyRepo{db: db}
}

func (r *taxonomyRepo) Create(ctx context.Context, entity *models.TaxonomyEntity) error {
	table, err := taxonomyTable(entity.Kind)
	if err != nil {
		return err
	}

	query := "INSERT INTO " + table + " (name, slug, description) VALUES ($1, $2, $3) RETURNING id, created_at"
	err = r.db.QueryRowContext(ctx, query, entity.Name, entity.Slug, entity.Description).
		Scan(&entity.ID, &entity.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *taxonomyRepo) List(ctx context.Context, kind models.TaxonomyKind) ([]*models.TaxonomyEntity, error) {
	table, err := taxonomyTable(kind)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, kind, "SELECT id, name, slug, description, created_at FROM "+table+" ORDER BY name, id")
}

func (r *taxonomyRepo) GetBySlug(ctx context.Context, kind models.TaxonomyKind, slug string) (*models.TaxonomyEntity, error) {
	table, err := taxonomyTable(kind)
	if err != nil {
		return nil, err
	}

	entities, err := r.query(ctx, kind, "SELECT id, name, slug, description, created_at FROM "+table+" WHERE slug = $1", slug)
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return entities[0], nil
}

func (r *taxonomyRepo) GetByIDs(ctx context.Context, kind models.TaxonomyKind, ids []int64) (map[int64]*models.TaxonomyEntity, error) {
	out := make(map[int64]*models.TaxonomyEntity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	table, err := taxonomyTable(kind)
	if err != nil {
		return nil, err
	}

	entities, err := r.query(ctx, kind,
		"SELECT id, name, slug, description, created_at FROM "+table+" WHERE id = ANY($1)",
		pq.Array(dedupeIDs(ids)),
	)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		out[e.ID] = e
	}
	return out, nil
}

func (r *taxonomyRepo) ExistingIDs(ctx context.Context, kind models.TaxonomyKind, ids []int64) (map[int64]bool, error) {
	table, err := taxonomyTable(kind)
	if err != nil {
		return nil, err
	}
	return existingIDs(ctx, r.db, table, ids)
}

func (r *taxonomyRepo) query(ctx context.Context, kind models.TaxonomyKind, query string, args ...interface{}) ([]*models.TaxonomyEntity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*models.TaxonomyEntity
	for rows.Next() {
		e := &models.TaxonomyEntity{Kind: kind}
		if err := rows.Scan(&e.ID, &e.Name, &e.Slug, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

