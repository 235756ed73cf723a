package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/validation"
)

type taxonomyService struct {
	*base
	log zerolog.Logger
}

func newTaxonomyService(b *base, log zerolog.Logger) *taxonomyService {
	return &taxonomyService{
		base: b,
		log:  log.With().Str("service", "taxonomy").Logger(),
	}
}

// List returns every entity of kind ordered by name
func (s *taxonomyService) List(ctx context.Context, kind models.TaxonomyKind) ([]*models.TaxonomyEntity, error) {
	if !models.ValidTaxonomyKinds[kind] {
		return nil, models.NotFound("unknown taxonomy kind %q", kind)
	}
	entities, err := s.repos.Taxonomy.List(ctx, kind)
	if err != nil {
		return nil, storageErr(string(kind), err)
	}
	if entities == nil {
		entities = []*models.TaxonomyEntity{}
	}
	return entities, nil
}

// Create stores a new entity; slugs are unique per kind
func (s *taxonomyService) Create(ctx context.Context, id *models.Identity, kind models.TaxonomyKind, in *models.TaxonomyInput) (*models.TaxonomyEntity, error) {
	if err := id.Require(models.RoleEditor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if errs := validation.ValidateTaxonomy(kind, in); len(errs) > 0 {
		return nil, models.Invalid("taxonomy validation failed", errs...)
	}

	entity := &models.TaxonomyEntity{
		Kind:        kind,
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
	}
	if err := s.repos.Taxonomy.Create(ctx, entity); err != nil {
		return nil, storageErr(string(kind)+" with slug "+in.Slug, err)
	}

	s.log.Info().
		Str("kind", string(kind)).
		Int64("id", entity.ID).
		Str("slug", entity.Slug).
		Str("actor", id.Subject).
		Msg("Taxonomy entity created")
	return entity, nil
}
