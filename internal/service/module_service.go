package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/cache"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/validation"
)

const defaultBulkFillMax = 50

// moduleService is the concrete implementation of ModuleService.
// Item lists are only ever replaced wholesale: every mutation computes the
// full desired list and hands it to ReplaceItems in one transaction.
type moduleService struct {
	*base
	log zerolog.Logger
}

func newModuleService(b *base, log zerolog.Logger) *moduleService {
	return &moduleService{
		base: b,
		log:  log.With().Str("service", "module").Logger(),
	}
}

// Create stores a new empty module
func (s *moduleService) Create(ctx context.Context, id *models.Identity, in *models.ModuleInput) (view *models.ModuleView, err error) {
	defer func() { s.metrics.RecordModuleMutation("create", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return nil, err
	}

	module := &models.Module{
		Placement: models.Placement(strings.ToUpper(string(in.Placement))),
		ScopeID:   in.ScopeID,
		Title:     strings.TrimSpace(in.Title),
		Subtitle:  in.Subtitle,
		Order:     in.Order,
		IsActive:  true,
		PublishAt: in.PublishAt,
		ExpiresAt: in.ExpiresAt,
	}
	if in.IsActive != nil {
		module.IsActive = *in.IsActive
	}
	if in.ScopeSlug != "" {
		if module.Placement == models.PlacementHome {
			return nil, models.Invalid("module validation failed", models.ValidationError{Field: "scope", Message: "HOME modules do not take a scope"})
		}
		if module.ScopeID, err = s.scopeBySlug(ctx, module.Placement, in.ScopeSlug); err != nil {
			return nil, err
		}
	}

	if err := s.check(ctx, module); err != nil {
		return nil, err
	}
	if err := s.repos.Module.Create(ctx, module); err != nil {
		return nil, storageErr("module", err)
	}

	s.invalidate(ctx, s.log, cache.NamespaceModules)
	s.log.Info().
		Int64("module_id", module.ID).
		Str("placement", string(module.Placement)).
		Str("actor", id.Subject).
		Msg("Module created")

	v := module.View(s.now())
	return &v, nil
}

// Get returns the editorial view of a module and its items
func (s *moduleService) Get(ctx context.Context, id *models.Identity, moduleID int64) (*models.ModuleView, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	module, err := s.load(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	v := module.View(s.now())
	return &v, nil
}

// List returns every module matching the filters with its derived status, in display order
func (s *moduleService) List(ctx context.Context, id *models.Identity, placement models.Placement, scope string) ([]models.ModuleView, error) {
	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}

	filter := models.ModuleFilter{Placement: models.Placement(strings.ToUpper(string(placement)))}
	if filter.Placement != "" && !models.ValidPlacements[filter.Placement] {
		return nil, models.Invalid("invalid module filter", models.ValidationError{Field: "placement", Message: "placement must be one of: HOME, CATEGORY, SERIES, AUTHOR", Value: placement})
	}
	if scope != "" {
		if filter.Placement == "" || filter.Placement == models.PlacementHome {
			return nil, models.Invalid("invalid module filter", models.ValidationError{Field: "scope", Message: "scope requires a CATEGORY, SERIES or AUTHOR placement"})
		}
		entity, err := s.repos.Taxonomy.GetBySlug(ctx, filter.Placement.ScopeKind(), scope)
		if err != nil {
			return nil, storageErr("scope", err)
		}
		if entity == nil {
			return nil, models.NotFound("%s %q not found", filter.Placement.ScopeKind(), scope)
		}
		filter.ScopeID = &entity.ID
	}

	modules, err := s.repos.Module.List(ctx, filter)
	if err != nil {
		return nil, storageErr("modules", err)
	}

	now := s.now()
	views := make([]models.ModuleView, 0, len(modules))
	for _, m := range modules {
		views = append(views, m.View(now))
	}
	return views, nil
}

// ListLive returns the Live modules of a placement with display cards for readers
func (s *moduleService) ListLive(ctx context.Context, placement models.Placement, scope string) ([]models.ModuleView, error) {
	placement = models.Placement(strings.ToUpper(string(placement)))
	if placement == "" {
		placement = models.PlacementHome
	}
	if !models.ValidPlacements[placement] {
		return nil, models.Invalid("invalid module filter", models.ValidationError{Field: "placement", Message: "placement must be one of: HOME, CATEGORY, SERIES, AUTHOR", Value: placement})
	}
	if placement == models.PlacementHome {
		scope = ""
	} else if scope == "" {
		return nil, models.Invalid("invalid module filter", models.ValidationError{Field: "scope", Message: fmt.Sprintf("%s modules require a scope", placement)})
	}

	return remember(ctx, s.base, cache.NamespaceModules, func() ([]models.ModuleView, error) {
		filter := models.ModuleFilter{Placement: placement}
		if scope != "" {
			entity, err := s.repos.Taxonomy.GetBySlug(ctx, placement.ScopeKind(), scope)
			if err != nil {
				return nil, storageErr("scope", err)
			}
			if entity == nil {
				return nil, models.NotFound("%s %q not found", placement.ScopeKind(), scope)
			}
			filter.ScopeID = &entity.ID
		}

		modules, err := s.repos.Module.List(ctx, filter)
		if err != nil {
			return nil, storageErr("modules", err)
		}

		now := s.now()
		live := make([]models.ModuleView, 0, len(modules))
		for _, m := range modules {
			if m.Status(now) == models.ModuleLive {
				live = append(live, m.View(now))
			}
		}
		if err := s.cards(ctx, live); err != nil {
			return nil, err
		}
		return live, nil
	}, "live", string(placement), scope)
}

// Update applies patch to the module metadata; items are untouched
func (s *moduleService) Update(ctx context.Context, id *models.Identity, moduleID int64, patch *models.ModulePatch) (view *models.ModuleView, err error) {
	defer func() { s.metrics.RecordModuleMutation("update", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return nil, err
	}
	module, err := s.load(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	if patch.Placement != nil {
		p := models.Placement(strings.ToUpper(string(*patch.Placement)))
		patch.Placement = &p
	}
	patch.Apply(module)
	module.Title = strings.TrimSpace(module.Title)

	switch {
	case patch.ScopeSlug != nil && *patch.ScopeSlug != "":
		if module.Placement == models.PlacementHome {
			return nil, models.Invalid("module validation failed", models.ValidationError{Field: "scope", Message: "HOME modules do not take a scope"})
		}
		if module.ScopeID, err = s.scopeBySlug(ctx, module.Placement, *patch.ScopeSlug); err != nil {
			return nil, err
		}
	case patch.Placement != nil && *patch.Placement == models.PlacementHome && !patch.ScopeID.Set:
		module.ScopeID = nil
	}

	if err := s.check(ctx, module); err != nil {
		return nil, err
	}
	ok, err := s.repos.Module.Update(ctx, module)
	if err != nil {
		return nil, storageErr("module", err)
	}
	if !ok {
		return nil, models.NotFound("module %d not found", moduleID)
	}

	s.invalidate(ctx, s.log, cache.NamespaceModules)
	s.log.Info().Int64("module_id", moduleID).Str("actor", id.Subject).Msg("Module updated")

	v := module.View(s.now())
	return &v, nil
}

// Delete removes a module and its items
func (s *moduleService) Delete(ctx context.Context, id *models.Identity, moduleID int64) (err error) {
	defer func() { s.metrics.RecordModuleMutation("delete", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return err
	}
	ok, err := s.repos.Module.Delete(ctx, moduleID)
	if err != nil {
		return storageErr("module", err)
	}
	if !ok {
		return models.NotFound("module %d not found", moduleID)
	}

	s.invalidate(ctx, s.log, cache.NamespaceModules)
	s.log.Info().Int64("module_id", moduleID).Str("actor", id.Subject).Msg("Module deleted")
	return nil
}

// ReplaceItems discards the module's items and stores the supplied sequence,
// dropping repeated targets and renumbering order from zero
func (s *moduleService) ReplaceItems(ctx context.Context, id *models.Identity, moduleID int64, items []models.ItemInput) (view *models.ModuleView, err error) {
	defer func() { s.metrics.RecordModuleMutation("replace_items", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return nil, err
	}
	module, err := s.load(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, id, module, items)
}

// CopyItems replaces the target's items with the source's current items; the source is only read
func (s *moduleService) CopyItems(ctx context.Context, id *models.Identity, targetID, sourceID int64) (view *models.ModuleView, err error) {
	defer func() { s.metrics.RecordModuleMutation("copy_items", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return nil, err
	}
	target, err := s.load(ctx, targetID)
	if err != nil {
		return nil, err
	}
	source, err := s.load(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	items := make([]models.ItemInput, len(source.Items))
	for i, it := range source.Items {
		items[i] = it.Input()
	}
	return s.replace(ctx, id, target, items)
}

// BulkFill appends up to n of the most recently published articles the module does not list yet
func (s *moduleService) BulkFill(ctx context.Context, id *models.Identity, moduleID int64, n int) (view *models.ModuleView, err error) {
	defer func() { s.metrics.RecordModuleMutation("bulk_fill", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return nil, err
	}
	limit := s.cfg.Curation.BulkFillMax
	if limit <= 0 {
		limit = defaultBulkFillMax
	}
	if n < 1 || n > limit {
		return nil, models.Invalid("bulk fill failed", models.ValidationError{Field: "count", Message: fmt.Sprintf("count must be between 1 and %d", limit), Value: n})
	}

	module, err := s.load(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	var exclude []int64
	for _, it := range module.Items {
		if it.Target.Type == models.ItemArticle {
			exclude = append(exclude, it.Target.ID)
		}
	}
	recent, err := s.repos.Article.ListRecentPublished(ctx, n, exclude)
	if err != nil {
		return nil, storageErr("articles", err)
	}
	if len(recent) == 0 {
		v := module.View(s.now())
		return &v, nil
	}

	items := make([]models.ModuleItem, 0, len(module.Items)+len(recent))
	items = append(items, module.Items...)
	for _, a := range recent {
		items = append(items, models.ModuleItem{Target: models.ItemRef{Type: models.ItemArticle, ID: a.ID}})
	}
	return s.store(ctx, id, module, items)
}

// replace validates the wire items, checks that every target exists and stores them
func (s *moduleService) replace(ctx context.Context, id *models.Identity, module *models.Module, in []models.ItemInput) (*models.ModuleView, error) {
	refs, errs := validation.ItemRefs(in)
	if len(errs) > 0 {
		return nil, models.Invalid("module items validation failed", errs...)
	}
	if errs, err := s.missingTargets(ctx, refs); err != nil {
		return nil, err
	} else if len(errs) > 0 {
		return nil, models.Invalid("module items reference unknown entities", errs...)
	}

	items := make([]models.ModuleItem, len(in))
	for i, it := range in {
		items[i] = models.ModuleItem{
			Target:        refs[i],
			OverrideTitle: strings.TrimSpace(it.OverrideTitle),
			OverrideDek:   strings.TrimSpace(it.OverrideDek),
		}
	}
	return s.store(ctx, id, module, items)
}

func (s *moduleService) store(ctx context.Context, id *models.Identity, module *models.Module, items []models.ModuleItem) (*models.ModuleView, error) {
	items = models.NormalizeItems(items)

	ok, err := s.repos.Module.ReplaceItems(ctx, module.ID, items)
	if err != nil {
		return nil, storageErr("module items", err)
	}
	if !ok {
		return nil, models.NotFound("module %d not found", module.ID)
	}

	s.invalidate(ctx, s.log, cache.NamespaceModules)
	s.log.Info().
		Int64("module_id", module.ID).
		Int("items", len(items)).
		Str("actor", id.Subject).
		Msg("Module items replaced")

	stored, err := s.load(ctx, module.ID)
	if err != nil {
		return nil, err
	}
	v := stored.View(s.now())
	return &v, nil
}

// missingTargets reports items whose target does not exist, one lookup per target kind
func (s *moduleService) missingTargets(ctx context.Context, refs []models.ItemRef) ([]models.ValidationError, error) {
	byType := make(map[models.ItemType][]int64)
	for _, r := range refs {
		byType[r.Type] = append(byType[r.Type], r.ID)
	}

	found := make(map[models.ItemType]map[int64]bool, len(byType))
	for t, ids := range byType {
		var (
			ok  map[int64]bool
			err error
		)
		if t == models.ItemArticle {
			ok, err = s.repos.Article.ExistingIDs(ctx, ids)
		} else {
			ok, err = s.repos.Taxonomy.ExistingIDs(ctx, t.TaxonomyKind(), ids)
		}
		if err != nil {
			return nil, storageErr(strings.ToLower(string(t)), err)
		}
		found[t] = ok
	}

	var errs []models.ValidationError
	for i, r := range refs {
		if !found[r.Type][r.ID] {
			errs = append(errs, models.ValidationError{
				Field:   fmt.Sprintf("items[%d].%s", i, strings.ToLower(string(r.Type))),
				Message: "referenced entity does not exist",
				Value:   r.ID,
			})
		}
	}
	return errs, nil
}

// cards resolves display cards in place, dropping items whose target is not public
func (s *moduleService) cards(ctx context.Context, views []models.ModuleView) error {
	byType := make(map[models.ItemType][]int64)
	for _, v := range views {
		for _, it := range v.Items {
			byType[it.ItemType] = append(byType[it.ItemType], it.TargetID)
		}
	}

	resolved := make(map[models.ItemRef]*models.Card)
	for t, ids := range byType {
		if t == models.ItemArticle {
			articles, err := s.repos.Article.ListPublishedByIDs(ctx, ids)
			if err != nil {
				return storageErr("articles", err)
			}
			for _, a := range articles {
				resolved[models.ItemRef{Type: t, ID: a.ID}] = &models.Card{Title: a.Title, Dek: a.Dek, Slug: a.Slug}
			}
			continue
		}

		entities, err := s.repos.Taxonomy.GetByIDs(ctx, t.TaxonomyKind(), ids)
		if err != nil {
			return storageErr(strings.ToLower(string(t)), err)
		}
		for eid, e := range entities {
			resolved[models.ItemRef{Type: t, ID: eid}] = &models.Card{Title: e.Name, Dek: e.Description, Slug: e.Slug}
		}
	}

	for i := range views {
		items := views[i].Items[:0]
		for _, it := range views[i].Items {
			card, ok := resolved[models.ItemRef{Type: it.ItemType, ID: it.TargetID}]
			if !ok {
				continue
			}
			c := *card
			if it.OverrideTitle != "" {
				c.Title = it.OverrideTitle
			}
			if it.OverrideDek != "" {
				c.Dek = it.OverrideDek
			}
			it.Card = &c
			items = append(items, it)
		}
		views[i].Items = items
	}
	return nil
}

func (s *moduleService) load(ctx context.Context, moduleID int64) (*models.Module, error) {
	module, err := s.repos.Module.GetByID(ctx, moduleID)
	if err != nil {
		return nil, storageErr("module", err)
	}
	if module == nil {
		return nil, models.NotFound("module %d not found", moduleID)
	}
	return module, nil
}

// check validates metadata and that a scope id resolves to an entity of the placement's kind
func (s *moduleService) check(ctx context.Context, m *models.Module) error {
	if errs := validation.ValidateModule(m); len(errs) > 0 {
		return models.Invalid("module validation failed", errs...)
	}
	if m.ScopeID == nil {
		return nil
	}

	kind := m.Placement.ScopeKind()
	found, err := s.repos.Taxonomy.ExistingIDs(ctx, kind, []int64{*m.ScopeID})
	if err != nil {
		return storageErr(string(kind), err)
	}
	if !found[*m.ScopeID] {
		return models.Invalid("module validation failed", models.ValidationError{
			Field: "scope", Message: fmt.Sprintf("%s %d does not exist", kind, *m.ScopeID), Value: *m.ScopeID,
		})
	}
	return nil
}

func (s *moduleService) scopeBySlug(ctx context.Context, placement models.Placement, slug string) (*int64, error) {
	kind := placement.ScopeKind()
	if kind == "" {
		return nil, models.Invalid("module validation failed", models.ValidationError{Field: "placement", Message: "placement must be one of: HOME, CATEGORY, SERIES, AUTHOR", Value: placement})
	}
	entity, err := s.repos.Taxonomy.GetBySlug(ctx, kind, slug)
	if err != nil {
		return nil, storageErr(string(kind), err)
	}
	if entity == nil {
		return nil, models.Invalid("module validation failed", models.ValidationError{
			Field: "scope", Message: fmt.Sprintf("%s %q does not exist", kind, slug), Value: slug,
		})
	}
	return &entity.ID, nil
}
