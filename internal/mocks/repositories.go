package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
)

// MockArticleRepository is an in-memory ArticleRepository honouring conditional transitions
type MockArticleRepository struct {
	mu          sync.Mutex
	Articles    map[int64]*models.Article
	Versions    *MockVersionRepository
	Modules     *MockModuleRepository
	CreateError error
	nextID      int64
}

func NewMockArticleRepository(versions *MockVersionRepository) *MockArticleRepository {
	return &MockArticleRepository{
		Articles: make(map[int64]*models.Article),
		Versions: versions,
	}
}

func cloneArticle(a *models.Article) *models.Article {
	c := *a
	c.AuthorIDs = append([]int64(nil), a.AuthorIDs...)
	c.TagIDs = append([]int64(nil), a.TagIDs...)
	c.Widgets = append(models.WidgetList(nil), a.Widgets...)
	return &c
}

func (m *MockArticleRepository) slugTaken(slug string, except int64) bool {
	for id, a := range m.Articles {
		if id != except && a.Slug == slug {
			return true
		}
	}
	return false
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article, snapshot models.VersionKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	if m.slugTaken(article.Slug, 0) {
		return repository.ErrDuplicate
	}

	m.nextID++
	now := time.Now().UTC()
	article.ID = m.nextID
	article.CreatedAt = now
	article.UpdatedAt = now
	m.Articles[article.ID] = cloneArticle(article)
	m.Versions.add(models.SnapshotOf(article, snapshot, article.CreatedBy))
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.Articles[id]; ok {
		return cloneArticle(a), nil
	}
	return nil, nil
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.Articles {
		if a.Slug == slug {
			return cloneArticle(a), nil
		}
	}
	return nil, nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.Articles[article.ID]
	if !ok {
		return false, nil
	}
	if stored.PublishedAt != nil && stored.Slug != article.Slug {
		return false, repository.ErrSlugLocked
	}
	if m.slugTaken(article.Slug, article.ID) {
		return false, repository.ErrDuplicate
	}

	updated := cloneArticle(article)
	updated.Status = stored.Status
	updated.PublishedAt = stored.PublishedAt
	updated.CreatedBy = stored.CreatedBy
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	article.UpdatedAt = updated.UpdatedAt
	m.Articles[article.ID] = updated
	return true, nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Articles[id]; !ok {
		return false, nil
	}
	delete(m.Articles, id)
	if m.Modules != nil {
		m.Modules.dropTarget(models.ItemRef{Type: models.ItemArticle, ID: id})
	}
	return true, nil
}

func (m *MockArticleRepository) Transition(ctx context.Context, t repository.Transition) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.Articles[t.ArticleID]
	if !ok {
		return nil, nil
	}
	allowed := false
	for _, s := range t.From {
		if a.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return nil, nil
	}
	if t.DueBy != nil && (a.PublishAt == nil || a.PublishAt.After(*t.DueBy)) {
		return nil, nil
	}

	now := t.Now
	a.Status = t.To
	a.UpdatedAt = now
	if t.To == models.StatusPublished && a.PublishedAt == nil {
		a.PublishedAt = &now
	}
	switch {
	case t.PublishAt != nil:
		p := *t.PublishAt
		a.PublishAt = &p
	case t.To == models.StatusPublished && a.PublishAt == nil:
		a.PublishAt = &now
	}

	if t.Kind != "" {
		m.Versions.add(models.SnapshotOf(a, t.Kind, t.Actor))
	}
	return cloneArticle(a), nil
}

func (m *MockArticleRepository) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Article
	for _, a := range m.Articles {
		if filter.Matches(a) {
			out = append(out, cloneArticle(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].PublishedAt, out[j].PublishedAt
		switch {
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		case pi != nil && !pi.Equal(*pj):
			return pi.After(*pj)
		case !out[i].UpdatedAt.Equal(out[j].UpdatedAt):
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if filter.Offset >= len(out) {
		return []*models.Article{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MockArticleRepository) ListPublishedByIDs(ctx context.Context, ids []int64) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int64]bool)
	var out []*models.Article
	for _, id := range ids {
		a, ok := m.Articles[id]
		if !ok || seen[id] || a.Status != models.StatusPublished {
			continue
		}
		seen[id] = true
		out = append(out, cloneArticle(a))
	}
	return out, nil
}

func (m *MockArticleRepository) ListRecentPublished(ctx context.Context, limit int, exclude []int64) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	skip := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	var out []*models.Article
	for _, a := range m.Articles {
		if a.Status == models.StatusPublished && !skip[a.ID] {
			out = append(out, cloneArticle(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].PublishedAt, out[j].PublishedAt
		if pi != nil && pj != nil && !pi.Equal(*pj) {
			return pi.After(*pj)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockArticleRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for _, a := range m.Articles {
		if a.Status == models.StatusScheduled && a.PublishAt != nil && !a.PublishAt.After(now) {
			ids = append(ids, a.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockArticleRepository) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := make(map[int64]bool)
	for _, id := range ids {
		if _, ok := m.Articles[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

// Put stores an article as-is, bypassing create semantics
func (m *MockArticleRepository) Put(article *models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if article.ID == 0 {
		m.nextID++
		article.ID = m.nextID
	} else if article.ID > m.nextID {
		m.nextID = article.ID
	}
	m.Articles[article.ID] = cloneArticle(article)
}

// MockVersionRepository stores snapshots in insertion order
type MockVersionRepository struct {
	mu       sync.Mutex
	Versions []*models.ArticleVersion
}

func NewMockVersionRepository() *MockVersionRepository {
	return &MockVersionRepository{}
}

func (m *MockVersionRepository) add(v *models.ArticleVersion) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v.ID = int64(len(m.Versions) + 1)
	v.CreatedAt = time.Now().UTC()
	m.Versions = append(m.Versions, v)
}

func (m *MockVersionRepository) GetByID(ctx context.Context, id int64) (*models.ArticleVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.Versions {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, nil
}

func (m *MockVersionRepository) ListByArticle(ctx context.Context, articleID int64) ([]*models.ArticleVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.ArticleVersion
	for i := len(m.Versions) - 1; i >= 0; i-- {
		if m.Versions[i].ArticleID == articleID {
			out = append(out, m.Versions[i])
		}
	}
	return out, nil
}

func (m *MockVersionRepository) Latest(ctx context.Context, articleID int64, kind models.VersionKind) (*models.ArticleVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.Versions) - 1; i >= 0; i-- {
		v := m.Versions[i]
		if v.ArticleID == articleID && (kind == "" || v.Kind == kind) {
			return v, nil
		}
	}
	return nil, nil
}

// Kinds lists the snapshot kinds recorded for an article, oldest first
func (m *MockVersionRepository) Kinds(articleID int64) []models.VersionKind {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kinds []models.VersionKind
	for _, v := range m.Versions {
		if v.ArticleID == articleID {
			kinds = append(kinds, v.Kind)
		}
	}
	return kinds
}

// MockTaxonomyRepository keeps one map per taxonomy kind
type MockTaxonomyRepository struct {
	mu       sync.Mutex
	Entities map[models.TaxonomyKind]map[int64]*models.TaxonomyEntity
	nextID   int64
}

func NewMockTaxonomyRepository() *MockTaxonomyRepository {
	return &MockTaxonomyRepository{Entities: make(map[models.TaxonomyKind]map[int64]*models.TaxonomyEntity)}
}

func (m *MockTaxonomyRepository) Create(ctx context.Context, entity *models.TaxonomyEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.Entities[entity.Kind] {
		if e.Slug == entity.Slug {
			return repository.ErrDuplicate
		}
	}
	if m.Entities[entity.Kind] == nil {
		m.Entities[entity.Kind] = make(map[int64]*models.TaxonomyEntity)
	}
	m.nextID++
	entity.ID = m.nextID
	entity.CreatedAt = time.Now().UTC()
	c := *entity
	m.Entities[entity.Kind][entity.ID] = &c
	return nil
}

// Add is a test helper creating an entity and returning it
func (m *MockTaxonomyRepository) Add(kind models.TaxonomyKind, name, slug string) *models.TaxonomyEntity {
	e := &models.TaxonomyEntity{Kind: kind, Name: name, Slug: slug}
	_ = m.Create(context.Background(), e)
	return e
}

func (m *MockTaxonomyRepository) List(ctx context.Context, kind models.TaxonomyKind) ([]*models.TaxonomyEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.TaxonomyEntity
	for _, e := range m.Entities[kind] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockTaxonomyRepository) GetBySlug(ctx context.Context, kind models.TaxonomyKind, slug string) (*models.TaxonomyEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.Entities[kind] {
		if e.Slug == slug {
			return e, nil
		}
	}
	return nil, nil
}

func (m *MockTaxonomyRepository) GetByIDs(ctx context.Context, kind models.TaxonomyKind, ids []int64) (map[int64]*models.TaxonomyEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]*models.TaxonomyEntity)
	for _, id := range ids {
		if e, ok := m.Entities[kind][id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (m *MockTaxonomyRepository) ExistingIDs(ctx context.Context, kind models.TaxonomyKind, ids []int64) (map[int64]bool, error) {
	found, _ := m.GetByIDs(ctx, kind, ids)
	out := make(map[int64]bool, len(found))
	for id := range found {
		out[id] = true
	}
	return out, nil
}

// MockModuleRepository is an in-memory ModuleRepository
type MockModuleRepository struct {
	mu           sync.Mutex
	Modules      map[int64]*models.Module
	ReplaceError error
	ReplaceCalls int
	nextID       int64
	nextItemID   int64
}

func NewMockModuleRepository() *MockModuleRepository {
	return &MockModuleRepository{Modules: make(map[int64]*models.Module)}
}

// dropTarget removes items pointing at ref, keeping each module's order dense
func (m *MockModuleRepository) dropTarget(ref models.ItemRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mod := range m.Modules {
		kept := mod.Items[:0]
		for _, it := range mod.Items {
			if it.Target == ref {
				continue
			}
			it.Order = len(kept)
			kept = append(kept, it)
		}
		mod.Items = kept
	}
}

func cloneModule(mod *models.Module) *models.Module {
	c := *mod
	c.Items = append([]models.ModuleItem{}, mod.Items...)
	return &c
}

func (m *MockModuleRepository) Create(ctx context.Context, module *models.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now().UTC()
	module.ID = m.nextID
	module.CreatedAt = now
	module.UpdatedAt = now
	module.Items = []models.ModuleItem{}
	m.Modules[module.ID] = cloneModule(module)
	return nil
}

func (m *MockModuleRepository) GetByID(ctx context.Context, id int64) (*models.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mod, ok := m.Modules[id]; ok {
		return cloneModule(mod), nil
	}
	return nil, nil
}

func (m *MockModuleRepository) List(ctx context.Context, filter models.ModuleFilter) ([]*models.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Module
	for _, mod := range m.Modules {
		if filter.Placement != "" && mod.Placement != filter.Placement {
			continue
		}
		if filter.ScopeID != nil && (mod.ScopeID == nil || *mod.ScopeID != *filter.ScopeID) {
			continue
		}
		out = append(out, cloneModule(mod))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockModuleRepository) Update(ctx context.Context, module *models.Module) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.Modules[module.ID]
	if !ok {
		return false, nil
	}
	updated := cloneModule(module)
	updated.Items = stored.Items
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	module.UpdatedAt = updated.UpdatedAt
	m.Modules[module.ID] = updated
	return true, nil
}

func (m *MockModuleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Modules[id]; !ok {
		return false, nil
	}
	delete(m.Modules, id)
	return true, nil
}

func (m *MockModuleRepository) ReplaceItems(ctx context.Context, moduleID int64, items []models.ModuleItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReplaceCalls++
	if m.ReplaceError != nil {
		return false, m.ReplaceError
	}
	mod, ok := m.Modules[moduleID]
	if !ok {
		return false, nil
	}

	stored := make([]models.ModuleItem, len(items))
	for i, it := range items {
		m.nextItemID++
		it.ID = m.nextItemID
		it.ModuleID = moduleID
		it.CreatedAt = time.Now().UTC()
		stored[i] = it
	}
	mod.Items = stored
	mod.UpdatedAt = time.Now().UTC()
	return true, nil
}

// MockPreviewTokenRepository stores tokens by value
type MockPreviewTokenRepository struct {
	mu     sync.Mutex
	Tokens map[string]*models.PreviewToken
}

func NewMockPreviewTokenRepository() *MockPreviewTokenRepository {
	return &MockPreviewTokenRepository{Tokens: make(map[string]*models.PreviewToken)}
}

func (m *MockPreviewTokenRepository) Create(ctx context.Context, token *models.PreviewToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token.CreatedAt = time.Now().UTC()
	c := *token
	m.Tokens[token.Token] = &c
	return nil
}

func (m *MockPreviewTokenRepository) Get(ctx context.Context, token string) (*models.PreviewToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Tokens[token], nil
}

// MockRepositories bundles wired mocks sharing one version store
type MockRepositories struct {
	Articles *MockArticleRepository
	Taxonomy *MockTaxonomyRepository
	Modules  *MockModuleRepository
	Versions *MockVersionRepository
	Previews *MockPreviewTokenRepository
}

func NewMockRepositories() *MockRepositories {
	versions := NewMockVersionRepository()
	articles := NewMockArticleRepository(versions)
	articles.Modules = NewMockModuleRepository()
	return &MockRepositories{
		Articles: articles,
		Taxonomy: NewMockTaxonomyRepository(),
		Modules:  articles.Modules,
		Versions: versions,
		Previews: NewMockPreviewTokenRepository(),
	}
}

// Repositories exposes the mocks through the repository interfaces
func (m *MockRepositories) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Article:  m.Articles,
		Taxonomy: m.Taxonomy,
		Module:   m.Modules,
		Version:  m.Versions,
		Preview:  m.Previews,
	}
}
