package models

import (
	"fmt"
	"time"
)

// Placement is the page context a module appears on
type Placement string

const (
	PlacementHome     Placement = "HOME"
	PlacementCategory Placement = "CATEGORY"
	PlacementSeries   Placement = "SERIES"
	PlacementAuthor   Placement = "AUTHOR"
)

// ValidPlacements defines allowed placements
var ValidPlacements = map[Placement]bool{
	PlacementHome:     true,
	PlacementCategory: true,
	PlacementSeries:   true,
	PlacementAuthor:   true,
}

// ScopeKind returns the taxonomy kind a placement is scoped to, or "" for HOME
func (p Placement) ScopeKind() TaxonomyKind {
	switch p {
	case PlacementCategory:
		return KindCategory
	case PlacementSeries:
		return KindSeries
	case PlacementAuthor:
		return KindAuthor
	}
	return ""
}

// ModuleStatus is derived from the activation window, never stored
type ModuleStatus string

const (
	ModuleInactive  ModuleStatus = "INACTIVE"
	ModuleExpired   ModuleStatus = "EXPIRED"
	ModuleScheduled ModuleStatus = "SCHEDULED"
	ModuleLive      ModuleStatus = "LIVE"
)

// DeriveStatus applies Inactive > Expired > Scheduled > Live
func DeriveStatus(isActive bool, publishAt, expiresAt *time.Time, now time.Time) ModuleStatus {
	switch {
	case !isActive:
		return ModuleInactive
	case expiresAt != nil && !expiresAt.After(now):
		return ModuleExpired
	case publishAt != nil && publishAt.After(now):
		return ModuleScheduled
	default:
		return ModuleLive
	}
}

// Module is an ordered, time-windowed collection of curated items
type Module struct {
	ID        int64        `json:"id" db:"id"`
	Placement Placement    `json:"placement" db:"placement"`
	ScopeID   *int64       `json:"scope_id,omitempty" db:"scope_id"`
	Title     string       `json:"title" db:"title"`
	Subtitle  string       `json:"subtitle" db:"subtitle"`
	Order     int          `json:"order" db:"sort_order"`
	IsActive  bool         `json:"is_active" db:"is_active"`
	PublishAt *time.Time   `json:"publish_at,omitempty" db:"publish_at"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
	Items     []ModuleItem `json:"items"`
}

// Status derives the module status at now
func (m *Module) Status(now time.Time) ModuleStatus {
	return DeriveStatus(m.IsActive, m.PublishAt, m.ExpiresAt, now)
}

// ItemType is the discriminant of a module item
type ItemType string

const (
	ItemArticle  ItemType = "ARTICLE"
	ItemCategory ItemType = "CATEGORY"
	ItemSeries   ItemType = "SERIES"
	ItemAuthor   ItemType = "AUTHOR"
)

// ValidItemTypes defines allowed item types
var ValidItemTypes = map[ItemType]bool{
	ItemArticle:  true,
	ItemCategory: true,
	ItemSeries:   true,
	ItemAuthor:   true,
}

// TaxonomyKind returns the taxonomy kind an item type references, or "" for ARTICLE
func (t ItemType) TaxonomyKind() TaxonomyKind {
	switch t {
	case ItemCategory:
		return KindCategory
	case ItemSeries:
		return KindSeries
	case ItemAuthor:
		return KindAuthor
	}
	return ""
}

// ItemRef is the single target of a module item
type ItemRef struct {
	Type ItemType
	ID   int64
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// ModuleItem is one entry of a module
type ModuleItem struct {
	ID            int64
	ModuleID      int64
	Order         int
	Target        ItemRef
	OverrideTitle string
	OverrideDek   string
	CreatedAt     time.Time
}

// NormalizeItems drops repeated (type, target) pairs keeping the first
// occurrence and renumbers order densely from zero in sequence order.
func NormalizeItems(items []ModuleItem) []ModuleItem {
	seen := make(map[ItemRef]bool, len(items))
	out := make([]ModuleItem, 0, len(items))
	for _, it := range items {
		if seen[it.Target] {
			continue
		}
		seen[it.Target] = true
		it.Order = len(out)
		out = append(out, it)
	}
	return out
}

// ItemInput is the wire form of a module item: one target field populated to match item_type
type ItemInput struct {
	ItemType      ItemType `json:"item_type"`
	Article       *int64   `json:"article,omitempty"`
	Category      *int64   `json:"category,omitempty"`
	Series        *int64   `json:"series,omitempty"`
	Author        *int64   `json:"author,omitempty"`
	OverrideTitle string   `json:"override_title"`
	OverrideDek   string   `json:"override_dek"`
	Order         *int     `json:"order,omitempty"`
}

// Input returns the wire form of the item
func (i ModuleItem) Input() ItemInput {
	id := i.Target.ID
	in := ItemInput{
		ItemType:      i.Target.Type,
		OverrideTitle: i.OverrideTitle,
		OverrideDek:   i.OverrideDek,
	}
	switch i.Target.Type {
	case ItemArticle:
		in.Article = &id
	case ItemCategory:
		in.Category = &id
	case ItemSeries:
		in.Series = &id
	case ItemAuthor:
		in.Author = &id
	}
	return in
}

// ModuleInput is the payload for creating a module
type ModuleInput struct {
	Placement Placement  `json:"placement"`
	ScopeID   *int64     `json:"scope_id"`
	ScopeSlug string     `json:"scope_slug"`
	Title     string     `json:"title"`
	Subtitle  string     `json:"subtitle"`
	Order     int        `json:"order"`
	IsActive  *bool      `json:"is_active"`
	PublishAt *time.Time `json:"publish_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ModulePatch carries the fields supplied to PATCH
type ModulePatch struct {
	Placement *Placement          `json:"placement"`
	ScopeID   Optional[int64]     `json:"scope_id"`
	ScopeSlug *string             `json:"scope_slug"`
	Title     *string             `json:"title"`
	Subtitle  *string             `json:"subtitle"`
	Order     *int                `json:"order"`
	IsActive  *bool               `json:"is_active"`
	PublishAt Optional[time.Time] `json:"publish_at"`
	ExpiresAt Optional[time.Time] `json:"expires_at"`
}

// Apply copies every supplied field onto m; scope slugs are resolved by the caller
func (p *ModulePatch) Apply(m *Module) {
	if p.Placement != nil {
		m.Placement = *p.Placement
	}
	if p.ScopeID.Set {
		m.ScopeID = p.ScopeID.Value
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Subtitle != nil {
		m.Subtitle = *p.Subtitle
	}
	if p.Order != nil {
		m.Order = *p.Order
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	if p.PublishAt.Set {
		m.PublishAt = p.PublishAt.Value
	}
	if p.ExpiresAt.Set {
		m.ExpiresAt = p.ExpiresAt.Value
	}
}

// ModuleFilter narrows module listings
type ModuleFilter struct {
	Placement Placement
	ScopeID   *int64
}

// ModuleView is a module with its derived status and wire-form items
type ModuleView struct {
	ID        int64        `json:"id"`
	Placement Placement    `json:"placement"`
	ScopeID   *int64       `json:"scope_id,omitempty"`
	Title     string       `json:"title"`
	Subtitle  string       `json:"subtitle"`
	Order     int          `json:"order"`
	IsActive  bool         `json:"is_active"`
	PublishAt *time.Time   `json:"publish_at,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Status    ModuleStatus `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
	Items     []ItemView   `json:"items"`
}

// ItemView is an item as shown to editors and readers
type ItemView struct {
	Order         int      `json:"order"`
	ItemType      ItemType `json:"item_type"`
	TargetID      int64    `json:"target_id"`
	OverrideTitle string   `json:"override_title,omitempty"`
	OverrideDek   string   `json:"override_dek,omitempty"`
	Card          *Card    `json:"card,omitempty"`
}

// Card is the resolved display shape of an item target
type Card struct {
	Title string `json:"title"`
	Dek   string `json:"dek,omitempty"`
	Slug  string `json:"slug"`
}

// View builds the status-annotated form of m at now
func (m *Module) View(now time.Time) ModuleView {
	v := ModuleView{
		ID:        m.ID,
		Placement: m.Placement,
		ScopeID:   m.ScopeID,
		Title:     m.Title,
		Subtitle:  m.Subtitle,
		Order:     m.Order,
		IsActive:  m.IsActive,
		PublishAt: m.PublishAt,
		ExpiresAt: m.ExpiresAt,
		Status:    m.Status(now),
		UpdatedAt: m.UpdatedAt,
		Items:     make([]ItemView, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		v.Items = append(v.Items, ItemView{
			Order:         it.Order,
			ItemType:      it.Target.Type,
			TargetID:      it.Target.ID,
			OverrideTitle: it.OverrideTitle,
			OverrideDek:   it.OverrideDek,
		})
	}
	return v
}
