package models

import (
	"time"
)

// ArticleStatus represents an article's position in the editorial pipeline
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "DRAFT"
	StatusInReview  ArticleStatus = "IN_REVIEW"
	StatusScheduled ArticleStatus = "SCHEDULED"
	StatusPublished ArticleStatus = "PUBLISHED"
	StatusRejected  ArticleStatus = "REJECTED"
)

// ValidStatuses defines allowed article statuses
var ValidStatuses = map[ArticleStatus]bool{
	StatusDraft:     true,
	StatusInReview:  true,
	StatusScheduled: true,
	StatusPublished: true,
	StatusRejected:  true,
}

// Article represents an article document in the system
type Article struct {
	ID           int64         `json:"id" db:"id"`
	Slug         string        `json:"slug" db:"slug"`
	Title        string        `json:"title" db:"title"`
	Dek          string        `json:"dek" db:"dek"`
	BodyMD       string        `json:"body_md" db:"body_md"`
	BodyHTML     string        `json:"body_html,omitempty" db:"body_html"`
	Widgets      WidgetList    `json:"widgets" db:"widgets"`
	Status       ArticleStatus `json:"status" db:"status"`
	PublishAt    *time.Time    `json:"publish_at,omitempty" db:"publish_at"`
	PublishedAt  *time.Time    `json:"published_at,omitempty" db:"published_at"`
	CategoryID   *int64        `json:"category_id,omitempty" db:"category_id"`
	SeriesID     *int64        `json:"series_id,omitempty" db:"series_id"`
	SeriesOrder  int           `json:"series_order" db:"series_order"`
	AuthorIDs    []int64       `json:"author_ids" db:"-"`
	TagIDs       []int64       `json:"tag_ids" db:"-"`
	IsEditorPick bool          `json:"is_editor_pick" db:"is_editor_pick"`
	CreatedBy    string        `json:"created_by" db:"created_by"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// IsPublished returns true if the article is live for readers
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// ArticleInput is the payload for creating an article
type ArticleInput struct {
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Dek          string     `json:"dek"`
	BodyMD       string     `json:"body_md"`
	BodyHTML     string     `json:"body_html"`
	Widgets      WidgetList `json:"widgets"`
	PublishAt    *time.Time `json:"publish_at"`
	CategoryID   *int64     `json:"category_id"`
	SeriesID     *int64     `json:"series_id"`
	SeriesOrder  int        `json:"series_order"`
	AuthorIDs    []int64    `json:"author_ids"`
	TagIDs       []int64    `json:"tag_ids"`
	IsEditorPick bool       `json:"is_editor_pick"`
}

// ArticlePatch carries the fields supplied to PATCH; absent fields are left alone
type ArticlePatch struct {
	Slug         *string             `json:"slug"`
	Title        *string             `json:"title"`
	Dek          *string             `json:"dek"`
	BodyMD       *string             `json:"body_md"`
	BodyHTML     *string             `json:"body_html"`
	Widgets      *WidgetList         `json:"widgets"`
	PublishAt    Optional[time.Time] `json:"publish_at"`
	CategoryID   Optional[int64]     `json:"category_id"`
	SeriesID     Optional[int64]     `json:"series_id"`
	SeriesOrder  *int                `json:"series_order"`
	AuthorIDs    *[]int64            `json:"author_ids"`
	TagIDs       *[]int64            `json:"tag_ids"`
	IsEditorPick *bool               `json:"is_editor_pick"`
}

// Apply copies every supplied field onto a
func (p *ArticlePatch) Apply(a *Article) {
	if p.Slug != nil {
		a.Slug = *p.Slug
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Dek != nil {
		a.Dek = *p.Dek
	}
	if p.BodyMD != nil {
		a.BodyMD = *p.BodyMD
	}
	if p.BodyHTML != nil {
		a.BodyHTML = *p.BodyHTML
	}
	if p.Widgets != nil {
		a.Widgets = *p.Widgets
	}
	if p.PublishAt.Set {
		a.PublishAt = p.PublishAt.Value
	}
	if p.CategoryID.Set {
		a.CategoryID = p.CategoryID.Value
	}
	if p.SeriesID.Set {
		a.SeriesID = p.SeriesID.Value
	}
	if p.SeriesOrder != nil {
		a.SeriesOrder = *p.SeriesOrder
	}
	if p.AuthorIDs != nil {
		a.AuthorIDs = *p.AuthorIDs
	}
	if p.TagIDs != nil {
		a.TagIDs = *p.TagIDs
	}
	if p.IsEditorPick != nil {
		a.IsEditorPick = *p.IsEditorPick
	}
}

// ArticleView is the reader-facing rendering of a published article
type ArticleView struct {
	Article
	BodyHTML            string            `json:"body_html"`
	TOC                 []TOCEntry        `json:"toc"`
	UnrenderableWidgets []int             `json:"unrenderable_widgets"`
	Category            *TaxonomyEntity   `json:"category,omitempty"`
	Series              *TaxonomyEntity   `json:"series,omitempty"`
	Authors             []*TaxonomyEntity `json:"authors"`
	Tags                []*TaxonomyEntity `json:"tags"`
}

// TOCEntry is one navigable heading of a rendered body
type TOCEntry struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// ArticleSummary is the card shape used by list endpoints
type ArticleSummary struct {
	ID           int64      `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Dek          string     `json:"dek"`
	Status       string     `json:"status"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CategoryID   *int64     `json:"category_id,omitempty"`
	SeriesID     *int64     `json:"series_id,omitempty"`
	IsEditorPick bool       `json:"is_editor_pick"`
}

// Summary returns the card shape of a
func (a *Article) Summary() ArticleSummary {
	return ArticleSummary{
		ID:           a.ID,
		Slug:         a.Slug,
		Title:        a.Title,
		Dek:          a.Dek,
		Status:       string(a.Status),
		PublishedAt:  a.PublishedAt,
		UpdatedAt:    a.UpdatedAt,
		CategoryID:   a.CategoryID,
		SeriesID:     a.SeriesID,
		IsEditorPick: a.IsEditorPick,
	}
}

// ArticleQuery is the list request as received: taxonomy filters are slugs
type ArticleQuery struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	Series   string `form:"series"`
	Author   string `form:"author"`
	Tag      string `form:"tag"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// ArticleFilter selects articles for listing, newest publication first.
// Zero-valued fields do not filter.
type ArticleFilter struct {
	Status     ArticleStatus
	CategoryID *int64
	SeriesID   *int64
	AuthorID   *int64
	TagID      *int64
	Limit      int
	Offset     int
}

// Matches reports whether a satisfies every set field of f
func (f ArticleFilter) Matches(a *Article) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *f.CategoryID) {
		return false
	}
	if f.SeriesID != nil && (a.SeriesID == nil || *a.SeriesID != *f.SeriesID) {
		return false
	}
	if f.AuthorID != nil && !containsID(a.AuthorIDs, *f.AuthorID) {
		return false
	}
	if f.TagID != nil && !containsID(a.TagIDs, *f.TagID) {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
