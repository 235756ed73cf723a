package models

import "time"

// TaxonomyKind names one of the taxonomy entity families
type TaxonomyKind string

const (
	KindAuthor   TaxonomyKind = "author"
	KindCategory TaxonomyKind = "category"
	KindSeries   TaxonomyKind = "series"
	KindTag      TaxonomyKind = "tag"
)

// ValidTaxonomyKinds defines allowed taxonomy kinds
var ValidTaxonomyKinds = map[TaxonomyKind]bool{
	KindAuthor:   true,
	KindCategory: true,
	KindSeries:   true,
	KindTag:      true,
}

// TaxonomyKindFromPath maps the plural URL segment to a kind
func TaxonomyKindFromPath(segment string) (TaxonomyKind, bool) {
	switch segment {
	case "authors", "author":
		return KindAuthor, true
	case "categories", "category":
		return KindCategory, true
	case "series":
		return KindSeries, true
	case "tags", "tag":
		return KindTag, true
	}
	return "", false
}

// TaxonomyEntity is an author, category, series or tag
type TaxonomyEntity struct {
	ID          int64        `json:"id" db:"id"`
	Kind        TaxonomyKind `json:"kind" db:"-"`
	Name        string       `json:"name" db:"name"`
	Slug        string       `json:"slug" db:"slug"`
	Description string       `json:"description" db:"description"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// TaxonomyInput is the payload for creating a taxonomy entity
type TaxonomyInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}
