package models

import "time"

// VersionKind records which action produced a snapshot
type VersionKind string

const (
	VersionSubmit   VersionKind = "SUBMIT"
	VersionApprove  VersionKind = "APPROVE"
	VersionSchedule VersionKind = "SCHEDULE"
	VersionPublish  VersionKind = "PUBLISH"
	VersionManual   VersionKind = "MANUAL"
)

// ArticleVersion is an immutable snapshot of an article's content
type ArticleVersion struct {
	ID         int64       `json:"id" db:"id"`
	ArticleID  int64       `json:"article_id" db:"article_id"`
	Kind       VersionKind `json:"kind" db:"kind"`
	Title      string      `json:"title" db:"title"`
	Slug       string      `json:"slug" db:"slug"`
	Dek        string      `json:"dek" db:"dek"`
	BodyMD     string      `json:"body_md" db:"body_md"`
	Widgets    WidgetList  `json:"widgets" db:"widgets"`
	CategoryID *int64      `json:"category_id,omitempty" db:"category_id"`
	SeriesID   *int64      `json:"series_id,omitempty" db:"series_id"`
	CreatedBy  string      `json:"created_by" db:"created_by"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// SnapshotOf captures a's current content
func SnapshotOf(a *Article, kind VersionKind, by string) *ArticleVersion {
	return &ArticleVersion{
		ArticleID:  a.ID,
		Kind:       kind,
		Title:      a.Title,
		Slug:       a.Slug,
		Dek:        a.Dek,
		BodyMD:     a.BodyMD,
		Widgets:    a.Widgets,
		CategoryID: a.CategoryID,
		SeriesID:   a.SeriesID,
		CreatedBy:  by,
	}
}

// PreviewTokenTTL is how long a minted preview token stays valid
const PreviewTokenTTL = 24 * time.Hour

// PreviewToken grants read access to an unpublished article snapshot
type PreviewToken struct {
	Token     string    `json:"preview_token" db:"token"`
	ArticleID int64     `json:"article_id" db:"article_id"`
	VersionID *int64    `json:"version_id,omitempty" db:"version_id"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
