package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sathwikreddy17/Common-Strange-sub000/internal/config"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

const (
	MaxSlugLength          = 270
	MaxTitleLength         = 250
	MaxDekLength           = 500
	MaxModuleTitleLength   = 200
	MaxModuleSubtitleLen   = 500
	MaxOverrideTitleLength = 250
	MaxOverrideDekLength   = 500
	MaxTaxonomyNameLength  = 200
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var reservedSlugs = map[string]bool{
	"admin":       true,
	"api":         true,
	"static":      true,
	"media":       true,
	"assets":      true,
	"dashboard":   true,
	"login":       true,
	"logout":      true,
	"robots.txt":  true,
	"sitemap.xml": true,
	"favicon.ico": true,
	"_next":       true,
}

var (
	videoProviders  = map[string]bool{"youtube": true, "vimeo": true}
	calloutVariants = map[string]bool{"note": true, "tip": true, "warning": true}
)

// ValidationError is re-exported so callers need only this package
type ValidationError = models.ValidationError

// Validator provides validation methods
type Validator struct {
	embedProviders map[string]config.EmbedProvider
}

// NewValidator creates a new validator using the given embed allow-list
func NewValidator(embedProviders map[string]config.EmbedProvider) *Validator {
	if len(embedProviders) == 0 {
		embedProviders = config.DefaultEmbedProviders()
	}
	return &Validator{embedProviders: embedProviders}
}

// IsReservedSlug reports whether slug collides with a site route
func IsReservedSlug(slug string) bool {
	s := strings.ToLower(strings.TrimSpace(slug))
	if s == "" {
		return false
	}
	return reservedSlugs[s] || strings.HasPrefix(s, "_next")
}

// ValidateSlug checks the format of a slug
func ValidateSlug(field, slug string) []ValidationError {
	var errors []ValidationError
	switch {
	case slug == "":
		errors = append(errors, ValidationError{Field: field, Message: field + " is required"})
	case len(slug) > MaxSlugLength:
		errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, MaxSlugLength)})
	case IsReservedSlug(slug):
		errors = append(errors, ValidationError{Field: field, Message: "this slug is reserved and cannot be used", Value: slug})
	case !slugRegex.MatchString(slug):
		errors = append(errors, ValidationError{Field: field, Message: field + " must be kebab-case (lowercase letters, numbers, hyphens)", Value: slug})
	}
	return errors
}

// ValidateArticle validates an article document before it is written
func (v *Validator) ValidateArticle(article *models.Article) []ValidationError {
	var errors []ValidationError

	errors = append(errors, ValidateSlug("slug", article.Slug)...)

	if strings.TrimSpace(article.Title) == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if len(article.Title) > MaxTitleLength {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)})
	}

	if len(article.Dek) > MaxDekLength {
		errors = append(errors, ValidationError{Field: "dek", Message: fmt.Sprintf("dek must be at most %d characters", MaxDekLength)})
	}

	if article.Status != "" && !models.ValidStatuses[article.Status] {
		errors = append(errors, ValidationError{Field: "status", Message: "invalid status", Value: article.Status})
	}

	if article.SeriesOrder < 0 {
		errors = append(errors, ValidationError{Field: "series_order", Message: "series_order must not be negative"})
	}

	errors = append(errors, positiveIDs("author_ids", article.AuthorIDs)...)
	errors = append(errors, positiveIDs("tag_ids", article.TagIDs)...)
	errors = append(errors, v.ValidateWidgets(article.Widgets)...)

	return errors
}

// ValidateWidgets validates every element of a widget list, reporting the element index
func (v *Validator) ValidateWidgets(widgets models.WidgetList) []ValidationError {
	var errors []ValidationError
	for i, w := range widgets {
		field := func(name string) string { return fmt.Sprintf("widgets[%d].%s", i, name) }
		switch w := w.(type) {
		case *models.PullQuote:
			if strings.TrimSpace(w.Text) == "" {
				errors = append(errors, ValidationError{Field: field("text"), Message: "pull_quote text is required"})
			}
		case *models.RelatedCard:
			if w.ArticleID <= 0 {
				errors = append(errors, ValidationError{Field: field("articleId"), Message: "related_card requires a positive articleId"})
			}
		case *models.Video:
			if !videoProviders[w.Provider] {
				errors = append(errors, ValidationError{Field: field("provider"), Message: "video provider must be one of: youtube, vimeo", Value: w.Provider})
			}
			if strings.TrimSpace(w.VideoID) == "" {
				errors = append(errors, ValidationError{Field: field("videoId"), Message: "video videoId is required"})
			}
		case *models.Gallery:
			if len(w.MediaIDs) == 0 {
				errors = append(errors, ValidationError{Field: field("mediaIds"), Message: "gallery requires at least one media id"})
			}
			errors = append(errors, positiveIDs(field("mediaIds"), w.MediaIDs)...)
		case *models.Image:
			if w.MediaID <= 0 {
				errors = append(errors, ValidationError{Field: field("mediaId"), Message: "image requires a positive mediaId"})
			}
			if strings.TrimSpace(w.Alt) == "" {
				errors = append(errors, ValidationError{Field: field("alt"), Message: "image alt text is required"})
			}
		case *models.Embed:
			if msg := v.checkEmbed(w); msg != "" {
				errors = append(errors, ValidationError{Field: field("url"), Message: msg, Value: w.URL})
			}
		case *models.Callout:
			if !calloutVariants[w.Variant] {
				errors = append(errors, ValidationError{Field: field("variant"), Message: "callout variant must be one of: note, tip, warning", Value: w.Variant})
			}
			if strings.TrimSpace(w.Text) == "" {
				errors = append(errors, ValidationError{Field: field("text"), Message: "callout text is required"})
			}
		case *models.Heading:
			if w.Level < 2 || w.Level > 4 {
				errors = append(errors, ValidationError{Field: field("level"), Message: "heading level must be between 2 and 4", Value: w.Level})
			}
			if strings.TrimSpace(w.Text) == "" {
				errors = append(errors, ValidationError{Field: field("text"), Message: "heading text is required"})
			}
		case *models.Divider:
		case *models.OpaqueWidget:
			// unknown types are kept as-is; only a missing discriminant is rejected
			if w.Type == "" {
				errors = append(errors, ValidationError{Field: field("type"), Message: "widget type is required"})
			}
		}
	}
	return errors
}

func (v *Validator) checkEmbed(e *models.Embed) string {
	provider, ok := v.embedProviders[e.Provider]
	if !ok {
		return fmt.Sprintf("embed provider %q is not allowed", e.Provider)
	}
	u, err := url.Parse(e.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "embed url must be an http(s) URL"
	}
	host := strings.ToLower(u.Hostname())
	hostOK := false
	for _, h := range provider.Hosts {
		if host == h {
			hostOK = true
			break
		}
	}
	if !hostOK {
		return fmt.Sprintf("embed url host %q does not match provider %s", host, e.Provider)
	}
	if provider.PathPrefix != "" && !strings.HasPrefix(u.Path, provider.PathPrefix) {
		return fmt.Sprintf("embed url for %s must start with %s", e.Provider, provider.PathPrefix)
	}
	return ""
}

// ValidateActivationWindow rejects expires_at at or before publish_at
func ValidateActivationWindow(publishAt, expiresAt *time.Time) []ValidationError {
	if publishAt != nil && expiresAt != nil && !expiresAt.After(*publishAt) {
		return []ValidationError{{
			Field:   "expires_at",
			Message: "expires_at must be after publish_at",
			Value:   expiresAt.Format(time.RFC3339),
		}}
	}
	return nil
}

// ValidateModule validates module metadata; scope resolution is checked by the caller
func ValidateModule(m *models.Module) []ValidationError {
	var errors []ValidationError

	if !models.ValidPlacements[m.Placement] {
		errors = append(errors, ValidationError{Field: "placement", Message: "placement must be one of: HOME, CATEGORY, SERIES, AUTHOR", Value: m.Placement})
	} else if m.Placement == models.PlacementHome && m.ScopeID != nil {
		errors = append(errors, ValidationError{Field: "scope", Message: "HOME modules do not take a scope"})
	} else if m.Placement != models.PlacementHome && m.ScopeID == nil {
		errors = append(errors, ValidationError{Field: "scope", Message: fmt.Sprintf("%s modules require a scope", m.Placement)})
	}

	if len(m.Title) > MaxModuleTitleLength {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxModuleTitleLength)})
	}
	if len(m.Subtitle) > MaxModuleSubtitleLen {
		errors = append(errors, ValidationError{Field: "subtitle", Message: fmt.Sprintf("subtitle must be at most %d characters", MaxModuleSubtitleLen)})
	}

	errors = append(errors, ValidateActivationWindow(m.PublishAt, m.ExpiresAt)...)
	return errors
}

// ItemRefs checks the type/target pairing of every input and returns the typed targets
func ItemRefs(items []models.ItemInput) ([]models.ItemRef, []ValidationError) {
	refs := make([]models.ItemRef, len(items))
	var errors []ValidationError

	for i, in := range items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		if !models.ValidItemTypes[in.ItemType] {
			errors = append(errors, ValidationError{Field: field("item_type"), Message: "item_type must be one of: ARTICLE, CATEGORY, SERIES, AUTHOR", Value: in.ItemType})
			continue
		}

		targets := map[models.ItemType]*int64{
			models.ItemArticle:  in.Article,
			models.ItemCategory: in.Category,
			models.ItemSeries:   in.Series,
			models.ItemAuthor:   in.Author,
		}
		set := 0
		for _, id := range targets {
			if id != nil {
				set++
			}
		}
		id := targets[in.ItemType]
		if id == nil || set != 1 {
			errors = append(errors, ValidationError{
				Field:   field(strings.ToLower(string(in.ItemType))),
				Message: fmt.Sprintf("%s items must reference exactly one %s target", in.ItemType, strings.ToLower(string(in.ItemType))),
			})
			continue
		}
		if *id <= 0 {
			errors = append(errors, ValidationError{Field: field(strings.ToLower(string(in.ItemType))), Message: "target id must be positive", Value: *id})
			continue
		}

		if len(in.OverrideTitle) > MaxOverrideTitleLength {
			errors = append(errors, ValidationError{Field: field("override_title"), Message: fmt.Sprintf("override_title must be at most %d characters", MaxOverrideTitleLength)})
		}
		if in.OverrideDek != "" && in.ItemType != models.ItemArticle {
			errors = append(errors, ValidationError{Field: field("override_dek"), Message: "override_dek is only allowed on ARTICLE items"})
		} else if len(in.OverrideDek) > MaxOverrideDekLength {
			errors = append(errors, ValidationError{Field: field("override_dek"), Message: fmt.Sprintf("override_dek must be at most %d characters", MaxOverrideDekLength)})
		}

		refs[i] = models.ItemRef{Type: in.ItemType, ID: *id}
	}

	if len(errors) > 0 {
		return nil, errors
	}
	return refs, nil
}

// ValidateTaxonomy validates a taxonomy entity payload
func ValidateTaxonomy(kind models.TaxonomyKind, in *models.TaxonomyInput) []ValidationError {
	var errors []ValidationError
	if !models.ValidTaxonomyKinds[kind] {
		errors = append(errors, ValidationError{Field: "kind", Message: "unknown taxonomy kind", Value: kind})
	}
	if strings.TrimSpace(in.Name) == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "name is required"})
	} else if len(in.Name) > MaxTaxonomyNameLength {
		errors = append(errors, ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxTaxonomyNameLength)})
	}
	errors = append(errors, ValidateSlug("slug", in.Slug)...)
	return errors
}

func positiveIDs(field string, ids []int64) []ValidationError {
	var errors []ValidationError
	for i, id := range ids {
		if id <= 0 {
			errors = append(errors, ValidationError{Field: fmt.Sprintf("%s[%d]", field, i), Message: "id must be positive", Value: id})
		}
	}
	return errors
}
