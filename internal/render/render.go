// Package render turns stored article bodies into sanitised, anchored HTML.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/toc"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Body is the reader-facing rendering of an article
type Body struct {
	HTML         string
	TOC          []models.TOCEntry
	Unrenderable []int
}

// Renderer converts markdown, sanitises the result and injects ToC anchors.
// It is safe for concurrent use.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// New builds a renderer with the GFM extensions and a UGC sanitising policy
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithRendererOptions(
			htmlrenderer.WithXHTML(),
		),
	)

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Matching(bluemonday.Paragraph).OnElements("h2", "h3", "h4")
	p.RequireNoReferrerOnLinks(true)

	return &Renderer{markdown: md, policy: p}
}

// Markdown converts body_md to unsanitised HTML
func (r *Renderer) Markdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Render prefers the precompiled body_html and falls back to body_md
func (r *Renderer) Render(a *models.Article) (*Body, error) {
	source := a.BodyHTML
	if strings.TrimSpace(source) == "" {
		html, err := r.Markdown(a.BodyMD)
		if err != nil {
			return nil, err
		}
		source = html
	}

	html, entries, err := toc.Annotate(r.policy.Sanitize(source))
	if err != nil {
		return nil, fmt.Errorf("annotate headings: %w", err)
	}

	return &Body{
		HTML:         html,
		TOC:          entries,
		Unrenderable: Unrenderable(a.Widgets),
	}, nil
}

// Unrenderable lists the indexes of widgets with an unrecognised type
func Unrenderable(widgets models.WidgetList) []int {
	out := []int{}
	for i, w := range widgets {
		if !models.IsRenderable(w) {
			out = append(out, i)
		}
	}
	return out
}
