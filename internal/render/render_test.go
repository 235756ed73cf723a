package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/stretchr/testify/require"
)

func TestRender_MarkdownFallback(t *testing.T) {
	r := New()
	a := &models.Article{BodyMD: "## Getting Started\n\nSome *text*.\n\n### Getting Started\n"}

	body, err := r.Render(a)
	require.NoError(t, err)

	if !strings.Contains(body.HTML, `<h2 id="getting-started">`) {
		t.Errorf("Expected anchored h2, got %s", body.HTML)
	}
	if !strings.Contains(body.HTML, `<h3 id="getting-started-1">`) {
		t.Errorf("Expected suffixed h3, got %s", body.HTML)
	}
	if !strings.Contains(body.HTML, "<em>text</em>") {
		t.Errorf("Expected emphasis rendered, got %s", body.HTML)
	}

	want := []models.TOCEntry{
		{ID: "getting-started", Text: "Getting Started", Level: 2},
		{ID: "getting-started-1", Text: "Getting Started", Level: 3},
	}
	if diff := cmp.Diff(want, body.TOC); diff != "" {
		t.Errorf("Unexpected ToC (-want +got):\n%s", diff)
	}
}

func TestRender_PrefersPrecompiledHTML(t *testing.T) {
	r := New()
	a := &models.Article{
		BodyMD:   "## Ignored",
		BodyHTML: `<h2 id="kept">Precompiled</h2><p>ok</p>`,
	}

	body, err := r.Render(a)
	require.NoError(t, err)

	if strings.Contains(body.HTML, "Ignored") {
		t.Errorf("Expected markdown to be ignored, got %s", body.HTML)
	}
	require.Len(t, body.TOC, 1)
	if body.TOC[0].ID != "kept" {
		t.Errorf("Expected explicit id kept, got %s", body.TOC[0].ID)
	}
}

func TestRender_Sanitises(t *testing.T) {
	r := New()
	a := &models.Article{BodyHTML: `<h2 onclick="steal()">Safe</h2><script>alert(1)</script><a href="javascript:x()">link</a>`}

	body, err := r.Render(a)
	require.NoError(t, err)

	for _, bad := range []string{"<script", "onclick", "javascript:"} {
		if strings.Contains(body.HTML, bad) {
			t.Errorf("Expected %q to be stripped, got %s", bad, body.HTML)
		}
	}
	if !strings.Contains(body.HTML, `<h2 id="safe">Safe</h2>`) {
		t.Errorf("Expected heading kept and anchored, got %s", body.HTML)
	}
}

func TestUnrenderable(t *testing.T) {
	var widgets models.WidgetList
	raw := `[{"type":"divider"},{"type":"hologram"},{"type":"pull_quote","text":"Hi"},{"kind":"none"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &widgets))

	got := Unrenderable(widgets)
	if diff := cmp.Diff([]int{1, 3}, got); diff != "" {
		t.Errorf("Unexpected indexes (-want +got):\n%s", diff)
	}
	if got := Unrenderable(nil); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
}
