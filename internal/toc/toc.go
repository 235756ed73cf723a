// Package toc derives a table of contents from rendered article markup
// and injects stable anchor ids into its headings.
package toc

import (
	"iter"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"golang.org/x/net/html/atom"
)

// MaxIDLength bounds derived anchor ids
const MaxIDLength = 80

const fallbackID = "section"

// Slugify derives the base anchor id of a heading text: lower-case,
// characters outside [a-z0-9\s-] dropped, whitespace runs collapsed to one hyphen.
func Slugify(text string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v':
			pendingHyphen = true
		}
		if b.Len() >= MaxIDLength {
			break
		}
	}

	id := b.String()
	if len(id) > MaxIDLength {
		id = id[:MaxIDLength]
	}
	id = strings.TrimRight(id, "-")
	if id == "" {
		return fallbackID
	}
	return id
}

type heading struct {
	sel   *goquery.Selection
	entry models.TOCEntry
	// explicit is true when the markup already carried the id
	explicit bool
}

func headingLevel(s *goquery.Selection) int {
	if len(s.Nodes) == 0 {
		return 0
	}
	switch s.Nodes[0].DataAtom {
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	}
	return 0
}

// scan walks level-2/3 headings in document order and assigns unique ids
func scan(doc *goquery.Document) []heading {
	sels := doc.Find("h2, h3")

	used := make(map[string]bool)
	sels.Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && strings.TrimSpace(id) != "" {
			used[strings.TrimSpace(id)] = true
		}
	})

	var (
		out     []heading
		claimed = make(map[string]bool)
	)
	sels.Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}

		h := heading{sel: s, entry: models.TOCEntry{Text: text, Level: headingLevel(s)}}
		if id, ok := s.Attr("id"); ok && strings.TrimSpace(id) != "" && !claimed[strings.TrimSpace(id)] {
			h.entry.ID = strings.TrimSpace(id)
			h.explicit = true
		} else {
			h.entry.ID = unique(Slugify(text), used)
		}
		used[h.entry.ID] = true
		claimed[h.entry.ID] = true
		out = append(out, h)
	})
	return out
}

func unique(base string, used map[string]bool) string {
	if !used[base] {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !used[candidate] {
			return candidate
		}
	}
}

func parse(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// Seq yields the ToC entries of body lazily. Each range re-parses body,
// so the sequence can be consumed any number of times. Malformed markup
// yields nothing.
func Seq(body string) iter.Seq[models.TOCEntry] {
	return func(yield func(models.TOCEntry) bool) {
		doc, err := parse(body)
		if err != nil {
			return
		}
		for _, h := range scan(doc) {
			if !yield(h.entry) {
				return
			}
		}
	}
}

// Extract returns every ToC entry of body in document order
func Extract(body string) ([]models.TOCEntry, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	entries := make([]models.TOCEntry, 0)
	for _, h := range scan(doc) {
		entries = append(entries, h.entry)
	}
	return entries, nil
}

// Annotate injects the derived ids into headings lacking one and returns
// the rewritten markup with its entries.
func Annotate(body string) (string, []models.TOCEntry, error) {
	doc, err := parse(body)
	if err != nil {
		return "", nil, err
	}

	headings := scan(doc)
	entries := make([]models.TOCEntry, 0, len(headings))
	for _, h := range headings {
		if !h.explicit {
			h.sel.SetAttr("id", h.entry.ID)
		}
		entries = append(entries, h.entry)
	}

	html, err := doc.Find("body").Html()
	if err != nil {
		return "", nil, err
	}
	return html, entries, nil
}

// IDs returns only the anchor ids of body
func IDs(body string) []string {
	var ids []string
	for e := range Seq(body) {
		ids = append(ids, e.ID)
	}
	return ids
}
