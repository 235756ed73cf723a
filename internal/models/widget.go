package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WidgetType is the discriminant of a widget
type WidgetType string

const (
	WidgetPullQuote   WidgetType = "pull_quote"
	WidgetRelatedCard WidgetType = "related_card"
	WidgetVideo       WidgetType = "video"
	WidgetGallery     WidgetType = "gallery"
	WidgetImage       WidgetType = "image"
	WidgetEmbed       WidgetType = "embed"
	WidgetCallout     WidgetType = "callout"
	WidgetHeading     WidgetType = "heading"
	WidgetDivider     WidgetType = "divider"
)

// Widget is one typed content block embedded in an article body.
// The concrete types below are the only implementations.
type Widget interface {
	WidgetType() WidgetType
}

// PullQuote highlights a quotation from the article
type PullQuote struct {
	Text        string `json:"text"`
	Attribution string `json:"attribution,omitempty"`
}

// RelatedCard links another article by id
type RelatedCard struct {
	ArticleID int64 `json:"articleId"`
}

// Video embeds a hosted video by provider and id
type Video struct {
	Provider string `json:"provider"`
	VideoID  string `json:"videoId"`
}

// Gallery shows several media items in sequence
type Gallery struct {
	MediaIDs []int64 `json:"mediaIds"`
}

// Image places one media item with alt text
type Image struct {
	MediaID int64  `json:"mediaId"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
}

// Embed is third-party content from an allowed provider
type Embed struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
}

// Callout is a boxed aside with a visual variant
type Callout struct {
	Variant string `json:"variant"`
	Title   string `json:"title,omitempty"`
	Text    string `json:"text"`
}

// Heading is a section title that also feeds the ToC
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Divider is a horizontal rule
type Divider struct{}

// OpaqueWidget preserves a widget whose type is not recognised.
// It round-trips byte for byte and is never rendered.
type OpaqueWidget struct {
	Type string
	Raw  json.RawMessage
}

func (*PullQuote) WidgetType() WidgetType   { return WidgetPullQuote }
func (*RelatedCard) WidgetType() WidgetType { return WidgetRelatedCard }
func (*Video) WidgetType() WidgetType       { return WidgetVideo }
func (*Gallery) WidgetType() WidgetType     { return WidgetGallery }
func (*Image) WidgetType() WidgetType       { return WidgetImage }
func (*Embed) WidgetType() WidgetType       { return WidgetEmbed }
func (*Callout) WidgetType() WidgetType     { return WidgetCallout }
func (*Heading) WidgetType() WidgetType     { return WidgetHeading }
func (*Divider) WidgetType() WidgetType     { return WidgetDivider }
func (o *OpaqueWidget) WidgetType() WidgetType {
	return WidgetType(o.Type)
}

// IsRenderable reports whether w is one of the recognised widget types
func IsRenderable(w Widget) bool {
	_, opaque := w.(*OpaqueWidget)
	return !opaque
}

// newWidget returns an empty value for a known discriminant
func newWidget(t WidgetType) Widget {
	switch t {
	case WidgetPullQuote:
		return &PullQuote{}
	case WidgetRelatedCard:
		return &RelatedCard{}
	case WidgetVideo:
		return &Video{}
	case WidgetGallery:
		return &Gallery{}
	case WidgetImage:
		return &Image{}
	case WidgetEmbed:
		return &Embed{}
	case WidgetCallout:
		return &Callout{}
	case WidgetHeading:
		return &Heading{}
	case WidgetDivider:
		return &Divider{}
	}
	return nil
}

// WidgetDecodeError identifies the element that could not be decoded
type WidgetDecodeError struct {
	Index int
	Err   error
}

func (e *WidgetDecodeError) Error() string {
	return fmt.Sprintf("widgets[%d]: %v", e.Index, e.Err)
}

func (e *WidgetDecodeError) Unwrap() error { return e.Err }

// WidgetList is the ordered widget list of an article
type WidgetList []Widget

// UnmarshalJSON accepts either a bare array or the stored {"widgets": [...]} document
func (l *WidgetList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}

	var elems []json.RawMessage
	if data[0] == '{' {
		var doc struct {
			Widgets []json.RawMessage `json:"widgets"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		elems = doc.Widgets
	} else if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}

	out := make(WidgetList, 0, len(elems))
	for i, raw := range elems {
		w, err := decodeWidget(raw)
		if err != nil {
			return &WidgetDecodeError{Index: i, Err: err}
		}
		out = append(out, w)
	}
	*l = out
	return nil
}

// MarshalJSON writes the list as a bare array with a "type" key on every element
func (l WidgetList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, w := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := encodeWidget(w)
		if err != nil {
			return nil, fmt.Errorf("widgets[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Document returns the stored {"widgets": [...]} form
func (l WidgetList) Document() ([]byte, error) {
	list, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{"widgets": list})
}

// Move returns a copy of l with the element at from moved to position to
func (l WidgetList) Move(from, to int) (WidgetList, error) {
	if from < 0 || from >= len(l) || to < 0 || to >= len(l) {
		return nil, fmt.Errorf("move %d -> %d out of range for %d widgets", from, to, len(l))
	}
	out := make(WidgetList, 0, len(l))
	out = append(out, l[:from]...)
	out = append(out, l[from+1:]...)
	out = append(out[:to], append(WidgetList{l[from]}, out[to:]...)...)
	return out, nil
}

func decodeWidget(raw json.RawMessage) (Widget, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("widget must be an object: %w", err)
	}
	if head.Type == nil {
		return &OpaqueWidget{Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	w := newWidget(WidgetType(*head.Type))
	if w == nil {
		return &OpaqueWidget{Type: *head.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
	if err := json.Unmarshal(raw, w); err != nil {
		return nil, fmt.Errorf("invalid %s widget: %w", *head.Type, err)
	}
	return w, nil
}

func encodeWidget(w Widget) ([]byte, error) {
	if o, ok := w.(*OpaqueWidget); ok {
		return o.Raw, nil
	}

	body, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	typ, _ := json.Marshal(w.WidgetType())
	fields["type"] = typ
	return json.Marshal(fields)
}
