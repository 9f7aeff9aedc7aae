package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// Lead database property names.
const (
	PropName         = "Name"
	PropURL          = "URL"
	PropEmail        = "Email"
	PropStatus       = "Status"
	PropBio          = "Bio"
	PropAngelScore   = "Angel Score"
	PropICPScore     = "ICP Score"
	PropFinalScore   = "Final Score"
	PropTags         = "Tags"
	PropOutreach     = "Outreach"
	PropLastEnriched = "Last Enriched"
)

// maxRichText is Notion's limit on the content of one rich text object.
const maxRichText = 2000

// PlainText returns the text of a title, rich text, URL or email property,
// trimmed. Missing or other property types yield "".
func PlainText(props notionapi.Properties, name string) string {
	prop, ok := props[name]
	if !ok {
		return ""
	}

	var b strings.Builder
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		for _, rt := range p.Title {
			b.WriteString(rt.PlainText)
		}
	case notionapi.TitleProperty:
		for _, rt := range p.Title {
			b.WriteString(rt.PlainText)
		}
	case *notionapi.RichTextProperty:
		for _, rt := range p.RichText {
			b.WriteString(rt.PlainText)
		}
	case notionapi.RichTextProperty:
		for _, rt := range p.RichText {
			b.WriteString(rt.PlainText)
		}
	case *notionapi.URLProperty:
		b.WriteString(p.URL)
	case notionapi.URLProperty:
		b.WriteString(p.URL)
	case *notionapi.EmailProperty:
		b.WriteString(p.Email)
	case notionapi.EmailProperty:
		b.WriteString(p.Email)
	}
	return strings.TrimSpace(b.String())
}

func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > maxRichText {
		s = string(r[:maxRichText])
	}
	return []notionapi.RichText{{
		Text:      &notionapi.Text{Content: s},
		PlainText: s,
	}}
}

// Title builds a title property value.
func Title(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{Title: richText(s)}
}

// RichText builds a rich text property value, cut to Notion's length limit.
func RichText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{RichText: richText(s)}
}

// Status builds a status property value.
func Status(name string) notionapi.StatusProperty {
	return notionapi.StatusProperty{Status: notionapi.Status{Name: name}}
}

// Number builds a number property value.
func Number(v float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: v}
}

// Select builds a select property value.
func Select(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: name}}
}

// MultiSelect builds a multi-select property value.
func MultiSelect(names ...string) notionapi.MultiSelectProperty {
	opts := make([]notionapi.Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, notionapi.Option{Name: n})
	}
	return notionapi.MultiSelectProperty{MultiSelect: opts}
}

// Date builds a date property value.
func Date(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}
