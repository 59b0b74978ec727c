// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"strings"
)

// MetadataDoc is the parsed form of a metadata.md document: an H1 title
// followed by well-known H2 sections. Title, Source, SourceURL and
// PublishDate are operator-owned and survive every rewrite verbatim;
// Guests and Quotes are replaceable by model output.
type MetadataDoc struct {
	Title       string // without the leading "# "
	Source      string
	SourceURL   string
	PublishDate string
	Guests      string
	Quotes      string
}

// Section headings recognized by the parser.
const (
	sectionSource      = "来源"
	sectionSourceURL   = "原始链接"
	sectionPublishDate = "发布时间"
	sectionGuests      = "嘉宾"
	sectionQuotes      = "金句"
)

// ParseMetadataDoc parses a metadata document. Unknown H2 sections are
// ignored; a section's body runs until the next H2 heading or the end of
// the document and is returned trimmed.
func ParseMetadataDoc(content string) MetadataDoc {
	var doc MetadataDoc

	lines := strings.Split(content, "\n")
	var section string
	var body []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		switch section {
		case sectionSource:
			doc.Source = text
		case sectionSourceURL:
			doc.SourceURL = text
		case sectionPublishDate:
			doc.PublishDate = text
		case sectionGuests:
			doc.Guests = text
		case sectionQuotes:
			doc.Quotes = text
		}
		body = body[:0]
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "# ") && !strings.HasPrefix(line, "## "):
			if doc.Title == "" {
				doc.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			}
		case strings.HasPrefix(line, "## "):
			flush()
			section = strings.TrimSpace(strings.TrimPrefix(line, "## "))
		default:
			body = append(body, line)
		}
	}
	flush()

	return doc
}

// Render writes the document back in the canonical section order. Empty
// sections are omitted entirely.
func (d MetadataDoc) Render() string {
	var b strings.Builder

	if d.Title != "" {
		b.WriteString("# " + d.Title + "\n\n")
	}
	writeSection(&b, sectionSource, d.Source)
	writeSection(&b, sectionSourceURL, d.SourceURL)
	writeSection(&b, sectionPublishDate, d.PublishDate)
	writeSection(&b, sectionGuests, d.Guests)
	writeSection(&b, sectionQuotes, d.Quotes)

	return strings.TrimSpace(b.String()) + "\n"
}

func writeSection(b *strings.Builder, heading, body string) {
	if body == "" {
		return
	}
	b.WriteString("## " + heading + "\n" + body + "\n\n")
}

// Reconcile merges model-produced metadata into the existing document.
// Operator fields (title, source, source URL, publish date) are taken
// from the existing document whenever present there; only guests and
// quotes may be replaced, and only when the model actually produced
// them. Unfilled template markers from the prompt ("无", or any value
// still wrapped in brackets) never overwrite an existing value.
func Reconcile(existing, fromModel MetadataDoc) MetadataDoc {
	out := existing

	if out.Title == "" {
		out.Title = fromModel.Title
	}
	if out.Source == "" {
		out.Source = fromModel.Source
	}
	if out.SourceURL == "" {
		out.SourceURL = fromModel.SourceURL
	}
	if out.PublishDate == "" {
		out.PublishDate = fromModel.PublishDate
	}

	if g := fromModel.Guests; !isPlaceholderValue(g) {
		out.Guests = g
	}
	if q := fromModel.Quotes; !isPlaceholderValue(q) {
		out.Quotes = q
	}

	return out
}

// isPlaceholderValue reports whether a guests/quotes value is a prompt
// template artifact rather than real content.
func isPlaceholderValue(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "无" || strings.HasPrefix(v, "[")
}
