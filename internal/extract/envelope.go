package extract

import (
	"html"
	"regexp"
	"strings"
)

var (
	documentBlockExpr = regexp.MustCompile(`(?is)<DOCUMENT>(.*?)</DOCUMENT>`)
	textTagExpr       = regexp.MustCompile(`(?is)<TEXT>(.*)`)

	typeExpr        = regexp.MustCompile(`(?i)<TYPE>(.*)`)
	sequenceExpr    = regexp.MustCompile(`(?i)<SEQUENCE>(.*)`)
	filenameExpr    = regexp.MustCompile(`(?i)<FILENAME>(.*)`)
	descriptionExpr = regexp.MustCompile(`(?i)<DESCRIPTION>(.*)`)
)

// EnvelopeDocument is one document inside a legacy multi-part envelope:
// metadata header lines followed by a free-text body that is often HTML.
type EnvelopeDocument struct {
	Type        string
	Sequence    string
	Filename    string
	Description string
	Text        string
}

// ParseEnvelopeDocuments splits an envelope on its document boundary
// markers and extracts each block's metadata and body text.
func ParseEnvelopeDocuments(raw string) []EnvelopeDocument {
	blocks := documentBlockExpr.FindAllStringSubmatch(raw, -1)
	docs := make([]EnvelopeDocument, 0, len(blocks))

	for _, block := range blocks {
		body := block[1]
		doc := EnvelopeDocument{
			Type:        firstGroup(typeExpr, body),
			Sequence:    firstGroup(sequenceExpr, body),
			Filename:    firstGroup(filenameExpr, body),
			Description: firstGroup(descriptionExpr, body),
		}

		if m := textTagExpr.FindStringSubmatch(body); m != nil {
			text := htmlToText(strings.TrimSpace(m[1]))
			doc.Text = html.UnescapeString(text)
		}

		docs = append(docs, doc)
	}

	return docs
}

// ExtractEnvelopeText parses an envelope and returns the concatenated
// plain text of every document body, normalized the same way as primary
// document text. Raw HTML without envelope markers yields empty text.
func ExtractEnvelopeText(raw string) string {
	docs := ParseEnvelopeDocuments(raw)
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Text)
	}
	return strings.TrimSpace(CleanText(strings.Join(parts, "\n")))
}

func firstGroup(expr *regexp.Regexp, s string) string {
	if m := expr.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
