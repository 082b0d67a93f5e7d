package extract

import (
	"regexp"
	"strings"
)

var (
	xmlDeclExpr  = regexp.MustCompile(`<\?.*?\?>`)
	markerExpr   = regexp.MustCompile(`(?i)ITEM`)
	boundaryExpr = regexp.MustCompile(`(?i)Item\s+\d+\.\d+[^A-Za-z0-9]+`)
	itemCodeExpr = regexp.MustCompile(`(?i)^Item\s+(\d+\.\d+)`)
)

// ExtractSections cleans a raw primary document and segments it into
// sections keyed by item code. A document with no section boundaries
// yields an empty map, which is a valid terminal outcome, not an error.
// When the same code appears more than once the later occurrence wins.
func ExtractSections(raw string) map[string]string {
	sections := make(map[string]string)
	if raw == "" {
		return sections
	}

	text := CleanText(raw)
	text = xmlDeclExpr.ReplaceAllString(text, "")
	plain := CleanText(htmlToText(text))

	// Uniform marker casing so the boundary scan sees one spelling.
	plain = markerExpr.ReplaceAllString(plain, "Item")

	// RE2 has no lookahead, so boundaries are located first and the text
	// sliced between consecutive boundary starts.
	bounds := boundaryExpr.FindAllStringIndex(plain, -1)
	for i, loc := range bounds {
		end := len(plain)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		section := strings.TrimSpace(plain[loc[0]:end])

		m := itemCodeExpr.FindStringSubmatch(section)
		if m == nil {
			continue
		}
		sections[m[1]] = section
	}

	return sections
}
