package feed

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"

	"FilingScanner/internal/domain"
)

var (
	cikExpr  = regexp.MustCompile(`\(([^()]+)\)`)
	itemExpr = regexp.MustCompile(`Item\s\d+\.\d{2}`)
)

// Reader parses the registry's Atom listing feed into filing entries.
type Reader struct {
	parser *gofeed.Parser
}

// NewReader builds a feed reader.
func NewReader() *Reader {
	return &Reader{parser: gofeed.NewParser()}
}

// Parse extracts one FilingEntry per feed entry. The filer's CIK comes
// from the parenthesized token in the title, the index URL from the entry
// link, and item codes from the summary text. Entries missing any
// required field are skipped, not errors.
func (r *Reader) Parse(feedXML string) ([]domain.FilingEntry, error) {
	parsed, err := r.parser.ParseString(feedXML)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]domain.FilingEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		updated := item.UpdatedParsed
		if updated == nil {
			updated = item.PublishedParsed
		}
		if item.Title == "" || item.Link == "" || updated == nil || item.Description == "" {
			continue
		}

		cik := extractCIK(item.Title)
		if cik == "" {
			continue
		}

		entries = append(entries, domain.FilingEntry{
			CIK:         cik,
			IndexURL:    item.Link,
			ItemList:    extractItemList(item.Description),
			PublishedAt: *updated,
			FilingDate:  updated.Format("2006-01-02"),
		})
	}

	return entries, nil
}

// FilterByAllowedItems keeps only entries whose every item code is in the
// allow-list. An entry listing even one code outside the list is dropped
// entirely, never partially accepted.
func FilterByAllowedItems(entries []domain.FilingEntry, allowed []string) []domain.FilingEntry {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, code := range allowed {
		allowSet[code] = struct{}{}
	}

	kept := make([]domain.FilingEntry, 0, len(entries))
	for _, entry := range entries {
		codes := entry.ItemCodes()
		if len(codes) == 0 {
			continue
		}
		ok := true
		for _, code := range codes {
			if _, in := allowSet[code]; !in {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, entry)
		}
	}
	return kept
}

func extractCIK(title string) string {
	if m := cikExpr.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return ""
}

// extractItemList matches "Item N.NN" tokens in free text and returns the
// bare codes, deduplicated, sorted and comma-joined.
func extractItemList(summary string) string {
	seen := make(map[string]struct{})
	for _, match := range itemExpr.FindAllString(summary, -1) {
		code := strings.TrimPrefix(match, "Item ")
		seen[code] = struct{}{}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return strings.Join(codes, ",")
}
