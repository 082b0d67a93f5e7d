package resolver

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	primaryMarker = "8-k"
	exhibitMarker = "ex-99"
)

// ResolutionError reports an index page without a recognizable primary
// document. It is fatal for that one filing only, never for the batch.
type ResolutionError struct {
	IndexURL string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no primary document link on index page %s", e.IndexURL)
}

// Resolver locates the primary document and supplemental exhibit links on
// a filing's index page. The page is a table where each row describes one
// physical file; the type cell classifies it.
type Resolver struct {
	baseURL string
}

// New builds a resolver; document hrefs are resolved against baseURL.
func New(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Resolve scans table rows for the first primary-document row and every
// exhibit row, in row order. indexURL is used for error reporting only.
func (r *Resolver) Resolve(indexHTML, indexURL string) (string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexHTML))
	if err != nil {
		return "", nil, fmt.Errorf("parse index page: %w", err)
	}

	var (
		primaryURL string
		exhibits   []string
	)

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 4 {
			return
		}

		fileType := strings.ToLower(strings.TrimSpace(cols.Eq(3).Text()))
		href, exists := cols.Eq(2).Find("a").First().Attr("href")
		if !exists {
			return
		}

		// Inline-viewer links wrap the real document path.
		href = strings.Replace(href, "ix?doc=", "", 1)

		switch {
		case strings.Contains(fileType, primaryMarker) && primaryURL == "":
			primaryURL = r.baseURL + href
		case strings.Contains(fileType, exhibitMarker):
			exhibits = append(exhibits, r.baseURL+href)
		}
	})

	if primaryURL == "" {
		return "", nil, &ResolutionError{IndexURL: indexURL}
	}

	return primaryURL, exhibits, nil
}
