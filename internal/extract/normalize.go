package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

// punctReplacer collapses the Unicode punctuation and whitespace variants
// that registry documents are littered with to plain ASCII.
var punctReplacer = strings.NewReplacer(
	" ", " ", // non-breaking space
	" ", " ", // em space
	" ", " ", // en space
	" ", " ", // 3-em space
	" ", " ", // thin space
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"—", "-", // em dash
	"–", "-", // en dash
	"…", "...", // ellipsis
	"•", "-", // bullet
	"·", "-", // middle dot
	"−", "-", // minus
)

// CleanText decodes HTML entities, normalizes punctuation variants and
// collapses all whitespace runs to single spaces.
func CleanText(text string) string {
	text = html.UnescapeString(text)
	text = punctReplacer.Replace(text)
	text = whitespaceExpr.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// strippedTags are removed wholesale before text extraction.
const strippedTags = "script,style,head,meta,link,hidden"

// htmlToText parses markup and returns its visible text. The body element
// is preferred when present; script/style/metadata subtrees are dropped,
// inline-XBRL wrappers included, and a line break is inserted before each
// block-level element so adjacent blocks do not run together.
func htmlToText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	root := doc.Selection
	if body := doc.Find("body").First(); body.Length() > 0 {
		root = body
	}

	root.Find(strippedTags).Remove()
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		if strings.HasPrefix(goquery.NodeName(s), "ix:") {
			s.Remove()
		}
	})

	root.Find("p,div,br,tr").Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml("\n")
	})

	return root.Text()
}
