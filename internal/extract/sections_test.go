package extract

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	in := "Revenue&nbsp;grew — see “results”  for\n\tdetails…"
	got := CleanText(in)
	want := `Revenue grew - see "results" for details...`
	if got != want {
		t.Fatalf("CleanText = %q, want %q", got, want)
	}
}

func TestExtractSectionsTwoItems(t *testing.T) {
	t.Parallel()

	doc := `<html><head><style>p{color:red}</style></head><body>
	<p>UNITED STATES SECURITIES AND EXCHANGE COMMISSION</p>
	<p>Item 2.02 Results of Operations and Financial Condition.</p>
	<p>On January 5, 2026 the registrant issued a press release.</p>
	<p>Item 9.01 Financial Statements and Exhibits.</p>
	<p>(d) Exhibits: 99.1 Press release.</p>
	</body></html>`

	sections := ExtractSections(doc)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %v", len(sections), sections)
	}

	results, ok := sections["2.02"]
	if !ok {
		t.Fatalf("missing section 2.02: %v", sections)
	}
	if !strings.Contains(results, "press release") {
		t.Fatalf("section 2.02 lost its body: %q", results)
	}
	if strings.Contains(results, "Item 9.01") {
		t.Fatalf("section 2.02 ran into the next section: %q", results)
	}
	if !strings.HasPrefix(results, "Item 2.02") {
		t.Fatalf("section should start at its own heading: %q", results)
	}

	if _, ok := sections["9.01"]; !ok {
		t.Fatalf("missing section 9.01: %v", sections)
	}
}

func TestExtractSectionsUppercaseHeadings(t *testing.T) {
	t.Parallel()

	doc := `<body><p>ITEM 8.01 Other Events.</p><p>Something happened.</p></body>`

	sections := ExtractSections(doc)
	if _, ok := sections["8.01"]; !ok {
		t.Fatalf("uppercase heading not recognized: %v", sections)
	}
}

func TestExtractSectionsDuplicateLastWins(t *testing.T) {
	t.Parallel()

	doc := `<body>
	<p>Item 8.01 Other Events. first copy</p>
	<p>Item 8.01 Other Events. second copy</p>
	</body>`

	sections := ExtractSections(doc)
	got, ok := sections["8.01"]
	if !ok {
		t.Fatalf("missing section 8.01: %v", sections)
	}
	if !strings.Contains(got, "second copy") {
		t.Fatalf("later occurrence should win, got %q", got)
	}
	if strings.Contains(got, "first copy") {
		t.Fatalf("earlier occurrence should have been replaced, got %q", got)
	}
}

func TestExtractSectionsNoBoundaries(t *testing.T) {
	t.Parallel()

	sections := ExtractSections("<body><p>No recognizable headings here.</p></body>")
	if len(sections) != 0 {
		t.Fatalf("expected empty map, got %v", sections)
	}

	sections = ExtractSections("")
	if sections == nil || len(sections) != 0 {
		t.Fatalf("empty input should yield an empty non-nil map, got %v", sections)
	}
}

func TestExtractSectionsStripsHiddenContent(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0"?><html><body>
	<script>var x = "Item 1.01 fake";</script>
	<ix:header><p>Item 3.01 hidden metadata</p></ix:header>
	<p>Item 5.02 Departure of Directors.</p><p>The CFO resigned.</p>
	</body></html>`

	sections := ExtractSections(doc)
	if _, ok := sections["1.01"]; ok {
		t.Fatalf("script content leaked into sections: %v", sections)
	}
	if _, ok := sections["3.01"]; ok {
		t.Fatalf("inline-XBRL content leaked into sections: %v", sections)
	}
	if _, ok := sections["5.02"]; !ok {
		t.Fatalf("visible section missing: %v", sections)
	}
}
