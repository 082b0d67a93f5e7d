package feed

import (
	"testing"

	"FilingScanner/internal/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="ISO-8859-1" ?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Latest Filings</title>
  <updated>2026-01-05T12:00:00-05:00</updated>
  <entry>
    <title>8-K - ACME CORP (0000123456) (Filer)</title>
    <link rel="alternate" href="https://www.sec.gov/Archives/edgar/data/123456/000012345626000001-index.htm"/>
    <summary type="html">&lt;b&gt;Filed:&lt;/b&gt; 2026-01-05 &lt;b&gt;Items:&lt;/b&gt; Item 2.02: Results, Item 9.01: Exhibits, Item 2.02: Results</summary>
    <updated>2026-01-05T11:30:00-05:00</updated>
    <id>urn:tag:sec.gov,2008:accession-number=0000123456-26-000001</id>
  </entry>
  <entry>
    <title>8-K - NO CIK HERE</title>
    <link rel="alternate" href="https://www.sec.gov/Archives/edgar/data/999/x-index.htm"/>
    <summary type="html">Item 8.01</summary>
    <updated>2026-01-05T11:00:00-05:00</updated>
    <id>urn:tag:sec.gov,2008:accession-number=0000000999-26-000001</id>
  </entry>
</feed>`

func TestParse(t *testing.T) {
	t.Parallel()

	r := NewReader()
	entries, err := r.Parse(sampleFeed)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	// The entry without a parenthesized CIK token is skipped.
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.CIK != "0000123456" {
		t.Fatalf("unexpected CIK: %q", e.CIK)
	}
	if e.IndexURL != "https://www.sec.gov/Archives/edgar/data/123456/000012345626000001-index.htm" {
		t.Fatalf("unexpected index URL: %q", e.IndexURL)
	}
	if e.ItemList != "2.02,9.01" {
		t.Fatalf("item list should be deduplicated and sorted, got %q", e.ItemList)
	}
	if e.FilingDate != "2026-01-05" {
		t.Fatalf("unexpected filing date: %q", e.FilingDate)
	}
	if e.PublishedAt.IsZero() {
		t.Fatal("published timestamp should be set")
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	r := NewReader()
	if _, err := r.Parse("this is not xml"); err == nil {
		t.Fatal("expected an error for malformed feed input")
	}
}

func TestFilterByAllowedItems(t *testing.T) {
	t.Parallel()

	entries := []domain.FilingEntry{
		{IndexURL: "a", ItemList: "2.02,9.01"},
		{IndexURL: "b", ItemList: "2.02"},
		{IndexURL: "c", ItemList: ""},
	}
	allowed := []string{"2.02", "9.01", "8.01"}

	kept := FilterByAllowedItems(entries, allowed)
	if len(kept) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(kept))
	}
	if kept[0].IndexURL != "a" || kept[1].IndexURL != "b" {
		t.Fatalf("unexpected survivors: %v", kept)
	}
}

func TestFilterByAllowedItemsRejectsMixed(t *testing.T) {
	t.Parallel()

	// One disallowed code disqualifies the whole entry.
	entries := []domain.FilingEntry{
		{IndexURL: "a", ItemList: "2.02,7.01"},
	}
	kept := FilterByAllowedItems(entries, []string{"2.02"})
	if len(kept) != 0 {
		t.Fatalf("entry with a disallowed code should be dropped, got %v", kept)
	}
}
