package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"FilingScanner/internal/domain"
)

// Repository is the typed persistence surface over the four durable
// tables. It exclusively owns on-disk table structure and row contents.
type Repository struct {
	store *Store
}

// NewRepository wires the repository onto an open store.
func NewRepository(store *Store) *Repository {
	return &Repository{store: store}
}

// Init creates all tables that do not exist yet.
func (r *Repository) Init(ctx context.Context) error {
	for _, schema := range []Schema{ListingSchema, ParsedItemSchema, ExhibitSchema, AnalyzedItemSchema, AnalyzedExhibitSchema} {
		if err := r.store.EnsureTable(ctx, schema); err != nil {
			return fmt.Errorf("ensure table %s: %w", schema.Table, err)
		}
	}
	return nil
}

// FilterNewListings returns the subset of index URLs not already stored.
func (r *Repository) FilterNewListings(ctx context.Context, indexURLs []string) ([]string, error) {
	return r.store.FilterNew(ctx, ListingSchema, indexURLs)
}

// InsertListings appends listings whose key dedup already cleared,
// re-checking existence per row as a second guard against races.
func (r *Repository) InsertListings(ctx context.Context, entries []domain.FilingEntry) error {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, listingRow(e))
	}
	return r.store.InsertAppendOnly(ctx, ListingSchema, rows)
}

// UnprocessedListings returns up to limit listings not yet processed.
func (r *Repository) UnprocessedListings(ctx context.Context, limit int) ([]domain.FilingEntry, error) {
	rows, err := r.store.Select(ctx, ListingSchema, sq.Eq{"processed": false}, uint64(limit))
	if err != nil {
		return nil, err
	}

	entries := make([]domain.FilingEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, listingFromRow(row))
	}
	return entries, nil
}

// UpdateResolvedDocuments stores the resolved document URLs and raw
// primary text for one listing, keyed by its index URL.
func (r *Repository) UpdateResolvedDocuments(ctx context.Context, indexURL, primaryURL, exhibitURLs, rawText string) error {
	return r.store.Update(ctx, ListingSchema, map[string]any{
		"primary_url":  primaryURL,
		"exhibit_urls": exhibitURLs,
		"raw_text":     rawText,
	}, sq.Eq{"index_url": indexURL})
}

// MarkProcessed flips the processed flag for the given listings.
func (r *Repository) MarkProcessed(ctx context.Context, indexURLs []string) error {
	if len(indexURLs) == 0 {
		return nil
	}
	return r.store.Update(ctx, ListingSchema, map[string]any{
		"processed": true,
	}, sq.Eq{"index_url": indexURLs})
}

// UpsertParsedItems replaces sections by their (cik, date, item) key.
func (r *Repository) UpsertParsedItems(ctx context.Context, items []domain.ParsedItem) error {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, Row{
			"cik":          item.CIK,
			"filing_date":  item.FilingDate,
			"item_number":  item.ItemNumber,
			"index_url":    item.IndexURL,
			"item_text":    item.ItemText,
			"exhibit_urls": item.ExhibitURLs,
			"extracted_at": item.ExtractedAt,
		})
	}
	return r.store.Upsert(ctx, ParsedItemSchema, rows)
}

// ParsedItemsByKey reads sections back for one (cik, date) pair.
func (r *Repository) ParsedItemsByKey(ctx context.Context, cik, filingDate string) ([]domain.ParsedItem, error) {
	rows, err := r.store.Select(ctx, ParsedItemSchema, sq.Eq{"cik": cik, "filing_date": filingDate}, 0)
	if err != nil {
		return nil, err
	}

	items := make([]domain.ParsedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.ParsedItem{
			CIK:         asString(row["cik"]),
			FilingDate:  asString(row["filing_date"]),
			ItemNumber:  asString(row["item_number"]),
			IndexURL:    asString(row["index_url"]),
			ItemText:    asString(row["item_text"]),
			ExhibitURLs: asString(row["exhibit_urls"]),
			ExtractedAt: asTime(row["extracted_at"]),
		})
	}
	return items, nil
}

// UpsertExhibits replaces exhibits by their (cik, date, ordinal) key.
func (r *Repository) UpsertExhibits(ctx context.Context, exhibits []domain.ExhibitText) error {
	rows := make([]Row, 0, len(exhibits))
	for _, ex := range exhibits {
		rows = append(rows, Row{
			"cik":          ex.CIK,
			"filing_date":  ex.FilingDate,
			"exhibit_id":   ex.ExhibitID,
			"exhibit_url":  ex.ExhibitURL,
			"index_url":    ex.IndexURL,
			"exhibit_text": ex.Text,
			"extracted_at": ex.ExtractedAt,
		})
	}
	return r.store.Upsert(ctx, ExhibitSchema, rows)
}

// ExhibitExists reports whether an exhibit row exists for the key.
func (r *Repository) ExhibitExists(ctx context.Context, cik, filingDate, exhibitID string) (bool, error) {
	return r.store.Exists(ctx, ExhibitSchema, sq.Eq{
		"cik":         cik,
		"filing_date": filingDate,
		"exhibit_id":  exhibitID,
	})
}

// UpsertAnalyzedItems replaces analysis results by their section key.
func (r *Repository) UpsertAnalyzedItems(ctx context.Context, items []domain.AnalyzedItem) error {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		payload, err := json.Marshal(item.Result)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		rows = append(rows, Row{
			"cik":         item.CIK,
			"filing_date": item.FilingDate,
			"item_number": item.ItemNumber,
			"index_url":   item.IndexURL,
			"analysis":    string(payload),
			"analyzed_at": item.AnalyzedAt,
		})
	}
	return r.store.Upsert(ctx, AnalyzedItemSchema, rows)
}

// UpsertAnalyzedExhibits replaces exhibit analysis results by their
// (cik, date, ordinal) key.
func (r *Repository) UpsertAnalyzedExhibits(ctx context.Context, exhibits []domain.AnalyzedExhibit) error {
	rows := make([]Row, 0, len(exhibits))
	for _, ex := range exhibits {
		payload, err := json.Marshal(ex.Result)
		if err != nil {
			return fmt.Errorf("marshal exhibit analysis: %w", err)
		}
		rows = append(rows, Row{
			"cik":         ex.CIK,
			"filing_date": ex.FilingDate,
			"exhibit_id":  ex.ExhibitID,
			"exhibit_url": ex.ExhibitURL,
			"index_url":   ex.IndexURL,
			"analysis":    string(payload),
			"analyzed_at": ex.AnalyzedAt,
		})
	}
	return r.store.Upsert(ctx, AnalyzedExhibitSchema, rows)
}

func listingRow(e domain.FilingEntry) Row {
	return Row{
		"cik":           e.CIK,
		"index_url":     e.IndexURL,
		"item_list":     e.ItemList,
		"published_at":  e.PublishedAt,
		"filing_date":   e.FilingDate,
		"processed":     e.Processed,
		"primary_url":   e.PrimaryURL,
		"exhibit_urls":  e.ExhibitURLs,
		"raw_text":      e.RawText,
		"ticker":        e.Ticker,
		"market_cap":    e.MarketCap,
		"industry_code": e.IndustryCode,
	}
}

func listingFromRow(row Row) domain.FilingEntry {
	return domain.FilingEntry{
		CIK:          asString(row["cik"]),
		IndexURL:     asString(row["index_url"]),
		ItemList:     asString(row["item_list"]),
		PublishedAt:  asTime(row["published_at"]),
		FilingDate:   asString(row["filing_date"]),
		Processed:    asBool(row["processed"]),
		PrimaryURL:   asString(row["primary_url"]),
		ExhibitURLs:  asString(row["exhibit_urls"]),
		RawText:      asString(row["raw_text"]),
		Ticker:       asString(row["ticker"]),
		MarketCap:    asFloat(row["market_cap"]),
		IndustryCode: asString(row["industry_code"]),
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	default:
		return false
	}
}

func asFloat(v any) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case int64:
		return float64(f)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	if ts, ok := v.(time.Time); ok {
		return ts
	}
	ts, err := time.Parse(time.RFC3339Nano, asString(v))
	if err != nil {
		return time.Time{}
	}
	return ts
}
