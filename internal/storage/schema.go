package storage

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a column. SQL column types are derived
// from these, never from runtime reflection over record types.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDate
	KindTimestamp
	KindJSON
)

func (k Kind) sqlType() string {
	switch k {
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindBool:
		return "BOOLEAN"
	case KindDate:
		return "DATE"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindJSON:
		return "JSON"
	default:
		return "TEXT"
	}
}

// Field declares one column: name, semantic type, nullability.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// Schema is the explicit field-specification table for one durable table.
type Schema struct {
	Table      string
	Fields     []Field
	PrimaryKey []string
}

// CreateStatement compiles the field spec into a create-if-not-exists
// statement with a composite primary key.
func (s Schema) CreateStatement() string {
	cols := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		col := f.Name + " " + f.Kind.sqlType()
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s", s.Table, strings.Join(cols, ", "))
	if len(s.PrimaryKey) > 0 {
		stmt += fmt.Sprintf(", PRIMARY KEY (%s)", strings.Join(s.PrimaryKey, ","))
	}
	return stmt + ")"
}

// Columns returns the declared column names in order.
func (s Schema) Columns() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

func (s Schema) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ListingSchema backs the filing_listing table; one row per discovered
// filing, keyed by its index page URL.
var ListingSchema = Schema{
	Table: "filing_listing",
	Fields: []Field{
		{Name: "cik", Kind: KindText},
		{Name: "index_url", Kind: KindText},
		{Name: "item_list", Kind: KindText},
		{Name: "published_at", Kind: KindTimestamp},
		{Name: "filing_date", Kind: KindDate},
		{Name: "processed", Kind: KindBool},
		{Name: "primary_url", Kind: KindText, Nullable: true},
		{Name: "exhibit_urls", Kind: KindText, Nullable: true},
		{Name: "raw_text", Kind: KindText, Nullable: true},
		{Name: "ticker", Kind: KindText, Nullable: true},
		{Name: "market_cap", Kind: KindFloat, Nullable: true},
		{Name: "industry_code", Kind: KindText, Nullable: true},
	},
	PrimaryKey: []string{"index_url"},
}

// ParsedItemSchema backs the parsed_items table; one row per extracted
// section, keyed by (cik, filing_date, item_number).
var ParsedItemSchema = Schema{
	Table: "parsed_items",
	Fields: []Field{
		{Name: "cik", Kind: KindText},
		{Name: "filing_date", Kind: KindDate},
		{Name: "item_number", Kind: KindText},
		{Name: "index_url", Kind: KindText},
		{Name: "item_text", Kind: KindText},
		{Name: "exhibit_urls", Kind: KindText, Nullable: true},
		{Name: "extracted_at", Kind: KindTimestamp},
	},
	PrimaryKey: []string{"cik", "filing_date", "item_number"},
}

// ExhibitSchema backs the exhibit_text table; one row per supplemental
// document, keyed by (cik, filing_date, exhibit_id).
var ExhibitSchema = Schema{
	Table: "exhibit_text",
	Fields: []Field{
		{Name: "cik", Kind: KindText},
		{Name: "filing_date", Kind: KindDate},
		{Name: "exhibit_id", Kind: KindText},
		{Name: "exhibit_url", Kind: KindText},
		{Name: "index_url", Kind: KindText},
		{Name: "exhibit_text", Kind: KindText},
		{Name: "extracted_at", Kind: KindTimestamp},
	},
	PrimaryKey: []string{"cik", "filing_date", "exhibit_id"},
}

// AnalyzedItemSchema backs the analyzed_items table written from the
// analysis collaborator's results.
var AnalyzedItemSchema = Schema{
	Table: "analyzed_items",
	Fields: []Field{
		{Name: "cik", Kind: KindText},
		{Name: "filing_date", Kind: KindDate},
		{Name: "item_number", Kind: KindText},
		{Name: "index_url", Kind: KindText},
		{Name: "analysis", Kind: KindJSON},
		{Name: "analyzed_at", Kind: KindTimestamp},
	},
	PrimaryKey: []string{"cik", "filing_date", "item_number"},
}

// AnalyzedExhibitSchema backs the analyzed_exhibits table; one row per
// analyzed exhibit, keyed like exhibit_text.
var AnalyzedExhibitSchema = Schema{
	Table: "analyzed_exhibits",
	Fields: []Field{
		{Name: "cik", Kind: KindText},
		{Name: "filing_date", Kind: KindDate},
		{Name: "exhibit_id", Kind: KindText},
		{Name: "exhibit_url", Kind: KindText},
		{Name: "index_url", Kind: KindText},
		{Name: "analysis", Kind: KindJSON},
		{Name: "analyzed_at", Kind: KindTimestamp},
	},
	PrimaryKey: []string{"cik", "filing_date", "exhibit_id"},
}
