package domain

import (
	"strings"
	"time"
)

// FilingEntry is one filing discovered in the registry's Atom feed,
// keyed by its index page URL. It is inserted exactly once and mutated
// in place as the pipeline resolves and downloads its documents.
type FilingEntry struct {
	CIK          string
	IndexURL     string
	ItemList     string
	PublishedAt  time.Time
	FilingDate   string
	Processed    bool
	PrimaryURL   string
	ExhibitURLs  string
	RawText      string
	Ticker       string
	MarketCap    float64
	IndustryCode string
}

// ItemCodes splits the comma-joined item list into individual codes.
func (f FilingEntry) ItemCodes() []string {
	if f.ItemList == "" {
		return nil
	}
	return strings.Split(f.ItemList, ",")
}

// ExhibitURLList splits the comma-joined exhibit URL list.
func (f FilingEntry) ExhibitURLList() []string {
	if f.ExhibitURLs == "" {
		return nil
	}
	return strings.Split(f.ExhibitURLs, ",")
}

// ParsedItem is one item-coded section extracted from a filing's primary
// document. Keyed by (CIK, filing date, item number).
type ParsedItem struct {
	CIK         string
	FilingDate  string
	ItemNumber  string
	IndexURL    string
	ItemText    string
	ExhibitURLs string
	ExtractedAt time.Time
}

// ExhibitText is the plain text of one supplemental exhibit document.
// ExhibitID is the ordinal position within the filing's exhibit URL list.
type ExhibitText struct {
	CIK         string
	FilingDate  string
	ExhibitID   string
	ExhibitURL  string
	IndexURL    string
	Text        string
	ExtractedAt time.Time
}

// AnalysisResult is the structured output of the external analysis
// collaborator for one section of text.
type AnalysisResult struct {
	EventType            string   `json:"event_type"`
	Sentiment            int      `json:"sentiment"`
	EventSummary         string   `json:"event_summary"`
	KeyTakeaway          string   `json:"key_takeaway"`
	ProbablePriceMove    bool     `json:"probable_price_move"`
	PriceMoveReason      string   `json:"price_move_reason"`
	FinanciallyMaterial  bool     `json:"is_financially_material"`
	OperationalImpact    bool     `json:"is_operational_impact"`
	RecentEvent          bool     `json:"is_recent_event"`
	UnexpectedTiming     bool     `json:"unexpected_timing"`
	MentionedCompanies   []string `json:"mentioned_companies"`
	MentionedTickers     []string `json:"mentioned_tickers"`
	Keywords             []string `json:"keywords"`
	StrategicSignal      bool     `json:"strategic_signal"`
	PriorityShiftFlagged bool     `json:"priority_shift_detected"`
}

// AnalyzedItem pairs a parsed section with its analysis result for storage.
type AnalyzedItem struct {
	CIK        string
	FilingDate string
	ItemNumber string
	IndexURL   string
	Result     AnalysisResult
	AnalyzedAt time.Time
}

// AnalyzedExhibit pairs an exhibit's extracted text with its analysis
// result for storage.
type AnalyzedExhibit struct {
	CIK        string
	FilingDate string
	ExhibitID  string
	ExhibitURL string
	IndexURL   string
	Result     AnalysisResult
	AnalyzedAt time.Time
}

// EntityMetadata is the enrichment collaborator's view of a filer.
type EntityMetadata struct {
	Ticker       string
	MarketCap    float64
	IndustryCode string
}
