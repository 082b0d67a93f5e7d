package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"FilingScanner/internal/claim"
	"FilingScanner/internal/config"
	"FilingScanner/internal/domain"
	"FilingScanner/internal/extract"
	"FilingScanner/internal/infrastructure/feed"
	"FilingScanner/internal/infrastructure/resolver"
	"FilingScanner/internal/infrastructure/sec"
	"FilingScanner/internal/ports"
	"FilingScanner/internal/storage"
)

// PipelineDeps wires all collaborators into the orchestration pipeline.
type PipelineDeps struct {
	Client   *sec.Client
	Feed     *feed.Reader
	Resolver *resolver.Resolver
	Repo     *storage.Repository
	Claims   *claim.Set
	Analyzer ports.Analyzer
	Enricher ports.Enricher
	Notifier ports.Notifier
	Logger   *slog.Logger
	Registry config.RegistryConfig
	Filters  config.FilterConfig
}

// Pipeline implements the filing acquisition and extraction workflow:
// discover & dedupe new listings, then download & extract unprocessed
// listings until exhausted.
type Pipeline struct {
	client   *sec.Client
	feed     *feed.Reader
	resolver *resolver.Resolver
	repo     *storage.Repository
	claims   *claim.Set
	analyzer ports.Analyzer
	enricher ports.Enricher
	notifier ports.Notifier
	logger   *slog.Logger
	registry config.RegistryConfig
	filters  config.FilterConfig
}

// RunStats summarizes one pipeline run.
type RunStats struct {
	NewListings      int
	Sections         int
	Exhibits         int
	Analyzed         int
	AnalyzedExhibits int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		client:   deps.Client,
		feed:     deps.Feed,
		resolver: deps.Resolver,
		repo:     deps.Repo,
		claims:   deps.Claims,
		analyzer: deps.Analyzer,
		enricher: deps.Enricher,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		registry: deps.Registry,
		filters:  deps.Filters,
	}
}

// Run executes both phases and publishes a digest when a notifier is
// configured. Re-running is always safe: already-stored listings are
// skipped and listings that failed mid-flight are picked up again.
func (p *Pipeline) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	discovered, err := p.Discover(ctx)
	if err != nil {
		return stats, fmt.Errorf("discover listings: %w", err)
	}
	stats.NewListings = discovered

	if err := p.Process(ctx, &stats); err != nil {
		return stats, fmt.Errorf("process listings: %w", err)
	}

	if p.notifier != nil {
		digest := fmt.Sprintf("Filing scan: %d new listings, %d sections, %d exhibits, %d analyzed sections, %d analyzed exhibits",
			stats.NewListings, stats.Sections, stats.Exhibits, stats.Analyzed, stats.AnalyzedExhibits)
		if err := p.notifier.PublishDigest(ctx, digest); err != nil {
			p.logger.Warn("publish digest", "error", err)
		}
	}

	return stats, nil
}

// Discover pages through the listing feed, filters entries to the item
// allow-list, drops already-stored listings and listings below the
// market-cap floor, and inserts the remainder. Pagination stops at the
// first page yielding nothing new or at the absolute offset ceiling.
func (p *Pipeline) Discover(ctx context.Context) (int, error) {
	total := 0

	for start := 0; start < p.registry.MaxOffset; start += p.registry.PageSize {
		feedURL, err := sec.FeedURL(p.registry.BaseURL, p.registry.DocType, start, p.registry.PageSize)
		if err != nil {
			return total, err
		}

		p.logger.Debug("fetching listing feed", "url", feedURL)
		feedXML, err := p.client.Fetch(ctx, feedURL, nil)
		if err != nil {
			return total, err
		}

		entries, err := p.feed.Parse(feedXML)
		if err != nil {
			return total, err
		}
		entries = feed.FilterByAllowedItems(entries, p.filters.AllowedItems)

		keys := make([]string, len(entries))
		for i, e := range entries {
			keys[i] = e.IndexURL
		}
		newKeys, err := p.repo.FilterNewListings(ctx, keys)
		if err != nil {
			return total, err
		}
		newSet := make(map[string]struct{}, len(newKeys))
		for _, k := range newKeys {
			newSet[k] = struct{}{}
		}

		fresh := entries[:0]
		for _, e := range entries {
			if _, ok := newSet[e.IndexURL]; ok {
				fresh = append(fresh, e)
			}
		}

		if p.enricher != nil {
			fresh = p.enrich(ctx, fresh)
		}

		if len(fresh) == 0 {
			p.logger.Info("no new listings", "type", p.registry.DocType, "start", start)
			break
		}

		if err := p.repo.InsertListings(ctx, fresh); err != nil {
			return total, err
		}
		total += len(fresh)
		p.logger.Info("inserted new listings", "count", len(fresh), "start", start)
	}

	return total, nil
}

// enrich fills ticker/market-cap/industry metadata concurrently and
// drops entries whose known market cap is under the floor. A failed
// lookup leaves the entry unenriched and kept: only entries with a
// resolved market cap are held to the floor.
func (p *Pipeline) enrich(ctx context.Context, entries []domain.FilingEntry) []domain.FilingEntry {
	enriched := make([]bool, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i := range entries {
		entry := &entries[i]
		done := &enriched[i]
		g.Go(func() error {
			meta, err := p.enricher.LookupEntity(gctx, entry.CIK)
			if err != nil {
				p.logger.Warn("enrich listing", "cik", entry.CIK, "error", err)
				return nil
			}
			entry.Ticker = meta.Ticker
			entry.MarketCap = meta.MarketCap
			entry.IndustryCode = meta.IndustryCode
			*done = true
			return nil
		})
	}
	_ = g.Wait()

	kept := entries[:0]
	for i, e := range entries {
		if enriched[i] && e.MarketCap < p.filters.MinMarketCap {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// Process drains unprocessed listings in batches: resolve the index page,
// download the primary document, extract sections, fetch exhibits and run
// analysis. A listing that fails resolution or download is left
// unprocessed and retried on the next run. The loop ends when a batch
// contains nothing that was not already attempted in this run.
func (p *Pipeline) Process(ctx context.Context, stats *RunStats) error {
	attempted := make(map[string]struct{})

	for {
		batch, err := p.repo.UnprocessedListings(ctx, p.registry.BatchSize)
		if err != nil {
			return err
		}

		pending := batch[:0]
		for _, f := range batch {
			if _, seen := attempted[f.IndexURL]; !seen {
				pending = append(pending, f)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		for _, f := range pending {
			attempted[f.IndexURL] = struct{}{}
		}

		downloaded := p.download(ctx, pending)

		items := p.extractItems(pending, downloaded)
		if err := p.repo.UpsertParsedItems(ctx, items); err != nil {
			return err
		}
		stats.Sections += len(items)

		exhibits := p.fetchExhibits(ctx, items)
		if err := p.repo.UpsertExhibits(ctx, exhibits); err != nil {
			return err
		}
		stats.Exhibits += len(exhibits)

		if p.analyzer != nil {
			analyzed := p.analyze(ctx, items)
			if err := p.repo.UpsertAnalyzedItems(ctx, analyzed); err != nil {
				return err
			}
			stats.Analyzed += len(analyzed)

			analyzedExhibits := p.analyzeExhibits(ctx, exhibits)
			if err := p.repo.UpsertAnalyzedExhibits(ctx, analyzedExhibits); err != nil {
				return err
			}
			stats.AnalyzedExhibits += len(analyzedExhibits)
		}

		processed := make([]string, 0, len(pending))
		for i, f := range pending {
			if downloaded[i] {
				processed = append(processed, f.IndexURL)
			}
		}
		if err := p.repo.MarkProcessed(ctx, processed); err != nil {
			return err
		}
	}
}

// download resolves and fetches each listing's documents concurrently.
// Results are paired with their originating entry by index, never by
// completion order; a failed entry is skipped, not fatal for siblings.
func (p *Pipeline) download(ctx context.Context, pending []domain.FilingEntry) []bool {
	ok := make([]bool, len(pending))

	g := new(errgroup.Group)
	for i := range pending {
		entry := &pending[i]
		done := &ok[i]
		g.Go(func() error {
			if err := p.downloadOne(ctx, entry); err != nil {
				p.logger.Warn("skipping listing", "url", entry.IndexURL, "error", err)
				return nil
			}
			*done = true
			return nil
		})
	}
	_ = g.Wait()

	return ok
}

func (p *Pipeline) downloadOne(ctx context.Context, entry *domain.FilingEntry) error {
	indexHTML, err := p.client.Fetch(ctx, entry.IndexURL, nil)
	if err != nil {
		return err
	}

	primaryURL, exhibitURLs, err := p.resolver.Resolve(indexHTML, entry.IndexURL)
	if err != nil {
		return err
	}

	rawText, err := p.client.Fetch(ctx, primaryURL, nil)
	if err != nil {
		return err
	}

	entry.PrimaryURL = primaryURL
	entry.ExhibitURLs = strings.Join(exhibitURLs, ",")
	entry.RawText = rawText

	return p.repo.UpdateResolvedDocuments(ctx, entry.IndexURL, entry.PrimaryURL, entry.ExhibitURLs, entry.RawText)
}

// extractItems segments each downloaded document into item sections.
// Candidates for the same (cik, date, item) key collapse to one, later
// extraction winning. Zero sections is a valid outcome for a listing.
func (p *Pipeline) extractItems(pending []domain.FilingEntry, downloaded []bool) []domain.ParsedItem {
	type key struct {
		cik, date, item string
	}

	unique := make(map[key]domain.ParsedItem)
	var order []key

	for i, entry := range pending {
		if !downloaded[i] {
			continue
		}
		sections := extract.ExtractSections(entry.RawText)
		if len(sections) == 0 {
			p.logger.Debug("no sections found", "url", entry.IndexURL)
		}
		for item, text := range sections {
			k := key{cik: entry.CIK, date: entry.FilingDate, item: item}
			if _, exists := unique[k]; !exists {
				order = append(order, k)
			}
			unique[k] = domain.ParsedItem{
				CIK:         entry.CIK,
				FilingDate:  entry.FilingDate,
				ItemNumber:  item,
				IndexURL:    entry.IndexURL,
				ItemText:    text,
				ExhibitURLs: entry.ExhibitURLs,
				ExtractedAt: time.Now().UTC(),
			}
		}
	}

	items := make([]domain.ParsedItem, 0, len(order))
	for _, k := range order {
		items = append(items, unique[k])
	}
	return items
}

// fetchExhibits downloads and parses each section's exhibit documents at
// most once globally: the claimed-URL set and a store existence check
// both gate the fetch.
func (p *Pipeline) fetchExhibits(ctx context.Context, items []domain.ParsedItem) []domain.ExhibitText {
	type task struct {
		item domain.ParsedItem
		id   string
		url  string
	}

	var tasks []task
	seen := make(map[string]struct{})

	for _, item := range items {
		urls := strings.Split(item.ExhibitURLs, ",")
		for idx, url := range urls {
			if !strings.HasSuffix(url, ".htm") {
				continue
			}
			id := fmt.Sprintf("%d", idx)

			batchKey := item.CIK + "|" + item.FilingDate + "|" + id
			if _, dup := seen[batchKey]; dup {
				continue
			}
			seen[batchKey] = struct{}{}

			exists, err := p.repo.ExhibitExists(ctx, item.CIK, item.FilingDate, id)
			if err != nil {
				p.logger.Warn("exhibit existence check", "url", url, "error", err)
				continue
			}
			if exists {
				continue
			}

			if !p.claims.Claim(url) {
				continue
			}
			tasks = append(tasks, task{item: item, id: id, url: url})
		}
	}

	results := make([]*domain.ExhibitText, len(tasks))
	g := new(errgroup.Group)
	for i, t := range tasks {
		g.Go(func() error {
			raw, err := p.client.Fetch(ctx, t.url, nil)
			if err != nil {
				p.logger.Warn("skipping exhibit", "url", t.url, "error", err)
				return nil
			}
			results[i] = &domain.ExhibitText{
				CIK:         t.item.CIK,
				FilingDate:  t.item.FilingDate,
				ExhibitID:   t.id,
				ExhibitURL:  t.url,
				IndexURL:    t.item.IndexURL,
				Text:        extract.ExtractEnvelopeText(raw),
				ExtractedAt: time.Now().UTC(),
			}
			return nil
		})
	}
	_ = g.Wait()

	exhibits := make([]domain.ExhibitText, 0, len(results))
	for _, ex := range results {
		if ex != nil {
			exhibits = append(exhibits, *ex)
		}
	}
	return exhibits
}

// analyzeExhibits runs the analysis collaborator over each fetched
// exhibit's text. Exhibits that yielded no text are not sent out, and a
// failed analysis skips that exhibit only.
func (p *Pipeline) analyzeExhibits(ctx context.Context, exhibits []domain.ExhibitText) []domain.AnalyzedExhibit {
	results := make([]*domain.AnalyzedExhibit, len(exhibits))

	g := new(errgroup.Group)
	for i, ex := range exhibits {
		if ex.Text == "" {
			continue
		}
		g.Go(func() error {
			analysis, err := p.analyzer.Analyze(ctx, ex.Text)
			if err != nil {
				p.logger.Warn("skipping exhibit analysis", "cik", ex.CIK, "exhibit", ex.ExhibitID, "error", err)
				return nil
			}
			results[i] = &domain.AnalyzedExhibit{
				CIK:        ex.CIK,
				FilingDate: ex.FilingDate,
				ExhibitID:  ex.ExhibitID,
				ExhibitURL: ex.ExhibitURL,
				IndexURL:   ex.IndexURL,
				Result:     analysis,
				AnalyzedAt: time.Now().UTC(),
			}
			return nil
		})
	}
	_ = g.Wait()

	analyzed := make([]domain.AnalyzedExhibit, 0, len(results))
	for _, a := range results {
		if a != nil {
			analyzed = append(analyzed, *a)
		}
	}
	return analyzed
}

// analyze runs the analysis collaborator over each section. Failures are
// per-item skips and never block persistence of sections that succeeded.
func (p *Pipeline) analyze(ctx context.Context, items []domain.ParsedItem) []domain.AnalyzedItem {
	results := make([]*domain.AnalyzedItem, len(items))

	g := new(errgroup.Group)
	for i, item := range items {
		g.Go(func() error {
			analysis, err := p.analyzer.Analyze(ctx, item.ItemText)
			if err != nil {
				p.logger.Warn("skipping analysis", "cik", item.CIK, "item", item.ItemNumber, "error", err)
				return nil
			}
			results[i] = &domain.AnalyzedItem{
				CIK:        item.CIK,
				FilingDate: item.FilingDate,
				ItemNumber: item.ItemNumber,
				IndexURL:   item.IndexURL,
				Result:     analysis,
				AnalyzedAt: time.Now().UTC(),
			}
			return nil
		})
	}
	_ = g.Wait()

	analyzed := make([]domain.AnalyzedItem, 0, len(results))
	for _, a := range results {
		if a != nil {
			analyzed = append(analyzed, *a)
		}
	}
	return analyzed
}
