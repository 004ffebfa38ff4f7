// Package ingest runs the scraping pipeline: for every registered source it
// discovers candidate links, keeps the relevant and recent ones, summarizes
// them and returns uniform records together with a diagnostic trail.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/F1Crawler/internal/config"
	"github.com/TobiSchelling/F1Crawler/internal/dateextract"
	"github.com/TobiSchelling/F1Crawler/internal/diag"
	"github.com/TobiSchelling/F1Crawler/internal/fetch"
	"github.com/TobiSchelling/F1Crawler/internal/index"
	"github.com/TobiSchelling/F1Crawler/internal/relevance"
)

const (
	DefaultMaxCandidates = 100
	DefaultMaxPerSource  = 2

	FallbackCategory = "Rules for 2026"
	FallbackSource   = "F1 Mock Data"
	FallbackSummary  = "Formula 1 is planning a radical change in aerodynamics for 2026, " +
		"seeking lighter cars with less drag, focusing on sustainability and closer racing. " +
		"This change promises to reshape the balance of power between the teams."

	defaultCategory = "Unknown"
)

// Record is one summarized article ready for indexing.
type Record struct {
	Category string `json:"category"`
	Source   string `json:"source"`
	Content  string `json:"content"`
}

// IndexBuilder discovers candidate links for a source.
type IndexBuilder interface {
	Build(ctx context.Context, src config.Source) (*index.Index, error)
}

// ArticleFetcher downloads one article. A nil article with a nil error means
// the page is not an article.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.RawArticle, error)
}

// Summarizer condenses article text. It never fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Ingestor holds the collaborators of a run. It keeps no state between runs.
type Ingestor struct {
	sources       []config.Source
	filter        *relevance.Filter
	index         IndexBuilder
	fetcher       ArticleFetcher
	summarizer    Summarizer
	maxCandidates int
	maxPerSource  int
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithCaps overrides the candidate cap per index and the accepted-record cap
// per source. Values below 1 are ignored.
func WithCaps(maxCandidates, maxPerSource int) Option {
	return func(in *Ingestor) {
		if maxCandidates > 0 {
			in.maxCandidates = maxCandidates
		}
		if maxPerSource > 0 {
			in.maxPerSource = maxPerSource
		}
	}
}

// New creates an Ingestor over the given registry.
func New(sources []config.Source, filter *relevance.Filter, ib IndexBuilder, af ArticleFetcher, s Summarizer, opts ...Option) *Ingestor {
	in := &Ingestor{
		sources:       sources,
		filter:        filter,
		index:         ib,
		fetcher:       af,
		summarizer:    s,
		maxCandidates: DefaultMaxCandidates,
		maxPerSource:  DefaultMaxPerSource,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// FetchRecentNews processes every source in registry order and returns the
// accepted records and the diagnostics of the run. Articles dated before
// minDate are dropped. It never returns an empty record list: when nothing
// was accepted a single fallback record is returned.
func (in *Ingestor) FetchRecentNews(ctx context.Context, minDate time.Time) ([]Record, []diag.Event) {
	minDate = normalize(minDate)
	events := &diag.Log{}
	var records []Record

	for _, src := range in.sources {
		records = append(records, in.processSource(ctx, src, minDate, events)...)
	}

	if len(records) == 0 {
		events.Warn("⚠️ No real items were found. Adding a mock item for demonstration purposes.")
		records = append(records, Record{
			Category: FallbackCategory,
			Source:   FallbackSource,
			Content:  FallbackSummary,
		})
	}

	log.Printf("Ingestion finished: %d records, %d events", len(records), events.Len())
	return records, events.Events()
}

// processSource runs one source. A panic outside the per-article step is
// turned into an error event so later sources still run.
func (in *Ingestor) processSource(ctx context.Context, src config.Source, minDate time.Time, events *diag.Log) (records []Record) {
	events.Infof("🕸️ : **%s**", src.Label)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered while processing %s: %v", src.URL, r)
			events.Errorf("Failure during article iteration %s. Error: %v", src.URL, r)
		}
	}()

	idx, err := in.index.Build(ctx, src)
	if err != nil || idx == nil {
		log.Printf("Building index for %s: %v", src.URL, err)
		events.Errorf("❌ Connection failure or lock for %s. Skipping source.", src.URL)
		return nil
	}
	events.Infof("Potential articles found : %d", len(idx.Articles))

	candidates := idx.Articles
	if len(candidates) > in.maxCandidates {
		candidates = candidates[:in.maxCandidates]
	}

	for _, c := range candidates {
		if !in.filter.IsRelevant(c.Title, c.URL) {
			continue
		}

		rec, ok := in.processArticle(ctx, c.URL, src, minDate, events)
		if !ok {
			continue
		}
		records = append(records, rec)
		events.Successf("Article added: '%s' - %s", src.Label, c.URL)

		if len(records) >= in.maxPerSource {
			events.Infof("Limit of %d articles reached for %s.", in.maxPerSource, src.Label)
			break
		}
	}
	return records
}

// processArticle fetches, dates and summarizes one candidate. A panic is
// reported against the URL and only that candidate is skipped.
func (in *Ingestor) processArticle(ctx context.Context, url string, src config.Source, minDate time.Time, events *diag.Log) (rec Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered while processing %s: %v", url, r)
			events.Errorf("Error processing URL %s: %v", url, r)
			rec, ok = Record{}, false
		}
	}()

	article, err := in.fetcher.Fetch(ctx, url)
	if err != nil {
		events.Errorf("Error processing URL %s: %v", url, err)
		return Record{}, false
	}
	if article == nil {
		return Record{}, false
	}

	// Blocked sources hide their markup; rely on the parser's date alone.
	var published *time.Time
	if !src.Blocked {
		published = dateextract.Extract(article.HTML, src, events)
	}
	if published == nil {
		published = article.PublishDate
	}

	switch {
	case published != nil && published.Before(minDate):
		events.Infof("Discarding article due to age -> : '%s' - %s (Date: %s)", src.Label, url, published.Format("2006-01-02"))
		return Record{}, false
	case published == nil && src.Blocked:
		events.Infof("Skipping date filter for blocked source: %s.", src.Label)
	case published == nil:
		events.Warnf("The date could not be extracted for %s of %s", url, src.Label)
	}

	category := src.Category
	if category == "" {
		category = defaultCategory
	}
	return Record{
		Category: category,
		Source:   src.Label,
		Content:  in.summarizer.Summarize(ctx, article.Text),
	}, true
}

// normalize reads a local-time minDate as the same wall clock in UTC.
func normalize(t time.Time) time.Time {
	if t.Location() != time.Local {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return fmt.Sprintf("[%s | %s]: %s", r.Category, r.Source, r.Content)
}
