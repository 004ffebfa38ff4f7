package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/TobiSchelling/F1Crawler/internal/cache"
	"github.com/TobiSchelling/F1Crawler/internal/config"
	"github.com/TobiSchelling/F1Crawler/internal/diag"
	"github.com/TobiSchelling/F1Crawler/internal/fetch"
	"github.com/TobiSchelling/F1Crawler/internal/index"
	"github.com/TobiSchelling/F1Crawler/internal/ingest"
	"github.com/TobiSchelling/F1Crawler/internal/llm"
	"github.com/TobiSchelling/F1Crawler/internal/relevance"
	"github.com/TobiSchelling/F1Crawler/internal/summarize"
	"github.com/TobiSchelling/F1Crawler/internal/useragent"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	MinDate time.Time
	Steps   []StepResult
	Records []ingest.Record
	Events  []diag.Event
}

// NewsSource produces the records of one run.
type NewsSource interface {
	FetchRecentNews(ctx context.Context, minDate time.Time) ([]ingest.Record, []diag.Event)
}

// Indexer persists records.
type Indexer interface {
	AddDocuments(ctx context.Context, records []ingest.Record) ([]string, error)
}

// Pipeline runs the two-step scrape and index flow.
type Pipeline struct {
	news    NewsSource
	indexer Indexer
	closers []io.Closer
}

// New wires the production collaborators from cfg. indexer may be nil when
// only dry runs are made.
func New(ctx context.Context, cfg *config.Config, indexer Indexer) *Pipeline {
	summ := cfg.Summarization
	provider := llm.CreateProvider(ctx, llm.Options{
		Provider:        summ.Provider,
		Model:           summ.Model,
		APIKeyEnv:       summ.APIKeyEnv,
		OllamaURL:       summ.OllamaURL,
		OpenAIModel:     summ.OpenAIModel,
		OpenAIAPIKeyEnv: summ.OpenAIAPIKeyEnv,
	})

	p := &Pipeline{indexer: indexer}

	summaryCache := cache.New(cfg.Cache.RedisAddr, time.Duration(cfg.Cache.TTLHours)*time.Hour)
	if c, ok := summaryCache.(io.Closer); ok {
		p.closers = append(p.closers, c)
	}
	if c, ok := provider.(io.Closer); ok {
		p.closers = append(p.closers, c)
	}

	agents := useragent.NewPool(cfg.UserAgents)
	timeout := cfg.Ingest.Timeout()

	p.news = ingest.New(
		cfg.Sources,
		relevance.NewFilter(cfg.Keywords),
		index.NewBuilder(agents, timeout),
		fetch.NewFetcher(agents, timeout),
		summarize.New(provider,
			summarize.WithCache(summaryCache),
			summarize.WithLanguage(summ.Language),
			summarize.WithLimits(summ.MaxInputChars, summ.MaxTokens),
		),
		ingest.WithCaps(cfg.Ingest.MaxCandidates, cfg.Ingest.MaxPerSource),
	)
	return p
}

// Run scrapes all sources for articles published since minDate and, unless
// dryRun is set, indexes the resulting records.
func (p *Pipeline) Run(ctx context.Context, minDate time.Time, dryRun bool) *Result {
	r := &Result{MinDate: minDate}

	// Step 1: Scrape
	step := p.runScrape(ctx, r)
	r.Steps = append(r.Steps, step)

	// Step 2: Index
	if dryRun {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Index",
			Summary: fmt.Sprintf("[dry-run] Would index %d records", len(r.Records)),
		})
		return r
	}
	r.Steps = append(r.Steps, p.runIndex(ctx, r.Records))
	return r
}

// Close releases the provider and cache connections.
func (p *Pipeline) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *Pipeline) runScrape(ctx context.Context, r *Result) StepResult {
	log.Printf("Step 1/2: Scraping sources for articles since %s...", r.MinDate.Format("2006-01-02"))
	r.Records, r.Events = p.news.FetchRecentNews(ctx, r.MinDate)

	var errs, warns int
	for _, e := range r.Events {
		switch e.Severity {
		case diag.Error:
			errs++
		case diag.Warning:
			warns++
		}
	}
	return StepResult{
		Name:    "Scrape",
		Summary: fmt.Sprintf("Produced %d records (%d errors, %d warnings)", len(r.Records), errs, warns),
	}
}

func (p *Pipeline) runIndex(ctx context.Context, records []ingest.Record) StepResult {
	log.Println("Step 2/2: Indexing records...")
	if p.indexer == nil {
		return StepResult{Name: "Index", Err: fmt.Errorf("no vector store configured")}
	}
	ids, err := p.indexer.AddDocuments(ctx, records)
	if err != nil {
		return StepResult{Name: "Index", Err: err}
	}
	return StepResult{
		Name:    "Index",
		Summary: fmt.Sprintf("Indexed %d documents", len(ids)),
	}
}
