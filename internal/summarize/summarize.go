// Package summarize condenses article text into a short summary with an LLM.
package summarize

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/F1Crawler/internal/cache"
	"github.com/TobiSchelling/F1Crawler/internal/llm"
)

const (
	// EmptyContent is returned for empty input.
	EmptyContent = "Summary failed: Empty content."

	failurePrefix = "Summary failed due to LLM error: "

	defaultMaxInputChars = 1000
	defaultMaxTokens     = 256
	defaultLanguage      = "Spanish"
)

const promptTemplate = `You are an expert in summarizing Formula 1 news. Your task is to summarize the following article
following these strict rules:

1. The summary must have a **maximum of 50 words**.
2. The summary must be structured in **no more than 2 paragraphs**.
3. Use an informative tone and write in %s.

FULL ARTICLE:
---
%s
---
`

// Summarizer produces summaries. Summarize never fails: problems are folded
// into the returned string.
type Summarizer struct {
	provider      llm.Provider
	cache         cache.Cache
	language      string
	maxInputChars int
	maxTokens     int
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithCache consults c before calling the provider.
func WithCache(c cache.Cache) Option {
	return func(s *Summarizer) { s.cache = c }
}

// WithLanguage sets the output language.
func WithLanguage(lang string) Option {
	return func(s *Summarizer) {
		if lang != "" {
			s.language = lang
		}
	}
}

// WithLimits bounds the input prefix (in characters) and the output tokens.
func WithLimits(maxInputChars, maxTokens int) Option {
	return func(s *Summarizer) {
		if maxInputChars > 0 {
			s.maxInputChars = maxInputChars
		}
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
}

// New creates a Summarizer. provider may be nil; every call then reports an
// LLM error.
func New(provider llm.Provider, opts ...Option) *Summarizer {
	s := &Summarizer{
		provider:      provider,
		cache:         cache.Nop{},
		language:      defaultLanguage,
		maxInputChars: defaultMaxInputChars,
		maxTokens:     defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize returns a summary of at most 50 words, or a failure string.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	if text == "" {
		return EmptyContent
	}
	input := prefix(text, s.maxInputChars)

	key := s.cacheKey(input)
	if summary, ok := s.cache.Get(ctx, key); ok {
		return summary
	}

	if s.provider == nil {
		return failurePrefix + "no LLM provider configured"
	}

	summary, err := s.provider.Generate(ctx, Prompt(input, s.language), s.maxTokens)
	if err != nil {
		return failurePrefix + err.Error()
	}
	if summary == "" {
		return failurePrefix + "empty response"
	}

	s.cache.Set(ctx, key, summary)
	return summary
}

// Prompt builds the summarization prompt for an already truncated input.
func Prompt(input, language string) string {
	return fmt.Sprintf(promptTemplate, language, input)
}

// cacheKey ties a cached summary to the language and model that wrote it.
func (s *Summarizer) cacheKey(input string) string {
	return s.language + "\x00" + llm.Describe(s.provider) + "\x00" + input
}

func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
