// Package rag answers questions from the stored news summaries.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/F1Crawler/internal/llm"
	"github.com/TobiSchelling/F1Crawler/internal/store"
)

const (
	// EmptyStore is returned when there is nothing to search.
	EmptyStore = "⚠️ The database is empty. Please update the news first."

	DefaultK = 3

	contextSeparator = "\n---\n"
	maxTokens        = 512
)

const promptTemplate = `You are a Formula 1 expert. Write a concise, professional answer in %s
to the user's question, based ONLY on the following CONTEXT of news.
If the context does not contain the information, say that you do not know.

USER QUESTION: %s

NEWS CONTEXT:
%s
`

// Searcher is the part of the vector store used for retrieval.
type Searcher interface {
	Count(ctx context.Context) (int, error)
	SimilaritySearch(ctx context.Context, query string, k int) ([]store.Document, error)
}

// Answerer combines retrieval with generation.
type Answerer struct {
	store    Searcher
	provider llm.Provider
	language string
}

// New creates an Answerer. language defaults to Spanish.
func New(s Searcher, provider llm.Provider, language string) *Answerer {
	if language == "" {
		language = "Spanish"
	}
	return &Answerer{store: s, provider: provider, language: language}
}

// Context retrieves the k best documents for question and joins their
// contents into one context block.
func (a *Answerer) Context(ctx context.Context, question string, k int) (string, []store.Document, error) {
	if k <= 0 {
		k = DefaultK
	}
	docs, err := a.store.SimilaritySearch(ctx, question, k)
	if err != nil {
		return "", nil, fmt.Errorf("searching documents: %w", err)
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, contextSeparator), docs, nil
}

// Answer returns the generated answer followed by the list of fragments it
// was based on. Failures are reported in the returned text.
func (a *Answerer) Answer(ctx context.Context, question string, k int) string {
	n, err := a.store.Count(ctx)
	if err != nil {
		return fmt.Sprintf("Error reading the vector store: %v", err)
	}
	if n == 0 {
		return EmptyStore
	}

	contextText, docs, err := a.Context(ctx, question, k)
	if err != nil {
		return fmt.Sprintf("Error retrieving context: %v", err)
	}

	if a.provider == nil {
		return "Error generating the answer with the LLM: no provider configured"
	}
	prompt := fmt.Sprintf(promptTemplate, a.language, question, contextText)
	answer, err := a.provider.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return fmt.Sprintf("Error generating the answer with the LLM: %v", err)
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n**Sources used:**\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "- Fragment %d of **%s** (Source: %s)\n", i+1, d.Category, d.Source)
	}
	return b.String()
}
