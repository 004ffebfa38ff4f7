package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// SimilaritySearch returns the k documents closest to query by cosine
// similarity, best first. Equal scores keep insertion order.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors", len(vectors))
	}
	q := vectors[0]

	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, category, source, content, embedding, indexed_at FROM documents ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var embJSON string
		if err := rows.Scan(&d.ID, &d.Category, &d.Source, &d.Content, &embJSON, &d.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		var emb []float64
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			return nil, fmt.Errorf("decoding embedding of %s: %w", d.ID, err)
		}
		d.Score = cosine(q, emb)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(docs, func(a, b Document) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

// cosine returns the cosine similarity of a and b, 0 when either is a zero
// vector or the lengths differ.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
