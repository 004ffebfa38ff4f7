package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/F1Crawler/internal/ingest"
	"github.com/TobiSchelling/F1Crawler/internal/llm"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("embedding server down")
}

func openTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), llm.NewHashEmbedder(256))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var records = []ingest.Record{
	{Category: "F1 News", Source: "MotorSport F1", Content: "Verstappen logra la pole en Interlagos por delante de Ferrari."},
	{Category: "F1 News", Source: "Car and Driver F1", Content: "Hamilton prueba el nuevo alerón trasero de Ferrari en Monza."},
	{Category: "Rules for 2026", Source: "F1 Mock Data", Content: "La FIA confirma la reducción de carga aerodinámica para 2026."},
}

func TestMigrateNewDB(t *testing.T) {
	s := openTestDB(t)

	version, err := getSchemaVersion(s.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idem.db")

	s1, err := Open(path, llm.NewHashEmbedder(8))
	require.NoError(t, err)
	_, err = s1.AddDocuments(context.Background(), records[:1])
	require.NoError(t, err)
	s1.Close()

	s2, err := Open(path, llm.NewHashEmbedder(8))
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddDocuments(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	ids, err := s.AddDocuments(ctx, records)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for _, id := range ids {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAddDocumentsEmpty(t *testing.T) {
	s := openTestDB(t)

	ids, err := s.AddDocuments(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, ids)
}

func TestAddDocumentsEmbedderFailureStoresNothing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "fail.db"), failingEmbedder{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AddDocuments(context.Background(), records)
	assert.Error(t, err)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSimilaritySearchRoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, records)
	require.NoError(t, err)

	for _, r := range records {
		docs, err := s.SimilaritySearch(ctx, r.Content, 3)
		require.NoError(t, err)
		require.NotEmpty(t, docs)
		assert.Equal(t, r.Content, docs[0].Content)
		assert.Equal(t, r.Category, docs[0].Category)
		assert.Equal(t, r.Source, docs[0].Source)
		assert.InDelta(t, 1.0, docs[0].Score, 1e-9)
	}
}

func TestSimilaritySearchRanksAndLimits(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, records)
	require.NoError(t, err)

	docs, err := s.SimilaritySearch(ctx, "pole Interlagos Verstappen", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "MotorSport F1", docs[0].Source)
	assert.GreaterOrEqual(t, docs[0].Score, docs[1].Score)
}

func TestSimilaritySearchTiesKeepInsertionOrder(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, records)
	require.NoError(t, err)

	// A query without tokens scores every document zero.
	docs, err := s.SimilaritySearch(ctx, "...", 3)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i := range records {
		assert.Equal(t, records[i].Content, docs[i].Content)
	}
}

func TestSimilaritySearchEmptyStore(t *testing.T) {
	s := openTestDB(t)

	docs, err := s.SimilaritySearch(context.Background(), "anything", 3)
	assert.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 2}, []float64{2, 4}), 1e-12)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.InDelta(t, -1.0, cosine([]float64{1, 0}, []float64{-3, 0}), 1e-12)
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 1}))
	assert.Zero(t, cosine([]float64{1}, []float64{1, 1}))
}
