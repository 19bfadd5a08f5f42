package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/edumate-ai/tutor-be/types"
)

func TestDedupFilterContentMatchSkipsEmbedding(t *testing.T) {
	ai := &fakeAI{}
	dedup := NewDedupService(ai, 0.92)

	existing := []types.StoredRecord{
		{ID: "a", Content: "Pythagorean Theorem", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "Law of Cosines", Embedding: []float32{0, 1, 0}},
	}
	candidates := []DedupCandidate{
		{Index: 0, Key: "  pythagorean theorem ", Content: "Pythagorean Theorem\n..."},
		{Index: 1, Key: "LAW OF COSINES", Content: "Law of Cosines\n..."},
	}

	result, err := dedup.Filter(context.Background(), candidates, existing)
	require.NoError(t, err)
	assert.Empty(t, result.Survivors)
	assert.Equal(t, 2, result.Stats.ContentMatches)
	assert.Equal(t, 0, result.Stats.SimilarityMatches)
	// Everything matched in pass 1, so the embedding call never happens.
	assert.Equal(t, 0, ai.embedCallCount())
}

func TestDedupFilterSimilarityThreshold(t *testing.T) {
	ai := &fakeAI{
		embedFunc: func(texts []string) ([][]float32, error) {
			return [][]float32{
				{0.92, 0, 0},   // exactly at the threshold: dropped
				{0.9199, 0, 0}, // just below: kept
			}, nil
		},
	}
	dedup := NewDedupService(ai, 0.92)

	existing := []types.StoredRecord{
		{ID: "a", Content: "Existing point", Embedding: []float32{1, 0, 0}},
	}
	candidates := []DedupCandidate{
		{Index: 0, Key: "Near duplicate", Content: "Near duplicate"},
		{Index: 1, Key: "Genuinely new", Content: "Genuinely new"},
	}

	result, err := dedup.Filter(context.Background(), candidates, existing)
	require.NoError(t, err)
	require.Len(t, result.Survivors, 1)
	assert.Equal(t, 1, result.Survivors[0].Index)
	assert.Equal(t, 1, result.Stats.SimilarityMatches)
	require.Len(t, result.Embeddings, 1)
	assert.Equal(t, []float32{0.9199, 0, 0}, result.Embeddings[0])
}

func TestDedupFilterKeepsAllWhenCorpusHasNoEmbeddings(t *testing.T) {
	ai := &fakeAI{
		embedFunc: func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{1, 0, 0}
			}
			return out, nil
		},
	}
	dedup := NewDedupService(ai, 0.92)

	// Stored records exist but none carries a usable vector.
	existing := []types.StoredRecord{
		{ID: "a", Content: "Old point", Embedding: nil},
		{ID: "b", Content: "Other point", Embedding: "not valid json"},
	}
	candidates := []DedupCandidate{
		{Index: 0, Key: "New point", Content: "New point"},
		{Index: 1, Key: "Another point", Content: "Another point"},
	}

	result, err := dedup.Filter(context.Background(), candidates, existing)
	require.NoError(t, err)
	assert.Len(t, result.Survivors, 2)
	assert.Len(t, result.Embeddings, 2)
	assert.Equal(t, 0, result.Stats.SimilarityMatches)
}

func TestDedupFilterToleratesMalformedCorpusEntries(t *testing.T) {
	ai := &fakeAI{
		embedFunc: func(texts []string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
	}
	dedup := NewDedupService(ai, 0.92)

	// Only the bson.A entry is decodable; the rest are skipped, not fatal.
	existing := []types.StoredRecord{
		{ID: "a", Content: "Broken string", Embedding: "{{{"},
		{ID: "b", Content: "Wrong element type", Embedding: []interface{}{"x", "y"}},
		{ID: "c", Content: "Valid", Embedding: bson.A{float64(1), float64(0), float64(0)}},
	}
	candidates := []DedupCandidate{
		{Index: 0, Key: "Candidate", Content: "Candidate"},
	}

	result, err := dedup.Filter(context.Background(), candidates, existing)
	require.NoError(t, err)
	// The candidate matches the one valid vector exactly.
	assert.Empty(t, result.Survivors)
	assert.Equal(t, 1, result.Stats.SimilarityMatches)
}

func TestDedupFilterJSONStringEmbedding(t *testing.T) {
	ai := &fakeAI{
		embedFunc: func(texts []string) ([][]float32, error) {
			return [][]float32{{0, 1, 0}}, nil
		},
	}
	dedup := NewDedupService(ai, 0.92)

	existing := []types.StoredRecord{
		{ID: "a", Content: "Legacy record", Embedding: "[0.0, 1.0, 0.0]"},
	}
	candidates := []DedupCandidate{
		{Index: 0, Key: "Candidate", Content: "Candidate"},
	}

	result, err := dedup.Filter(context.Background(), candidates, existing)
	require.NoError(t, err)
	assert.Empty(t, result.Survivors)
	assert.Equal(t, 1, result.Stats.SimilarityMatches)
}

func TestDedupFilterEmbeddingFailure(t *testing.T) {
	ai := &fakeAI{
		embedFunc: func(texts []string) ([][]float32, error) {
			return nil, errors.New("rate limit exceeded")
		},
	}
	dedup := NewDedupService(ai, 0.92)

	candidates := []DedupCandidate{
		{Index: 0, Key: "Candidate", Content: "Candidate"},
	}
	_, err := dedup.Filter(context.Background(), candidates, nil)
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
}

func TestDedupFilterEmbeddingCountMismatch(t *testing.T) {
	ai := &fakeAI{
		embedFunc: func(texts []string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
	}
	dedup := NewDedupService(ai, 0.92)

	candidates := []DedupCandidate{
		{Index: 0, Key: "One", Content: "One"},
		{Index: 1, Key: "Two", Content: "Two"},
	}
	_, err := dedup.Filter(context.Background(), candidates, nil)
	require.Error(t, err)
}

func TestNewDedupServiceDefaultsInvalidThreshold(t *testing.T) {
	dedup := NewDedupService(&fakeAI{}, 0)
	assert.InDelta(t, 0.92, float64(dedup.threshold), 1e-6)

	dedup = NewDedupService(&fakeAI{}, 1.5)
	assert.InDelta(t, 0.92, float64(dedup.threshold), 1e-6)
}

func TestMaxSimilaritySkipsMismatchedDimensions(t *testing.T) {
	corpus := [][]float32{
		{1, 0},        // wrong dimension, skipped
		{0, 0.5, 0},   // dot 0.25
		{0, 0.9, 0.1}, // dot 0.45
	}
	sim := maxSimilarity([]float32{0, 0.5, 0}, corpus)
	assert.InDelta(t, 0.45, float64(sim), 1e-6)
}
