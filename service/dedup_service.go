package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/edumate-ai/tutor-be/types"
)

// DedupCandidate is one newly parsed item offered to the engine. Index is
// the item's position in the caller's full list so survivors can be mapped
// back to complete item data (including parent links) after filtering.
type DedupCandidate struct {
	Index   int
	Key     string // pass 1 comparison text (title or content)
	Content string // pass 2 embedding text
}

type DedupStats struct {
	ContentMatches    int // dropped by exact content match
	SimilarityMatches int // dropped by embedding similarity
}

// DedupResult carries the surviving candidates and their freshly generated
// embeddings, index-aligned, so callers persist without re-embedding.
type DedupResult struct {
	Survivors  []DedupCandidate
	Embeddings [][]float32
	Stats      DedupStats
}

// DedupService is the two-pass duplicate filter shared by the lecture, exam
// and assignment pipelines. Pass 1 drops exact matches before any embedding
// cost is incurred; pass 2 drops candidates whose maximum cosine similarity
// against the existing corpus reaches the threshold. Embeddings are assumed
// L2-normalized, so cosine similarity reduces to a dot product.
type DedupService struct {
	ai        AIService
	threshold float32
}

func NewDedupService(ai AIService, threshold float32) *DedupService {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.92
	}
	return &DedupService{
		ai:        ai,
		threshold: threshold,
	}
}

// Filter returns the candidates that are genuinely new relative to the
// existing records. A result with no survivors is a normal outcome the
// caller treats as a no-op completion, not an error.
func (s *DedupService) Filter(ctx context.Context, candidates []DedupCandidate, existing []types.StoredRecord) (*DedupResult, error) {
	result := &DedupResult{}

	// Pass 1: exact match on normalized content. Ordered before embedding
	// generation because embedding is the expensive step.
	known := make(map[string]bool, len(existing))
	for _, record := range existing {
		if key := normalizeContent(record.Content); key != "" {
			known[key] = true
		}
	}
	var pass1 []DedupCandidate
	for _, c := range candidates {
		if known[normalizeContent(c.Key)] {
			result.Stats.ContentMatches++
			continue
		}
		pass1 = append(pass1, c)
	}
	if len(pass1) == 0 {
		return result, nil
	}

	// Pass 2: batch-embed the survivors in one bulk call, index-aligned.
	texts := make([]string, len(pass1))
	for i, c := range pass1 {
		texts[i] = c.Content
	}
	embeddings, err := s.ai.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if len(embeddings) != len(pass1) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(pass1), len(embeddings))
	}

	corpus := decodeCorpusEmbeddings(existing)
	if len(corpus) == 0 {
		// No usable stored embeddings: similarity cannot be determined, so
		// every pass 1 survivor is kept.
		result.Survivors = pass1
		result.Embeddings = embeddings
		return result, nil
	}

	for i, c := range pass1 {
		if maxSimilarity(embeddings[i], corpus) >= s.threshold {
			result.Stats.SimilarityMatches++
			continue
		}
		result.Survivors = append(result.Survivors, c)
		result.Embeddings = append(result.Embeddings, embeddings[i])
	}
	return result, nil
}

func normalizeContent(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// decodeCorpusEmbeddings extracts usable vectors from stored records.
// Malformed entries (unparsable JSON strings, non-numeric arrays, missing
// values) are excluded from the comparison set rather than failing the run.
func decodeCorpusEmbeddings(records []types.StoredRecord) [][]float32 {
	var corpus [][]float32
	for _, record := range records {
		if vec, ok := decodeEmbedding(record.Embedding); ok && len(vec) > 0 {
			corpus = append(corpus, vec)
		}
	}
	return corpus
}

func decodeEmbedding(v interface{}) ([]float32, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []float32:
		return val, true
	case []float64:
		vec := make([]float32, len(val))
		for i, f := range val {
			vec[i] = float32(f)
		}
		return vec, true
	case bson.A:
		return decodeEmbeddingSlice(val)
	case []interface{}:
		return decodeEmbeddingSlice(val)
	case string:
		// Older records serialized the vector as JSON text.
		var vec []float32
		if err := json.Unmarshal([]byte(val), &vec); err != nil {
			return nil, false
		}
		return vec, true
	default:
		return nil, false
	}
}

func decodeEmbeddingSlice(val []interface{}) ([]float32, bool) {
	vec := make([]float32, 0, len(val))
	for _, item := range val {
		switch f := item.(type) {
		case float64:
			vec = append(vec, float32(f))
		case float32:
			vec = append(vec, f)
		case int32:
			vec = append(vec, float32(f))
		case int64:
			vec = append(vec, float32(f))
		default:
			return nil, false
		}
	}
	return vec, true
}

// maxSimilarity returns the highest dot product between the candidate and
// any corpus vector. Vectors of mismatched dimension are skipped.
func maxSimilarity(candidate []float32, corpus [][]float32) float32 {
	var max float32 = -1
	for _, vec := range corpus {
		if len(vec) != len(candidate) {
			continue
		}
		var dot float32
		for i := range vec {
			dot += candidate[i] * vec[i]
		}
		if dot > max {
			max = dot
		}
	}
	return max
}
