package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestDecodeSearchHits(t *testing.T) {
	raw := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			CHUNK_CLASS: []interface{}{
				map[string]interface{}{
					"content":    "The Pythagorean theorem relates the sides of a right triangle.",
					"title":      "Pythagorean Theorem",
					"documentId": "doc-1",
					"kind":       "lecture",
					"pages":      []interface{}{float64(3), float64(4)},
					"createdAt":  float64(1700000000),
					"_additional": map[string]interface{}{
						"id":       "w-1",
						"distance": float64(0.12),
					},
				},
			},
		},
	}

	chunks, distances := decodeSearchHits(raw)
	require.Len(t, chunks, 1)
	require.Len(t, distances, 1)
	assert.Equal(t, "Pythagorean Theorem", chunks[0].Title)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, []int{3, 4}, chunks[0].Pages)
	assert.Equal(t, int64(1700000000), chunks[0].CreatedAt)
	assert.Equal(t, "w-1", chunks[0].ID)
	assert.Equal(t, float32(0.12), distances[0])
}

func TestDecodeSearchHitsToleratesMalformedResponses(t *testing.T) {
	// A response body can lack any level of the expected shape.
	for name, raw := range map[string]map[string]models.JSONObject{
		"nil data":       nil,
		"no Get key":     {"Aggregate": map[string]interface{}{}},
		"Get wrong type": {"Get": "not a map"},
		"no class key":   {"Get": map[string]interface{}{}},
		"class wrong type": {"Get": map[string]interface{}{
			CHUNK_CLASS: "not a list",
		}},
		"item wrong type": {"Get": map[string]interface{}{
			CHUNK_CLASS: []interface{}{"not an object"},
		}},
	} {
		chunks, distances := decodeSearchHits(raw)
		assert.Empty(t, chunks, name)
		assert.Empty(t, distances, name)
	}
}
