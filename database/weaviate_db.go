package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/edumate-ai/tutor-be/config"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const UPSERT_BATCH_SIZE = 200

var (
	CHUNK_CLASS        = "KnowledgeChunk"
	CHUNK_CLASS_OBJECT = &models.Class{
		Class: CHUNK_CLASS,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "kind", DataType: []string{"text"}},
			{Name: "pages", DataType: []string{"int[]"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		VectorIndexType: "hnsw",
	}
)

type WeaviateStore struct {
	client *weaviate.Client
}

func NewWeaviateStore(cfg config.WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	CHUNK_CLASS_OBJECT.Vectorizer = cfg.Text2Vec
	CHUNK_CLASS_OBJECT.ModuleConfig = cfg.ModuleConfig
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %v", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	hasChunkClass := false
	for _, class := range schema.Classes {
		if class.Class == CHUNK_CLASS {
			hasChunkClass = true
			break
		}
	}
	if !hasChunkClass {
		err = client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create KnowledgeChunk class: %v", err)
		}
	}
	return &WeaviateStore{
		client: client,
	}, nil
}

func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(CHUNK_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete KnowledgeChunk class: %v", err)
	}

	err = s.client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create KnowledgeChunk class: %v", err)
	}
	return nil
}

// BatchUpsertChunks mirrors persisted chunks into the search index.
// Embeddings are index-aligned with chunks; a nil entry lets the configured
// vectorizer module embed the content server side.
func (s *WeaviateStore) BatchUpsertChunks(ctx context.Context, chunks []KnowledgeChunk, embeddings [][]float32) error {
	total := len(chunks)
	for i := 0; i < total; i += UPSERT_BATCH_SIZE {
		end := i + UPSERT_BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			pages := make([]int64, 0, len(chunks[j].Pages))
			for _, p := range chunks[j].Pages {
				pages = append(pages, int64(p))
			}
			properties := map[string]interface{}{
				"content":    chunks[j].Content,
				"title":      chunks[j].Title,
				"documentId": chunks[j].DocumentID,
				"kind":       chunks[j].Kind,
				"pages":      pages,
				"createdAt":  chunks[j].CreatedAt,
			}

			obj := &models.Object{
				Class:      CHUNK_CLASS,
				Properties: properties,
			}
			if embeddings != nil && j < len(embeddings) && embeddings[j] != nil {
				obj.Vector = embeddings[j]
			}
			batcher = batcher.WithObjects(obj)
		}

		if _, err := batcher.Do(ctx); err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %v", i, end, err)
		}

		log.Printf("Mirrored batch %d-%d of %d chunks", i, end, total)
	}
	return nil
}

// SearchSimilar retrieves chunks near the query, optionally scoped to one
// parent document.
func (s *WeaviateStore) SearchSimilar(ctx context.Context, query string, documentID string, limit int) ([]KnowledgeChunk, []float32, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "documentId"},
		{Name: "kind"},
		{Name: "pages"},
		{Name: "createdAt"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}
	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	getBuilder := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithFields(fields...).
		WithNearText(nearText)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}
	if documentID != "" {
		where := filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueText(documentID)
		getBuilder = getBuilder.WithWhere(where)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, nil, err
	}
	if result.Errors != nil {
		return nil, nil, fmt.Errorf("search failed: %v", result.Errors[0].Message)
	}

	chunks, distances := decodeSearchHits(result.Data)
	return chunks, distances, nil
}

// decodeSearchHits walks the untyped GraphQL response. Every level is
// asserted with the comma-ok form; a response missing any of them decodes
// to an empty result rather than panicking.
func decodeSearchHits(raw map[string]models.JSONObject) ([]KnowledgeChunk, []float32) {
	var chunks []KnowledgeChunk
	var distances []float32

	get, ok := raw["Get"].(map[string]interface{})
	if !ok {
		return chunks, distances
	}
	if data, ok := get[CHUNK_CLASS].([]interface{}); ok {
		for _, item := range data {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			chunk := KnowledgeChunk{
				Content:    asString(obj["content"]),
				Title:      asString(obj["title"]),
				DocumentID: asString(obj["documentId"]),
				Kind:       asString(obj["kind"]),
				Pages:      parseIntArray(obj["pages"]),
			}
			if created, ok := obj["createdAt"].(float64); ok {
				chunk.CreatedAt = int64(created)
			}
			if additional, ok := obj["_additional"].(map[string]interface{}); ok {
				chunk.ID = asString(additional["id"])
				if dist, ok := additional["distance"].(float64); ok {
					distances = append(distances, float32(dist))
				}
			}
			chunks = append(chunks, chunk)
		}
	}

	return chunks, distances
}

func (s *WeaviateStore) DeleteByDocument(ctx context.Context, documentID string) error {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueText(documentID)
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(CHUNK_CLASS).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %v", documentID, err)
	}
	return nil
}

// Helper functions
func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func parseIntArray(v interface{}) []int {
	if v == nil {
		return nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]int, 0, len(arr))
	for _, item := range arr {
		if f, ok := item.(float64); ok {
			result = append(result, int(f))
		}
	}
	return result
}
