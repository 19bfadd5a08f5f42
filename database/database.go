package database

import (
	"context"
)

// KnowledgeChunk is one unit of the search mirror. Every persisted item
// (knowledge point, exam question, assignment item) is mirrored here for
// retrieval-augmented answering.
type KnowledgeChunk struct {
	ID         string `json:"id,omitempty"`
	Content    string `json:"content"`
	Title      string `json:"title"`
	DocumentID string `json:"document_id"`
	Kind       string `json:"kind"`
	Pages      []int  `json:"pages,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// VectorDatabase defines the interface for the retrieval mirror. Pipeline
// writes to it are advisory: callers log failures and move on.
type VectorDatabase interface {
	BatchUpsertChunks(ctx context.Context, chunks []KnowledgeChunk, embeddings [][]float32) error
	SearchSimilar(ctx context.Context, query string, documentID string, limit int) ([]KnowledgeChunk, []float32, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}
