package repository

import (
	"context"
	"time"

	"github.com/edumate-ai/tutor-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ChunkRepo stores lecture knowledge points.
type ChunkRepo interface {
	// FindExistingWithEmbeddings returns the dedup corpus for a document.
	// Content carries the chunk title, the pass 1 comparison key for
	// knowledge points. Embeddings are returned raw and undecoded.
	FindExistingWithEmbeddings(ctx context.Context, documentID string) ([]types.StoredRecord, error)
	// InsertBatch inserts in order and returns the assigned IDs, index
	// aligned with the input.
	InsertBatch(ctx context.Context, chunks []*types.LectureChunk) ([]string, error)
	FindByDocumentID(ctx context.Context, documentID string) ([]types.LectureChunk, error)
}

type chunkRepo struct {
	collection *mongo.Collection
}

func NewChunkRepo(collection *mongo.Collection) ChunkRepo {
	return &chunkRepo{
		collection: collection,
	}
}

func (r *chunkRepo) FindExistingWithEmbeddings(ctx context.Context, documentID string) ([]types.StoredRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"document_id": documentID},
		options.Find().SetProjection(bson.M{"_id": 1, "title": 1, "embedding": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []types.StoredRecord
	for cursor.Next(ctx) {
		var row struct {
			ID        string      `bson:"_id"`
			Title     string      `bson:"title"`
			Embedding interface{} `bson:"embedding"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		records = append(records, types.StoredRecord{
			ID:        row.ID,
			Content:   row.Title,
			Embedding: row.Embedding,
		})
	}
	return records, cursor.Err()
}

func (r *chunkRepo) InsertBatch(ctx context.Context, chunks []*types.LectureChunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	now := time.Now().Unix()
	ids := make([]string, len(chunks))
	docs := make([]interface{}, len(chunks))
	for i, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = bson.NewObjectID().Hex()
		}
		chunk.CreatedAt = now
		ids[i] = chunk.ID
		docs[i] = chunk
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *chunkRepo) FindByDocumentID(ctx context.Context, documentID string) ([]types.LectureChunk, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chunks []types.LectureChunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}
