package repository

import (
	"context"
	"time"

	"github.com/edumate-ai/tutor-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AssignmentRepo stores assignment items. Parent links are persisted IDs;
// resolution from positional indices happens in the pipeline before insert.
type AssignmentRepo interface {
	FindExistingWithEmbeddings(ctx context.Context, assignmentID string) ([]types.StoredRecord, error)
	InsertBatch(ctx context.Context, items []*types.AssignmentRecord) ([]string, error)
	FindByAssignmentID(ctx context.Context, assignmentID string) ([]types.AssignmentRecord, error)
}

type assignmentRepo struct {
	collection *mongo.Collection
}

func NewAssignmentRepo(collection *mongo.Collection) AssignmentRepo {
	return &assignmentRepo{
		collection: collection,
	}
}

func (r *assignmentRepo) FindExistingWithEmbeddings(ctx context.Context, assignmentID string) ([]types.StoredRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"assignment_id": assignmentID},
		options.Find().SetProjection(bson.M{"_id": 1, "content": 1, "embedding": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []types.StoredRecord
	for cursor.Next(ctx) {
		var record types.StoredRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, cursor.Err()
}

func (r *assignmentRepo) InsertBatch(ctx context.Context, items []*types.AssignmentRecord) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	now := time.Now().Unix()
	ids := make([]string, len(items))
	docs := make([]interface{}, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = bson.NewObjectID().Hex()
		}
		item.CreatedAt = now
		ids[i] = item.ID
		docs[i] = item
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *assignmentRepo) FindByAssignmentID(ctx context.Context, assignmentID string) ([]types.AssignmentRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"assignment_id": assignmentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []types.AssignmentRecord
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
