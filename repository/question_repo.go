package repository

import (
	"context"
	"time"

	"github.com/edumate-ai/tutor-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// QuestionRepo stores exam questions keyed by paper.
type QuestionRepo interface {
	FindExistingWithEmbeddings(ctx context.Context, paperID string) ([]types.StoredRecord, error)
	InsertBatch(ctx context.Context, questions []*types.ExamQuestion) ([]string, error)
	FindByPaperID(ctx context.Context, paperID string) ([]types.ExamQuestion, error)
}

type questionRepo struct {
	collection *mongo.Collection
}

func NewQuestionRepo(collection *mongo.Collection) QuestionRepo {
	return &questionRepo{
		collection: collection,
	}
}

func (r *questionRepo) FindExistingWithEmbeddings(ctx context.Context, paperID string) ([]types.StoredRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"paper_id": paperID},
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

func (r *questionRepo) InsertBatch(ctx context.Context, questions []*types.ExamQuestion) ([]string, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	now := time.Now().Unix()
	ids := make([]string, len(questions))
	docs := make([]interface{}, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			q.ID = bson.NewObjectID().Hex()
		}
		q.CreatedAt = now
		ids[i] = q.ID
		docs[i] = q
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *questionRepo) FindByPaperID(ctx context.Context, paperID string) ([]types.ExamQuestion, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"paper_id": paperID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []types.ExamQuestion
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
