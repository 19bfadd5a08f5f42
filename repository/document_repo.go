package repository

import (
	"context"
	"time"

	"github.com/edumate-ai/tutor-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// DocumentRepo stores the parent documents ingestion runs attach to.
// SaveOutline and SaveContentHash back the pipelines' advisory side writes.
type DocumentRepo interface {
	CreateDocument(ctx context.Context, doc *types.TutorDocument) error
	GetDocument(ctx context.Context, id string) (*types.TutorDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	SaveOutline(ctx context.Context, id string, outline *types.DocumentStructure) error
	SaveContentHash(ctx context.Context, id string, hash string) error
}

type documentRepo struct {
	collection *mongo.Collection
}

func NewDocumentRepo(collection *mongo.Collection) DocumentRepo {
	return &documentRepo{
		collection: collection,
	}
}

func (r *documentRepo) CreateDocument(ctx context.Context, doc *types.TutorDocument) error {
	if doc.ID == "" {
		doc.ID = bson.NewObjectID().Hex()
	}
	doc.CreatedAt = time.Now().Unix()
	doc.UpdatedAt = doc.CreatedAt
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *documentRepo) GetDocument(ctx context.Context, id string) (*types.TutorDocument, error) {
	var doc types.TutorDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *documentRepo) SaveOutline(ctx context.Context, id string, outline *types.DocumentStructure) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"outline":    outline,
			"updated_at": time.Now().Unix(),
		},
	})
	return err
}

func (r *documentRepo) SaveContentHash(ctx context.Context, id string, hash string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"content_hash": hash,
			"updated_at":   time.Now().Unix(),
		},
	})
	return err
}
