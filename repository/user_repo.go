package repository

import (
	"context"

	"github.com/edumate-ai/tutor-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
}

type userRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(collection *mongo.Collection) UserRepo {
	return &userRepo{
		collection: collection,
	}
}

func (r *userRepo) CreateUser(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		user.ID = bson.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

func (r *userRepo) GetUser(ctx context.Context, id string) (*types.User, error) {
	var user types.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	return &user, err
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	var user types.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	return &user, err
}
