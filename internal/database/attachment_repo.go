package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arnb-smnta/chatline/internal/models"
)

type attachmentRepo struct {
	coll *mongo.Collection
}

func NewAttachmentRepository(db *mongo.Database) AttachmentRepository {
	return &attachmentRepo{coll: db.Collection("attachments")}
}

func (r *attachmentRepo) Create(ctx context.Context, staged *models.StagedAttachment) error {
	_, err := r.coll.InsertOne(ctx, staged)
	return err
}

func (r *attachmentRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.StagedAttachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var staged []models.StagedAttachment
	if err := cur.All(ctx, &staged); err != nil {
		return nil, err
	}
	return staged, nil
}

func (r *attachmentRepo) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}
