package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arnb-smnta/chatline/internal/models"
)

type messageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepo{coll: db.Collection("messages")}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

// senderLookup joins the sender's public profile onto each message document.
func senderLookup() []bson.M {
	return []bson.M{
		{"$lookup": bson.M{
			"from":         "users",
			"localField":   "sender_id",
			"foreignField": "_id",
			"as":           "sender",
		}},
		{"$unwind": "$sender"},
		{"$addFields": bson.M{
			"sender_username":     "$sender.username",
			"sender_display_name": "$sender.display_name",
			"sender_avatar_url":   "$sender.avatar_url",
		}},
		{"$project": bson.M{"sender": 0}},
	}
}

func (r *messageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.MessageWithSender, error) {
	pipeline := append([]bson.M{{"$match": bson.M{"_id": id}}}, senderLookup()...)

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []models.MessageWithSender
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (r *messageRepo) GetByChatID(ctx context.Context, chatID primitive.ObjectID, before *primitive.ObjectID, limit int) ([]models.MessageWithSender, error) {
	match := bson.M{"chat_id": chatID}
	if before != nil {
		match["_id"] = bson.M{"$lt": *before}
	}

	pipeline := append([]bson.M{
		{"$match": match},
		{"$sort": bson.M{"_id": -1}},
		{"$limit": int64(limit)},
	}, senderLookup()...)

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []models.MessageWithSender
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
