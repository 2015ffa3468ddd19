package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arnb-smnta/chatline/internal/models"
)

type chatRepo struct {
	coll *mongo.Collection
}

func NewChatRepository(db *mongo.Database) ChatRepository {
	return &chatRepo{coll: db.Collection("chats")}
}

func (r *chatRepo) Create(ctx context.Context, chat *models.Chat) error {
	_, err := r.coll.InsertOne(ctx, chat)
	return err
}

func (r *chatRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var c models.Chat
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *chatRepo) GetByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	cur, err := r.coll.Find(ctx, bson.M{"member_ids": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var chats []models.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepo) FindDirect(ctx context.Context, userA, userB primitive.ObjectID) (*models.Chat, error) {
	var c models.Chat
	err := r.coll.FindOne(ctx, bson.M{
		"is_group":   false,
		"member_ids": bson.M{"$all": []primitive.ObjectID{userA, userB}},
	}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *chatRepo) Update(ctx context.Context, chat *models.Chat) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": chat.ID}, bson.M{"$set": bson.M{
		"name":        chat.Name,
		"only_admins": chat.OnlyAdmins,
		"updated_at":  time.Now(),
	}})
	return err
}

func (r *chatRepo) AddMember(ctx context.Context, chatID, userID primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{
		"$addToSet": bson.M{"member_ids": userID},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	return err
}

func (r *chatRepo) RemoveMember(ctx context.Context, chatID, userID primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{
		"$pull": bson.M{"member_ids": userID, "admin_ids": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	return err
}

func (r *chatRepo) AddAdmin(ctx context.Context, chatID, userID primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{
		"$addToSet": bson.M{"admin_ids": userID},
	})
	return err
}

func (r *chatRepo) RemoveAdmin(ctx context.Context, chatID, userID primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{
		"$pull": bson.M{"admin_ids": userID},
	})
	return err
}

func (r *chatRepo) Touch(ctx context.Context, chatID primitive.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{
		"$set": bson.M{"updated_at": at},
	})
	return err
}
