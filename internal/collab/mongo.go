package collab

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoFriendshipLookup 讀取平台 friendships 集合的好友查詢
// 只讀：好友關係的建立與解除由平台的其他服務負責
type MongoFriendshipLookup struct {
	collection *mongo.Collection
}

// NewMongoFriendshipLookup 創建好友查詢
func NewMongoFriendshipLookup(db *mongo.Database) *MongoFriendshipLookup {
	return &MongoFriendshipLookup{
		collection: db.Collection("friendships"),
	}
}

// AreFriends 兩個用戶是否互為好友
func (l *MongoFriendshipLookup) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	filter := bson.M{
		"status": "accepted",
		"$or": []bson.M{
			{"user_id_1": userA, "user_id_2": userB},
			{"user_id_1": userB, "user_id_2": userA},
		},
	}

	err := l.collection.FindOne(ctx, filter).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// MongoUserLookup 讀取平台 users 集合的用戶目錄查詢
type MongoUserLookup struct {
	collection *mongo.Collection
}

// NewMongoUserLookup 創建用戶目錄查詢
func NewMongoUserLookup(db *mongo.Database) *MongoUserLookup {
	return &MongoUserLookup{
		collection: db.Collection("users"),
	}
}

// FindByID 查詢用戶；不存在時回傳 (nil, nil)
func (l *MongoUserLookup) FindByID(ctx context.Context, userID string) (*User, error) {
	var doc struct {
		UserID      string `bson:"user_id"`
		DisplayName string `bson:"display_name"`
	}

	err := l.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &User{ID: doc.UserID, DisplayName: doc.DisplayName}, nil
}
