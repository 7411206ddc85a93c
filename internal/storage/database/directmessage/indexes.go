package directmessage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateIndexes 創建數據庫索引以優化查詢性能
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	// 私訊集合索引
	messagesCollection := db.Collection("messages")

	// 1. 對話掃描複合索引（最重要的索引），兩個方向各一個
	conversationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender_id", Value: 1},
			{Key: "receiver_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("conversation_idx"),
	}

	reverseConversationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "receiver_id", Value: 1},
			{Key: "sender_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("conversation_reverse_idx"),
	}

	// 2. 未讀計數索引
	unreadIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "receiver_id", Value: 1},
			{Key: "is_read", Value: 1},
		},
		Options: options.Index().SetName("unread_idx"),
	}

	// 創建私訊索引
	messageIndexes := []mongo.IndexModel{
		conversationIndex,
		reverseConversationIndex,
		unreadIndex,
	}

	_, err := messagesCollection.Indexes().CreateMany(ctx, messageIndexes)
	if err != nil {
		return err
	}

	// 釘選集合索引
	pinsCollection := db.Collection("pinned_messages")

	// 1. 訊息 ID 唯一索引（一則訊息只能被釘選一次）
	pinMessageIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "message_id", Value: 1},
		},
		Options: options.Index().SetName("pin_message_idx").SetUnique(true),
	}

	// 2. 對話查詢索引
	pinConversationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id_1", Value: 1},
			{Key: "user_id_2", Value: 1},
		},
		Options: options.Index().SetName("pin_conversation_idx"),
	}

	pinIndexes := []mongo.IndexModel{
		pinMessageIndex,
		pinConversationIndex,
	}

	_, err = pinsCollection.Indexes().CreateMany(ctx, pinIndexes)
	if err != nil {
		return err
	}

	// 附件集合索引
	attachmentsCollection := db.Collection("message_attachments")

	attachmentMessageIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "message_id", Value: 1},
		},
		Options: options.Index().SetName("attachment_message_idx"),
	}

	_, err = attachmentsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{attachmentMessageIndex})
	if err != nil {
		return err
	}

	return nil
}
