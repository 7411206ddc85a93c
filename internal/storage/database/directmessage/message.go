package directmessage

import (
	"context"
	"time"

	"dm-gateway/internal/constants"
	"dm-gateway/internal/platform/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessageRepository 私訊倉儲接口
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	GetConversation(ctx context.Context, userA, userB string, limit, offset int) ([]*Message, error)
	UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error
	SoftDelete(ctx context.Context, id string) error
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	MarkAllRead(ctx context.Context, senderID, receiverID string, readAt time.Time) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	HardDelete(ctx context.Context, id string) error
}

// Message 私訊數據模型
// UpdatedAt 只在編輯時設置；軟刪除不觸碰它，
// 所以 updated_at 存在即代表訊息被編輯過
type Message struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID   string        `bson:"sender_id" json:"sender_id"`
	ReceiverID string        `bson:"receiver_id" json:"receiver_id"`
	Content    string        `bson:"content" json:"content"`
	IsRead     bool          `bson:"is_read" json:"is_read"`
	ReadAt     *time.Time    `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  *time.Time    `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	IsDeleted  bool          `bson:"is_deleted" json:"is_deleted"`
}

// GetID 獲取 ID 的字符串形式
func (m *Message) GetID() string {
	return m.ID.Hex()
}

// IsEdited 訊息是否被編輯過
func (m *Message) IsEdited() bool {
	return m.UpdatedAt != nil
}

// MessageStore 私訊存儲實作
type MessageStore struct {
	collection *mongo.Collection
}

// NewMessageStore 創建新的私訊存儲
func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{
		collection: db.Collection("messages"),
	}
}

// Create 創建私訊
func (s *MessageStore) Create(ctx context.Context, message *Message) error {
	message.ID = bson.NewObjectID()
	message.CreatedAt = time.Now().UTC()
	message.UpdatedAt = nil
	message.IsRead = false
	message.ReadAt = nil
	message.IsDeleted = false

	_, err := s.collection.InsertOne(ctx, message)
	return err
}

// GetByID 根據 ID 獲取私訊
func (s *MessageStore) GetByID(ctx context.Context, id string) (*Message, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var message Message
	err = s.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&message)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// GetConversation 獲取兩個用戶之間的對話
// 按創建時間倒序取分頁窗口（最新的在前），再反轉為正序回傳，
// 讓調用端拿到的是由舊到新的順序
func (s *MessageStore) GetConversation(ctx context.Context, userA, userB string, limit, offset int) ([]*Message, error) {
	// 從配置讀取限制
	cfg := config.Get()
	defaultLimit := constants.DefaultPageSize
	maxLimit := constants.DefaultMaxPageSize
	if cfg != nil {
		if cfg.Limits.Pagination.DefaultPageSize > 0 {
			defaultLimit = cfg.Limits.Pagination.DefaultPageSize
		}
		if cfg.Limits.Pagination.MaxPageSize > 0 {
			maxLimit = cfg.Limits.Pagination.MaxPageSize
		}
	}

	// 限制分頁大小，防止性能問題
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	filter := bson.M{
		"$or": []bson.M{
			{"sender_id": userA, "receiver_id": userB},
			{"sender_id": userB, "receiver_id": userA},
		},
	}

	opts := options.Find()
	opts.SetLimit(int64(limit))
	opts.SetSkip(int64(offset))
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}}) // 倒序取窗口（新訊息在前）

	cursorResult, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursorResult.Close(ctx)

	var messages []*Message
	for cursorResult.Next(ctx) {
		var message Message
		if err := cursorResult.Decode(&message); err != nil {
			return nil, err
		}
		messages = append(messages, &message)
	}
	if err := cursorResult.Err(); err != nil {
		return nil, err
	}

	// 反轉為正序（舊訊息在前）
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// UpdateContent 更新訊息內容（編輯）
// 唯一會設置 updated_at 的寫入路徑
func (s *MessageStore) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{
			"content":    content,
			"updated_at": editedAt,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

// SoftDelete 軟刪除訊息
// 內容替換為佔位文字，保留記錄本身；不觸碰 updated_at
func (s *MessageStore) SoftDelete(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{
			"is_deleted": true,
			"content":    constants.DeletedMessagePlaceholder,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

// MarkRead 標記單則訊息為已讀
func (s *MessageStore) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{
			"is_read": true,
			"read_at": readAt,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

// MarkAllRead 標記某發送者發給某接收者的所有未讀訊息為已讀
// 回傳實際更新的筆數
func (s *MessageStore) MarkAllRead(ctx context.Context, senderID, receiverID string, readAt time.Time) (int64, error) {
	filter := bson.M{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"is_read":     false,
	}

	result, err := s.collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{
			"is_read": true,
			"read_at": readAt,
		},
	})
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}

// CountUnread 計算用戶的未讀訊息數量
// 排除軟刪除的訊息，避免已刪除訊息撐高角標
func (s *MessageStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	filter := bson.M{
		"receiver_id": userID,
		"is_read":     false,
		"is_deleted":  false,
	}

	return s.collection.CountDocuments(ctx, filter)
}

// HardDelete 物理刪除訊息
// 供保留策略工具使用，不是用戶刪除的路徑
func (s *MessageStore) HardDelete(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = s.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}
