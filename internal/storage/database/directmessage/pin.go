package directmessage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PinRepository 釘選倉儲接口
type PinRepository interface {
	Create(ctx context.Context, pin *PinnedMessage) error
	GetByMessageID(ctx context.Context, messageID string) (*PinnedMessage, error)
	Delete(ctx context.Context, messageID string) error
	ListByConversation(ctx context.Context, userA, userB string) ([]*PinnedMessage, error)
}

// PinnedMessage 釘選記錄數據模型
// user_id_1 < user_id_2 的規範順序，讓同一對用戶的查詢只有一種寫法
type PinnedMessage struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID string        `bson:"message_id" json:"message_id"`
	PinnedBy  string        `bson:"pinned_by" json:"pinned_by"`
	UserID1   string        `bson:"user_id_1" json:"user_id_1"`
	UserID2   string        `bson:"user_id_2" json:"user_id_2"`
	PinnedAt  time.Time     `bson:"pinned_at" json:"pinned_at"`
}

// CanonicalPair 將兩個用戶 ID 排成規範順序
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// PinStore 釘選存儲實作
type PinStore struct {
	collection *mongo.Collection
}

// NewPinStore 創建新的釘選存儲
func NewPinStore(db *mongo.Database) *PinStore {
	return &PinStore{
		collection: db.Collection("pinned_messages"),
	}
}

// Create 創建釘選記錄
// message_id 上有唯一索引，重複釘選會回傳重複鍵錯誤，
// 調用端用 IsDuplicateKey 判斷
func (s *PinStore) Create(ctx context.Context, pin *PinnedMessage) error {
	pin.ID = bson.NewObjectID()
	pin.UserID1, pin.UserID2 = CanonicalPair(pin.UserID1, pin.UserID2)
	if pin.PinnedAt.IsZero() {
		pin.PinnedAt = time.Now().UTC()
	}

	_, err := s.collection.InsertOne(ctx, pin)
	return err
}

// GetByMessageID 根據訊息 ID 獲取釘選記錄
func (s *PinStore) GetByMessageID(ctx context.Context, messageID string) (*PinnedMessage, error) {
	var pin PinnedMessage
	err := s.collection.FindOne(ctx, bson.M{"message_id": messageID}).Decode(&pin)
	if err != nil {
		return nil, err
	}

	return &pin, nil
}

// Delete 刪除釘選記錄
// 記錄不存在時視為成功（解除釘選是冪等操作）
func (s *PinStore) Delete(ctx context.Context, messageID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"message_id": messageID})
	return err
}

// ListByConversation 列出兩個用戶之間的所有釘選
func (s *PinStore) ListByConversation(ctx context.Context, userA, userB string) ([]*PinnedMessage, error) {
	u1, u2 := CanonicalPair(userA, userB)

	opts := options.Find()
	opts.SetSort(bson.D{{Key: "pinned_at", Value: -1}})

	cursorResult, err := s.collection.Find(ctx, bson.M{
		"user_id_1": u1,
		"user_id_2": u2,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursorResult.Close(ctx)

	var pins []*PinnedMessage
	for cursorResult.Next(ctx) {
		var pin PinnedMessage
		if err := cursorResult.Decode(&pin); err != nil {
			return nil, err
		}
		pins = append(pins, &pin)
	}
	if err := cursorResult.Err(); err != nil {
		return nil, err
	}

	return pins, nil
}

// IsDuplicateKey 判斷是否為唯一索引衝突
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
