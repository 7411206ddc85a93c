package directmessage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AttachmentRepository 附件倉儲接口
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *Attachment) error
	ListByMessageID(ctx context.Context, messageID string) ([]*Attachment, error)
	DeleteByMessageID(ctx context.Context, messageID string) error
}

// Attachment 附件元數據
// 檔案本體存在外部存儲，這裡只記 URL 與描述性欄位；
// 只有物理刪除訊息才會移除附件記錄
type Attachment struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID string        `bson:"message_id" json:"message_id"`
	FileName  string        `bson:"file_name" json:"file_name"`
	FileSize  int64         `bson:"file_size" json:"file_size"`
	FileType  string        `bson:"file_type" json:"file_type"`
	FileURL   string        `bson:"file_url" json:"file_url"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

// AttachmentStore 附件存儲實作
type AttachmentStore struct {
	collection *mongo.Collection
}

// NewAttachmentStore 創建新的附件存儲
func NewAttachmentStore(db *mongo.Database) *AttachmentStore {
	return &AttachmentStore{
		collection: db.Collection("message_attachments"),
	}
}

// Create 創建附件記錄
func (s *AttachmentStore) Create(ctx context.Context, attachment *Attachment) error {
	attachment.ID = bson.NewObjectID()
	attachment.CreatedAt = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, attachment)
	return err
}

// ListByMessageID 列出訊息的所有附件
func (s *AttachmentStore) ListByMessageID(ctx context.Context, messageID string) ([]*Attachment, error) {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursorResult, err := s.collection.Find(ctx, bson.M{"message_id": messageID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursorResult.Close(ctx)

	var attachments []*Attachment
	for cursorResult.Next(ctx) {
		var attachment Attachment
		if err := cursorResult.Decode(&attachment); err != nil {
			return nil, err
		}
		attachments = append(attachments, &attachment)
	}
	if err := cursorResult.Err(); err != nil {
		return nil, err
	}

	return attachments, nil
}

// DeleteByMessageID 刪除訊息的所有附件記錄
func (s *AttachmentStore) DeleteByMessageID(ctx context.Context, messageID string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"message_id": messageID})
	return err
}
