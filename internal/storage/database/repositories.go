package database

import (
	"context"

	"dm-gateway/internal/platform/logger"
	"dm-gateway/internal/storage/database/directmessage"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories 倉儲集合.
type Repositories struct {
	Message    *directmessage.MessageStore
	Pin        *directmessage.PinStore
	Attachment *directmessage.AttachmentStore
}

// NewRepositories 創建倉儲集合.
func NewRepositories() *Repositories {
	db := mongoDB
	if db == nil {
		return nil
	}

	// 創建索引以優化查詢性能
	ctx := context.Background()
	if err := directmessage.CreateIndexes(ctx, db); err != nil {
		// 記錄錯誤但不中斷服務啟動
		logger.LogWarnf("創建索引失敗: %v", err)
	}

	return &Repositories{
		Message:    directmessage.NewMessageStore(db),
		Pin:        directmessage.NewPinStore(db),
		Attachment: directmessage.NewAttachmentStore(db),
	}
}

// 全局變數，用於存儲 MongoDB 連接
var mongoDB *mongo.Database

// SetMongoDB 設置 MongoDB 連接.
func SetMongoDB(db *mongo.Database) {
	mongoDB = db
}
