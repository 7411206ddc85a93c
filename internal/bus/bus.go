// Package bus 跨實例事件總線.
//
// 每個實例啟動時訂閱同一個頻道；收到事件後查自己的在線註冊表，
// 找到目標用戶的本機連接就轉發。發布是 fire-and-forget：
// 資料庫寫入已經成功，發布失敗只記日誌，重連的客戶端會重新拉取狀態。
// 傳遞語義是 at-least-once，客戶端以訊息 ID 做冪等處理。
package bus

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
)

// 事件類型
const (
	EventNewMessage     = "new_message"
	EventMessageDeleted = "message_deleted"
	EventMessagesRead   = "messages_read"
)

// Envelope 事件信封
// Payload 自帶完整投影，訂閱端不需要回查資料庫
type Envelope struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	TargetUserID string          `json:"target_user_id"`
	Payload      json.RawMessage `json:"payload"`
}

// NewEnvelope 創建事件信封
func NewEnvelope(eventType, targetUserID string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		ID:           ulid.Make().String(),
		Type:         eventType,
		TargetUserID: targetUserID,
		Payload:      data,
	}, nil
}

// Handler 事件處理函數
type Handler func(env Envelope)

// EventBus 事件總線接口
type EventBus interface {
	// Publish 發布事件到所有實例
	Publish(ctx context.Context, env Envelope) error
	// Subscribe 啟動消費循環，收到事件時調用 handler
	// ctx 取消時循環結束
	Subscribe(ctx context.Context, handler Handler)
	// Close 關閉總線
	Close() error
}

// NoopBus 無操作實作
// 單實例部署（未配置 Redis）時使用
type NoopBus struct{}

// NewNoopBus 創建無操作總線
func NewNoopBus() *NoopBus {
	return &NoopBus{}
}

// Publish 不做事
func (b *NoopBus) Publish(ctx context.Context, env Envelope) error {
	return nil
}

// Subscribe 不做事
func (b *NoopBus) Subscribe(ctx context.Context, handler Handler) {}

// Close 不做事
func (b *NoopBus) Close() error {
	return nil
}
