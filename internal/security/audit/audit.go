package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// AuditService 審計服務
type AuditService struct {
	enabled bool
	logger  *log.Logger
}

// NewAuditService 創建審計服務
func NewAuditService(enabled bool) *AuditService {
	return &AuditService{
		enabled: enabled,
		logger:  log.Default(),
	}
}

// AuditEvent 審計事件
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	UserID    string                 `json:"user_id"`
	PeerID    string                 `json:"peer_id,omitempty"`
	MessageID string                 `json:"message_id,omitempty"`
	Action    string                 `json:"action"`
	Result    string                 `json:"result"` // success, failure
	Details   map[string]interface{} `json:"details,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
}

// LogMessageSent 記錄私訊發送
func (a *AuditService) LogMessageSent(ctx context.Context, senderID, receiverID, messageID string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "message_sent",
		UserID:    senderID,
		PeerID:    receiverID,
		MessageID: messageID,
		Action:    "send_message",
		Result:    "success",
	}

	a.log(event)
}

// LogMessageEdited 記錄私訊編輯
func (a *AuditService) LogMessageEdited(ctx context.Context, userID, messageID string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "message_edited",
		UserID:    userID,
		MessageID: messageID,
		Action:    "edit_message",
		Result:    "success",
	}

	a.log(event)
}

// LogMessageDeleted 記錄私訊刪除
func (a *AuditService) LogMessageDeleted(ctx context.Context, userID, messageID string, wasPinned bool) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "message_deleted",
		UserID:    userID,
		MessageID: messageID,
		Action:    "delete_message",
		Result:    "success",
		Details: map[string]interface{}{
			"was_pinned": wasPinned,
		},
	}

	a.log(event)
}

// LogMessagePinned 記錄釘選
func (a *AuditService) LogMessagePinned(ctx context.Context, userID, messageID string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "message_pinned",
		UserID:    userID,
		MessageID: messageID,
		Action:    "pin_message",
		Result:    "success",
	}

	a.log(event)
}

// LogMessageUnpinned 記錄解除釘選
func (a *AuditService) LogMessageUnpinned(ctx context.Context, userID, messageID string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "message_unpinned",
		UserID:    userID,
		MessageID: messageID,
		Action:    "unpin_message",
		Result:    "success",
	}

	a.log(event)
}

// LogMessagesRead 記錄整個對話標記已讀
func (a *AuditService) LogMessagesRead(ctx context.Context, readerID, senderID string, count int64) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "messages_read",
		UserID:    readerID,
		PeerID:    senderID,
		Action:    "mark_all_read",
		Result:    "success",
		Details: map[string]interface{}{
			"count": count,
		},
	}

	a.log(event)
}

// LogConnect 記錄 WebSocket 連接建立
func (a *AuditService) LogConnect(ctx context.Context, userID, ipAddress string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "ws_connect",
		UserID:    userID,
		Action:    "connect",
		Result:    "success",
		IPAddress: ipAddress,
	}

	a.log(event)
}

// LogDisconnect 記錄 WebSocket 連接關閉
func (a *AuditService) LogDisconnect(ctx context.Context, userID string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "ws_disconnect",
		UserID:    userID,
		Action:    "disconnect",
		Result:    "success",
	}

	a.log(event)
}

// LogAuthenticationFailure 記錄認證失敗
func (a *AuditService) LogAuthenticationFailure(ctx context.Context, userID, reason string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "authentication",
		UserID:    userID,
		Action:    "authenticate",
		Result:    "failure",
		Details: map[string]interface{}{
			"reason": reason,
		},
	}

	a.log(event)
}

// LogAccessDenied 記錄訪問被拒絕
func (a *AuditService) LogAccessDenied(ctx context.Context, userID, messageID, reason string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "access_denied",
		UserID:    userID,
		MessageID: messageID,
		Action:    "access_resource",
		Result:    "denied",
		Details: map[string]interface{}{
			"reason": reason,
		},
	}

	a.log(event)
}

// log 記錄審計事件
func (a *AuditService) log(event AuditEvent) {
	// 轉換為 JSON
	jsonData, err := json.Marshal(event)
	if err != nil {
		a.logger.Printf("[AUDIT-ERROR] Failed to marshal event: %v", err)
		return
	}

	// 記錄到日誌
	a.logger.Printf("[AUDIT] %s", string(jsonData))
}

// IsEnabled 檢查審計是否啟用
func (a *AuditService) IsEnabled() bool {
	return a.enabled
}
