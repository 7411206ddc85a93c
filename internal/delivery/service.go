// Package delivery 交付編排層.
//
// 每個用例都先寫入訊息存儲，成功後才決定交付路徑：
// 接收者在本實例上在線就走本機下發加總線廣播，
// 否則退回推播通知。交付失敗永遠不會讓已持久化的用例失敗。
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"dm-gateway/internal/bus"
	"dm-gateway/internal/collab"
	"dm-gateway/internal/constants"
	"dm-gateway/internal/platform/config"
	"dm-gateway/internal/platform/logger"
	"dm-gateway/internal/platform/metrics"
	"dm-gateway/internal/security/audit"
	"dm-gateway/internal/storage/database/directmessage"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Emitter 本機事件下發接口（由 WebSocket 閘道實作）
type Emitter interface {
	EmitToUser(userID, eventType string, payload json.RawMessage) int
	IsUserOnline(userID string) bool
}

// ReadReceipt 已讀通知的事件內容
type ReadReceipt struct {
	ReaderID string    `json:"reader_id"`
	SenderID string    `json:"sender_id"`
	ReadAt   time.Time `json:"read_at"`
}

// Service 交付編排服務
type Service struct {
	messages    directmessage.MessageRepository
	pins        directmessage.PinRepository
	attachments directmessage.AttachmentRepository
	friends     collab.FriendshipLookup
	users       collab.UserLookup
	push        collab.PushNotificationService
	emitter     Emitter
	bus         bus.EventBus
	clock       clockwork.Clock
	audit       *audit.AuditService

	fanout sync.WaitGroup
}

// NewService 創建交付編排服務
func NewService(
	messages directmessage.MessageRepository,
	pins directmessage.PinRepository,
	attachments directmessage.AttachmentRepository,
	friends collab.FriendshipLookup,
	users collab.UserLookup,
	push collab.PushNotificationService,
	emitter Emitter,
	eventBus bus.EventBus,
	clock clockwork.Clock,
	auditSvc *audit.AuditService,
) *Service {
	return &Service{
		messages:    messages,
		pins:        pins,
		attachments: attachments,
		friends:     friends,
		users:       users,
		push:        push,
		emitter:     emitter,
		bus:         eventBus,
		clock:       clock,
		audit:       auditSvc,
	}
}

// Send 發送私訊
// 驗證 → 持久化 → 本機在線就下發加廣播，離線就推播
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string, attachments ...*directmessage.Attachment) (*directmessage.Message, error) {
	if err := validateContent(content, maxMessageLength()); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, newError(KindInvalidArgument, "不能傳訊息給自己")
	}

	receiver, err := s.users.FindByID(ctx, receiverID)
	if err != nil {
		return nil, wrapError(KindUnknown, "查詢用戶失敗", err)
	}
	if receiver == nil {
		return nil, newError(KindNotFound, "接收者不存在")
	}

	friends, err := s.friends.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, wrapError(KindUnknown, "查詢好友關係失敗", err)
	}
	if !friends {
		return nil, newError(KindInvalidArgument, "雙方不是好友")
	}

	message := &directmessage.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, wrapError(KindUnknown, "訊息寫入失敗", err)
	}

	// 附件元數據跟著訊息一起落地
	// 寫入失敗只記日誌，訊息本體已經成功
	for _, attachment := range attachments {
		attachment.MessageID = message.GetID()
		if err := s.attachments.Create(ctx, attachment); err != nil {
			logger.LogWarnf("附件寫入失敗 (message=%s, file=%s): %v", message.GetID(), attachment.FileName, err)
		}
	}

	metrics.MessagesSent.Inc()
	if s.audit != nil {
		s.audit.LogMessageSent(ctx, senderID, receiverID, message.GetID())
	}

	// 持久化已成功，之後的交付失敗一律只記日誌
	s.async(ctx, func(ctx context.Context) {
		s.fanOutNewMessage(ctx, message)
	})

	return message, nil
}

// async 在請求之外執行交付扇出
// 持久化成功後就該回應調用端，不讓它等 Redis 往返；
// context 與請求解耦，客戶端取消請求不會中斷已持久化事件的交付
func (s *Service) async(ctx context.Context, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	s.fanout.Add(1)
	go func() {
		defer s.fanout.Done()
		fn(detached)
	}()
}

// fanOutNewMessage 新訊息的交付決策
// 只看本機在線狀態：接收者可能連在別的實例上，
// 這時仍會走推播（已知的正確性缺口，見總線的說明）
func (s *Service) fanOutNewMessage(ctx context.Context, message *directmessage.Message) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.LogErrorf("訊息投影序列化失敗 (id=%s): %v", message.GetID(), err)
		return
	}

	if s.emitter.IsUserOnline(message.ReceiverID) {
		s.emitter.EmitToUser(message.ReceiverID, bus.EventNewMessage, payload)
		s.publish(ctx, bus.EventNewMessage, message.ReceiverID, payload)
		return
	}

	// 本機離線：退回推播，標題用發送者的顯示名稱
	title := "新訊息"
	if sender, err := s.users.FindByID(ctx, message.SenderID); err == nil && sender != nil && sender.DisplayName != "" {
		title = sender.DisplayName
	}

	notification := collab.PushNotification{
		UserID:  message.ReceiverID,
		Title:   title,
		Preview: truncatePreview(message.Content),
	}
	if err := s.push.Send(ctx, notification); err != nil {
		// 不重試：訊息已持久化，用戶上線後會重新拉取
		metrics.PushNotifications.WithLabelValues("failed").Inc()
		logger.LogWarnf("推播發送失敗 (user=%s): %v", message.ReceiverID, err)
		return
	}
	metrics.PushNotifications.WithLabelValues("ok").Inc()
}

// Edit 編輯訊息
// 只有發送者能編輯，而且要在發送後的時間窗口內
func (s *Service) Edit(ctx context.Context, userID, messageID, content string) (*directmessage.Message, error) {
	if err := validateContent(content, maxEditLength()); err != nil {
		return nil, err
	}

	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != userID {
		if s.audit != nil {
			s.audit.LogAccessDenied(ctx, userID, messageID, "edit_not_sender")
		}
		return nil, newError(KindForbidden, "只有發送者能編輯訊息")
	}
	if message.IsDeleted {
		return nil, newError(KindConflict, "訊息已刪除")
	}

	editedAt := s.clock.Now().UTC()
	if editedAt.Sub(message.CreatedAt) > editWindow() {
		return nil, newError(KindInvalidArgument, "超過可編輯的時間窗口")
	}

	if err := s.messages.UpdateContent(ctx, messageID, content, editedAt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, newError(KindNotFound, "訊息不存在")
		}
		return nil, wrapError(KindUnknown, "訊息更新失敗", err)
	}

	if s.audit != nil {
		s.audit.LogMessageEdited(ctx, userID, messageID)
	}

	message.Content = content
	message.UpdatedAt = &editedAt
	return message, nil
}

// Delete 刪除訊息（軟刪除）
// 已釘選的訊息先解除釘選；之後向對話雙方廣播 message_deleted，
// 讓兩邊開著的會話都更新畫面。重複刪除視為成功
func (s *Service) Delete(ctx context.Context, userID, messageID string) error {
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		if s.audit != nil {
			s.audit.LogAccessDenied(ctx, userID, messageID, "delete_not_sender")
		}
		return newError(KindForbidden, "只有發送者能刪除訊息")
	}
	if message.IsDeleted {
		return nil
	}

	// 先解除釘選，避免留下指向已刪除訊息的釘選
	wasPinned := false
	if _, err := s.pins.GetByMessageID(ctx, messageID); err == nil {
		wasPinned = true
		if err := s.pins.Delete(ctx, messageID); err != nil {
			return wrapError(KindUnknown, "解除釘選失敗", err)
		}
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return wrapError(KindUnknown, "查詢釘選失敗", err)
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return newError(KindNotFound, "訊息不存在")
		}
		return wrapError(KindUnknown, "訊息刪除失敗", err)
	}

	metrics.MessagesDeleted.Inc()
	if s.audit != nil {
		s.audit.LogMessageDeleted(ctx, userID, messageID, wasPinned)
	}

	// 事件帶的是刪除後的投影（佔位內容）
	message.IsDeleted = true
	message.Content = constants.DeletedMessagePlaceholder
	payload, err := json.Marshal(message)
	if err != nil {
		logger.LogErrorf("訊息投影序列化失敗 (id=%s): %v", messageID, err)
		return nil
	}

	s.async(ctx, func(ctx context.Context) {
		for _, target := range []string{message.SenderID, message.ReceiverID} {
			s.emitter.EmitToUser(target, bus.EventMessageDeleted, payload)
			s.publish(ctx, bus.EventMessageDeleted, target, payload)
		}
	})

	return nil
}

// MarkAllRead 標記某個發送者發來的所有未讀訊息為已讀
// 純告知性質的冪等操作；完成後通知原發送者
func (s *Service) MarkAllRead(ctx context.Context, readerID, senderID string) (int64, error) {
	friends, err := s.friends.AreFriends(ctx, readerID, senderID)
	if err != nil {
		return 0, wrapError(KindUnknown, "查詢好友關係失敗", err)
	}
	if !friends {
		return 0, newError(KindInvalidArgument, "雙方不是好友")
	}

	readAt := s.clock.Now().UTC()
	count, err := s.messages.MarkAllRead(ctx, senderID, readerID, readAt)
	if err != nil {
		return 0, wrapError(KindUnknown, "標記已讀失敗", err)
	}

	if s.audit != nil {
		s.audit.LogMessagesRead(ctx, readerID, senderID, count)
	}

	if count > 0 {
		s.async(ctx, func(ctx context.Context) {
			s.notifyRead(ctx, readerID, senderID, readAt)
		})
	}

	return count, nil
}

// MarkMessageRead 標記單則訊息為已讀
func (s *Service) MarkMessageRead(ctx context.Context, readerID, messageID string) error {
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.ReceiverID != readerID {
		return newError(KindForbidden, "只有接收者能標記已讀")
	}
	if message.IsRead {
		return nil
	}

	readAt := s.clock.Now().UTC()
	if err := s.messages.MarkRead(ctx, messageID, readAt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return newError(KindNotFound, "訊息不存在")
		}
		return wrapError(KindUnknown, "標記已讀失敗", err)
	}

	if s.audit != nil {
		s.audit.LogMessagesRead(ctx, readerID, message.SenderID, 1)
	}

	s.async(ctx, func(ctx context.Context) {
		s.notifyRead(ctx, readerID, message.SenderID, readAt)
	})
	return nil
}

// notifyRead 通知原發送者訊息被讀了
func (s *Service) notifyRead(ctx context.Context, readerID, senderID string, readAt time.Time) {
	payload, err := json.Marshal(ReadReceipt{
		ReaderID: readerID,
		SenderID: senderID,
		ReadAt:   readAt,
	})
	if err != nil {
		logger.LogErrorf("已讀通知序列化失敗: %v", err)
		return
	}

	s.emitter.EmitToUser(senderID, bus.EventMessagesRead, payload)
	s.publish(ctx, bus.EventMessagesRead, senderID, payload)
}

// GetConversation 獲取對話分頁（由舊到新）
func (s *Service) GetConversation(ctx context.Context, userID, peerID string, limit, offset int) ([]*directmessage.Message, error) {
	messages, err := s.messages.GetConversation(ctx, userID, peerID, limit, offset)
	if err != nil {
		return nil, wrapError(KindUnknown, "查詢對話失敗", err)
	}
	return messages, nil
}

// CountUnread 計算用戶的未讀訊息數
func (s *Service) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, wrapError(KindUnknown, "查詢未讀數失敗", err)
	}
	return count, nil
}

// getMessage 取出訊息並轉換 NotFound
func (s *Service) getMessage(ctx context.Context, messageID string) (*directmessage.Message, error) {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, newError(KindNotFound, "訊息不存在")
		}
		return nil, wrapError(KindUnknown, "查詢訊息失敗", err)
	}
	return message, nil
}

// publish 發布事件到總線
// fire-and-forget：失敗只記日誌，資料庫寫入已經成功，
// 重連的客戶端會重新拉取
func (s *Service) publish(ctx context.Context, eventType, targetUserID string, payload json.RawMessage) {
	env, err := bus.NewEnvelope(eventType, targetUserID, json.RawMessage(payload))
	if err != nil {
		logger.LogErrorf("事件信封創建失敗 (type=%s): %v", eventType, err)
		return
	}
	if err := s.bus.Publish(ctx, env); err != nil {
		logger.LogWarnf("事件發布失敗 (type=%s, target=%s): %v", eventType, targetUserID, err)
	}
}

// validateContent 內容驗證
func validateContent(content string, maxLength int) error {
	if strings.TrimSpace(content) == "" {
		return newError(KindInvalidArgument, "訊息內容不能為空")
	}
	if len(content) > maxLength {
		return newError(KindInvalidArgument, "訊息內容超過最大長度限制")
	}
	return nil
}

// truncatePreview 截斷推播預覽
func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= constants.PushPreviewMaxRunes {
		return content
	}
	return string(runes[:constants.PushPreviewMaxRunes])
}

// maxMessageLength 發送內容上限
func maxMessageLength() int {
	if cfg := config.Get(); cfg != nil && cfg.Limits.Message.MaxLength > 0 {
		return cfg.Limits.Message.MaxLength
	}
	return constants.DefaultMaxMessageLength
}

// maxEditLength 編輯內容上限
func maxEditLength() int {
	if cfg := config.Get(); cfg != nil && cfg.Limits.Message.MaxEditLength > 0 {
		return cfg.Limits.Message.MaxEditLength
	}
	return constants.DefaultMaxEditLength
}

// editWindow 發送後允許編輯的時間窗口
func editWindow() time.Duration {
	if cfg := config.Get(); cfg != nil && cfg.Limits.Message.EditWindowMin > 0 {
		return time.Duration(cfg.Limits.Message.EditWindowMin) * time.Minute
	}
	return constants.DefaultEditWindowMinutes * time.Minute
}
