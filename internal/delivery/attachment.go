package delivery

import (
	"context"

	"dm-gateway/internal/storage/database/directmessage"
)

// ListAttachments 列出訊息的附件
// 只有對話參與者能看
func (s *Service) ListAttachments(ctx context.Context, userID, messageID string) ([]*directmessage.Attachment, error) {
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != userID && message.ReceiverID != userID {
		return nil, newError(KindForbidden, "只有對話參與者能查看附件")
	}

	attachments, err := s.attachments.ListByMessageID(ctx, messageID)
	if err != nil {
		return nil, wrapError(KindUnknown, "查詢附件失敗", err)
	}
	return attachments, nil
}

// Purge 物理刪除訊息與其附件
// 供保留策略工具使用；用戶的刪除走 Delete（軟刪除）
func (s *Service) Purge(ctx context.Context, messageID string) error {
	if err := s.pins.Delete(ctx, messageID); err != nil {
		return wrapError(KindUnknown, "解除釘選失敗", err)
	}
	if err := s.attachments.DeleteByMessageID(ctx, messageID); err != nil {
		return wrapError(KindUnknown, "刪除附件失敗", err)
	}
	if err := s.messages.HardDelete(ctx, messageID); err != nil {
		return wrapError(KindUnknown, "刪除訊息失敗", err)
	}
	return nil
}
