package delivery

import (
	"context"
	"errors"

	"dm-gateway/internal/storage/database/directmessage"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Pin 釘選訊息
// 對話的任一參與者都能釘選；一則訊息只能被釘選一次
func (s *Service) Pin(ctx context.Context, userID, messageID string) (*directmessage.PinnedMessage, error) {
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != userID && message.ReceiverID != userID {
		if s.audit != nil {
			s.audit.LogAccessDenied(ctx, userID, messageID, "pin_not_participant")
		}
		return nil, newError(KindForbidden, "只有對話參與者能釘選訊息")
	}
	if message.IsDeleted {
		return nil, newError(KindInvalidArgument, "已刪除的訊息不能釘選")
	}

	pin := &directmessage.PinnedMessage{
		MessageID: messageID,
		PinnedBy:  userID,
		UserID1:   message.SenderID,
		UserID2:   message.ReceiverID,
		PinnedAt:  s.clock.Now().UTC(),
	}
	if err := s.pins.Create(ctx, pin); err != nil {
		if directmessage.IsDuplicateKey(err) {
			return nil, newError(KindConflict, "訊息已被釘選")
		}
		return nil, wrapError(KindUnknown, "釘選寫入失敗", err)
	}

	if s.audit != nil {
		s.audit.LogMessagePinned(ctx, userID, messageID)
	}

	return pin, nil
}

// Unpin 解除釘選
// 對話的任一參與者都能解除，不限定當初釘選的人
func (s *Service) Unpin(ctx context.Context, userID, messageID string) error {
	pin, err := s.pins.GetByMessageID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return newError(KindNotFound, "釘選不存在")
		}
		return wrapError(KindUnknown, "查詢釘選失敗", err)
	}
	if pin.UserID1 != userID && pin.UserID2 != userID {
		if s.audit != nil {
			s.audit.LogAccessDenied(ctx, userID, messageID, "unpin_not_participant")
		}
		return newError(KindForbidden, "只有對話參與者能解除釘選")
	}

	if err := s.pins.Delete(ctx, messageID); err != nil {
		return wrapError(KindUnknown, "解除釘選失敗", err)
	}

	if s.audit != nil {
		s.audit.LogMessageUnpinned(ctx, userID, messageID)
	}

	return nil
}

// ListPins 列出與某個用戶的對話中的所有釘選
func (s *Service) ListPins(ctx context.Context, userID, peerID string) ([]*directmessage.PinnedMessage, error) {
	pins, err := s.pins.ListByConversation(ctx, userID, peerID)
	if err != nil {
		return nil, wrapError(KindUnknown, "查詢釘選失敗", err)
	}
	return pins, nil
}
