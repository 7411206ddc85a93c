package collab

import (
	"context"

	"dm-gateway/internal/platform/logger"
)

// AllowAllFriendship 允許所有配對的好友查詢
// 供未接入平台好友服務的環境使用
type AllowAllFriendship struct{}

// AreFriends 永遠回傳 true
func (AllowAllFriendship) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	return true, nil
}

// AssumeExistsUserLookup 假定所有用戶存在的目錄查詢
type AssumeExistsUserLookup struct{}

// FindByID 永遠回傳一個以 ID 作為顯示名稱的用戶
func (AssumeExistsUserLookup) FindByID(ctx context.Context, userID string) (*User, error) {
	return &User{ID: userID, DisplayName: userID}, nil
}

// NoopPushService 無操作推播服務
// 推播未啟用時使用
type NoopPushService struct{}

// Send 不做事
func (NoopPushService) Send(ctx context.Context, notification PushNotification) error {
	return nil
}

// LoggingPushService 將推播寫入日誌
// 尚未接入真正的推播供應商前，留存離線路徑的行為記錄
type LoggingPushService struct{}

// Send 記錄推播內容
func (LoggingPushService) Send(ctx context.Context, notification PushNotification) error {
	logger.LogInfof("[Push] user=%s title=%q preview=%q", notification.UserID, notification.Title, notification.Preview)
	return nil
}
