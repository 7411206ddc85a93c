// Package collab 平台側協作者的端口定義.
//
// 好友關係、用戶目錄與推播通知都屬於平台的其他服務；
// 這裡只定義本服務需要的窄接口，並附上可獨立運行的實作。
package collab

import "context"

// FriendshipLookup 好友關係查詢
type FriendshipLookup interface {
	// AreFriends 兩個用戶是否互為好友
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
}

// User 平台用戶目錄的最小投影
// 只取本服務需要的欄位：存在性判斷與推播標題用的顯示名稱
type User struct {
	ID          string
	DisplayName string
}

// UserLookup 用戶目錄查詢
type UserLookup interface {
	// FindByID 查詢用戶；不存在時回傳 (nil, nil)
	FindByID(ctx context.Context, userID string) (*User, error)
}

// PushNotification 推播通知內容
type PushNotification struct {
	UserID  string // 接收者
	Title   string
	Preview string // 截斷後的訊息預覽
}

// PushNotificationService 離線推播通知服務
type PushNotificationService interface {
	// Send 發送推播
	// 失敗由調用端記日誌後吞掉，不重試：訊息已經持久化，
	// 用戶上線後會重新拉取
	Send(ctx context.Context, notification PushNotification) error
}
