package constants

// HTTP 請求相關常數
const (
	// 默認值（可被配置覆蓋）
	DefaultMaxRequestBodySize = 1 << 20 // 1MB
	DefaultRequestTimeout     = 30      // 秒
)

// 分頁相關常數
const (
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
	MinPageSize        = 1
)

// 訊息相關常數
const (
	// 創建訊息的最大長度
	DefaultMaxMessageLength = 5000
	// 編輯訊息的最大長度
	DefaultMaxEditLength = 10000
	// 發送後允許編輯的時間窗口（分鐘）
	DefaultEditWindowMinutes = 5
	// 推播通知預覽的最大長度（字符）
	PushPreviewMaxRunes = 100
	// 軟刪除後顯示的佔位內容
	DeletedMessagePlaceholder = "message deleted"
)

// Rate Limiting 默認值
const (
	DefaultRateLimitPerMinute   = 100
	DefaultMessageRateLimit     = 30
	DefaultPinRateLimit         = 10
	RateLimitCleanupIntervalMin = 10 // 分鐘
)

// WebSocket 連接相關常數
const (
	DefaultWSMaxConnectionsPerIP   = 5
	DefaultWSMaxTotalConnections   = 10000
	DefaultWSMinConnectionInterval = 3   // 秒
	DefaultWSSendBuffer            = 256 // 每個連接的發送緩衝
	DefaultWSWriteWaitSeconds      = 10
	DefaultWSPongWaitSeconds       = 60
	DefaultWSMaxMessageSize        = 4096 // 入站控制訊息上限（字節）
)

// 事件總線相關常數
const (
	DefaultBusChannel = "dm:events"
)

// MongoDB 查詢相關常數
const (
	DefaultMongoQueryLimit = 20
	MaxMongoQueryLimit     = 100
)

// 用戶 ID 相關常數
const (
	MaxUserIDLength = 100
)
