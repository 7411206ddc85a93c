package server

import (
	"time"

	"dm-gateway/internal/delivery"
	"dm-gateway/internal/gateway"
	"dm-gateway/internal/httputil"
	"dm-gateway/internal/platform/config"
	"dm-gateway/internal/platform/health"
	"dm-gateway/internal/platform/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies 路由依賴
type Dependencies struct {
	Service *delivery.Service
	Gateway *gateway.Gateway
	Auth    *middleware.JWTMiddleware
	Health  *health.Handler
}

// securityHeadersMiddleware 添加安全標頭
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止點擊劫持
		c.Header("X-Frame-Options", "DENY")

		// 防止 MIME 類型嗅探
		c.Header("X-Content-Type-Options", "nosniff")

		// 啟用 XSS 保護
		c.Header("X-XSS-Protection", "1; mode=block")

		// 內容安全策略
		c.Header("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none';")

		// 推薦政策
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// Router 設定路由
func Router(deps *Dependencies) *gin.Engine {
	if !config.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 添加請求 ID 中間件（最優先）
	r.Use(middleware.RequestIDMiddleware())

	// 添加安全標頭中間件
	r.Use(securityHeadersMiddleware())

	// Prometheus HTTP 指標
	r.Use(middleware.MetricsMiddleware())

	// 從配置讀取限制參數
	cfg := config.Get()

	// 添加請求大小限制
	maxBodySize := int64(1 << 20) // 默認 1MB
	if cfg != nil && cfg.Limits.Request.MaxBodySize > 0 {
		maxBodySize = cfg.Limits.Request.MaxBodySize
	}
	r.Use(middleware.RequestSizeLimiter(maxBodySize))

	// 創建 Rate Limiter
	defaultLimit := 100
	if cfg != nil && cfg.Limits.RateLimiting.DefaultPerMinute > 0 {
		defaultLimit = cfg.Limits.RateLimiting.DefaultPerMinute
	}
	rateLimiter := middleware.NewPerEndpointRateLimiter(defaultLimit, time.Minute)

	// 為不同端點設置不同的速率限制
	if cfg != nil && cfg.Limits.RateLimiting.Enabled {
		if cfg.Limits.RateLimiting.MessagesPerMin > 0 {
			rateLimiter.SetLimit("/api/v1/messages", cfg.Limits.RateLimiting.MessagesPerMin, time.Minute)
		}
		if cfg.Limits.RateLimiting.PinsPerMin > 0 {
			rateLimiter.SetLimit("/api/v1/pins", cfg.Limits.RateLimiting.PinsPerMin, time.Minute)
		}
	}

	// 應用 Rate Limiting 中間件
	r.Use(rateLimiter.Middleware())

	// 創建 WebSocket 連接限制器
	wsMaxPerIP := 5
	wsInterval := 3
	wsMaxTotal := 10000
	if cfg != nil {
		if cfg.Limits.WS.MaxConnectionsPerIP > 0 {
			wsMaxPerIP = cfg.Limits.WS.MaxConnectionsPerIP
		}
		if cfg.Limits.WS.MinConnectionInterval > 0 {
			wsInterval = cfg.Limits.WS.MinConnectionInterval
		}
		if cfg.Limits.WS.MaxTotalConnections > 0 {
			wsMaxTotal = cfg.Limits.WS.MaxTotalConnections
		}
	}
	wsLimiter := middleware.NewWSConnectionLimiter(wsMaxPerIP, time.Duration(wsInterval)*time.Second, wsMaxTotal)

	// health check 與 metrics
	r.GET("/health", deps.Health.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket 升級端點（認證在閘道內做，升級前）
	r.GET("/api/v1/ws", wsLimiter.Middleware(), deps.Gateway.HandleWS)

	// 私訊 API：先過 JWT 再提取請求元數據
	api := r.Group("/api/v1")
	api.Use(deps.Auth.GinMiddleware())
	api.Use(middleware.RequestMetadataMiddleware())
	{
		h := &messageHandler{service: deps.Service}
		api.POST("/messages", h.sendMessage)
		api.GET("/messages", h.getConversation)
		api.PUT("/messages/:message_id", h.editMessage)
		api.DELETE("/messages/:message_id", h.deleteMessage)
		api.POST("/messages/read", h.markRead)
		api.GET("/messages/unread", h.countUnread)
		api.GET("/messages/:message_id/attachments", h.listAttachments)
		api.POST("/pins", h.pinMessage)
		api.DELETE("/pins/:message_id", h.unpinMessage)
		api.GET("/pins", h.listPins)
	}

	return r
}

// respondError 將用例錯誤分類映射為 HTTP 狀態碼
func respondError(c *gin.Context, err error) {
	switch delivery.KindOf(err) {
	case delivery.KindNotFound:
		httputil.NotFoundError(c, err.Error())
	case delivery.KindForbidden:
		httputil.Forbidden(c, err.Error())
	case delivery.KindInvalidArgument:
		httputil.BadRequest(c, err.Error())
	case delivery.KindConflict:
		httputil.Conflict(c, err.Error())
	default:
		httputil.InternalServerError(c, err)
	}
}
