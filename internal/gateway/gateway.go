// Package gateway WebSocket 連接閘道.
//
// 負責連接的升級、認證、在線註冊與本機事件下發。
// emitToUser 只管「這一台」上的連接；跨實例的部分交給事件總線。
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"dm-gateway/internal/constants"
	"dm-gateway/internal/platform/logger"
	"dm-gateway/internal/platform/metrics"
	"dm-gateway/internal/platform/middleware"
	"dm-gateway/internal/presence"
	"dm-gateway/internal/security/audit"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Frame 下發給客戶端的事件幀
// Payload 自帶完整訊息投影，客戶端不需要二次拉取
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Gateway WebSocket 連接閘道
type Gateway struct {
	registry   *presence.Registry
	auth       *middleware.JWTMiddleware
	audit      *audit.AuditService
	upgrader   websocket.Upgrader
	sendBuffer int
}

// NewGateway 創建連接閘道
func NewGateway(registry *presence.Registry, auth *middleware.JWTMiddleware, auditSvc *audit.AuditService, sendBuffer int) *Gateway {
	if sendBuffer <= 0 {
		sendBuffer = constants.DefaultWSSendBuffer
	}

	return &Gateway{
		registry: registry,
		auth:     auth,
		audit:    auditSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域由反向代理控制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
	}
}

// HandleWS WebSocket 升級端點
// 先認證再升級；升級後註冊在線並啟動讀寫循環
func (g *Gateway) HandleWS(c *gin.Context) {
	userID, err := g.auth.Authenticate(c)
	if err != nil {
		if g.audit != nil {
			g.audit.LogAuthenticationFailure(c.Request.Context(), "", err.Error())
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "認證失敗", "success": false})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.LogWarnf("WebSocket 升級失敗 (user=%s): %v", userID, err)
		return
	}

	client := &Client{
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, g.sendBuffer),
		userID:  userID,
	}

	g.registry.Register(client)
	if g.audit != nil {
		g.audit.LogConnect(c.Request.Context(), userID, c.ClientIP())
	}

	go client.writePump()
	go client.readPump()
}

// EmitToUser 下發事件給用戶在本實例上的所有連接
// 非阻塞盡力而為：緩衝滿的連接直接斷開，讓客戶端重連後重新拉取狀態。
// 回傳實際送達的連接數
func (g *Gateway) EmitToUser(userID, eventType string, payload json.RawMessage) int {
	frame, err := json.Marshal(Frame{Type: eventType, Payload: payload})
	if err != nil {
		logger.LogErrorf("事件幀序列化失敗 (type=%s): %v", eventType, err)
		return 0
	}

	delivered := 0
	for _, conn := range g.registry.ConnectionsFor(userID) {
		if conn.Enqueue(frame) {
			delivered++
			continue
		}

		// 緩衝滿：斷開這條慢連接
		g.registry.Unregister(conn)
		if client, ok := conn.(*Client); ok {
			client.close()
		}
		logger.LogWarnf("連接發送緩衝已滿，斷開 (user=%s)", userID)
	}

	if delivered > 0 {
		metrics.LocalDeliveries.WithLabelValues(eventType).Inc()
	}
	return delivered
}

// IsUserOnline 用戶是否在本實例上在線
func (g *Gateway) IsUserOnline(userID string) bool {
	return g.registry.IsOnlineLocally(userID)
}

// disconnect 連接斷開時的清理
func (g *Gateway) disconnect(client *Client) {
	g.registry.Unregister(client)
	client.close()
	if g.audit != nil {
		g.audit.LogDisconnect(context.Background(), client.userID)
	}
}
