package gateway

import (
	"sync"
	"time"

	"dm-gateway/internal/platform/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client 一條活躍的 WebSocket 連接
// 實作 presence.Connection
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	userID  string

	// mu 保護 closed 與 send 的關閉
	// Enqueue 會從多個 goroutine 並發進來（HTTP 處理器、總線消費循環），
	// 對已關閉通道發送會 panic，所以關閉與發送必須持同一把鎖
	mu     sync.Mutex
	closed bool
}

// UserID 連接所屬的用戶
func (c *Client) UserID() string {
	return c.userID
}

// Enqueue 非阻塞送出事件
// 緩衝滿代表客戶端讀不動了，回傳 false 讓閘道斷開這條連接，
// 不能讓一條慢連接卡住發送方的請求；已關閉的連接同樣回傳 false
func (c *Client) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close 關閉連接（可重複調用）
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump 讀取循環
// 下行事件都走 writePump；入站只處理 ping/pong 控制幀，
// 業務操作一律走 REST API
func (c *Client) readPump() {
	defer func() {
		c.gateway.disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.LogWarnf("WebSocket 讀取錯誤 (user=%s): %v", c.userID, err)
			}
			break
		}
		// 入站內容直接丟棄
	}
}

// writePump 寫入循環
// 定期發 ping 維持連接；send 被關閉時送出 close 幀後結束
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 閘道關閉了這條連接
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
