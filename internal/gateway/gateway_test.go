package gateway

import (
	"encoding/json"
	"sync"
	"testing"

	"dm-gateway/internal/platform/middleware"
	"dm-gateway/internal/presence"
)

// captureConn 記錄收到事件的測試連接
type captureConn struct {
	userID string
	frames [][]byte
	full   bool // 模擬發送緩衝已滿
}

func (c *captureConn) UserID() string { return c.userID }

func (c *captureConn) Enqueue(data []byte) bool {
	if c.full {
		return false
	}
	c.frames = append(c.frames, data)
	return true
}

func newTestGateway(registry *presence.Registry) *Gateway {
	auth := middleware.NewJWTMiddleware("", false)
	return NewGateway(registry, auth, nil, 16)
}

// TestEmitToUser 測試事件下發到用戶的所有連接
func TestEmitToUser(t *testing.T) {
	registry := presence.NewRegistry()
	g := newTestGateway(registry)

	conn1 := &captureConn{userID: "user1"}
	conn2 := &captureConn{userID: "user1"}
	other := &captureConn{userID: "user2"}
	registry.Register(conn1)
	registry.Register(conn2)
	registry.Register(other)

	payload, _ := json.Marshal(map[string]string{"id": "m1", "content": "hi"})
	delivered := g.EmitToUser("user1", "new_message", payload)

	if delivered != 2 {
		t.Errorf("應送達 2 條連接，得到 %d", delivered)
	}
	if len(conn1.frames) != 1 || len(conn2.frames) != 1 {
		t.Error("user1 的每條連接都應收到事件")
	}
	if len(other.frames) != 0 {
		t.Error("其他用戶不應收到事件")
	}

	// 驗證幀格式
	var frame Frame
	if err := json.Unmarshal(conn1.frames[0], &frame); err != nil {
		t.Fatalf("解析事件幀失敗: %v", err)
	}
	if frame.Type != "new_message" {
		t.Errorf("事件類型應為 new_message，得到 %s", frame.Type)
	}

	var decoded map[string]string
	if err := json.Unmarshal(frame.Payload, &decoded); err != nil {
		t.Fatalf("解析 payload 失敗: %v", err)
	}
	if decoded["content"] != "hi" {
		t.Errorf("payload 內容不符: %v", decoded)
	}
}

// TestEmitToOfflineUser 測試下發給離線用戶
func TestEmitToOfflineUser(t *testing.T) {
	registry := presence.NewRegistry()
	g := newTestGateway(registry)

	delivered := g.EmitToUser("nobody", "new_message", json.RawMessage(`{}`))
	if delivered != 0 {
		t.Errorf("離線用戶的送達數應為 0，得到 %d", delivered)
	}
}

// TestEmitDisconnectsSlowConnection 測試緩衝滿的連接會被斷開
func TestEmitDisconnectsSlowConnection(t *testing.T) {
	registry := presence.NewRegistry()
	g := newTestGateway(registry)

	slow := &captureConn{userID: "user1", full: true}
	healthy := &captureConn{userID: "user1"}
	registry.Register(slow)
	registry.Register(healthy)

	delivered := g.EmitToUser("user1", "new_message", json.RawMessage(`{}`))

	if delivered != 1 {
		t.Errorf("應只送達健康的連接，得到 %d", delivered)
	}
	if got := registry.ConnectionCount(); got != 1 {
		t.Errorf("慢連接應被移除，剩餘連接數應為 1，得到 %d", got)
	}
	if !g.IsUserOnline("user1") {
		t.Error("還有健康連接時用戶應保持在線")
	}
}

// TestEmitToUserConcurrentDisconnect 測試並發下發撞上連接關閉不會 panic
// 多個 goroutine 同時 EmitToUser 時，緩衝滿的分支會關閉連接，
// 其他 goroutine 手上還握著關閉前的連接快照；
// 對已關閉連接的 Enqueue 必須安全地回傳 false，不能對關閉的通道發送
func TestEmitToUserConcurrentDisconnect(t *testing.T) {
	registry := presence.NewRegistry()
	g := newTestGateway(registry)

	// 1 格緩衝、沒有讀取方：第二次 Enqueue 就會觸發斷開
	for i := 0; i < 4; i++ {
		client := &Client{
			gateway: g,
			send:    make(chan []byte, 1),
			userID:  "user1",
		}
		registry.Register(client)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.EmitToUser("user1", "new_message", json.RawMessage(`{}`))
			}
		}()
	}
	wg.Wait()

	// 所有連接最終都因緩衝滿被移除
	if got := registry.ConnectionCount(); got != 0 {
		t.Errorf("緩衝滿的連接都應被移除，剩餘 %d", got)
	}
}

// TestClientEnqueueAfterClose 測試關閉後的 Enqueue 與重複關閉
func TestClientEnqueueAfterClose(t *testing.T) {
	client := &Client{
		send:   make(chan []byte, 1),
		userID: "user1",
	}

	if !client.Enqueue([]byte(`{}`)) {
		t.Fatal("關閉前的 Enqueue 應成功")
	}

	client.close()
	client.close() // 可重複調用

	if client.Enqueue([]byte(`{}`)) {
		t.Error("關閉後的 Enqueue 應回傳 false")
	}
}

// TestIsUserOnline 測試在線查詢委派給註冊表
func TestIsUserOnline(t *testing.T) {
	registry := presence.NewRegistry()
	g := newTestGateway(registry)

	if g.IsUserOnline("user1") {
		t.Error("註冊前不應在線")
	}

	conn := &captureConn{userID: "user1"}
	registry.Register(conn)

	if !g.IsUserOnline("user1") {
		t.Error("註冊後應在線")
	}

	registry.Unregister(conn)

	if g.IsUserOnline("user1") {
		t.Error("移除後不應在線")
	}
}
