package presence

import (
	"fmt"
	"sync"
	"testing"
)

// stubConn 測試用連接
type stubConn struct {
	userID string
}

func (c *stubConn) UserID() string           { return c.userID }
func (c *stubConn) Enqueue(data []byte) bool { return true }

// TestRegisterAndQuery 測試註冊後的在線查詢
func TestRegisterAndQuery(t *testing.T) {
	registry := NewRegistry()
	conn := &stubConn{userID: "user1"}

	if registry.IsOnlineLocally("user1") {
		t.Error("註冊前不應該在線")
	}

	registry.Register(conn)

	if !registry.IsOnlineLocally("user1") {
		t.Error("註冊後應該在線")
	}
	if got := registry.OnlineUserCount(); got != 1 {
		t.Errorf("在線用戶數應為 1，得到 %d", got)
	}
	if got := registry.ConnectionCount(); got != 1 {
		t.Errorf("連接總數應為 1，得到 %d", got)
	}
}

// TestMultiDevice 測試同一用戶多條連接
func TestMultiDevice(t *testing.T) {
	registry := NewRegistry()
	conn1 := &stubConn{userID: "user1"}
	conn2 := &stubConn{userID: "user1"}

	registry.Register(conn1)
	registry.Register(conn2)

	if got := len(registry.ConnectionsFor("user1")); got != 2 {
		t.Errorf("應有 2 條連接，得到 %d", got)
	}
	if got := registry.OnlineUserCount(); got != 1 {
		t.Errorf("在線用戶數應為 1，得到 %d", got)
	}

	// 移除一條連接後仍然在線
	registry.Unregister(conn1)

	if !registry.IsOnlineLocally("user1") {
		t.Error("還有一條連接時應該在線")
	}

	// 移除最後一條連接後離線
	registry.Unregister(conn2)

	if registry.IsOnlineLocally("user1") {
		t.Error("所有連接移除後不應該在線")
	}
	if got := registry.OnlineUserCount(); got != 0 {
		t.Errorf("在線用戶數應為 0，得到 %d", got)
	}
}

// TestRegisterDuplicate 測試重複註冊同一連接
func TestRegisterDuplicate(t *testing.T) {
	registry := NewRegistry()
	conn := &stubConn{userID: "user1"}

	registry.Register(conn)
	registry.Register(conn)

	if got := registry.ConnectionCount(); got != 1 {
		t.Errorf("重複註冊不應增加連接數，得到 %d", got)
	}
}

// TestUnregisterUnknown 測試移除未註冊的連接
func TestUnregisterUnknown(t *testing.T) {
	registry := NewRegistry()
	known := &stubConn{userID: "user1"}
	unknown := &stubConn{userID: "user1"}

	registry.Register(known)
	registry.Unregister(unknown) // 不應影響已註冊的連接
	registry.Unregister(unknown) // 重複移除也不應出錯

	if !registry.IsOnlineLocally("user1") {
		t.Error("移除未註冊的連接不應影響在線狀態")
	}
	if got := registry.ConnectionCount(); got != 1 {
		t.Errorf("連接總數應為 1，得到 %d", got)
	}
}

// TestConnectionsForSnapshot 測試快照不受後續變更影響
func TestConnectionsForSnapshot(t *testing.T) {
	registry := NewRegistry()
	conn := &stubConn{userID: "user1"}
	registry.Register(conn)

	snapshot := registry.ConnectionsFor("user1")
	registry.Unregister(conn)

	if len(snapshot) != 1 {
		t.Errorf("快照應保留 1 條連接，得到 %d", len(snapshot))
	}
	if registry.ConnectionsFor("user1") != nil {
		t.Error("移除後不應再有連接")
	}
}

// TestConcurrentAccess 測試並發註冊與查詢的安全性
func TestConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user%d", n%10)
			conn := &stubConn{userID: userID}

			registry.Register(conn)
			registry.IsOnlineLocally(userID)
			registry.ConnectionsFor(userID)
			registry.Unregister(conn)
		}(i)
	}
	wg.Wait()

	if got := registry.ConnectionCount(); got != 0 {
		t.Errorf("並發結束後連接總數應為 0，得到 %d", got)
	}
	if got := registry.OnlineUserCount(); got != 0 {
		t.Errorf("並發結束後在線用戶數應為 0，得到 %d", got)
	}
}
