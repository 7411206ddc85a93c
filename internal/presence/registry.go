// Package presence 維護本實例的在線狀態表.
//
// 只記錄連到「這一台」的連接；跨實例的在線狀態由事件總線廣播間接處理，
// 不在這裡查詢.
package presence

import (
	"sync"

	"dm-gateway/internal/platform/metrics"
)

// Connection 一條活躍的用戶連接
// 由 WebSocket 閘道的客戶端實作
type Connection interface {
	// UserID 連接所屬的用戶
	UserID() string
	// Enqueue 非阻塞送出事件，緩衝滿時回傳 false
	Enqueue(data []byte) bool
}

// Registry 本機在線註冊表
// 同一用戶允許多條連接（多設備）
type Registry struct {
	mu          sync.RWMutex
	connections map[string]map[Connection]struct{}
	total       int
}

// NewRegistry 創建在線註冊表
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]map[Connection]struct{}),
	}
}

// Register 註冊連接
func (r *Registry) Register(conn Connection) {
	userID := conn.UserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	conns, exists := r.connections[userID]
	if !exists {
		conns = make(map[Connection]struct{})
		r.connections[userID] = conns
		metrics.WSUsersOnline.Inc()
	}
	if _, dup := conns[conn]; dup {
		return
	}
	conns[conn] = struct{}{}
	r.total++
	metrics.WSConnections.Inc()
}

// Unregister 移除連接
// 連接未註冊時不做事（斷線清理可能重複觸發）
func (r *Registry) Unregister(conn Connection) {
	userID := conn.UserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	conns, exists := r.connections[userID]
	if !exists {
		return
	}
	if _, registered := conns[conn]; !registered {
		return
	}

	delete(conns, conn)
	r.total--
	metrics.WSConnections.Dec()

	if len(conns) == 0 {
		delete(r.connections, userID)
		metrics.WSUsersOnline.Dec()
	}
}

// IsOnlineLocally 用戶是否有連接在本實例上
func (r *Registry) IsOnlineLocally(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections[userID]) > 0
}

// ConnectionsFor 獲取用戶在本實例上的所有連接
// 回傳快照，調用端可以在不持鎖的情況下遍歷
func (r *Registry) ConnectionsFor(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.connections[userID]
	if len(conns) == 0 {
		return nil
	}

	snapshot := make([]Connection, 0, len(conns))
	for conn := range conns {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// OnlineUserCount 本實例在線用戶數
func (r *Registry) OnlineUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}

// ConnectionCount 本實例連接總數
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.total
}
