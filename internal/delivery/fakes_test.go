package delivery

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dm-gateway/internal/bus"
	"dm-gateway/internal/collab"
	"dm-gateway/internal/constants"
	"dm-gateway/internal/storage/database/directmessage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// fakeMessageRepo 記憶體訊息倉儲
// CreatedAt 跟著注入的時鐘走，讓編輯窗口測試可控
type fakeMessageRepo struct {
	now      func() time.Time
	messages map[string]*directmessage.Message
	order    []string
}

func newFakeMessageRepo(now func() time.Time) *fakeMessageRepo {
	return &fakeMessageRepo{
		now:      now,
		messages: make(map[string]*directmessage.Message),
	}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *directmessage.Message) error {
	message.ID = bson.NewObjectID()
	message.CreatedAt = r.now().UTC()
	message.UpdatedAt = nil
	message.IsRead = false
	message.ReadAt = nil
	message.IsDeleted = false

	copied := *message
	r.messages[message.GetID()] = &copied
	r.order = append(r.order, message.GetID())
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id string) (*directmessage.Message, error) {
	message, ok := r.messages[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *message
	return &copied, nil
}

func (r *fakeMessageRepo) GetConversation(ctx context.Context, userA, userB string, limit, offset int) ([]*directmessage.Message, error) {
	var result []*directmessage.Message
	for _, id := range r.order {
		m := r.messages[id]
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			copied := *m
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	message, ok := r.messages[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	message.Content = content
	message.UpdatedAt = &editedAt
	return nil
}

func (r *fakeMessageRepo) SoftDelete(ctx context.Context, id string) error {
	message, ok := r.messages[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	message.IsDeleted = true
	message.Content = constants.DeletedMessagePlaceholder
	return nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	message, ok := r.messages[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	message.IsRead = true
	message.ReadAt = &readAt
	return nil
}

func (r *fakeMessageRepo) MarkAllRead(ctx context.Context, senderID, receiverID string, readAt time.Time) (int64, error) {
	var count int64
	for _, message := range r.messages {
		if message.SenderID == senderID && message.ReceiverID == receiverID && !message.IsRead {
			message.IsRead = true
			message.ReadAt = &readAt
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	for _, message := range r.messages {
		if message.ReceiverID == userID && !message.IsRead && !message.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) HardDelete(ctx context.Context, id string) error {
	delete(r.messages, id)
	return nil
}

// fakeAttachmentRepo 記憶體附件倉儲
type fakeAttachmentRepo struct {
	attachments map[string][]*directmessage.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{attachments: make(map[string][]*directmessage.Attachment)}
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, attachment *directmessage.Attachment) error {
	attachment.ID = bson.NewObjectID()
	copied := *attachment
	r.attachments[attachment.MessageID] = append(r.attachments[attachment.MessageID], &copied)
	return nil
}

func (r *fakeAttachmentRepo) ListByMessageID(ctx context.Context, messageID string) ([]*directmessage.Attachment, error) {
	return r.attachments[messageID], nil
}

func (r *fakeAttachmentRepo) DeleteByMessageID(ctx context.Context, messageID string) error {
	delete(r.attachments, messageID)
	return nil
}

// fakePinRepo 記憶體釘選倉儲
// 重複釘選回傳 11000 重複鍵錯誤，模擬唯一索引
type fakePinRepo struct {
	pins map[string]*directmessage.PinnedMessage
}

func newFakePinRepo() *fakePinRepo {
	return &fakePinRepo{pins: make(map[string]*directmessage.PinnedMessage)}
}

func (r *fakePinRepo) Create(ctx context.Context, pin *directmessage.PinnedMessage) error {
	if _, exists := r.pins[pin.MessageID]; exists {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	pin.ID = bson.NewObjectID()
	pin.UserID1, pin.UserID2 = directmessage.CanonicalPair(pin.UserID1, pin.UserID2)
	copied := *pin
	r.pins[pin.MessageID] = &copied
	return nil
}

func (r *fakePinRepo) GetByMessageID(ctx context.Context, messageID string) (*directmessage.PinnedMessage, error) {
	pin, ok := r.pins[messageID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *pin
	return &copied, nil
}

func (r *fakePinRepo) Delete(ctx context.Context, messageID string) error {
	delete(r.pins, messageID)
	return nil
}

func (r *fakePinRepo) ListByConversation(ctx context.Context, userA, userB string) ([]*directmessage.PinnedMessage, error) {
	u1, u2 := directmessage.CanonicalPair(userA, userB)
	var result []*directmessage.PinnedMessage
	for _, pin := range r.pins {
		if pin.UserID1 == u1 && pin.UserID2 == u2 {
			copied := *pin
			result = append(result, &copied)
		}
	}
	return result, nil
}

// fakeFriends 以配對集合回答好友查詢
type fakeFriends struct {
	pairs map[[2]string]bool
}

func newFakeFriends(pairs ...[2]string) *fakeFriends {
	f := &fakeFriends{pairs: make(map[[2]string]bool)}
	for _, pair := range pairs {
		a, b := directmessage.CanonicalPair(pair[0], pair[1])
		f.pairs[[2]string{a, b}] = true
	}
	return f
}

func (f *fakeFriends) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	a, b := directmessage.CanonicalPair(userA, userB)
	return f.pairs[[2]string{a, b}], nil
}

// fakeUsers 記憶體用戶目錄
// 默認顯示名稱就是用戶 ID，測試可在操作前覆蓋
type fakeUsers struct {
	users map[string]*collab.User
}

func newFakeUsers(ids ...string) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*collab.User)}
	for _, id := range ids {
		f.users[id] = &collab.User{ID: id, DisplayName: id}
	}
	return f
}

func (f *fakeUsers) FindByID(ctx context.Context, userID string) (*collab.User, error) {
	return f.users[userID], nil
}

// setDisplayName 設置用戶的顯示名稱
func (f *fakeUsers) setDisplayName(userID, name string) {
	f.users[userID].DisplayName = name
}

// fakePush 記錄推播請求
// 扇出在背景 goroutine 上跑，記錄要加鎖
type fakePush struct {
	mu   sync.Mutex
	sent []collab.PushNotification
	err  error
}

func (p *fakePush) Send(ctx context.Context, notification collab.PushNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, notification)
	return nil
}

// emittedEvent 記錄下來的本機下發
type emittedEvent struct {
	userID    string
	eventType string
	payload   json.RawMessage
}

// fakeEmitter 記錄本機下發
type fakeEmitter struct {
	mu      sync.Mutex
	online  map[string]bool
	emitted []emittedEvent
}

func newFakeEmitter(onlineUsers ...string) *fakeEmitter {
	e := &fakeEmitter{online: make(map[string]bool)}
	for _, id := range onlineUsers {
		e.online[id] = true
	}
	return e
}

func (e *fakeEmitter) EmitToUser(userID, eventType string, payload json.RawMessage) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emitted = append(e.emitted, emittedEvent{userID: userID, eventType: eventType, payload: payload})
	if e.online[userID] {
		return 1
	}
	return 0
}

func (e *fakeEmitter) IsUserOnline(userID string) bool {
	return e.online[userID]
}

// eventsFor 過濾某用戶收到的某類事件
func (e *fakeEmitter) eventsFor(userID, eventType string) []emittedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result []emittedEvent
	for _, ev := range e.emitted {
		if ev.userID == userID && ev.eventType == eventType {
			result = append(result, ev)
		}
	}
	return result
}

// emittedCount 已記錄的下發次數
func (e *fakeEmitter) emittedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.emitted)
}

// fakeBus 記錄發布的事件信封
// ctxErrs 記錄發布當下 context 的狀態，驗證扇出與請求解耦
type fakeBus struct {
	mu        sync.Mutex
	published []bus.Envelope
	ctxErrs   []error
	err       error
}

func (b *fakeBus) Publish(ctx context.Context, env bus.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, env)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, handler bus.Handler) {}

func (b *fakeBus) Close() error { return nil }
