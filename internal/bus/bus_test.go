package bus

import (
	"context"
	"encoding/json"
	"testing"
)

// TestNewEnvelope 測試事件信封的建構
func TestNewEnvelope(t *testing.T) {
	payload := map[string]string{"message_id": "abc123"}

	env, err := NewEnvelope(EventNewMessage, "user1", payload)
	if err != nil {
		t.Fatalf("創建信封失敗: %v", err)
	}

	if env.ID == "" {
		t.Error("信封應該有 ID")
	}
	if env.Type != EventNewMessage {
		t.Errorf("事件類型應為 %s，得到 %s", EventNewMessage, env.Type)
	}
	if env.TargetUserID != "user1" {
		t.Errorf("目標用戶應為 user1，得到 %s", env.TargetUserID)
	}

	var decoded map[string]string
	if err := json.Unmarshal(env.Payload, &decoded); err != nil {
		t.Fatalf("解析 payload 失敗: %v", err)
	}
	if decoded["message_id"] != "abc123" {
		t.Errorf("payload 內容不符，得到 %v", decoded)
	}
}

// TestEnvelopeIDsUnique 測試信封 ID 不重複
func TestEnvelopeIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		env, err := NewEnvelope(EventMessagesRead, "user1", nil)
		if err != nil {
			t.Fatalf("創建信封失敗: %v", err)
		}
		if seen[env.ID] {
			t.Fatalf("信封 ID 重複: %s", env.ID)
		}
		seen[env.ID] = true
	}
}

// TestEnvelopeRoundTrip 測試信封經過 JSON 序列化後不變
func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(EventMessageDeleted, "user2", map[string]string{"id": "m1"})
	if err != nil {
		t.Fatalf("創建信封失敗: %v", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("序列化失敗: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("反序列化失敗: %v", err)
	}

	if decoded.ID != env.ID || decoded.Type != env.Type || decoded.TargetUserID != env.TargetUserID {
		t.Errorf("信封欄位不一致: %+v != %+v", decoded, env)
	}
}

// TestNoopBus 測試無操作總線不出錯
func TestNoopBus(t *testing.T) {
	b := NewNoopBus()

	env, _ := NewEnvelope(EventNewMessage, "user1", nil)
	if err := b.Publish(context.Background(), env); err != nil {
		t.Errorf("Noop 發布不應出錯: %v", err)
	}

	b.Subscribe(context.Background(), func(env Envelope) {
		t.Error("Noop 總線不應觸發 handler")
	})

	if err := b.Close(); err != nil {
		t.Errorf("Noop 關閉不應出錯: %v", err)
	}
}
