package delivery

import (
	"context"
	"testing"
)

// TestPinByParticipant 測試對話參與者釘選訊息
func TestPinByParticipant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, _ := env.service.Send(ctx, "user1", "user2", "important")

	// 接收者也可以釘選，不限發送者
	pin, err := env.service.Pin(ctx, "user2", message.GetID())
	if err != nil {
		t.Fatalf("釘選失敗: %v", err)
	}
	if pin.MessageID != message.GetID() {
		t.Errorf("釘選的訊息 ID 不符: %s", pin.MessageID)
	}
	if pin.PinnedBy != "user2" {
		t.Errorf("釘選者應為 user2，得到 %s", pin.PinnedBy)
	}
	if pin.UserID1 >= pin.UserID2 {
		t.Errorf("用戶配對應為規範順序: %s / %s", pin.UserID1, pin.UserID2)
	}

	pins, err := env.service.ListPins(ctx, "user1", "user2")
	if err != nil {
		t.Fatalf("查詢釘選失敗: %v", err)
	}
	if len(pins) != 1 {
		t.Errorf("應有 1 筆釘選，得到 %d", len(pins))
	}
}

// TestPinDuplicateConflict 測試重複釘選
func TestPinDuplicateConflict(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, _ := env.service.Send(ctx, "user1", "user2", "important")

	if _, err := env.service.Pin(ctx, "user1", message.GetID()); err != nil {
		t.Fatalf("首次釘選失敗: %v", err)
	}

	// 同一則訊息再釘選一次（即使換人）
	_, err := env.service.Pin(ctx, "user2", message.GetID())
	if got := KindOf(err); got != KindConflict {
		t.Errorf("重複釘選應為 Conflict，得到 %v (%v)", got, err)
	}
}

// TestPinPermissions 測試釘選的權限邊界
func TestPinPermissions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, _ := env.service.Send(ctx, "user1", "user2", "important")

	// 非參與者
	if _, err := env.service.Pin(ctx, "outsider", message.GetID()); KindOf(err) != KindForbidden {
		t.Errorf("非參與者釘選應為 Forbidden，得到 %v", err)
	}

	// 不存在的訊息
	if _, err := env.service.Pin(ctx, "user1", "ffffffffffffffffffffffff"); KindOf(err) != KindNotFound {
		t.Errorf("釘選不存在的訊息應為 NotFound，得到 %v", err)
	}

	// 已刪除的訊息
	env.service.Delete(ctx, "user1", message.GetID())
	if _, err := env.service.Pin(ctx, "user1", message.GetID()); KindOf(err) != KindInvalidArgument {
		t.Errorf("釘選已刪除訊息應為 InvalidArgument，得到 %v", err)
	}
}

// TestUnpinPermissionMatrix 測試解除釘選的權限
func TestUnpinPermissionMatrix(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, _ := env.service.Send(ctx, "user1", "user2", "important")
	if _, err := env.service.Pin(ctx, "user1", message.GetID()); err != nil {
		t.Fatalf("釘選失敗: %v", err)
	}

	// 非參與者不能解除
	if err := env.service.Unpin(ctx, "outsider", message.GetID()); KindOf(err) != KindForbidden {
		t.Errorf("非參與者解除應為 Forbidden，得到 %v", err)
	}

	// 不是當初釘選的人也能解除，只要是參與者
	if err := env.service.Unpin(ctx, "user2", message.GetID()); err != nil {
		t.Errorf("參與者解除應成功: %v", err)
	}

	// 解除不存在的釘選
	if err := env.service.Unpin(ctx, "user1", message.GetID()); KindOf(err) != KindNotFound {
		t.Errorf("解除不存在的釘選應為 NotFound，得到 %v", err)
	}
}
