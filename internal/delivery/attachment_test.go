package delivery

import (
	"context"
	"testing"

	"dm-gateway/internal/storage/database/directmessage"
)

// TestSendWithAttachments 測試帶附件的發送
func TestSendWithAttachments(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, err := env.service.Send(ctx, "user1", "user2", "see attached",
		&directmessage.Attachment{FileName: "report.pdf", FileSize: 1024, FileType: "application/pdf", FileURL: "https://files.example.com/report.pdf"},
		&directmessage.Attachment{FileName: "photo.jpg", FileSize: 2048, FileType: "image/jpeg", FileURL: "https://files.example.com/photo.jpg"},
	)
	if err != nil {
		t.Fatalf("發送失敗: %v", err)
	}

	attachments, err := env.service.ListAttachments(ctx, "user2", message.GetID())
	if err != nil {
		t.Fatalf("查詢附件失敗: %v", err)
	}
	if len(attachments) != 2 {
		t.Fatalf("應有 2 個附件，得到 %d", len(attachments))
	}
	if attachments[0].MessageID != message.GetID() {
		t.Errorf("附件應綁定到訊息 ID: %s", attachments[0].MessageID)
	}
}

// TestListAttachmentsPermission 測試附件查詢的權限
func TestListAttachmentsPermission(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, _ := env.service.Send(ctx, "user1", "user2", "hi",
		&directmessage.Attachment{FileName: "a.txt", FileURL: "https://files.example.com/a.txt"})

	if _, err := env.service.ListAttachments(ctx, "outsider", message.GetID()); KindOf(err) != KindForbidden {
		t.Errorf("非參與者查附件應為 Forbidden，得到 %v", err)
	}
}

// TestSoftDeleteKeepsAttachments 測試軟刪除保留附件記錄
func TestSoftDeleteKeepsAttachments(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, _ := env.service.Send(ctx, "user1", "user2", "hi",
		&directmessage.Attachment{FileName: "a.txt", FileURL: "https://files.example.com/a.txt"})

	if err := env.service.Delete(ctx, "user1", message.GetID()); err != nil {
		t.Fatalf("刪除失敗: %v", err)
	}

	attachments, err := env.service.ListAttachments(ctx, "user1", message.GetID())
	if err != nil {
		t.Fatalf("查詢附件失敗: %v", err)
	}
	if len(attachments) != 1 {
		t.Errorf("軟刪除不應移除附件記錄，得到 %d", len(attachments))
	}
}

// TestPurgeRemovesEverything 測試物理刪除連附件與釘選一起清掉
func TestPurgeRemovesEverything(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	message, _ := env.service.Send(ctx, "user1", "user2", "hi",
		&directmessage.Attachment{FileName: "a.txt", FileURL: "https://files.example.com/a.txt"})
	if _, err := env.service.Pin(ctx, "user1", message.GetID()); err != nil {
		t.Fatalf("釘選失敗: %v", err)
	}

	if err := env.service.Purge(ctx, message.GetID()); err != nil {
		t.Fatalf("物理刪除失敗: %v", err)
	}

	if _, err := env.messages.GetByID(ctx, message.GetID()); err == nil {
		t.Error("物理刪除後訊息不應存在")
	}
	if _, err := env.pins.GetByMessageID(ctx, message.GetID()); err == nil {
		t.Error("物理刪除後釘選不應存在")
	}
	if attachments, _ := env.attachments.ListByMessageID(ctx, message.GetID()); len(attachments) != 0 {
		t.Error("物理刪除後附件不應存在")
	}
}
