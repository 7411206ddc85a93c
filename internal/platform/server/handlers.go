package server

import (
	"strconv"

	"dm-gateway/internal/delivery"
	"dm-gateway/internal/httputil"
	"dm-gateway/internal/platform/middleware"
	"dm-gateway/internal/storage/database/directmessage"

	"github.com/gin-gonic/gin"
)

// messageHandler 私訊 API 處理器
type messageHandler struct {
	service *delivery.Service
}

// sendMessage 發送私訊
func (h *messageHandler) sendMessage(c *gin.Context) {
	var req struct {
		ReceiverID  string `json:"receiver_id"`
		Content     string `json:"content"`
		Attachments []struct {
			FileName string `json:"file_name"`
			FileSize int64  `json:"file_size"`
			FileType string `json:"file_type"`
			FileURL  string `json:"file_url"`
		} `json:"attachments"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	senderID := middleware.GetAuthenticatedUserID(c)
	if err := middleware.ValidateUserID(senderID); err != nil {
		httputil.Unauthorized(c, err.Error())
		return
	}
	if err := middleware.ValidateUserID(req.ReceiverID); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	attachments := make([]*directmessage.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		if a.FileURL == "" {
			httputil.BadRequest(c, "附件缺少 file_url")
			return
		}
		attachments = append(attachments, &directmessage.Attachment{
			FileName: middleware.SanitizeInput(a.FileName),
			FileSize: a.FileSize,
			FileType: a.FileType,
			FileURL:  a.FileURL,
		})
	}

	message, err := h.service.Send(c.Request.Context(), senderID, req.ReceiverID, middleware.SanitizeInput(req.Content), attachments...)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataCreated,
		"data":    message,
	})
}

// getConversation 獲取對話分頁
func (h *messageHandler) getConversation(c *gin.Context) {
	userID := middleware.GetAuthenticatedUserID(c)
	peerID := c.Query("peer_id")

	if err := middleware.ValidateUserID(userID); err != nil {
		httputil.Unauthorized(c, err.Error())
		return
	}
	if err := middleware.ValidateUserID(peerID); err != nil {
		httputil.BadRequest(c, "peer_id 格式錯誤")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.service.GetConversation(c.Request.Context(), userID, peerID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataRetrieved,
		"data":    messages,
		"count":   len(messages),
	})
}

// editMessage 編輯私訊
func (h *messageHandler) editMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	messageID := c.Param("message_id")
	if err := middleware.ValidateMessageID(messageID); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if err := middleware.ValidateEditContent(req.Content); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetAuthenticatedUserID(c)
	message, err := h.service.Edit(c.Request.Context(), userID, messageID, middleware.SanitizeInput(req.Content))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataUpdated,
		"data":    message,
	})
}

// deleteMessage 刪除私訊（軟刪除）
func (h *messageHandler) deleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	if err := middleware.ValidateMessageID(messageID); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetAuthenticatedUserID(c)
	if err := h.service.Delete(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataDeleted,
	})
}

// markRead 標記已讀
// 帶 message_id 標記單則，否則標記該發送者發來的全部未讀
func (h *messageHandler) markRead(c *gin.Context) {
	var req struct {
		SenderID  string `json:"sender_id"`
		MessageID string `json:"message_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	readerID := middleware.GetAuthenticatedUserID(c)
	if err := middleware.ValidateUserID(readerID); err != nil {
		httputil.Unauthorized(c, err.Error())
		return
	}

	if req.MessageID != "" {
		if err := middleware.ValidateMessageID(req.MessageID); err != nil {
			httputil.BadRequest(c, err.Error())
			return
		}
		if err := h.service.MarkMessageRead(c.Request.Context(), readerID, req.MessageID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true, "message": httputil.DataUpdated})
		return
	}

	if err := middleware.ValidateUserID(req.SenderID); err != nil {
		httputil.BadRequest(c, "sender_id 格式錯誤")
		return
	}

	count, err := h.service.MarkAllRead(c.Request.Context(), readerID, req.SenderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataUpdated,
		"count":   count,
	})
}

// countUnread 查詢未讀訊息數
func (h *messageHandler) countUnread(c *gin.Context) {
	userID := middleware.GetAuthenticatedUserID(c)
	if err := middleware.ValidateUserID(userID); err != nil {
		httputil.Unauthorized(c, err.Error())
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataRetrieved,
		"count":   count,
	})
}

// pinMessage 釘選訊息
func (h *messageHandler) pinMessage(c *gin.Context) {
	var req struct {
		MessageID string `json:"message_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}
	if err := middleware.ValidateMessageID(req.MessageID); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetAuthenticatedUserID(c)
	pin, err := h.service.Pin(c.Request.Context(), userID, req.MessageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataCreated,
		"data":    pin,
	})
}

// unpinMessage 解除釘選
func (h *messageHandler) unpinMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	if err := middleware.ValidateMessageID(messageID); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetAuthenticatedUserID(c)
	if err := h.service.Unpin(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataDeleted,
	})
}

// listAttachments 列出訊息的附件
func (h *messageHandler) listAttachments(c *gin.Context) {
	messageID := c.Param("message_id")
	if err := middleware.ValidateMessageID(messageID); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetAuthenticatedUserID(c)
	attachments, err := h.service.ListAttachments(c.Request.Context(), userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataRetrieved,
		"data":    attachments,
		"count":   len(attachments),
	})
}

// listPins 列出對話的釘選
func (h *messageHandler) listPins(c *gin.Context) {
	userID := middleware.GetAuthenticatedUserID(c)
	peerID := c.Query("peer_id")

	if err := middleware.ValidateUserID(userID); err != nil {
		httputil.Unauthorized(c, err.Error())
		return
	}
	if err := middleware.ValidateUserID(peerID); err != nil {
		httputil.BadRequest(c, "peer_id 格式錯誤")
		return
	}

	pins, err := h.service.ListPins(c.Request.Context(), userID, peerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": httputil.DataRetrieved,
		"data":    pins,
		"count":   len(pins),
	})
}
