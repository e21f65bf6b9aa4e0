package handler

import (
	"strconv"

	"chat-service/internal/service"
	"chat-service/pkg/jwt"
	"chat-service/pkg/redis"
	"chat-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messages *service.MessageService
	receipts *service.ReceiptService
	presence *service.PresenceService
}

func NewMessageHandler(messages *service.MessageService, receipts *service.ReceiptService, presence *service.PresenceService) *MessageHandler {
	return &MessageHandler{messages: messages, receipts: receipts, presence: presence}
}

// SendMessage 发送消息：落库、计数、向房间在线成员推送
func (h *MessageHandler) SendMessage(c *gin.Context) {
	type req struct {
		RoomID  uint   `json:"room_id" binding:"required"`
		Content string `json:"content"`
		MsgType string `json:"msg_type"`
		ReplyTo *uint  `json:"reply_to"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	message, err := h.messages.PostMessage(jwt.GetUserIDUint(c), r.RoomID, r.Content, r.MsgType, r.ReplyTo)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "发送成功", response.FilterMessageInfo(message))
}

// ListRoomMessages 分页拉取房间历史消息（仅成员），按时间升序
func (h *MessageHandler) ListRoomMessages(c *gin.Context) {
	roomID, ok := paramRoomID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.messages.ListRoomMessages(jwt.GetUserIDUint(c), roomID, limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"room_id":  roomID,
		"count":    len(messages),
		"messages": response.FilterMessageList(messages),
	})
}

// EditMessage 编辑消息内容，仅发送者可操作
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, ok := paramMessageID(c)
	if !ok {
		return
	}
	type req struct {
		Content string `json:"content" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.messages.EditMessage(messageID, jwt.GetUserIDUint(c), r.Content); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已更新", nil)
}

// DeleteMessage 删除消息（软删），仅发送者可操作
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := paramMessageID(c)
	if !ok {
		return
	}
	if err := h.messages.DeleteMessage(messageID, jwt.GetUserIDUint(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已删除", nil)
}

// MarkRead 标记消息已读，重复标记幂等
func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID, ok := paramMessageID(c)
	if !ok {
		return
	}
	state, err := h.receipts.MarkRead(messageID, jwt.GetUserIDUint(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"message_id":    state.MessageID,
		"read_by":       state.ReadBy,
		"total_members": state.TotalMembers,
		"reader_ids":    state.ReaderIDs,
	})
}

// ToggleReaction 切换表情回应：已有则撤销，没有则添加
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := paramMessageID(c)
	if !ok {
		return
	}
	type req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	added, err := h.receipts.ToggleReaction(messageID, jwt.GetUserIDUint(c), r.Emoji)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"message_id": messageID,
		"emoji":      r.Emoji,
		"added":      added,
	})
}

// ListReactions 按表情聚合消息回应（仅成员）
func (h *MessageHandler) ListReactions(c *gin.Context) {
	messageID, ok := paramMessageID(c)
	if !ok {
		return
	}
	summary, err := h.receipts.ListReactionsAggregated(messageID, jwt.GetUserIDUint(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"message_id": messageID,
		"counts":     summary.Counts,
		"reacted":    summary.Reacted,
	})
}

// SetTyping 上报正在输入状态，带TTL自动过期并广播给房间其他成员
func (h *MessageHandler) SetTyping(c *gin.Context) {
	type req struct {
		ChatID uint `json:"chat_id" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.presence.SetTyping(r.ChatID, jwt.GetUserIDUint(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetTyping 轮询查询某用户在会话中是否仍在输入（没有WebSocket连接时的回退手段）
func (h *MessageHandler) GetTyping(c *gin.Context) {
	chatID, err := strconv.ParseUint(c.Param("chat_id"), 10, 32)
	if err != nil || chatID == 0 {
		response.BadRequest(c, "invalid chat_id")
		return
	}
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil || userID == 0 {
		response.BadRequest(c, "invalid user_id")
		return
	}
	// redis不可用时按未输入处理
	typing, err := redis.IsTyping(uint(chatID), uint(userID))
	if err != nil {
		typing = false
	}
	response.Success(c, gin.H{
		"chat_id": uint(chatID),
		"user_id": uint(userID),
		"typing":  typing,
	})
}

// GetRoomUnread 查询当前用户在某房间的未读数
func (h *MessageHandler) GetRoomUnread(c *gin.Context) {
	roomID, ok := paramRoomID(c)
	if !ok {
		return
	}
	unread, err := redis.GetRoomUnread(jwt.GetUserIDUint(c), roomID)
	if err != nil {
		response.InternalError(c, "获取未读数失败")
		return
	}
	response.Success(c, gin.H{
		"room_id": roomID,
		"unread":  unread,
	})
}

// paramMessageID 解析路径参数message_id，非法时直接写出400
func paramMessageID(c *gin.Context) (uint, bool) {
	messageID, err := strconv.ParseUint(c.Param("message_id"), 10, 32)
	if err != nil || messageID == 0 {
		response.BadRequest(c, "invalid message_id")
		return 0, false
	}
	return uint(messageID), true
}
