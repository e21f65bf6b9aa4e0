package response

import (
	"net/http"

	"chat-service/internal/model"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}

// Forbidden 403错误
func Forbidden(c *gin.Context, message string) {
	Error(c, 403, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, 404, message)
}

// Conflict 409错误
func Conflict(c *gin.Context, message string) {
	Error(c, 409, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

const timeLayout = "2006-01-02 15:04:05"

// UserInfo 用户信息（隐藏敏感字段）
type UserInfo struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Nickname   string `json:"nickname"`
	Avatar     string `json:"avatar"`
	Bio        string `json:"bio"`
	IsVerified bool   `json:"is_verified"`
	Status     string `json:"status"`
	LastSeen   string `json:"last_seen"`
	CreatedAt  string `json:"created_at"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Nickname:   user.Nickname,
		Avatar:     user.Avatar,
		Bio:        user.Bio,
		IsVerified: user.IsVerified,
		Status:     user.Status,
		LastSeen:   user.LastSeen.Format(timeLayout),
		CreatedAt:  user.CreatedAt.Format(timeLayout),
	}
}

// LoginResponse 登录响应
type LoginResponse struct {
	User         *UserInfo `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SessionID    uint      `json:"session_id"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	User *UserInfo `json:"user"`
}

// RefreshResponse 会话轮换响应
type RefreshResponse struct {
	SessionID    uint   `json:"session_id"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// RoomInfo 房间信息
type RoomInfo struct {
	ID           uint   `json:"id"`
	AuthorID     uint   `json:"author_id"`
	Name         string `json:"name"`
	Link         string `json:"link"`
	TotalMessage int64  `json:"total_message"`
	CreatedAt    string `json:"created_at"`
}

// FilterRoomInfo 过滤房间信息
func FilterRoomInfo(room *model.Room) *RoomInfo {
	if room == nil {
		return nil
	}
	return &RoomInfo{
		ID:           room.ID,
		AuthorID:     room.AuthorID,
		Name:         room.Name,
		Link:         room.Link,
		TotalMessage: room.TotalMessage,
		CreatedAt:    room.CreatedAt.Format(timeLayout),
	}
}

// MessageInfo 消息信息
type MessageInfo struct {
	ID        uint   `json:"id"`
	RoomID    uint   `json:"room_id"`
	SenderID  uint   `json:"sender_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
	ReplyID   *uint  `json:"reply_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// FilterMessageInfo 过滤消息信息
func FilterMessageInfo(message *model.Message) *MessageInfo {
	if message == nil {
		return nil
	}
	return &MessageInfo{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		MsgType:   message.MsgType,
		Content:   message.Content,
		ReplyID:   message.ReplyID,
		CreatedAt: message.CreatedAt.Format(timeLayout),
	}
}

// FilterMessageList 批量过滤消息
func FilterMessageList(messages []*model.Message) []*MessageInfo {
	out := make([]*MessageInfo, 0, len(messages))
	for _, m := range messages {
		out = append(out, FilterMessageInfo(m))
	}
	return out
}

// FriendRequestInfo 好友请求信息
type FriendRequestInfo struct {
	ID         uint   `json:"id"`
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// FilterFriendRequestInfo 过滤好友请求信息
func FilterFriendRequestInfo(request *model.FriendRequest) *FriendRequestInfo {
	if request == nil {
		return nil
	}
	return &FriendRequestInfo{
		ID:         request.ID,
		SenderID:   request.SenderID,
		ReceiverID: request.ReceiverID,
		Status:     request.Status,
		CreatedAt:  request.CreatedAt.Format(timeLayout),
	}
}
