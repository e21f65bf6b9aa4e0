package handler

import (
	"strconv"

	"chat-service/internal/service"
	"chat-service/pkg/jwt"
	"chat-service/pkg/redis"
	"chat-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users    *service.UserService
	sessions *service.SessionService
}

func NewUserHandler(users *service.UserService, sessions *service.SessionService) *UserHandler {
	return &UserHandler{users: users, sessions: sessions}
}

// Register 用户注册
// 注册同时签发VERIFY验证码，由邮件通道投递（此处不返回明文码）
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, _, err := h.users.Register(r.Username, r.Email, r.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", &response.RegisterResponse{
		User: response.FilterUserInfo(user),
	})
}

// Login 用户登录：绑定设备、创建会话、签发访问令牌与刷新令牌
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
		Password        string `json:"password" binding:"required"`
		DeviceName      string `json:"deviceName"`
		DeviceType      string `json:"deviceType"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.users.Login(r.UsernameOrEmail, r.Password, r.DeviceName, r.DeviceType, c.ClientIP())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.LoginResponse{
		User:         response.FilterUserInfo(result.User),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.Session.ID,
	})
}

// Logout 登出：撤销当前会话并下线
func (h *UserHandler) Logout(c *gin.Context) {
	sessionID := jwt.GetSessionID(c)
	if sessionID == 0 {
		response.Unauthorized(c, "会话信息缺失")
		return
	}
	if err := h.users.Logout(sessionID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已登出", nil)
}

// Refresh 轮换刷新令牌
// 会话已撤销或令牌不匹配时拒绝，不补发新令牌
func (h *UserHandler) Refresh(c *gin.Context) {
	type req struct {
		SessionID    uint   `json:"session_id" binding:"required"`
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	session, token, err := h.sessions.RefreshSession(r.SessionID, r.RefreshToken)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := &response.RefreshResponse{
		SessionID:    session.ID,
		RefreshToken: token,
	}
	if session.ExpiresAt != nil {
		resp.ExpiresAt = session.ExpiresAt.Format("2006-01-02 15:04:05")
	}
	response.Success(c, resp)
}

// VerifyEmail 消费VERIFY码完成邮箱验证
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	type req struct {
		Code string `json:"code" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.users.VerifyEmail(r.Code)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "邮箱验证成功", response.FilterUserInfo(user))
}

// RequestPasswordReset 签发RESET_PASSWORD码
func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	type req struct {
		Email string `json:"email" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if _, err := h.users.RequestPasswordReset(r.Email); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "重置码已发送", nil)
}

// ResetPassword 消费RESET_PASSWORD码并更新密码
func (h *UserHandler) ResetPassword(c *gin.Context) {
	type req struct {
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.users.ResetPassword(r.Code, r.NewPassword); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "密码已重置", nil)
}

// GetProfile 获取当前用户资料
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	user, err := h.users.GetProfile(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, response.FilterUserInfo(user))
}

// GetOnlineUsers 获取在线用户列表
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	presences, err := redis.GetOnlineUsersWithDetails()
	if err != nil {
		response.InternalError(c, "获取在线用户失败")
		return
	}

	var onlineUsers []gin.H
	for _, presence := range presences {
		onlineUsers = append(onlineUsers, gin.H{
			"user_id":   presence.UserID,
			"username":  presence.Username,
			"status":    presence.Status,
			"last_seen": presence.LastSeen.Format("2006-01-02 15:04:05"),
		})
	}

	response.Success(c, gin.H{
		"online_count": len(onlineUsers),
		"users":        onlineUsers,
	})
}

// CheckUserOnline 检查指定用户是否在线
func (h *UserHandler) CheckUserOnline(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil || userID == 0 {
		response.BadRequest(c, "invalid user_id")
		return
	}

	online, err := redis.IsUserOnline(uint(userID))
	if err != nil {
		response.InternalError(c, "检查用户在线状态失败")
		return
	}

	result := gin.H{
		"user_id": userID,
		"online":  online,
	}
	if online {
		if presence, err := redis.GetUserPresence(uint(userID)); err == nil {
			result["username"] = presence.Username
			result["last_seen"] = presence.LastSeen.Format("2006-01-02 15:04:05")
		}
	}
	response.Success(c, result)
}
