package handler

import (
	"strconv"

	"chat-service/internal/service"
	"chat-service/pkg/jwt"
	"chat-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	friends *service.FriendService
}

func NewFriendHandler(friends *service.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

// SendRequest 发送好友请求
func (h *FriendHandler) SendRequest(c *gin.Context) {
	type req struct {
		ReceiverID uint `json:"receiver_id" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	request, err := h.friends.SendRequest(jwt.GetUserIDUint(c), r.ReceiverID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "好友请求已发送", response.FilterFriendRequestInfo(request))
}

// Respond 处理好友请求：接受或拒绝，只有接收方可操作
func (h *FriendHandler) Respond(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("request_id"), 10, 32)
	if err != nil || requestID == 0 {
		response.BadRequest(c, "invalid request_id")
		return
	}
	type req struct {
		Decision string `json:"decision" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	request, err := h.friends.Respond(uint(requestID), jwt.GetUserIDUint(c), r.Decision)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已处理好友请求", response.FilterFriendRequestInfo(request))
}

// Unfriend 解除好友关系
func (h *FriendHandler) Unfriend(c *gin.Context) {
	otherID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil || otherID == 0 {
		response.BadRequest(c, "invalid user_id")
		return
	}
	if err := h.friends.Unfriend(jwt.GetUserIDUint(c), uint(otherID)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已解除好友关系", nil)
}

// ListFriends 获取好友列表
func (h *FriendHandler) ListFriends(c *gin.Context) {
	friends, err := h.friends.ListFriends(jwt.GetUserIDUint(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	infos := make([]*response.UserInfo, 0, len(friends))
	for _, friend := range friends {
		infos = append(infos, response.FilterUserInfo(friend))
	}
	response.Success(c, gin.H{
		"count":   len(infos),
		"friends": infos,
	})
}

// ListPendingRequests 获取待处理的好友请求（当前用户为接收方）
func (h *FriendHandler) ListPendingRequests(c *gin.Context) {
	requests, err := h.friends.ListPendingRequests(jwt.GetUserIDUint(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	infos := make([]*response.FriendRequestInfo, 0, len(requests))
	for _, request := range requests {
		infos = append(infos, response.FilterFriendRequestInfo(request))
	}
	response.Success(c, gin.H{
		"count":    len(infos),
		"requests": infos,
	})
}
