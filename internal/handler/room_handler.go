package handler

import (
	"strconv"

	"chat-service/internal/service"
	"chat-service/pkg/jwt"
	"chat-service/pkg/redis"
	"chat-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	rooms *service.RoomService
}

func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// CreateRoom 创建房间，创建者自动入房
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	type req struct {
		Name string `json:"name" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	room, err := h.rooms.CreateRoom(jwt.GetUserIDUint(c), r.Name)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "房间创建成功", response.FilterRoomInfo(room))
}

// Join 加入房间，重复加入返回冲突
func (h *RoomHandler) Join(c *gin.Context) {
	roomID, ok := paramRoomID(c)
	if !ok {
		return
	}
	if err := h.rooms.Join(roomID, jwt.GetUserIDUint(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已加入房间", nil)
}

// JoinByLink 通过邀请链接加入房间
func (h *RoomHandler) JoinByLink(c *gin.Context) {
	type req struct {
		Link string `json:"link" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	room, err := h.rooms.JoinByLink(r.Link, jwt.GetUserIDUint(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已加入房间", response.FilterRoomInfo(room))
}

// Leave 退出房间
func (h *RoomHandler) Leave(c *gin.Context) {
	roomID, ok := paramRoomID(c)
	if !ok {
		return
	}
	if err := h.rooms.Leave(roomID, jwt.GetUserIDUint(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已退出房间", nil)
}

// GetRoom 获取房间信息（仅成员）
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := paramRoomID(c)
	if !ok {
		return
	}
	room, err := h.rooms.GetRoom(roomID, jwt.GetUserIDUint(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, response.FilterRoomInfo(room))
}

// ListMembers 获取房间成员ID列表（仅成员）
func (h *RoomHandler) ListMembers(c *gin.Context) {
	roomID, ok := paramRoomID(c)
	if !ok {
		return
	}
	memberIDs, err := h.rooms.ListMemberIDs(roomID, jwt.GetUserIDUint(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"room_id":      roomID,
		"member_count": len(memberIDs),
		"member_ids":   memberIDs,
	})
}

// ListMyRooms 获取当前用户加入的房间，附带各房间未读数
func (h *RoomHandler) ListMyRooms(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	roomIDs, err := h.rooms.ListRoomsForUser(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	rooms := make([]gin.H, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		unread, _ := redis.GetRoomUnread(userID, roomID)
		rooms = append(rooms, gin.H{
			"room_id": roomID,
			"unread":  unread,
		})
	}
	response.Success(c, gin.H{
		"count": len(rooms),
		"rooms": rooms,
	})
}

// paramRoomID 解析路径参数room_id，非法时直接写出400
func paramRoomID(c *gin.Context) (uint, bool) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 32)
	if err != nil || roomID == 0 {
		response.BadRequest(c, "invalid room_id")
		return 0, false
	}
	return uint(roomID), true
}
