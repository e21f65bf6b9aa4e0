package websocket

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chat-service/config"
	"chat-service/internal/service"
	"chat-service/pkg/jwt"
	"chat-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// Handler WebSocket接入点
// 连接即会话：认证后登记到Manager，按成员关系自动订阅房间
type Handler struct {
	jwtSvc   *jwt.JWTService
	manager  *Manager
	rooms    *service.RoomService
	presence *service.PresenceService
	receipts *service.ReceiptService
	cfg      config.WebSocketConfig
}

// NewHandler 创建WebSocket Handler
func NewHandler(jwtSvc *jwt.JWTService, manager *Manager, rooms *service.RoomService,
	presence *service.PresenceService, receipts *service.ReceiptService, cfg config.WebSocketConfig) *Handler {
	return &Handler{
		jwtSvc:   jwtSvc,
		manager:  manager,
		rooms:    rooms,
		presence: presence,
		receipts: receipts,
		cfg:      cfg,
	}
}

// Serve Gin路由处理函数
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "缺少token")
		return
	}

	claims, err := h.jwtSvc.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "token无效或已过期")
		return
	}
	userID, _ := strconv.ParseUint(claims.Subject, 10, 32)
	sessionID := claimSessionID(claims)
	if userID == 0 || sessionID == 0 {
		response.Unauthorized(c, "token无效")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		return
	}

	client := &Client{
		SessionID: uint(sessionID),
		UserID:    uint(userID),
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}
	h.manager.AddClient(client)

	// 按成员关系自动订阅所在房间
	roomIDs, _ := h.rooms.ListRoomsForUser(uint(userID))
	for _, roomID := range roomIDs {
		h.manager.Subscribe(roomID, client.SessionID)
	}

	// 上线广播（仅同房间成员与好友可见）
	if err := h.presence.SetOnline(uint(userID), true); err != nil {
		zap.L().Warn("上线状态更新失败", zap.Uint64("user_id", userID), zap.Error(err))
	}

	defer func() {
		for _, roomID := range roomIDs {
			h.manager.Unsubscribe(roomID, client.SessionID)
		}
		h.manager.RemoveClient(client.SessionID)
		_ = h.presence.SetOnline(uint(userID), false)
	}()

	pingInterval := h.cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	readTimeout := h.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 3 * pingInterval
	}

	// 写协程 + 定时发送ping心跳
	// Send通道被Manager关闭（注销或同会话重连挤占）时退出
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// 读循环（心跳/输入状态/已读回执）。超时未收到任何读事件则断开
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleInbound(uint(userID), payload)
	}
}

// handleInbound 处理客户端上行事件
func (h *Handler) handleInbound(userID uint, payload []byte) {
	var msg map[string]interface{}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	t, ok := msg["type"].(string)
	if !ok {
		return
	}

	switch t {
	case "heartbeat":
		// 刷新最近在线时间并延长在线TTL
		_ = h.presence.TouchLastSeen(userID)
	case "typing":
		if chatID := asUint(msg["chat_id"]); chatID > 0 {
			_ = h.presence.SetTyping(chatID, userID)
		}
	case "ack_read":
		if msgID := asUint(msg["msg_id"]); msgID > 0 {
			_, _ = h.receipts.MarkRead(msgID, userID)
		}
	}
}

// claimSessionID 从JWT载荷中取出会话ID
func claimSessionID(claims *jwt.CustomClaims) uint64 {
	switch v := claims.Data["session_id"].(type) {
	case float64:
		return uint64(v)
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			return id
		}
	}
	return 0
}

// asUint 宽松解析JSON数值字段
func asUint(v interface{}) uint {
	switch n := v.(type) {
	case float64:
		return uint(n)
	case string:
		if id, err := strconv.ParseUint(n, 10, 64); err == nil {
			return uint(id)
		}
	}
	return 0
}
