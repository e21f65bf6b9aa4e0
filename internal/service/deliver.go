package service

import (
	"time"

	"chat-service/internal/model"
)

// 事件类型
const (
	EventMessage  = "message"
	EventTyping   = "typing"
	EventPresence = "presence"
)

// Envelope 推送到客户端会话的事件信封
// 传输层（WebSocket/长轮询等）负责序列化与投递
type Envelope struct {
	Type      string                 `json:"type"`
	RoomID    uint                   `json:"room_id,omitempty"`
	SenderID  uint                   `json:"sender_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Deliverer 投递边界
// Deliver 为尽力而为推送：接收方不可达不阻塞、不重试、不向发送方报错
// 持久化状态才是追赶的依据
type Deliverer interface {
	Deliver(sessionID uint, envelope *Envelope)
	Subscribe(roomID, sessionID uint)
	Unsubscribe(roomID, sessionID uint)
}

// SessionLookup 扇出时解析接收方的全部在线会话
type SessionLookup interface {
	ListSessionsByUsers(userIDs []uint) ([]*model.Session, error)
}

// NopDeliverer 空投递实现，离线批处理或测试场景使用
type NopDeliverer struct{}

func (NopDeliverer) Deliver(sessionID uint, envelope *Envelope) {}
func (NopDeliverer) Subscribe(roomID, sessionID uint)           {}
func (NopDeliverer) Unsubscribe(roomID, sessionID uint)         {}

// messageEnvelope 构造消息推送事件
func messageEnvelope(m *model.Message) *Envelope {
	return &Envelope{
		Type:     EventMessage,
		RoomID:   m.RoomID,
		SenderID: m.SenderID,
		Data: map[string]interface{}{
			"msg_id":   m.ID,
			"msg_type": m.MsgType,
			"content":  m.Content,
			"reply_id": m.ReplyID,
		},
		Timestamp: m.CreatedAt.Unix(),
	}
}

// typingEnvelope 构造正在输入事件
func typingEnvelope(chatID, userID uint, ttl time.Duration) *Envelope {
	return &Envelope{
		Type:     EventTyping,
		RoomID:   chatID,
		SenderID: userID,
		Data: map[string]interface{}{
			"ttl_ms": ttl.Milliseconds(),
		},
		Timestamp: time.Now().Unix(),
	}
}

// presenceEnvelope 构造在线状态变更事件
func presenceEnvelope(userID uint, status string, lastSeen time.Time) *Envelope {
	return &Envelope{
		Type:     EventPresence,
		SenderID: userID,
		Data: map[string]interface{}{
			"status":    status,
			"last_seen": lastSeen.Format("2006-01-02 15:04:05"),
		},
		Timestamp: time.Now().Unix(),
	}
}
