package websocket

import (
	"encoding/json"
	"sync"

	"chat-service/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client 代表一条已认证的WebSocket连接
// 连接与会话一一对应：同一用户的多台设备各自持有连接

type Client struct {
	SessionID uint
	UserID    uint
	Conn      *websocket.Conn
	Send      chan []byte
}

// Manager 管理全部在线会话连接与房间订阅
// 实现 service.Deliverer：推送不阻塞、不重试，发不出去就丢
// （持久化状态让接收方重连后追赶）

type Manager struct {
	lock     sync.RWMutex
	clients  map[uint]*Client         // sessionID -> client
	byUser   map[uint]map[uint]bool   // userID -> sessionID集合
	rooms    map[uint]map[uint]bool   // roomID -> sessionID集合
}

// NewManager 创建连接管理器
func NewManager() *Manager {
	return &Manager{
		clients: make(map[uint]*Client),
		byUser:  make(map[uint]map[uint]bool),
		rooms:   make(map[uint]map[uint]bool),
	}
}

// AddClient 登记新连接
func (m *Manager) AddClient(client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()

	// 同一会话重连：旧连接让位
	if old, ok := m.clients[client.SessionID]; ok {
		close(old.Send)
	}
	m.clients[client.SessionID] = client
	if m.byUser[client.UserID] == nil {
		m.byUser[client.UserID] = make(map[uint]bool)
	}
	m.byUser[client.UserID][client.SessionID] = true
}

// RemoveClient 注销连接并清理全部房间订阅
func (m *Manager) RemoveClient(sessionID uint) {
	m.lock.Lock()
	defer m.lock.Unlock()

	client, ok := m.clients[sessionID]
	if !ok {
		return
	}
	close(client.Send)
	delete(m.clients, sessionID)
	if set := m.byUser[client.UserID]; set != nil {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(m.byUser, client.UserID)
		}
	}
	for roomID, set := range m.rooms {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(m.rooms, roomID)
		}
	}
}

// Deliver 向指定会话推送事件
// 会话不在线或发送缓冲已满时直接丢弃，只记日志
func (m *Manager) Deliver(sessionID uint, envelope *service.Envelope) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	// 发送全程持读锁：close(Send) 只在写锁内发生（注销或同会话重连让位），
	// 松开锁再发送会撞上已关闭的通道
	m.lock.RLock()
	defer m.lock.RUnlock()
	client, ok := m.clients[sessionID]
	if !ok {
		return
	}
	select {
	case client.Send <- data:
	default:
		zap.L().Debug("推送丢弃：发送缓冲已满",
			zap.Uint("session_id", sessionID),
			zap.String("event", envelope.Type),
		)
	}
}

// Subscribe 订阅房间事件
func (m *Manager) Subscribe(roomID, sessionID uint) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[uint]bool)
	}
	m.rooms[roomID][sessionID] = true
}

// Unsubscribe 退订房间事件
func (m *Manager) Unsubscribe(roomID, sessionID uint) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if set := m.rooms[roomID]; set != nil {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(m.rooms, roomID)
		}
	}
}

// BroadcastRoom 向房间的全部订阅会话推送事件
func (m *Manager) BroadcastRoom(roomID uint, envelope *service.Envelope) {
	m.lock.RLock()
	sessionIDs := make([]uint, 0, len(m.rooms[roomID]))
	for id := range m.rooms[roomID] {
		sessionIDs = append(sessionIDs, id)
	}
	m.lock.RUnlock()

	for _, id := range sessionIDs {
		m.Deliver(id, envelope)
	}
}

// IsOnline 判断用户是否有在线会话
func (m *Manager) IsOnline(userID uint) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.byUser[userID]) > 0
}

// OnlineSessions 会话在线数（监控用）
func (m *Manager) OnlineSessions() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.clients)
}
