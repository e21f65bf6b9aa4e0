package service

import (
	"errors"
	"sync"

	"chat-service/config"
	"chat-service/internal/model"
	"chat-service/pkg/redis"

	"gorm.io/gorm"
)

// MessageStore 消息的持久化边界
type MessageStore interface {
	Create(message *model.Message) error
	GetByID(messageID uint) (*model.Message, error)
	GetInRoom(messageID, roomID uint) (*model.Message, error)
	ListByRoom(roomID uint, limit, offset int) ([]*model.Message, error)
	DeleteOwn(messageID, senderID uint) (bool, error)
	UpdateContent(messageID, senderID uint, content string) (bool, error)
}

var validMsgTypes = map[string]bool{
	model.MsgTypeText:     true,
	model.MsgTypeImage:    true,
	model.MsgTypeVideo:    true,
	model.MsgTypeAudio:    true,
	model.MsgTypeFile:     true,
	model.MsgTypeEmoji:    true,
	model.MsgTypeSticker:  true,
	model.MsgTypeLocation: true,
	model.MsgTypeSystem:   true,
}

// MessageService 消息存储与扇出引擎
// 持久化是唯一的可靠性保证，推送是尽力而为，失败不重试不报错
type MessageService struct {
	messages  MessageStore
	rooms     RoomStore
	sessions  SessionLookup
	deliverer Deliverer
	cfg       config.ChatConfig

	// 同房间的持久化与扇出串行执行：接收方收到的消息createdAt不回退
	roomSeq sync.Map // roomID -> *sync.Mutex
}

// NewMessageService 创建MessageService实例
func NewMessageService(messages MessageStore, rooms RoomStore, sessions SessionLookup, deliverer Deliverer, cfg config.ChatConfig) *MessageService {
	return &MessageService{
		messages:  messages,
		rooms:     rooms,
		sessions:  sessions,
		deliverer: deliverer,
		cfg:       cfg,
	}
}

// PostMessage 发送房间消息
// 流程：成员校验 → 回复校验 → 持久化 → 原子计数 → 解析接收方 → 推送
// 返回已持久化的消息，与推送结果无关
func (s *MessageService) PostMessage(senderID, roomID uint, content, msgType string, replyTo *uint) (*model.Message, error) {
	if msgType == "" {
		msgType = model.MsgTypeText
	}
	if !validMsgTypes[msgType] {
		return nil, ErrInvalidMsgType
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	ok, err := s.rooms.IsMember(roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}

	// 回复目标必须是同房间内的消息，写入时就拦掉悬空引用
	// 嵌套回复受配置的链深度限制
	if replyTo != nil {
		if err := s.checkReplyChain(*replyTo, roomID); err != nil {
			return nil, err
		}
	}

	message := &model.Message{
		RoomID:   roomID,
		SenderID: senderID,
		MsgType:  msgType,
		Content:  content,
		ReplyID:  replyTo,
	}

	// 并发发送时持久化顺序即投递顺序，锁在扇出完成后才释放
	mu := s.lockRoom(roomID)
	defer mu.Unlock()

	if err := s.messages.Create(message); err != nil {
		return nil, err
	}

	// 每持久化一条消息恰好递增一次
	if err := s.rooms.IncrementTotalMessage(roomID); err != nil {
		return nil, err
	}

	// 消息已发出，清掉发送者的输入状态（redis不可用时忽略）
	_ = redis.ClearTyping(roomID, senderID)

	s.fanOut(message)
	return message, nil
}

// lockRoom 获取房间级串行锁
func (s *MessageService) lockRoom(roomID uint) *sync.Mutex {
	v, _ := s.roomSeq.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

// checkReplyChain 校验回复目标在同房间内，且回复链不超过配置深度
// 深度1表示只能回复非回复消息
func (s *MessageService) checkReplyChain(replyTo, roomID uint) error {
	maxDepth := s.cfg.MaxReplyDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	targetID := replyTo
	for depth := 1; ; depth++ {
		target, err := s.messages.GetInRoom(targetID, roomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidReply
			}
			return err
		}
		if target.ReplyID == nil {
			return nil
		}
		if depth >= maxDepth {
			return ErrInvalidReply
		}
		targetID = *target.ReplyID
	}
}

// fanOut 把消息推送给房间内除发送者外所有成员的在线会话
// 单个接收方不可达不影响其他接收方，也不影响发送方的返回
func (s *MessageService) fanOut(message *model.Message) {
	memberIDs, err := s.rooms.ListMemberIDs(message.RoomID)
	if err != nil {
		return
	}

	recipients := make([]uint, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != message.SenderID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	// 接收方未读计数（redis不可用时静默跳过）
	for _, id := range recipients {
		_ = redis.IncrementRoomUnread(id, message.RoomID)
	}

	sessions, err := s.sessions.ListSessionsByUsers(recipients)
	if err != nil {
		return
	}

	envelope := messageEnvelope(message)
	for _, sess := range sessions {
		s.deliverer.Deliver(sess.ID, envelope)
	}
}

// ListRoomMessages 分页获取房间消息历史（成员可见），按创建时间升序
func (s *MessageService) ListRoomMessages(userID, roomID uint, limit, offset int) ([]*model.Message, error) {
	ok, err := s.rooms.IsMember(roomID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.messages.ListByRoom(roomID, limit, offset)
}

// DeleteMessage 软删除自己发送的消息
func (s *MessageService) DeleteMessage(messageID, userID uint) error {
	deleted, err := s.messages.DeleteOwn(messageID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPermissionDenied
	}
	return nil
}

// EditMessage 编辑自己发送的消息
func (s *MessageService) EditMessage(messageID, userID uint, content string) error {
	if content == "" {
		return ErrEmptyContent
	}
	updated, err := s.messages.UpdateContent(messageID, userID, content)
	if err != nil {
		return err
	}
	if !updated {
		return ErrPermissionDenied
	}
	return nil
}
