package service

import (
	"time"

	"chat-service/config"
	"chat-service/pkg/redis"
)

// PresenceService 在线状态与正在输入广播
// 输入状态是短命记录：靠TTL过期或被覆盖，不作为历史查询
type PresenceService struct {
	users     UserStore
	rooms     RoomStore
	friends   FriendStore
	receipts  ReceiptStore
	sessions  SessionLookup
	deliverer Deliverer
	cfg       config.ChatConfig
}

// NewPresenceService 创建PresenceService实例
func NewPresenceService(users UserStore, rooms RoomStore, friends FriendStore, receipts ReceiptStore,
	sessions SessionLookup, deliverer Deliverer, cfg config.ChatConfig) *PresenceService {
	return &PresenceService{
		users:     users,
		rooms:     rooms,
		friends:   friends,
		receipts:  receipts,
		sessions:  sessions,
		deliverer: deliverer,
		cfg:       cfg,
	}
}

// SetTyping 上报正在输入状态并广播给房间内其他成员
// (chat_id, user_id) upsert 刷新时间戳，TTL由投递层（redis）持有
func (s *PresenceService) SetTyping(chatID, userID uint) error {
	ok, err := s.rooms.IsMember(chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAMember
	}

	if err := s.receipts.UpsertTyping(chatID, userID); err != nil {
		return err
	}
	_ = redis.SetTyping(chatID, userID, s.cfg.TypingTTL)

	memberIDs, err := s.rooms.ListMemberIDs(chatID)
	if err != nil {
		return nil
	}
	others := make([]uint, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != userID {
			others = append(others, id)
		}
	}
	s.broadcast(others, typingEnvelope(chatID, userID, s.cfg.TypingTTL))
	return nil
}

// SetOnline 更新在线标记并向相关用户广播
// 只推送给同房间或好友关系的用户，不做全局广播
func (s *PresenceService) SetOnline(userID uint, online bool) error {
	status := "offline"
	if online {
		status = "online"
	}
	if err := s.users.UpdateStatus(userID, status); err != nil {
		return err
	}

	user, err := s.users.GetByID(userID)
	if err == nil {
		if online {
			_ = redis.SetUserPresence(userID, user.Username, status)
		} else {
			_ = redis.RemoveUserPresence(userID)
		}
	}

	related, err := s.relatedUsers(userID)
	if err != nil {
		return nil
	}
	s.broadcast(related, presenceEnvelope(userID, status, time.Now()))
	return nil
}

// TouchLastSeen 刷新最近在线时间并延长redis在线TTL
func (s *PresenceService) TouchLastSeen(userID uint) error {
	if err := s.users.TouchLastSeen(userID); err != nil {
		return err
	}
	_ = redis.RefreshUserPresence(userID)
	return nil
}

// relatedUsers 与主体共处至少一个房间或存在好友关系的用户集合
func (s *PresenceService) relatedUsers(userID uint) ([]uint, error) {
	roomMates, err := s.rooms.ListUsersSharingRoom(userID)
	if err != nil {
		return nil, err
	}
	friendIDs, err := s.friends.ListFriendIDs(userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(roomMates)+len(friendIDs))
	related := make([]uint, 0, len(roomMates)+len(friendIDs))
	for _, id := range roomMates {
		if !seen[id] {
			seen[id] = true
			related = append(related, id)
		}
	}
	for _, id := range friendIDs {
		if !seen[id] {
			seen[id] = true
			related = append(related, id)
		}
	}
	return related, nil
}

// broadcast 把事件推送到一组用户的全部在线会话，尽力而为
func (s *PresenceService) broadcast(userIDs []uint, envelope *Envelope) {
	if len(userIDs) == 0 {
		return
	}
	sessions, err := s.sessions.ListSessionsByUsers(userIDs)
	if err != nil {
		return
	}
	for _, sess := range sessions {
		s.deliverer.Deliver(sess.ID, envelope)
	}
}
