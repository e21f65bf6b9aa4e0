package service

import (
	"errors"
	"time"

	"chat-service/internal/model"

	"gorm.io/gorm"
)

// FriendStore 好友请求与好友边的持久化边界
type FriendStore interface {
	CreateRequest(request *model.FriendRequest) error
	GetRequestByID(requestID uint) (*model.FriendRequest, error)
	GetRequestBetween(a, b uint) (*model.FriendRequest, error)
	ResolveRequest(requestID uint, status string) (bool, error)
	CreateFriendship(friendship *model.Friendship) error
	GetFriendship(a, b uint) (*model.Friendship, error)
	DeleteFriendship(a, b uint) (bool, error)
	ListFriendIDs(userID uint) ([]uint, error)
	ListPendingRequests(receiverID uint) ([]*model.FriendRequest, error)
}

// FriendService 好友请求状态机与好友图
// PENDING → {ACCEPTED, REJECTED}，终态不回退
// 好友边只能由 ACCEPTED 请求产生，存储前做小ID在前的规范化
type FriendService struct {
	friends   FriendStore
	users     UserStore
	sessions  SessionLookup
	deliverer Deliverer
}

// NewFriendService 创建FriendService实例
func NewFriendService(friends FriendStore, users UserStore, sessions SessionLookup, deliverer Deliverer) *FriendService {
	return &FriendService{friends: friends, users: users, sessions: sessions, deliverer: deliverer}
}

// SendRequest 发起好友请求
// 自我请求、已是好友、同一对用户间已有任一方向请求（不论状态）均拒绝
func (s *FriendService) SendRequest(senderID, receiverID uint) (*model.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}
	if _, err := s.users.GetByID(receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if _, err := s.friends.GetFriendship(senderID, receiverID); err == nil {
		return nil, ErrAlreadyFriends
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.friends.GetRequestBetween(senderID, receiverID); err == nil {
		return nil, ErrDuplicateRequest
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	request := &model.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.FriendRequestPending,
	}
	if err := s.friends.CreateRequest(request); err != nil {
		// 并发发起时先查后插的窗口由唯一键兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}

	s.notify(receiverID, &Envelope{
		Type:     "friend_request",
		SenderID: senderID,
		Data:     map[string]interface{}{"request_id": request.ID},
		Timestamp: time.Now().Unix(),
	})
	return request, nil
}

// Respond 处理好友请求，仅接收方可操作
// 状态转移是 PENDING 条件下的 CAS：并发 respond 恰有一个成功，
// 失败方拿到 ErrAlreadyResolved；ACCEPTED 额外创建恰好一条好友边
func (s *FriendService) Respond(requestID, userID uint, decision string) (*model.FriendRequest, error) {
	if decision != model.FriendRequestAccepted && decision != model.FriendRequestRejected {
		return nil, ErrInvalidDecision
	}

	request, err := s.friends.GetRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.ReceiverID != userID {
		return nil, ErrPermissionDenied
	}
	if request.Status != model.FriendRequestPending {
		return nil, ErrAlreadyResolved
	}

	resolved, err := s.friends.ResolveRequest(requestID, decision)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, ErrAlreadyResolved
	}
	request.Status = decision

	if decision == model.FriendRequestAccepted {
		u1, u2 := model.CanonicalPair(request.SenderID, request.ReceiverID)
		err := s.friends.CreateFriendship(&model.Friendship{User1ID: u1, User2ID: u2})
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}

	s.notify(request.SenderID, &Envelope{
		Type:     "friend_response",
		SenderID: userID,
		Data: map[string]interface{}{
			"request_id": request.ID,
			"status":     request.Status,
		},
		Timestamp: time.Now().Unix(),
	})
	return request, nil
}

// Unfriend 删除好友边；原始请求保留为历史，不复活也不删除
func (s *FriendService) Unfriend(userID, otherID uint) error {
	removed, err := s.friends.DeleteFriendship(userID, otherID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrFriendshipNotFound
	}
	return nil
}

// AreFriends 判断两个用户是否为好友，入参顺序不限
func (s *FriendService) AreFriends(a, b uint) (bool, error) {
	_, err := s.friends.GetFriendship(a, b)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// ListFriends 获取好友列表
func (s *FriendService) ListFriends(userID uint) ([]*model.User, error) {
	ids, err := s.friends.ListFriendIDs(userID)
	if err != nil {
		return nil, err
	}
	friends := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.GetByID(id)
		if err != nil {
			// 软删除的好友不出现在列表里
			continue
		}
		friends = append(friends, user)
	}
	return friends, nil
}

// ListPendingRequests 获取收到的待处理请求
func (s *FriendService) ListPendingRequests(userID uint) ([]*model.FriendRequest, error) {
	return s.friends.ListPendingRequests(userID)
}

// notify 推送好友事件到目标用户的全部在线会话
func (s *FriendService) notify(userID uint, envelope *Envelope) {
	sessions, err := s.sessions.ListSessionsByUsers([]uint{userID})
	if err != nil {
		return
	}
	for _, sess := range sessions {
		s.deliverer.Deliver(sess.ID, envelope)
	}
}
