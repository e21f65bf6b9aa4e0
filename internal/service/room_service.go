package service

import (
	"errors"

	"chat-service/internal/model"
	"chat-service/pkg/redis"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomStore 房间与成员的持久化边界
type RoomStore interface {
	Create(room *model.Room) error
	GetByID(roomID uint) (*model.Room, error)
	GetByLink(link string) (*model.Room, error)
	AddMember(member *model.Member) error
	RemoveMember(roomID, userID uint) (bool, error)
	IsMember(roomID, userID uint) (bool, error)
	ListMemberIDs(roomID uint) ([]uint, error)
	CountMembers(roomID uint) (int64, error)
	ListRoomIDsByUser(userID uint) ([]uint, error)
	IncrementTotalMessage(roomID uint) error
	ListUsersSharingRoom(userID uint) ([]uint, error)
}

// RoomService 房间与成员注册表
type RoomService struct {
	rooms RoomStore
}

// NewRoomService 创建RoomService实例
func NewRoomService(rooms RoomStore) *RoomService {
	return &RoomService{rooms: rooms}
}

// CreateRoom 创建房间并生成唯一邀请链接，创建者自动入房
func (s *RoomService) CreateRoom(authorID uint, name string) (*model.Room, error) {
	room := &model.Room{
		AuthorID: authorID,
		Name:     name,
		Link:     uuid.NewString(),
	}
	if err := s.rooms.Create(room); err != nil {
		return nil, err
	}
	if err := s.rooms.AddMember(&model.Member{UserID: authorID, RoomID: room.ID}); err != nil {
		return nil, err
	}
	return room, nil
}

// Join 加入房间
// 重复加入不做幂等吞掉：唯一键冲突原样上抛为 ErrAlreadyMember，由调用方决策
func (s *RoomService) Join(roomID, userID uint) error {
	if _, err := s.rooms.GetByID(roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	if err := s.rooms.AddMember(&model.Member{UserID: userID, RoomID: roomID}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyMember
		}
		return err
	}
	return nil
}

// JoinByLink 通过邀请链接加入房间
func (s *RoomService) JoinByLink(link string, userID uint) (*model.Room, error) {
	room, err := s.rooms.GetByLink(link)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if err := s.Join(room.ID, userID); err != nil {
		return nil, err
	}
	return room, nil
}

// Leave 退出房间；本就不是成员视为调用方错误，不静默吞掉
func (s *RoomService) Leave(roomID, userID uint) error {
	removed, err := s.rooms.RemoveMember(roomID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotAMember
	}
	// 退房后该房间的未读计数不再有意义（redis不可用时忽略）
	_ = redis.ResetRoomUnread(userID, roomID)
	return nil
}

// GetRoom 获取房间信息（成员可见）
func (s *RoomService) GetRoom(roomID, userID uint) (*model.Room, error) {
	ok, err := s.rooms.IsMember(roomID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}
	return s.rooms.GetByID(roomID)
}

// ListMemberIDs 获取房间成员ID列表（成员可见）
func (s *RoomService) ListMemberIDs(roomID, userID uint) ([]uint, error) {
	ok, err := s.rooms.IsMember(roomID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}
	return s.rooms.ListMemberIDs(roomID)
}

// ListRoomsForUser 获取用户加入的房间ID列表
func (s *RoomService) ListRoomsForUser(userID uint) ([]uint, error) {
	return s.rooms.ListRoomIDsByUser(userID)
}
