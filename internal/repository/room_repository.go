package repository

import (
	"chat-service/internal/model"

	"gorm.io/gorm"
)

// RoomRepository 房间与成员仓储
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建RoomRepository实例
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create 创建房间
func (r *RoomRepository) Create(room *model.Room) error {
	return r.db.Create(room).Error
}

// GetByID 根据ID获取房间
func (r *RoomRepository) GetByID(roomID uint) (*model.Room, error) {
	var room model.Room
	if err := r.db.First(&room, roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetByLink 根据邀请链接获取房间
func (r *RoomRepository) GetByLink(link string) (*model.Room, error) {
	var room model.Room
	if err := r.db.Where("link = ?", link).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// AddMember 添加成员，重复加入由唯一键冲突拦截
func (r *RoomRepository) AddMember(member *model.Member) error {
	return r.db.Create(member).Error
}

// RemoveMember 移除成员，返回是否确有删除
func (r *RoomRepository) RemoveMember(roomID, userID uint) (bool, error) {
	res := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&model.Member{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsMember 判断用户是否为房间成员
func (r *RoomRepository) IsMember(roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Member{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListMemberIDs 获取房间全部成员的用户ID
func (r *RoomRepository) ListMemberIDs(roomID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Member{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// CountMembers 统计房间成员数
func (r *RoomRepository) CountMembers(roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Member{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

// ListRoomIDsByUser 获取用户加入的全部房间ID
func (r *RoomRepository) ListRoomIDsByUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Member{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &ids).Error
	return ids, err
}

// IncrementTotalMessage 原子递增房间消息计数
// 必须是单条 UPDATE，禁止读-改-写，防止并发丢失更新
func (r *RoomRepository) IncrementTotalMessage(roomID uint) error {
	return r.db.Model(&model.Room{}).Where("id = ?", roomID).
		UpdateColumn("total_message", gorm.Expr("total_message + ?", 1)).Error
}

// ListUsersSharingRoom 获取与指定用户共处至少一个房间的其他用户ID
func (r *RoomRepository) ListUsersSharingRoom(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Member{}).
		Distinct("user_id").
		Where("user_id <> ?", userID).
		Where("room_id IN (?)", r.db.Model(&model.Member{}).
			Select("room_id").Where("user_id = ?", userID)).
		Pluck("user_id", &ids).Error
	return ids, err
}
