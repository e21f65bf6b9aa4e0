package repository

import (
	"chat-service/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 持久化消息
func (r *MessageRepository) Create(message *model.Message) error {
	return r.db.Create(message).Error
}

// GetByID 根据ID获取消息
func (r *MessageRepository) GetByID(messageID uint) (*model.Message, error) {
	var m model.Message
	if err := r.db.First(&m, messageID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetInRoom 获取指定房间内的消息，回复校验用
func (r *MessageRepository) GetInRoom(messageID, roomID uint) (*model.Message, error) {
	var m model.Message
	if err := r.db.Where("id = ? AND room_id = ?", messageID, roomID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByRoom 分页获取房间消息，按创建时间升序
func (r *MessageRepository) ListByRoom(roomID uint, limit, offset int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

// DeleteOwn 软删除自己发送的消息，返回是否确有删除
func (r *MessageRepository) DeleteOwn(messageID, senderID uint) (bool, error) {
	res := r.db.Where("id = ? AND sender_id = ?", messageID, senderID).
		Delete(&model.Message{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateContent 编辑自己发送的消息内容
func (r *MessageRepository) UpdateContent(messageID, senderID uint, content string) (bool, error) {
	res := r.db.Model(&model.Message{}).
		Where("id = ? AND sender_id = ?", messageID, senderID).
		Update("content", content)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
