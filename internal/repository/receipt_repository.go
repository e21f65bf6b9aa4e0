package repository

import (
	"time"

	"chat-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReceiptRepository 已读回执、表情回应与输入状态仓储
// 三者的写入全部走唯一键 upsert/toggle，不做先查后插
type ReceiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository 创建ReceiptRepository实例
func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// UpsertReceipt 写入已读回执
// (message_id, user_id) 冲突时仅刷新 read_at，两个标签页同时已读也只有一行
func (r *ReceiptRepository) UpsertReceipt(messageID, userID uint, readAt time.Time) error {
	receipt := &model.ReadReceipt{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    readAt,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"read_at"}),
	}).Create(receipt).Error
}

// ListReceiptsByMessage 获取消息的全部回执
func (r *ReceiptRepository) ListReceiptsByMessage(messageID uint) ([]*model.ReadReceipt, error) {
	var receipts []*model.ReadReceipt
	err := r.db.Where("message_id = ?", messageID).Find(&receipts).Error
	return receipts, err
}

// ToggleReaction 表情回应开关
// 键已存在则删除（取消回应），否则插入；返回本次是否为新增
// 并发重试下插入侧遇到唯一键冲突按已存在处理
func (r *ReceiptRepository) ToggleReaction(messageID, userID uint, emoji string) (bool, error) {
	res := r.db.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&model.MessageReaction{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	reaction := &model.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(reaction).Error; err != nil {
		return false, err
	}
	return true, nil
}

// ListReactionsByMessage 获取消息的全部表情回应
func (r *ReceiptRepository) ListReactionsByMessage(messageID uint) ([]*model.MessageReaction, error) {
	var reactions []*model.MessageReaction
	err := r.db.Where("message_id = ?", messageID).Find(&reactions).Error
	return reactions, err
}

// UpsertTyping 写入正在输入状态
// (chat_id, user_id) 冲突时刷新创建时间，状态靠TTL过期而非历史保留
func (r *ReceiptRepository) UpsertTyping(chatID, userID uint) error {
	typing := &model.TypingStatus{
		ChatID:    chatID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"created_at"}),
	}).Create(typing).Error
}
