package service

import (
	"errors"
	"time"

	"chat-service/internal/model"
	"chat-service/pkg/redis"

	"gorm.io/gorm"
)

// ReceiptStore 回执/回应/输入状态的持久化边界
type ReceiptStore interface {
	UpsertReceipt(messageID, userID uint, readAt time.Time) error
	ListReceiptsByMessage(messageID uint) ([]*model.ReadReceipt, error)
	ToggleReaction(messageID, userID uint, emoji string) (bool, error)
	ListReactionsByMessage(messageID uint) ([]*model.MessageReaction, error)
	UpsertTyping(chatID, userID uint) error
}

// ReadState 房间维度的已读状态（"N of M 已读"）
type ReadState struct {
	MessageID    uint   `json:"message_id"`
	ReadBy       int    `json:"read_by"`
	TotalMembers int64  `json:"total_members"`
	ReaderIDs    []uint `json:"reader_ids"`
}

// ReactionSummary 表情聚合结果
type ReactionSummary struct {
	Counts  map[string]int64 `json:"counts"`
	Reacted []string         `json:"reacted"` // 请求者参与的表情
}

// ReceiptService 已读回执与表情回应
// 所有写入基于唯一键 upsert/toggle，并发重复请求天然幂等
type ReceiptService struct {
	receipts ReceiptStore
	messages MessageStore
	rooms    RoomStore
}

// NewReceiptService 创建ReceiptService实例
func NewReceiptService(receipts ReceiptStore, messages MessageStore, rooms RoomStore) *ReceiptService {
	return &ReceiptService{receipts: receipts, messages: messages, rooms: rooms}
}

// MarkRead 标记消息已读
// 重复已读只刷新 read_at 不产生新行；返回该消息所在房间的已读状态
func (s *ReceiptService) MarkRead(messageID, userID uint) (*ReadState, error) {
	message, err := s.getVisibleMessage(messageID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.receipts.UpsertReceipt(messageID, userID, time.Now()); err != nil {
		return nil, err
	}

	_ = redis.DecrementRoomUnread(userID, message.RoomID)

	receipts, err := s.receipts.ListReceiptsByMessage(messageID)
	if err != nil {
		return nil, err
	}
	total, err := s.rooms.CountMembers(message.RoomID)
	if err != nil {
		return nil, err
	}

	state := &ReadState{
		MessageID:    messageID,
		ReadBy:       len(receipts),
		TotalMembers: total,
		ReaderIDs:    make([]uint, 0, len(receipts)),
	}
	for _, r := range receipts {
		state.ReaderIDs = append(state.ReaderIDs, r.UserID)
	}
	return state, nil
}

// ToggleReaction 表情回应开关：存在即删、不存在即插，唯一的幂等入口
// 返回本次是否为新增
func (s *ReceiptService) ToggleReaction(messageID, userID uint, emoji string) (bool, error) {
	if emoji == "" {
		return false, ErrEmptyContent
	}
	if _, err := s.getVisibleMessage(messageID, userID); err != nil {
		return false, err
	}
	return s.receipts.ToggleReaction(messageID, userID, emoji)
}

// ListReactionsAggregated 聚合消息的表情回应：emoji→数量，并标出请求者参与的表情
func (s *ReceiptService) ListReactionsAggregated(messageID, userID uint) (*ReactionSummary, error) {
	if _, err := s.getVisibleMessage(messageID, userID); err != nil {
		return nil, err
	}

	reactions, err := s.receipts.ListReactionsByMessage(messageID)
	if err != nil {
		return nil, err
	}

	summary := &ReactionSummary{
		Counts:  make(map[string]int64),
		Reacted: make([]string, 0),
	}
	for _, r := range reactions {
		summary.Counts[r.Emoji]++
		if r.UserID == userID {
			summary.Reacted = append(summary.Reacted, r.Emoji)
		}
	}
	return summary, nil
}

// getVisibleMessage 校验消息存在且访问者是所在房间的成员
// 回执/回应永远不会指向访问者成员身份之外的消息
func (s *ReceiptService) getVisibleMessage(messageID, userID uint) (*model.Message, error) {
	message, err := s.messages.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	ok, err := s.rooms.IsMember(message.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}
	return message, nil
}
