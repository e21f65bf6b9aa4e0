package model

import (
	"time"

	"gorm.io/gorm"
)

// 消息类型
const (
	MsgTypeText     = "text"
	MsgTypeImage    = "image"
	MsgTypeVideo    = "video"
	MsgTypeAudio    = "audio"
	MsgTypeFile     = "file"
	MsgTypeEmoji    = "emoji"
	MsgTypeSticker  = "sticker"
	MsgTypeLocation = "location"
	MsgTypeSystem   = "system"
)

// Message 消息模型
// 属于唯一的房间与发送者；ReplyID 为同房间内消息的可空自引用
// 写入时校验回复目标在同一房间，不允许悬空引用

type Message struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    uint           `gorm:"not null;index;comment:房间ID"`
	SenderID  uint           `gorm:"not null;index;comment:发送者ID"`
	MsgType   string         `gorm:"type:varchar(32);not null;default:'text';comment:消息类型"`
	Content   string         `gorm:"type:text;not null;comment:消息内容"`
	ReplyID   *uint          `gorm:"index;comment:回复的消息ID"`
	CreatedAt time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Message) TableName() string { return "message" }

// ReadReceipt 已读回执
// (message_id, user_id) 唯一；重复已读仅刷新 ReadAt，不产生新行

type ReadReceipt struct {
	ID        uint      `gorm:"primaryKey"`
	MessageID uint      `gorm:"not null;uniqueIndex:uidx_receipt_msg_user,priority:1;comment:消息ID"`
	UserID    uint      `gorm:"not null;uniqueIndex:uidx_receipt_msg_user,priority:2;comment:用户ID"`
	ReadAt    time.Time `gorm:"not null;comment:已读时间"`
}

func (ReadReceipt) TableName() string { return "read_receipt" }

// MessageReaction 表情回应
// (message_id, user_id, emoji) 唯一；同一用户可对同一消息用不同表情
// 再次提交同一键即取消（toggle），没有独立的增/删入口

type MessageReaction struct {
	ID        uint      `gorm:"primaryKey"`
	MessageID uint      `gorm:"not null;uniqueIndex:uidx_reaction_key,priority:1;comment:消息ID"`
	UserID    uint      `gorm:"not null;uniqueIndex:uidx_reaction_key,priority:2;comment:用户ID"`
	Emoji     string    `gorm:"type:varchar(16);not null;uniqueIndex:uidx_reaction_key,priority:3;comment:表情"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (MessageReaction) TableName() string { return "message_reaction" }

// TypingStatus 正在输入状态
// (chat_id, user_id) 唯一；只有创建时间，靠TTL过期，不做历史查询

type TypingStatus struct {
	ID        uint      `gorm:"primaryKey"`
	ChatID    uint      `gorm:"not null;uniqueIndex:uidx_typing_chat_user,priority:1;comment:房间ID"`
	UserID    uint      `gorm:"not null;uniqueIndex:uidx_typing_chat_user,priority:2;comment:用户ID"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (TypingStatus) TableName() string { return "typing_status" }
