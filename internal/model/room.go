package model

import (
	"time"

	"gorm.io/gorm"
)

// Room 会话房间
// Link 为唯一邀请链接，TotalMessage 为反范式化的消息计数
// 计数只能通过原子 UPDATE 递增，见 repository.RoomRepository

type Room struct {
	ID           uint           `gorm:"primaryKey"`
	AuthorID     uint           `gorm:"not null;index;comment:创建者ID"`
	Name         string         `gorm:"type:varchar(128);comment:房间名称"`
	Link         string         `gorm:"type:varchar(64);not null;uniqueIndex;comment:邀请链接"`
	TotalMessage int64          `gorm:"not null;default:0;comment:消息总数"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (Room) TableName() string { return "room" }

// Member 房间成员
// (user_id, room_id) 唯一，加入即创建，退出/踢出即删除

type Member struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:uidx_member_user_room,priority:1;comment:用户ID"`
	RoomID    uint      `gorm:"not null;uniqueIndex:uidx_member_user_room,priority:2;index;comment:房间ID"`
	CreatedAt time.Time `gorm:"comment:加入时间"`
}

func (Member) TableName() string { return "member" }
