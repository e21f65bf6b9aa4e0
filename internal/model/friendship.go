package model

import "time"

// 好友请求状态
const (
	FriendRequestPending  = "PENDING"
	FriendRequestAccepted = "ACCEPTED"
	FriendRequestRejected = "REJECTED"
)

// FriendRequest 好友请求（有向边 sender→receiver）
// (sender_id, receiver_id) 唯一，终态不回退，保留为历史记录

type FriendRequest struct {
	ID         uint      `gorm:"primaryKey"`
	SenderID   uint      `gorm:"not null;uniqueIndex:uidx_freq_pair,priority:1;comment:发起者ID"`
	ReceiverID uint      `gorm:"not null;uniqueIndex:uidx_freq_pair,priority:2;index;comment:接收者ID"`
	Status     string    `gorm:"type:varchar(16);not null;default:'PENDING';comment:请求状态"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

func (FriendRequest) TableName() string { return "friend_request" }

// Friendship 好友关系（无向边的规范化存储）
// 业务层保证 User1ID < User2ID，(user1_id, user2_id) 唯一
// 只能由 ACCEPTED 的好友请求创建，不可独立插入

type Friendship struct {
	ID        uint      `gorm:"primaryKey"`
	User1ID   uint      `gorm:"not null;uniqueIndex:uidx_friend_pair,priority:1;comment:较小用户ID"`
	User2ID   uint      `gorm:"not null;uniqueIndex:uidx_friend_pair,priority:2;index;comment:较大用户ID"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (Friendship) TableName() string { return "friendship" }

// CanonicalPair 规范化无向好友对的存储顺序（小ID在前）
func CanonicalPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}
