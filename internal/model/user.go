package model

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 索引与唯一约束：用户名唯一、邮箱唯一
// 说明：密码仅存储哈希（PasswordHash），不存储明文
// 用户从不物理删除，DeletedAt 标记逻辑删除，所有查询自动过滤
// Status 标记在线/离线，LastSeen 为最近在线时间

type User struct {
	ID           uint           `gorm:"primaryKey"`
	Username     string         `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名"`
	Email        string         `gorm:"type:varchar(128);uniqueIndex;comment:邮箱"`
	PasswordHash string         `gorm:"type:varchar(255);not null;comment:密码哈希"`
	Nickname     string         `gorm:"type:varchar(64);comment:昵称"`
	Avatar       string         `gorm:"type:varchar(255);comment:头像URL"`
	Bio          string         `gorm:"type:varchar(512);comment:个人简介"`
	IsVerified   bool           `gorm:"default:false;comment:邮箱是否已验证"`
	Status       string         `gorm:"type:varchar(32);default:'offline';comment:在线状态"`
	LastSeen     time.Time      `gorm:"comment:最近在线时间"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string { return "user" }

// UserDevice 用户设备
// 同一用户下设备名唯一

type UserDevice struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"not null;uniqueIndex:uidx_device_name_user,priority:2;comment:用户ID"`
	DeviceName string    `gorm:"type:varchar(128);not null;uniqueIndex:uidx_device_name_user,priority:1;comment:设备名称"`
	DeviceType string    `gorm:"type:varchar(32);default:'web';comment:设备类型"`
	LastUsedAt time.Time `gorm:"comment:最近使用时间"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

func (UserDevice) TableName() string { return "user_device" }

// Session 设备绑定的登录会话
// (user_id, user_device_id) 唯一：一台设备同一用户至多一个有效会话
// 刷新令牌仅存哈希，登出/撤销时整行删除

type Session struct {
	ID               uint       `gorm:"primaryKey"`
	UserID           uint       `gorm:"not null;uniqueIndex:uidx_session_user_device,priority:1;comment:用户ID"`
	UserDeviceID     uint       `gorm:"not null;uniqueIndex:uidx_session_user_device,priority:2;comment:设备ID"`
	RefreshTokenHash string     `gorm:"type:varchar(128);not null;comment:刷新令牌哈希"`
	IP               string     `gorm:"type:varchar(64);comment:登录IP"`
	ExpiresAt        *time.Time `gorm:"comment:过期时间"`
	CreatedAt        time.Time  `gorm:"comment:创建时间"`
	UpdatedAt        time.Time  `gorm:"comment:更新时间"`
}

func (Session) TableName() string { return "session" }

// Code 类型常量
const (
	CodeTypeVerify        = "VERIFY"
	CodeTypeResetPassword = "RESET_PASSWORD"
)

// Code 一次性验证码/重置码
// (user_id, type) 唯一：同类型码重发即覆盖，使用后删除

type Code struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:uidx_code_user_type,priority:1;comment:用户ID"`
	Type      string    `gorm:"type:varchar(32);not null;uniqueIndex:uidx_code_user_type,priority:2;comment:码类型"`
	Value     string    `gorm:"type:varchar(128);not null;comment:码值哈希"`
	ExpiresAt time.Time `gorm:"not null;comment:过期时间"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (Code) TableName() string { return "code" }
