package repository

import (
	"time"

	"chat-service/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据仓储
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// GetByID 根据ID获取用户（软删除用户不可见）
func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var u model.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsernameOrEmail 根据用户名或邮箱获取用户
func (r *UserRepository) GetByUsernameOrEmail(identifier string) (*model.User, error) {
	var u model.User
	if err := r.db.Where("username = ? OR email = ?", identifier, identifier).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateStatus 更新在线状态，离线时同步刷新最近在线时间
func (r *UserRepository) UpdateStatus(userID uint, status string) error {
	updates := map[string]interface{}{"status": status}
	if status != "online" {
		updates["last_seen"] = time.Now()
	}
	return r.db.Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error
}

// TouchLastSeen 刷新最近在线时间
func (r *UserRepository) TouchLastSeen(userID uint) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("last_seen", time.Now()).Error
}

// MarkVerified 标记邮箱已验证
func (r *UserRepository) MarkVerified(userID uint) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("is_verified", true).Error
}

// UpdatePasswordHash 更新密码哈希（重置密码流程）
func (r *UserRepository) UpdatePasswordHash(userID uint, hash string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("password_hash", hash).Error
}

