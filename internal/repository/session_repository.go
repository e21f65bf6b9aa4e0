package repository

import (
	"time"

	"chat-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 设备、会话与一次性验证码仓储
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建SessionRepository实例
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateDevice 创建设备记录
func (r *SessionRepository) CreateDevice(device *model.UserDevice) error {
	return r.db.Create(device).Error
}

// GetDevice 获取用户的设备
func (r *SessionRepository) GetDevice(userID, deviceID uint) (*model.UserDevice, error) {
	var d model.UserDevice
	if err := r.db.Where("id = ? AND user_id = ?", deviceID, userID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeviceByName 按用户和设备名获取设备
func (r *SessionRepository) GetDeviceByName(userID uint, deviceName string) (*model.UserDevice, error) {
	var d model.UserDevice
	if err := r.db.Where("user_id = ? AND device_name = ?", userID, deviceName).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// TouchDevice 刷新设备最近使用时间
func (r *SessionRepository) TouchDevice(deviceID uint) error {
	return r.db.Model(&model.UserDevice{}).Where("id = ?", deviceID).
		Update("last_used_at", time.Now()).Error
}

// UpsertSession 创建或覆盖设备会话
// (user_id, user_device_id) 唯一冲突时刷新令牌哈希、IP与过期时间
func (r *SessionRepository) UpsertSession(session *model.Session) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "user_device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"refresh_token_hash", "ip", "expires_at", "updated_at",
		}),
	}).Create(session).Error
}

// GetSessionByID 根据ID获取会话
func (r *SessionRepository) GetSessionByID(sessionID uint) (*model.Session, error) {
	var s model.Session
	if err := r.db.First(&s, sessionID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// RotateSessionToken 条件轮换刷新令牌（CAS）
// 仅当会话仍存在且持有 oldHash 时写入 newHash，返回是否轮换成功
// 并发撤销场景下会话已删除或令牌已变更，此处返回 false，调用方按已撤销处理
func (r *SessionRepository) RotateSessionToken(sessionID uint, oldHash, newHash string, expiresAt *time.Time) (bool, error) {
	res := r.db.Model(&model.Session{}).
		Where("id = ? AND refresh_token_hash = ?", sessionID, oldHash).
		Updates(map[string]interface{}{
			"refresh_token_hash": newHash,
			"expires_at":         expiresAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteSession 删除会话（登出/撤销）
func (r *SessionRepository) DeleteSession(sessionID uint) error {
	return r.db.Delete(&model.Session{}, sessionID).Error
}

// ListSessionsByUser 获取用户的全部会话
func (r *SessionRepository) ListSessionsByUser(userID uint) ([]*model.Session, error) {
	var sessions []*model.Session
	err := r.db.Where("user_id = ?", userID).Find(&sessions).Error
	return sessions, err
}

// ListSessionsByUsers 批量获取多个用户的会话（消息扇出用）
func (r *SessionRepository) ListSessionsByUsers(userIDs []uint) ([]*model.Session, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var sessions []*model.Session
	err := r.db.Where("user_id IN ?", userIDs).Find(&sessions).Error
	return sessions, err
}

// UpsertCode 签发一次性码
// (user_id, type) 唯一冲突时覆盖旧码并重置过期时间
func (r *SessionRepository) UpsertCode(code *model.Code) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "created_at"}),
	}).Create(code).Error
}

// GetCodeByValue 按码值哈希和类型查找
func (r *SessionRepository) GetCodeByValue(valueHash, codeType string) (*model.Code, error) {
	var c model.Code
	if err := r.db.Where("value = ? AND type = ?", valueHash, codeType).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCode 删除已使用的码
func (r *SessionRepository) DeleteCode(codeID uint) error {
	return r.db.Delete(&model.Code{}, codeID).Error
}
