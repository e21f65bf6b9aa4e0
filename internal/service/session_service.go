package service

import (
	"errors"
	"time"

	"chat-service/config"
	"chat-service/internal/model"
	"chat-service/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStore 设备/会话/验证码的持久化边界
type SessionStore interface {
	CreateDevice(device *model.UserDevice) error
	GetDevice(userID, deviceID uint) (*model.UserDevice, error)
	GetDeviceByName(userID uint, deviceName string) (*model.UserDevice, error)
	TouchDevice(deviceID uint) error
	UpsertSession(session *model.Session) error
	GetSessionByID(sessionID uint) (*model.Session, error)
	RotateSessionToken(sessionID uint, oldHash, newHash string, expiresAt *time.Time) (bool, error)
	DeleteSession(sessionID uint) error
	ListSessionsByUser(userID uint) ([]*model.Session, error)
	ListSessionsByUsers(userIDs []uint) ([]*model.Session, error)
	UpsertCode(code *model.Code) error
	GetCodeByValue(valueHash, codeType string) (*model.Code, error)
	DeleteCode(codeID uint) error
}

// SessionService 管理设备绑定会话与一次性验证码
// 只负责记录本身：令牌签名/密码学校验在外部认证协作方
type SessionService struct {
	store SessionStore
	users UserStore
	cfg   config.SessionConfig
}

// NewSessionService 创建SessionService实例
func NewSessionService(store SessionStore, users UserStore, cfg config.SessionConfig) *SessionService {
	return &SessionService{store: store, users: users, cfg: cfg}
}

// RegisterDevice 注册或复用用户设备（登录入口调用）
func (s *SessionService) RegisterDevice(userID uint, deviceName, deviceType string) (*model.UserDevice, error) {
	if deviceName == "" {
		deviceName = "unknown"
	}
	device, err := s.store.GetDeviceByName(userID, deviceName)
	if err == nil {
		return device, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	device = &model.UserDevice{
		UserID:     userID,
		DeviceName: deviceName,
		DeviceType: deviceType,
		LastUsedAt: time.Now(),
	}
	if err := s.store.CreateDevice(device); err != nil {
		// 并发注册同名设备：复用已有记录
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.store.GetDeviceByName(userID, deviceName)
		}
		return nil, err
	}
	return device, nil
}

// CreateSession 为设备创建（或覆盖）登录会话
// 返回会话与明文刷新令牌，明文只在此处出现一次
func (s *SessionService) CreateSession(userID, deviceID uint, ip string) (*model.Session, string, error) {
	device, err := s.store.GetDevice(userID, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDeviceNotFound
		}
		return nil, "", err
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.cfg.Lifetime)
	session := &model.Session{
		UserID:           userID,
		UserDeviceID:     device.ID,
		RefreshTokenHash: password.HashToken(token),
		IP:               ip,
		ExpiresAt:        &expiresAt,
	}
	if err := s.store.UpsertSession(session); err != nil {
		return nil, "", err
	}

	// 成功创建会话的副作用：刷新设备最近使用时间
	_ = s.store.TouchDevice(device.ID)

	return session, token, nil
}

// RefreshSession 用刷新令牌轮换会话
// 与并发撤销竞争时必须关死：CAS 失败一律按令牌失效处理，绝不补发新令牌
func (s *SessionService) RefreshSession(sessionID uint, presentedToken string) (*model.Session, string, error) {
	session, err := s.store.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidToken
		}
		return nil, "", err
	}

	oldHash := password.HashToken(presentedToken)
	if session.RefreshTokenHash != oldHash {
		return nil, "", ErrInvalidToken
	}
	if session.ExpiresAt != nil && session.ExpiresAt.Before(time.Now()) {
		return nil, "", ErrSessionExpired
	}

	newToken := uuid.NewString()
	newHash := password.HashToken(newToken)
	expiresAt := time.Now().Add(s.cfg.Lifetime)
	rotated, err := s.store.RotateSessionToken(sessionID, oldHash, newHash, &expiresAt)
	if err != nil {
		return nil, "", err
	}
	if !rotated {
		return nil, "", ErrInvalidToken
	}

	session.RefreshTokenHash = newHash
	session.ExpiresAt = &expiresAt
	return session, newToken, nil
}

// RevokeSession 撤销会话
func (s *SessionService) RevokeSession(sessionID uint) error {
	return s.store.DeleteSession(sessionID)
}

// IssueCode 签发一次性码，同类型重发即覆盖旧码并重置过期时间
// 返回明文码值（用于投递邮件等），库中只存哈希
func (s *SessionService) IssueCode(userID uint, codeType string) (*model.Code, string, error) {
	if codeType != model.CodeTypeVerify && codeType != model.CodeTypeResetPassword {
		return nil, "", ErrCodeNotFound
	}
	if _, err := s.users.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}

	value := uuid.NewString()
	code := &model.Code{
		UserID:    userID,
		Type:      codeType,
		Value:     password.HashToken(value),
		ExpiresAt: time.Now().Add(s.cfg.CodeExpiry),
		CreatedAt: time.Now(),
	}
	if err := s.store.UpsertCode(code); err != nil {
		return nil, "", err
	}
	return code, value, nil
}

// ConsumeCode 消费一次性码：过期在读取时校验，成功后整行删除
func (s *SessionService) ConsumeCode(value, codeType string) (*model.User, error) {
	code, err := s.store.GetCodeByValue(password.HashToken(value), codeType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	if code.ExpiresAt.Before(time.Now()) {
		return nil, ErrCodeExpired
	}

	user, err := s.users.GetByID(code.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.store.DeleteCode(code.ID); err != nil {
		return nil, err
	}
	return user, nil
}
