package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-service/internal/model"
	"chat-service/pkg/jwt"
	"chat-service/pkg/password"

	"gorm.io/gorm"
)

// UserStore 用户的持久化边界
type UserStore interface {
	Create(user *model.User) error
	GetByID(id uint) (*model.User, error)
	GetByUsernameOrEmail(identifier string) (*model.User, error)
	UpdateStatus(userID uint, status string) error
	TouchLastSeen(userID uint) error
	MarkVerified(userID uint) error
	UpdatePasswordHash(userID uint, hash string) error
}

// AuthResult 登录/注册结果：用户 + 访问令牌 + 设备绑定会话与刷新令牌
type AuthResult struct {
	User         *model.User
	AccessToken  string
	Session      *model.Session
	RefreshToken string
}

// UserService 用户注册登录与验证码流程
type UserService struct {
	users      UserStore
	sessionSvc *SessionService
	jwtService *jwt.JWTService
}

// NewUserService 创建UserService实例
func NewUserService(users UserStore, sessionSvc *SessionService, jwtService *jwt.JWTService) *UserService {
	return &UserService{users: users, sessionSvc: sessionSvc, jwtService: jwtService}
}

// Register 注册新用户并签发验证码（VERIFY）
// 返回的明文验证码由上层投递（邮件等），核心不负责发送
func (s *UserService) Register(username, email, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || plainPassword == "" {
		return nil, "", ErrInvalidCredentials
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       "offline",
		LastSeen:     time.Now(),
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}

	_, code, err := s.sessionSvc.IssueCode(user.ID, model.CodeTypeVerify)
	if err != nil {
		return nil, "", err
	}
	return user, code, nil
}

// Login 登录：校验凭证 → 绑定设备 → 创建会话 → 签发访问令牌
func (s *UserService) Login(identifier, plainPassword, deviceName, deviceType, ip string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || plainPassword == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByUsernameOrEmail(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(plainPassword, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	device, err := s.sessionSvc.RegisterDevice(user.ID, deviceName, deviceType)
	if err != nil {
		return nil, err
	}
	session, refreshToken, err := s.sessionSvc.CreateSession(user.ID, device.ID, ip)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtService.GenerateToken(
		fmt.Sprintf("%d", user.ID),
		map[string]interface{}{
			"username":   user.Username,
			"session_id": session.ID,
		},
	)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		Session:      session,
		RefreshToken: refreshToken,
	}, nil
}

// Logout 登出：撤销会话
func (s *UserService) Logout(sessionID uint) error {
	return s.sessionSvc.RevokeSession(sessionID)
}

// VerifyEmail 消费 VERIFY 码并标记邮箱已验证
func (s *UserService) VerifyEmail(codeValue string) (*model.User, error) {
	user, err := s.sessionSvc.ConsumeCode(codeValue, model.CodeTypeVerify)
	if err != nil {
		return nil, err
	}
	if err := s.users.MarkVerified(user.ID); err != nil {
		return nil, err
	}
	user.IsVerified = true
	return user, nil
}

// RequestPasswordReset 按邮箱签发 RESET_PASSWORD 码
// 账户不存在时同样返回成功语义，由上层决定是否区分
func (s *UserService) RequestPasswordReset(email string) (string, error) {
	user, err := s.users.GetByUsernameOrEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	_, code, err := s.sessionSvc.IssueCode(user.ID, model.CodeTypeResetPassword)
	return code, err
}

// ResetPassword 消费 RESET_PASSWORD 码并更新密码哈希
func (s *UserService) ResetPassword(codeValue, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidCredentials
	}
	user, err := s.sessionSvc.ConsumeCode(codeValue, model.CodeTypeResetPassword)
	if err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(user.ID, hash)
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
