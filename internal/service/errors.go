package service

import "errors"

// 业务层通用错误，handler 按错误类型映射到合适的 HTTP 响应。
// 分类：不存在 / 唯一冲突 / 凭证失效 / 状态机非法转移 / 参数校验
var (
	// 不存在
	ErrUserNotFound       = errors.New("user not found")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrRequestNotFound    = errors.New("friend request not found")
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrCodeNotFound       = errors.New("code not found")

	// 唯一冲突
	ErrUsernameTaken    = errors.New("username or email taken")
	ErrAlreadyMember    = errors.New("already a member")
	ErrDuplicateRequest = errors.New("friend request already exists")
	ErrAlreadyFriends   = errors.New("already friends")

	// 凭证失效
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrSessionExpired     = errors.New("session expired")
	ErrCodeExpired        = errors.New("code expired")

	// 状态机非法转移
	ErrAlreadyResolved = errors.New("friend request already resolved")

	// 参数校验
	ErrNotAMember       = errors.New("not a member of the room")
	ErrSelfRequest      = errors.New("cannot send friend request to yourself")
	ErrInvalidReply     = errors.New("reply target not found in room")
	ErrEmptyContent     = errors.New("message content is empty")
	ErrInvalidMsgType   = errors.New("unsupported message type")
	ErrInvalidDecision  = errors.New("invalid friend request decision")
	ErrPermissionDenied = errors.New("permission denied")
)
