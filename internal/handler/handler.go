package handler

import (
	"errors"

	"chat-service/internal/service"
	"chat-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeServiceError 把业务层错误映射为统一响应
// 分类映射，未识别的错误一律按内部错误处理，不泄露细节
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrDeviceNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrFriendshipNotFound),
		errors.Is(err, service.ErrCodeNotFound):
		response.NotFound(c, err.Error())

	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrAlreadyFriends),
		errors.Is(err, service.ErrAlreadyResolved):
		response.Conflict(c, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrCodeExpired):
		response.Unauthorized(c, err.Error())

	case errors.Is(err, service.ErrNotAMember),
		errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, err.Error())

	case errors.Is(err, service.ErrSelfRequest),
		errors.Is(err, service.ErrInvalidReply),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidMsgType),
		errors.Is(err, service.ErrInvalidDecision):
		response.BadRequest(c, err.Error())

	default:
		response.InternalError(c, "internal error")
	}
}
