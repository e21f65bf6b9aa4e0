package jwt

import (
	"testing"
	"time"

	"chat-service/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(expire time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		ExpireTime: expire,
		Issuer:     "chat-service-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.GenerateToken("42", map[string]interface{}{
		"username":   "alice",
		"session_id": uint(7),
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice", claims.Data["username"])
	// JSON数值反序列化为float64
	assert.Equal(t, float64(7), claims.Data["session_id"])
}

func TestGenerateTokenRequiresUserID(t *testing.T) {
	svc := newTestService(time.Hour)

	_, err := svc.GenerateToken("", nil)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateToken("42", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := newTestService(time.Hour)
	other := NewJWTService(config.JWTConfig{
		Secret:     "other-secret",
		ExpireTime: time.Hour,
		Issuer:     "chat-service-test",
	})

	token, err := svc.GenerateToken("42", nil)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	svc := newTestService(time.Hour)
	other := NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		ExpireTime: time.Hour,
		Issuer:     "someone-else",
	})

	token, err := other.GenerateToken("42", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsEmptyToken(t *testing.T) {
	svc := newTestService(time.Hour)

	_, err := svc.ValidateToken("")
	assert.Error(t, err)
}
