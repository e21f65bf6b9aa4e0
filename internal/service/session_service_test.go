package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"chat-service/config"
	"chat-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*memStore, *SessionService, *model.User) {
	t.Helper()
	store := newMemStore()
	svc := NewSessionService(store, userStore{store}, config.SessionConfig{
		Lifetime:   time.Hour,
		CodeExpiry: 10 * time.Minute,
	})
	user := store.seedUser("alice")
	return store, svc, user
}

func TestRegisterDeviceReusesExisting(t *testing.T) {
	_, svc, user := newSessionFixture(t)

	first, err := svc.RegisterDevice(user.ID, "iphone", "mobile")
	require.NoError(t, err)
	second, err := svc.RegisterDevice(user.ID, "iphone", "mobile")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestCreateSessionUnknownDevice(t *testing.T) {
	_, svc, user := newSessionFixture(t)

	_, _, err := svc.CreateSession(user.ID, 999, "127.0.0.1")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestCreateSessionReplacesPerDevice(t *testing.T) {
	_, svc, user := newSessionFixture(t)
	device, err := svc.RegisterDevice(user.ID, "laptop", "web")
	require.NoError(t, err)

	first, firstToken, err := svc.CreateSession(user.ID, device.ID, "10.0.0.1")
	require.NoError(t, err)
	second, secondToken, err := svc.CreateSession(user.ID, device.ID, "10.0.0.2")
	require.NoError(t, err)

	// 同一设备重复登录覆盖会话，不产生第二条记录
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, firstToken, secondToken)

	// 旧令牌作废
	_, _, err = svc.RefreshSession(first.ID, firstToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshSessionRotatesToken(t *testing.T) {
	_, svc, user := newSessionFixture(t)
	device, err := svc.RegisterDevice(user.ID, "laptop", "web")
	require.NoError(t, err)
	session, token, err := svc.CreateSession(user.ID, device.ID, "10.0.0.1")
	require.NoError(t, err)

	_, newToken, err := svc.RefreshSession(session.ID, token)
	require.NoError(t, err)
	assert.NotEqual(t, token, newToken)

	// 旧令牌不能再用
	_, _, err = svc.RefreshSession(session.ID, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 新令牌可以继续轮换
	_, _, err = svc.RefreshSession(session.ID, newToken)
	assert.NoError(t, err)
}

func TestRefreshSessionExpired(t *testing.T) {
	store, svc, user := newSessionFixture(t)
	device, err := svc.RegisterDevice(user.ID, "laptop", "web")
	require.NoError(t, err)
	session, token, err := svc.CreateSession(user.ID, device.ID, "10.0.0.1")
	require.NoError(t, err)

	store.mu.Lock()
	past := time.Now().Add(-time.Minute)
	store.sessions[session.ID].ExpiresAt = &past
	store.mu.Unlock()

	_, _, err = svc.RefreshSession(session.ID, token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestRefreshSessionRevokedFailsClosed(t *testing.T) {
	_, svc, user := newSessionFixture(t)
	device, err := svc.RegisterDevice(user.ID, "laptop", "web")
	require.NoError(t, err)
	session, token, err := svc.CreateSession(user.ID, device.ID, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(session.ID))

	_, _, err = svc.RefreshSession(session.ID, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshSessionConcurrentSingleWinner(t *testing.T) {
	_, svc, user := newSessionFixture(t)
	device, err := svc.RegisterDevice(user.ID, "laptop", "web")
	require.NoError(t, err)
	session, token, err := svc.CreateSession(user.ID, device.ID, "10.0.0.1")
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.RefreshSession(session.ID, token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// 同一旧令牌并发轮换恰有一个成功，其余按令牌失效处理
	var succeeded, invalid int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInvalidToken):
			invalid++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, invalid)
}

func TestIssueAndConsumeCode(t *testing.T) {
	_, svc, user := newSessionFixture(t)

	_, value, err := svc.IssueCode(user.ID, model.CodeTypeVerify)
	require.NoError(t, err)
	require.NotEmpty(t, value)

	got, err := svc.ConsumeCode(value, model.CodeTypeVerify)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// 一次性：消费后即失效
	_, err = svc.ConsumeCode(value, model.CodeTypeVerify)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestConsumeCodeWrongType(t *testing.T) {
	_, svc, user := newSessionFixture(t)

	_, value, err := svc.IssueCode(user.ID, model.CodeTypeVerify)
	require.NoError(t, err)

	_, err = svc.ConsumeCode(value, model.CodeTypeResetPassword)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestReissueCodeInvalidatesOld(t *testing.T) {
	_, svc, user := newSessionFixture(t)

	_, first, err := svc.IssueCode(user.ID, model.CodeTypeResetPassword)
	require.NoError(t, err)
	_, second, err := svc.IssueCode(user.ID, model.CodeTypeResetPassword)
	require.NoError(t, err)

	_, err = svc.ConsumeCode(first, model.CodeTypeResetPassword)
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = svc.ConsumeCode(second, model.CodeTypeResetPassword)
	assert.NoError(t, err)
}

func TestConsumeExpiredCode(t *testing.T) {
	store, svc, user := newSessionFixture(t)

	code, value, err := svc.IssueCode(user.ID, model.CodeTypeVerify)
	require.NoError(t, err)

	store.mu.Lock()
	store.codes[code.ID].ExpiresAt = time.Now().Add(-time.Second)
	store.mu.Unlock()

	_, err = svc.ConsumeCode(value, model.CodeTypeVerify)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestIssueCodeUnknownType(t *testing.T) {
	_, svc, user := newSessionFixture(t)

	_, _, err := svc.IssueCode(user.ID, "MAGIC")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}
