package service

import (
	"errors"
	"sync"
	"testing"

	"chat-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFriendFixture(t *testing.T) (*memStore, *FriendService, *captureDeliverer) {
	t.Helper()
	store := newMemStore()
	deliverer := &captureDeliverer{}
	svc := NewFriendService(store, userStore{store}, store, deliverer)
	return store, svc, deliverer
}

func TestSendRequestValidation(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")

	_, err := svc.SendRequest(alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfRequest)

	_, err = svc.SendRequest(alice.ID, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSendRequestDuplicateEitherDirection(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")

	_, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendRequest(alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// 反向请求同样被视为重复
	_, err = svc.SendRequest(bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestAcceptCreatesCanonicalFriendship(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")

	// 大ID向小ID发起，存储仍是小ID在前
	request, err := svc.SendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	resolved, err := svc.Respond(request.ID, alice.ID, model.FriendRequestAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.FriendRequestAccepted, resolved.Status)

	friendship, err := store.GetFriendship(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, friendship.User1ID)
	assert.Equal(t, bob.ID, friendship.User2ID)

	// 已是好友后不允许再次发起
	_, err = svc.SendRequest(alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestRespondValidation(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")
	carol := store.seedUser("carol")

	request, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Respond(request.ID, bob.ID, "MAYBE")
	assert.ErrorIs(t, err, ErrInvalidDecision)

	// 发起者与旁观者都无权处理
	_, err = svc.Respond(request.ID, alice.ID, model.FriendRequestAccepted)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.Respond(request.ID, carol.ID, model.FriendRequestAccepted)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Respond(9999, bob.ID, model.FriendRequestAccepted)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRespondTerminalStateSticks(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")

	request, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Respond(request.ID, bob.ID, model.FriendRequestRejected)
	require.NoError(t, err)

	// 终态不回退：再处理报已处理，接受也无法复活
	_, err = svc.Respond(request.ID, bob.ID, model.FriendRequestAccepted)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = store.GetFriendship(alice.ID, bob.ID)
	assert.Error(t, err)

	// 拒绝后的历史记录仍挡住新请求
	_, err = svc.SendRequest(alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestRespondConcurrentSingleWinner(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")

	request, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := model.FriendRequestAccepted
			if i%2 == 1 {
				decision = model.FriendRequestRejected
			}
			_, err := svc.Respond(request.ID, bob.ID, decision)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, alreadyResolved int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyResolved):
			alreadyResolved++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, alreadyResolved)

	// 好友边至多一条
	store.mu.Lock()
	assert.LessOrEqual(t, len(store.friends), 1)
	store.mu.Unlock()
}

func TestUnfriend(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")

	request, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Respond(request.ID, bob.ID, model.FriendRequestAccepted)
	require.NoError(t, err)

	// 任一方向都可解除
	require.NoError(t, svc.Unfriend(bob.ID, alice.ID))

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Unfriend(alice.ID, bob.ID), ErrFriendshipNotFound)
}

func TestListFriendsSymmetric(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")
	carol := store.seedUser("carol")

	for _, pair := range [][2]uint{{alice.ID, bob.ID}, {carol.ID, alice.ID}} {
		request, err := svc.SendRequest(pair[0], pair[1])
		require.NoError(t, err)
		_, err = svc.Respond(request.ID, pair[1], model.FriendRequestAccepted)
		require.NoError(t, err)
	}

	friends, err := svc.ListFriends(alice.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(friends))
	for _, friend := range friends {
		names = append(names, friend.Username)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	friends, err = svc.ListFriends(bob.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "alice", friends[0].Username)
}

func TestListPendingRequests(t *testing.T) {
	store, svc, _ := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")
	carol := store.seedUser("carol")

	_, err := svc.SendRequest(alice.ID, carol.ID)
	require.NoError(t, err)
	request, err := svc.SendRequest(bob.ID, carol.ID)
	require.NoError(t, err)

	pending, err := svc.ListPendingRequests(carol.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = svc.Respond(request.ID, carol.ID, model.FriendRequestAccepted)
	require.NoError(t, err)

	pending, err = svc.ListPendingRequests(carol.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, alice.ID, pending[0].SenderID)
}

func TestFriendEventsDelivered(t *testing.T) {
	store, svc, deliverer := newFriendFixture(t)
	alice := store.seedUser("alice")
	bob := store.seedUser("bob")

	bobSession := &model.Session{UserID: bob.ID, UserDeviceID: 1}
	require.NoError(t, store.UpsertSession(bobSession))
	aliceSession := &model.Session{UserID: alice.ID, UserDeviceID: 2}
	require.NoError(t, store.UpsertSession(aliceSession))

	request, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	// 请求事件推给接收方
	assert.Equal(t, []uint{bobSession.ID}, deliverer.sessionIDs())

	_, err = svc.Respond(request.ID, bob.ID, model.FriendRequestAccepted)
	require.NoError(t, err)
	// 处理结果推给发起方
	assert.Equal(t, []uint{bobSession.ID, aliceSession.ID}, deliverer.sessionIDs())
}
