package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"chat-service/internal/model"

	"gorm.io/gorm"
)

// memStore 测试用内存存储，同时实现各持久化边界接口
// 锁内模拟数据库的唯一约束与条件更新语义
type memStore struct {
	mu sync.Mutex

	nextID uint

	users     map[uint]*model.User
	devices   map[uint]*model.UserDevice
	sessions  map[uint]*model.Session
	codes     map[uint]*model.Code
	rooms     map[uint]*model.Room
	members   map[uint]*model.Member
	messages  map[uint]*model.Message
	receipts  map[uint]*model.ReadReceipt
	reactions map[uint]*model.MessageReaction
	typings   map[uint]*model.TypingStatus
	requests  map[uint]*model.FriendRequest
	friends   map[uint]*model.Friendship
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uint]*model.User),
		devices:   make(map[uint]*model.UserDevice),
		sessions:  make(map[uint]*model.Session),
		codes:     make(map[uint]*model.Code),
		rooms:     make(map[uint]*model.Room),
		members:   make(map[uint]*model.Member),
		messages:  make(map[uint]*model.Message),
		receipts:  make(map[uint]*model.ReadReceipt),
		reactions: make(map[uint]*model.MessageReaction),
		typings:   make(map[uint]*model.TypingStatus),
		requests:  make(map[uint]*model.FriendRequest),
		friends:   make(map[uint]*model.Friendship),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

// ---------- UserStore ----------

func (s *memStore) seedUser(username string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &model.User{ID: s.id(), Username: username, Status: "offline", LastSeen: time.Now()}
	s.users[user.ID] = user
	return user
}

func (s *memStore) GetByID(id uint) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *memStore) GetByUsernameOrEmail(identifier string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == identifier || (user.Email != "" && user.Email == identifier) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) UpdateStatus(userID uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.Status = status
		if status != "online" {
			user.LastSeen = time.Now()
		}
	}
	return nil
}

func (s *memStore) TouchLastSeen(userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.LastSeen = time.Now()
	}
	return nil
}

func (s *memStore) MarkVerified(userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.IsVerified = true
	}
	return nil
}

func (s *memStore) UpdatePasswordHash(userID uint, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.PasswordHash = hash
	}
	return nil
}

// userStore 拆出独立的 Create(user) 以满足 UserStore 接口
type userStore struct{ *memStore }

func (s userStore) Create(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
		if user.Email != "" && existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = s.id()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// ---------- SessionStore ----------

func (s *memStore) CreateDevice(device *model.UserDevice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.devices {
		if existing.UserID == device.UserID && existing.DeviceName == device.DeviceName {
			return gorm.ErrDuplicatedKey
		}
	}
	device.ID = s.id()
	cp := *device
	s.devices[device.ID] = &cp
	return nil
}

func (s *memStore) GetDevice(userID, deviceID uint) (*model.UserDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[deviceID]
	if !ok || device.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *device
	return &cp, nil
}

func (s *memStore) GetDeviceByName(userID uint, deviceName string) (*model.UserDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, device := range s.devices {
		if device.UserID == userID && device.DeviceName == deviceName {
			cp := *device
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) TouchDevice(deviceID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if device, ok := s.devices[deviceID]; ok {
		device.LastUsedAt = time.Now()
	}
	return nil
}

func (s *memStore) UpsertSession(session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.UserID == session.UserID && existing.UserDeviceID == session.UserDeviceID {
			existing.RefreshTokenHash = session.RefreshTokenHash
			existing.IP = session.IP
			existing.ExpiresAt = session.ExpiresAt
			session.ID = existing.ID
			return nil
		}
	}
	session.ID = s.id()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *memStore) GetSessionByID(sessionID uint) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *memStore) RotateSessionToken(sessionID uint, oldHash, newHash string, expiresAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.RefreshTokenHash != oldHash {
		return false, nil
	}
	session.RefreshTokenHash = newHash
	session.ExpiresAt = expiresAt
	return true, nil
}

func (s *memStore) DeleteSession(sessionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *memStore) ListSessionsByUser(userID uint) ([]*model.Session, error) {
	return s.ListSessionsByUsers([]uint{userID})
}

func (s *memStore) ListSessionsByUsers(userIDs []uint) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []*model.Session
	for _, session := range s.sessions {
		if want[session.UserID] {
			cp := *session
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpsertCode(code *model.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.codes {
		if existing.UserID == code.UserID && existing.Type == code.Type {
			existing.Value = code.Value
			existing.ExpiresAt = code.ExpiresAt
			code.ID = existing.ID
			return nil
		}
	}
	code.ID = s.id()
	cp := *code
	s.codes[code.ID] = &cp
	return nil
}

func (s *memStore) GetCodeByValue(valueHash, codeType string) (*model.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range s.codes {
		if code.Value == valueHash && code.Type == codeType {
			cp := *code
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) DeleteCode(codeID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, codeID)
	return nil
}

// ---------- RoomStore ----------

// roomStore 拆出独立的 Create(room) 以满足 RoomStore 接口
type roomStore struct{ *memStore }

func (s roomStore) Create(room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room.ID = s.id()
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *memStore) seedRoom(authorID uint, memberIDs ...uint) *model.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := &model.Room{AuthorID: authorID}
	room.ID = s.id()
	room.Link = fmt.Sprintf("link-%d", room.ID)
	s.rooms[room.ID] = room
	for _, userID := range append([]uint{authorID}, memberIDs...) {
		member := &model.Member{ID: s.id(), UserID: userID, RoomID: room.ID}
		s.members[member.ID] = member
	}
	return room
}

func (s *memStore) roomGetByID(roomID uint) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *room
	return &cp, nil
}

func (s roomStore) GetByID(roomID uint) (*model.Room, error) {
	return s.roomGetByID(roomID)
}

func (s *memStore) GetByLink(link string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.Link == link {
			cp := *room
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) AddMember(member *model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.UserID == member.UserID && existing.RoomID == member.RoomID {
			return gorm.ErrDuplicatedKey
		}
	}
	member.ID = s.id()
	cp := *member
	s.members[member.ID] = &cp
	return nil
}

func (s *memStore) RemoveMember(roomID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, member := range s.members {
		if member.RoomID == roomID && member.UserID == userID {
			delete(s.members, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) IsMember(roomID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range s.members {
		if member.RoomID == roomID && member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListMemberIDs(roomID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint
	for _, member := range s.members {
		if member.RoomID == roomID {
			out = append(out, member.UserID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memStore) CountMembers(roomID uint) (int64, error) {
	ids, _ := s.ListMemberIDs(roomID)
	return int64(len(ids)), nil
}

func (s *memStore) ListRoomIDsByUser(userID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint
	for _, member := range s.members {
		if member.UserID == userID {
			out = append(out, member.RoomID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memStore) IncrementTotalMessage(roomID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		room.TotalMessage++
	}
	return nil
}

func (s *memStore) ListUsersSharingRoom(userID uint) ([]uint, error) {
	roomIDs, _ := s.ListRoomIDsByUser(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	inRooms := make(map[uint]bool, len(roomIDs))
	for _, id := range roomIDs {
		inRooms[id] = true
	}
	seen := make(map[uint]bool)
	var out []uint
	for _, member := range s.members {
		if inRooms[member.RoomID] && member.UserID != userID && !seen[member.UserID] {
			seen[member.UserID] = true
			out = append(out, member.UserID)
		}
	}
	return out, nil
}

// ---------- MessageStore ----------

// messageStore 拆出独立的 Create/GetByID 以满足 MessageStore 接口
type messageStore struct{ *memStore }

func (s messageStore) Create(message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	message.ID = s.id()
	message.CreatedAt = time.Now()
	cp := *message
	s.messages[message.ID] = &cp
	return nil
}

func (s messageStore) GetByID(messageID uint) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.messages[messageID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *message
	return &cp, nil
}

func (s *memStore) GetInRoom(messageID, roomID uint) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.messages[messageID]
	if !ok || message.RoomID != roomID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *message
	return &cp, nil
}

func (s *memStore) ListByRoom(roomID uint, limit, offset int) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*model.Message
	for _, message := range s.messages {
		if message.RoomID == roomID {
			cp := *message
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *memStore) DeleteOwn(messageID, senderID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.messages[messageID]
	if !ok || message.SenderID != senderID {
		return false, nil
	}
	delete(s.messages, messageID)
	return true, nil
}

func (s *memStore) UpdateContent(messageID, senderID uint, content string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.messages[messageID]
	if !ok || message.SenderID != senderID {
		return false, nil
	}
	message.Content = content
	return true, nil
}

// ---------- ReceiptStore ----------

func (s *memStore) UpsertReceipt(messageID, userID uint, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.receipts {
		if existing.MessageID == messageID && existing.UserID == userID {
			existing.ReadAt = readAt
			return nil
		}
	}
	receipt := &model.ReadReceipt{ID: s.id(), MessageID: messageID, UserID: userID, ReadAt: readAt}
	s.receipts[receipt.ID] = receipt
	return nil
}

func (s *memStore) ListReceiptsByMessage(messageID uint) ([]*model.ReadReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ReadReceipt
	for _, receipt := range s.receipts {
		if receipt.MessageID == messageID {
			cp := *receipt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ToggleReaction(messageID, userID uint, emoji string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, reaction := range s.reactions {
		if reaction.MessageID == messageID && reaction.UserID == userID && reaction.Emoji == emoji {
			delete(s.reactions, id)
			return false, nil
		}
	}
	reaction := &model.MessageReaction{ID: s.id(), MessageID: messageID, UserID: userID, Emoji: emoji}
	s.reactions[reaction.ID] = reaction
	return true, nil
}

func (s *memStore) ListReactionsByMessage(messageID uint) ([]*model.MessageReaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.MessageReaction
	for _, reaction := range s.reactions {
		if reaction.MessageID == messageID {
			cp := *reaction
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpsertTyping(chatID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.typings {
		if existing.ChatID == chatID && existing.UserID == userID {
			existing.CreatedAt = time.Now()
			return nil
		}
	}
	typing := &model.TypingStatus{ID: s.id(), ChatID: chatID, UserID: userID, CreatedAt: time.Now()}
	s.typings[typing.ID] = typing
	return nil
}

// ---------- FriendStore ----------

func (s *memStore) CreateRequest(request *model.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.SenderID == request.SenderID && existing.ReceiverID == request.ReceiverID {
			return gorm.ErrDuplicatedKey
		}
	}
	request.ID = s.id()
	if request.Status == "" {
		request.Status = model.FriendRequestPending
	}
	cp := *request
	s.requests[request.ID] = &cp
	return nil
}

func (s *memStore) GetRequestByID(requestID uint) (*model.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *request
	return &cp, nil
}

func (s *memStore) GetRequestBetween(a, b uint) (*model.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, request := range s.requests {
		if (request.SenderID == a && request.ReceiverID == b) ||
			(request.SenderID == b && request.ReceiverID == a) {
			cp := *request
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) ResolveRequest(requestID uint, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok || request.Status != model.FriendRequestPending {
		return false, nil
	}
	request.Status = status
	return true, nil
}

func (s *memStore) CreateFriendship(friendship *model.Friendship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.friends {
		if existing.User1ID == friendship.User1ID && existing.User2ID == friendship.User2ID {
			return gorm.ErrDuplicatedKey
		}
	}
	friendship.ID = s.id()
	cp := *friendship
	s.friends[friendship.ID] = &cp
	return nil
}

func (s *memStore) GetFriendship(a, b uint) (*model.Friendship, error) {
	u1, u2 := model.CanonicalPair(a, b)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, friendship := range s.friends {
		if friendship.User1ID == u1 && friendship.User2ID == u2 {
			cp := *friendship
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) DeleteFriendship(a, b uint) (bool, error) {
	u1, u2 := model.CanonicalPair(a, b)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, friendship := range s.friends {
		if friendship.User1ID == u1 && friendship.User2ID == u2 {
			delete(s.friends, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListFriendIDs(userID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint
	for _, friendship := range s.friends {
		if friendship.User1ID == userID {
			out = append(out, friendship.User2ID)
		} else if friendship.User2ID == userID {
			out = append(out, friendship.User1ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memStore) ListPendingRequests(receiverID uint) ([]*model.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.FriendRequest
	for _, request := range s.requests {
		if request.ReceiverID == receiverID && request.Status == model.FriendRequestPending {
			cp := *request
			out = append(out, &cp)
		}
	}
	return out, nil
}

// captureDeliverer 记录投递调用的测试替身
type captureDeliverer struct {
	mu        sync.Mutex
	delivered []delivered
}

type delivered struct {
	sessionID uint
	envelope  *Envelope
}

func (d *captureDeliverer) Deliver(sessionID uint, envelope *Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, delivered{sessionID: sessionID, envelope: envelope})
}

func (d *captureDeliverer) Subscribe(roomID, sessionID uint)   {}
func (d *captureDeliverer) Unsubscribe(roomID, sessionID uint) {}

func (d *captureDeliverer) sessionIDs() []uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint, 0, len(d.delivered))
	for _, item := range d.delivered {
		out = append(out, item.sessionID)
	}
	return out
}

func (d *captureDeliverer) envelopes() []*Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Envelope, 0, len(d.delivered))
	for _, item := range d.delivered {
		out = append(out, item.envelope)
	}
	return out
}

func (d *captureDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}
