package repository

import (
	"chat-service/internal/model"

	"gorm.io/gorm"
)

// FriendRepository 好友请求与好友关系仓储
type FriendRepository struct {
	db *gorm.DB
}

// NewFriendRepository 创建FriendRepository实例
func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// CreateRequest 创建好友请求，同序对重复由唯一键冲突拦截
func (r *FriendRepository) CreateRequest(request *model.FriendRequest) error {
	return r.db.Create(request).Error
}

// GetRequestByID 根据ID获取好友请求
func (r *FriendRepository) GetRequestByID(requestID uint) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.First(&req, requestID).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestBetween 获取两个用户间任一方向的请求
func (r *FriendRepository) GetRequestBetween(a, b uint) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.db.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		a, b, b, a,
	).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ResolveRequest 条件状态转移（CAS）
// 仅当请求仍为 PENDING 时写入终态，返回是否转移成功
// 两个并发 respond 只有一个能赢，另一个拿到 false
func (r *FriendRepository) ResolveRequest(requestID uint, status string) (bool, error) {
	res := r.db.Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", requestID, model.FriendRequestPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateFriendship 创建好友边，调用方保证 User1ID < User2ID
func (r *FriendRepository) CreateFriendship(friendship *model.Friendship) error {
	return r.db.Create(friendship).Error
}

// GetFriendship 获取好友边，入参顺序不限
func (r *FriendRepository) GetFriendship(a, b uint) (*model.Friendship, error) {
	u1, u2 := model.CanonicalPair(a, b)
	var f model.Friendship
	if err := r.db.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFriendship 删除好友边，返回是否确有删除
func (r *FriendRepository) DeleteFriendship(a, b uint) (bool, error) {
	u1, u2 := model.CanonicalPair(a, b)
	res := r.db.Where("user1_id = ? AND user2_id = ?", u1, u2).
		Delete(&model.Friendship{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListFriendIDs 获取用户的全部好友ID
func (r *FriendRepository) ListFriendIDs(userID uint) ([]uint, error) {
	var friendships []*model.Friendship
	err := r.db.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(friendships))
	for _, f := range friendships {
		if f.User1ID == userID {
			ids = append(ids, f.User2ID)
		} else {
			ids = append(ids, f.User1ID)
		}
	}
	return ids, nil
}

// ListPendingRequests 获取用户收到的待处理请求
func (r *FriendRepository) ListPendingRequests(receiverID uint) ([]*model.FriendRequest, error) {
	var requests []*model.FriendRequest
	err := r.db.Where("receiver_id = ? AND status = ?", receiverID, model.FriendRequestPending).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}
