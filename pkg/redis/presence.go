package redis

import (
	"encoding/json"
	"fmt"
	"time"
)

// PresenceData 在线状态数据
type PresenceData struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	Status   string    `json:"status"` // online/offline
	LastSeen time.Time `json:"last_seen"`
}

// 在线状态相关常量
const (
	PresenceKeyPrefix = "chat:presence:user:" // 用户在线状态key前缀
	OnlineUsersKey    = "chat:online:users"   // 在线用户集合key
	PresenceTTL       = 2 * time.Minute       // 在线状态TTL（2倍心跳周期）
)

func presenceKey(userID uint) string {
	return fmt.Sprintf("%s%d", PresenceKeyPrefix, userID)
}

// SetUserPresence 设置用户在线状态（带TTL），并维护在线用户集合
func SetUserPresence(userID uint, username string, status string) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	presence := PresenceData{
		UserID:   userID,
		Username: username,
		Status:   status,
		LastSeen: time.Now(),
	}
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("序列化在线状态失败: %w", err)
	}

	if err := Set(presenceKey(userID), data, PresenceTTL); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}

	if status == "online" {
		err = client.SAdd(ctx, OnlineUsersKey, userID).Err()
	} else {
		err = client.SRem(ctx, OnlineUsersKey, userID).Err()
	}
	if err != nil {
		return fmt.Errorf("更新在线用户集合失败: %w", err)
	}
	return nil
}

// GetUserPresence 获取用户在线状态
func GetUserPresence(userID uint) (*PresenceData, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	data, err := Get(presenceKey(userID))
	if err != nil {
		return nil, fmt.Errorf("获取用户在线状态失败: %w", err)
	}

	var presence PresenceData
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("反序列化在线状态失败: %w", err)
	}
	return &presence, nil
}

// IsUserOnline 检查用户是否在线（key存在即在线，过期即离线）
func IsUserOnline(userID uint) (bool, error) {
	if client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}

	exists, err := Exists(presenceKey(userID))
	if err != nil {
		return false, fmt.Errorf("检查用户在线状态失败: %w", err)
	}
	return exists > 0, nil
}

// GetOnlineUsers 获取所有在线用户ID列表
func GetOnlineUsers() ([]uint, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	members, err := client.SMembers(ctx, OnlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取在线用户列表失败: %w", err)
	}

	var userIDs []uint
	for _, member := range members {
		var userID uint
		if _, err := fmt.Sscanf(member, "%d", &userID); err == nil {
			userIDs = append(userIDs, userID)
		}
	}
	return userIDs, nil
}

// GetOnlineUsersWithDetails 获取在线用户详细信息
// TTL已过期的成员顺手从集合中移除
func GetOnlineUsersWithDetails() ([]PresenceData, error) {
	userIDs, err := GetOnlineUsers()
	if err != nil {
		return nil, err
	}

	var presences []PresenceData
	for _, userID := range userIDs {
		presence, err := GetUserPresence(userID)
		if err != nil {
			client.SRem(ctx, OnlineUsersKey, userID)
			continue
		}
		presences = append(presences, *presence)
	}
	return presences, nil
}

// RefreshUserPresence 刷新用户在线状态（延长TTL）
func RefreshUserPresence(userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	exists, err := Exists(presenceKey(userID))
	if err != nil {
		return fmt.Errorf("检查用户状态失败: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("用户不在线")
	}

	if err := Expire(presenceKey(userID), PresenceTTL); err != nil {
		return fmt.Errorf("刷新用户在线状态失败: %w", err)
	}
	return nil
}

// RemoveUserPresence 移除用户在线状态
func RemoveUserPresence(userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	if err := Del(presenceKey(userID)); err != nil {
		return fmt.Errorf("删除用户在线状态失败: %w", err)
	}
	if err := client.SRem(ctx, OnlineUsersKey, userID).Err(); err != nil {
		return fmt.Errorf("从在线用户集合移除失败: %w", err)
	}
	return nil
}
