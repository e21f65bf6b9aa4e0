package redis

import (
	"fmt"
	"time"
)

// 房间未读计数相关常量
const (
	UnreadKeyPrefix = "chat:unread:" // 未读计数key前缀 chat:unread:<userID>:<roomID>
	UnreadTTL       = 7 * 24 * time.Hour
)

func unreadKey(userID, roomID uint) string {
	return fmt.Sprintf("%s%d:%d", UnreadKeyPrefix, userID, roomID)
}

// IncrementRoomUnread 递增用户在某房间的未读计数（消息扇出时调用）
func IncrementRoomUnread(userID, roomID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := unreadKey(userID, roomID)
	if err := client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("递增未读计数失败: %w", err)
	}

	// 设置TTL，避免计数无限滞留
	if err := client.Expire(ctx, key, UnreadTTL).Err(); err != nil {
		return fmt.Errorf("设置未读计数TTL失败: %w", err)
	}
	return nil
}

// DecrementRoomUnread 递减未读计数，归零或为负时直接删除key
func DecrementRoomUnread(userID, roomID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := unreadKey(userID, roomID)
	if err := client.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("递减未读计数失败: %w", err)
	}

	count, err := client.Get(ctx, key).Int64()
	if err == nil && count <= 0 {
		client.Del(ctx, key)
	}
	return nil
}

// GetRoomUnread 获取用户在某房间的未读计数
func GetRoomUnread(userID, roomID uint) (int64, error) {
	if client == nil {
		return 0, fmt.Errorf("redis客户端未初始化")
	}

	count, err := client.Get(ctx, unreadKey(userID, roomID)).Int64()
	if err != nil {
		// key不存在即无未读
		return 0, nil
	}
	return count, nil
}

// ResetRoomUnread 清零用户在某房间的未读计数
func ResetRoomUnread(userID, roomID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return client.Del(ctx, unreadKey(userID, roomID)).Err()
}
