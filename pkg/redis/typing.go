package redis

import (
	"fmt"
	"time"
)

// 正在输入状态相关常量
const (
	TypingKeyPrefix = "chat:typing:" // 输入状态key前缀 chat:typing:<chatID>:<userID>
)

func typingKey(chatID, userID uint) string {
	return fmt.Sprintf("%s%d:%d", TypingKeyPrefix, chatID, userID)
}

// SetTyping 写入正在输入状态，TTL到期自动消失
// 重复上报只是刷新TTL，没有历史语义
func SetTyping(chatID, userID uint, ttl time.Duration) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return client.Set(ctx, typingKey(chatID, userID), time.Now().Unix(), ttl).Err()
}

// IsTyping 判断用户是否仍在输入
func IsTyping(chatID, userID uint) (bool, error) {
	if client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}
	exists, err := client.Exists(ctx, typingKey(chatID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("检查输入状态失败: %w", err)
	}
	return exists > 0, nil
}

// ClearTyping 主动清除输入状态（消息已发出时）
func ClearTyping(chatID, userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return client.Del(ctx, typingKey(chatID, userID)).Err()
}
