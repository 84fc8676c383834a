package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== PublishRateLimiter 发布限流器 ====================

// PublishRateLimiter 手动发布冷却限流
// 同一 SKU 短时间内重复发布只会反复打 Feeds API 配额，这里在入口就拦掉
// 实例由启动时构造注入，不挂包级全局变量
type PublishRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewPublishRateLimiter 创建限流器
func NewPublishRateLimiter() *PublishRateLimiter {
	return &PublishRateLimiter{}
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时顺带记下本次时间
// key: 限流键，如 "publish:42:SKU-001"
// interval: 冷却间隔
func (r *PublishRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流 (发布失败后放行重试)
func (r *PublishRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// PublishKey 用户 + SKU 维度的限流键
func PublishKey(userID int64, sku string) string {
	return fmt.Sprintf("publish:%d:%s", userID, sku)
}

// DefaultPublishInterval 同一 SKU 的默认发布冷却
const DefaultPublishInterval = 2 * time.Minute
