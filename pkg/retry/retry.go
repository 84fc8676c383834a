package retry

import (
	"context"
	"time"
)

// ==================== 有界重试策略 ====================

// Policy 可注入、可单测的重试策略
// MaxAttempts 含首次调用；Sleep 可替换成假实现，测试时不用真等
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable 判定某个错误是否值得重试，nil 表示全部重试
	Retryable func(error) bool

	// Sleep 默认 time.Sleep，测试注入假时钟
	Sleep func(time.Duration)
}

// DefaultPolicy 默认策略: 最多 4 次尝试(首发+3次重试)，指数退避封顶 60s
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// Delay 第 attempt 次失败后的等待时长 (attempt 从 1 开始)
// 指数退避: base * 2^(attempt-1)，封顶 MaxDelay
func (p *Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do 顺序执行 fn 直到成功、不可重试或次数用尽
// 返回最后一次的错误；attempts 为实际尝试次数，供调用方记录
func (p *Policy) Do(ctx context.Context, fn func() error) (attempts int, err error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for attempts = 1; ; attempts++ {
		err = fn()
		if err == nil {
			return attempts, nil
		}

		// 不可重试的错误类立即放弃
		if p.Retryable != nil && !p.Retryable(err) {
			return attempts, err
		}

		if attempts >= p.MaxAttempts {
			return attempts, err
		}

		// 上下文取消时不再等待
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		default:
		}

		sleep(p.Delay(attempts))
	}
}
