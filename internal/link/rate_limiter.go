package link

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter 基于Token Bucket的下行帧限速器
type RateLimiter struct {
	limiter      *rate.Limiter
	ratePerSec   int
	burst        int
	immediate    atomic.Int64
	delayedCount atomic.Int64
}

// NewRateLimiter 创建限速器
// ratePerSec: 每秒允许发送的帧数；<=0 表示不限速
// burst: 突发容量（桶的大小）
func NewRateLimiter(ratePerSec int, burst int) *RateLimiter {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter:    rate.NewLimiter(limit, burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Take 取得一个令牌；令牌不足时阻塞等待，返回是否发生过等待
func (l *RateLimiter) Take(ctx context.Context) (bool, error) {
	if l.limiter.Allow() {
		l.immediate.Add(1)
		return false, nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return true, err
	}
	l.delayedCount.Add(1)
	return true, nil
}

// Stats 获取统计信息
func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		RatePerSecond:  l.ratePerSec,
		Burst:          l.burst,
		ImmediateTotal: l.immediate.Load(),
		DelayedTotal:   l.delayedCount.Load(),
	}
}

// RateLimiterStats 限速器统计信息
type RateLimiterStats struct {
	RatePerSecond  int   `json:"rate_per_second"`
	Burst          int   `json:"burst"`
	ImmediateTotal int64 `json:"immediate_total"`
	DelayedTotal   int64 `json:"delayed_total"`
}
