// Package health 台架健康检查：链路、发送队列、接收缓冲
package health

import (
	"context"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"   // 健康
	StatusDegraded  Status = "degraded"  // 降级（仍可收发）
	StatusUnhealthy Status = "unhealthy" // 不健康（链路不可用）
)

// CheckResult 健康检查结果
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 健康检查器接口
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckerFunc 函数式检查器
type CheckerFunc struct {
	N  string
	Fn func(ctx context.Context) CheckResult
}

// Name 检查器名称
func (c CheckerFunc) Name() string { return c.N }

// Check 执行检查
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }
