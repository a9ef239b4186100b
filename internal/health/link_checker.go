package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/afe-bench/internal/link"
)

// StatsSource 提供链路统计
type StatsSource interface {
	Stats() link.Stats
}

// LinkChecker 链路健康检查器
type LinkChecker struct {
	src func() StatsSource
}

// NewLinkChecker 创建链路检查器；src 返回当前链路，未连接时返回 nil
func NewLinkChecker(src func() StatsSource) *LinkChecker {
	return &LinkChecker{src: src}
}

// Name 返回检查器名称
func (c *LinkChecker) Name() string {
	return "link"
}

// Check 执行健康检查
func (c *LinkChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	var s StatsSource
	if c.src != nil {
		s = c.src()
	}
	if s == nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "not connected",
			Latency: time.Since(start),
		}
	}

	st := s.Stats()
	details := map[string]any{
		"port":        st.Name,
		"bytes_in":    st.BytesIn,
		"bytes_out":   st.BytesOut,
		"frames_in":   st.FramesIn,
		"remainders":  st.Remainders,
		"buffered":    st.Buffered,
		"queue_depth": st.QueueDepth,
		"queue_size":  st.QueueSize,
		"delayed":     st.Limiter.DelayedTotal,
	}

	if !st.Open {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "link closed",
			Details: details,
			Latency: time.Since(start),
		}
	}

	status := StatusHealthy
	message := "ok"
	if st.QueueSize > 0 {
		utilization := float64(st.QueueDepth) / float64(st.QueueSize)
		details["queue_utilization"] = fmt.Sprintf("%.1f%%", utilization*100)
		if utilization > 0.8 {
			status = StatusDegraded
			message = "outbound queue backing up"
		}
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}
