package script

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
)

// Sender 帧发送方（bench.Bench）
type Sender interface {
	Send(ctx context.Context, kind afe.Kind, f afe.Frame) error
}

// Result 执行结果
type Result struct {
	Scenario string        `json:"scenario"`
	Sent     int           `json:"sent"`
	Rounds   int           `json:"rounds"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Runner 场景执行器
type Runner struct {
	sender Sender
	log    *zap.Logger
}

// NewRunner 创建执行器
func NewRunner(sender Sender, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{sender: sender, log: log}
}

// Run 顺序执行场景；任一步发送失败或 ctx 取消即停止
func (r *Runner) Run(ctx context.Context, s *Scenario) (res Result, err error) {
	res.Scenario = s.Name
	steps, err := s.compile()
	if err != nil {
		return res, err
	}

	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	r.log.Info("scenario started",
		zap.String("scenario", s.Name),
		zap.Int("steps", len(steps)),
		zap.Int("repeat", s.repeat()))

	for round := 0; round < s.repeat(); round++ {
		for i, st := range steps {
			if st.isPause() {
				if err := sleep(ctx, st.pause); err != nil {
					return res, err
				}
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := r.sender.Send(ctx, st.kind, st.frame); err != nil {
				r.log.Warn("scenario step failed",
					zap.String("scenario", s.Name),
					zap.Int("step", i+1),
					zap.String("name", st.name),
					zap.Error(err))
				return res, fmt.Errorf("step %d (%s): %w", i+1, st.name, err)
			}
			res.Sent++
		}
		res.Rounds++
	}

	r.log.Info("scenario finished",
		zap.String("scenario", s.Name),
		zap.Int("sent", res.Sent),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
