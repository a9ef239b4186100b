// Package bench 把帧构建、链路发送与接收显示串在一起，对应一条连接上的测试会话。
package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/afe-bench/internal/link"
	"github.com/taoyao-code/afe-bench/internal/metrics"
	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
)

// ErrNotConnected 尚未绑定链路
var ErrNotConnected = errors.New("bench not connected")

// Sender 具有写能力的链路
type Sender interface {
	Write(ctx context.Context, b []byte) error
}

// Bench 测试会话
type Bench struct {
	id      string
	log     *zap.Logger
	metrics *metrics.BenchMetrics
	history *History

	mu     sync.RWMutex
	sender Sender
}

// Options 会话参数
type Options struct {
	Logger      *zap.Logger
	Metrics     *metrics.BenchMetrics
	HistorySize int
}

// New 创建会话，生成会话 ID
func New(opts Options) *Bench {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New().String()
	return &Bench{
		id:      id,
		log:     log.With(zap.String("session", id[:8])),
		metrics: opts.Metrics,
		history: NewHistory(opts.HistorySize),
	}
}

// ID 会话 ID
func (b *Bench) ID() string { return b.id }

// Attach 绑定（或替换）发送链路
func (b *Bench) Attach(s Sender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
}

// Connected 是否已绑定链路
func (b *Bench) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sender != nil
}

// History 收发记录
func (b *Bench) History() *History { return b.history }

// Send 发送一帧并记录 TX
func (b *Bench) Send(ctx context.Context, kind afe.Kind, f afe.Frame) error {
	b.mu.RLock()
	s := b.sender
	b.mu.RUnlock()
	if s == nil {
		return ErrNotConnected
	}
	if err := s.Write(ctx, f[:]); err != nil {
		if b.metrics != nil {
			b.metrics.WriteErrors.Inc()
		}
		return fmt.Errorf("send %s: %w", kind, err)
	}
	if b.metrics != nil {
		b.metrics.FramesSent.WithLabelValues(string(kind)).Inc()
	}
	b.history.Add(Record{At: time.Now(), Dir: DirTX, Kind: string(kind), Hex: f.String()})
	b.log.Info("TX: "+f.String(), zap.String("kind", string(kind)))
	return nil
}

// HandleEvent 链路接收回调：完整帧拆解校验后记录，残帧单独标记。
// 校验失败只记录与计数，不拒收。
func (b *Bench) HandleEvent(ev link.Event) {
	switch ev.Kind {
	case link.EventFrame:
		d := afe.Inspect(ev.Frame)
		result := "ok"
		switch {
		case !d.HeaderOK:
			result = "bad_header"
		case !d.ChecksumOK:
			result = "bad_checksum"
		}
		if b.metrics != nil {
			b.metrics.FramesReceived.WithLabelValues(result).Inc()
			if d.PECOK != nil && !*d.PECOK {
				b.metrics.PECMismatch.Inc()
			}
		}
		b.history.Add(Record{At: ev.At, Dir: DirRX, Kind: string(d.Kind), Hex: ev.Frame.String(), Decoded: &d})

		fields := []zap.Field{zap.String("kind", string(d.Kind)), zap.String("result", result)}
		if d.PECOK != nil {
			fields = append(fields, zap.Bool("pec_ok", *d.PECOK))
		}
		if result != "ok" || (d.PECOK != nil && !*d.PECOK) {
			b.log.Warn("RX: "+ev.Frame.String(), fields...)
			return
		}
		b.log.Info("RX: "+ev.Frame.String(), fields...)

	case link.EventRemainder:
		if b.metrics != nil {
			b.metrics.Remainders.Inc()
		}
		hex := afe.HexString(ev.Remainder)
		b.history.Add(Record{At: ev.At, Dir: DirRX, Kind: link.EventRemainder.String(), Hex: hex})
		b.log.Warn("RX (Rem): "+hex, zap.Int("len", len(ev.Remainder)))
	}
}
