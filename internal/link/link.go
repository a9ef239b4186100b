// Package link 在一个端口上运行读/写循环，并把接收字节流重组为 16 字节帧。
//
// 重组器与空闲计时器只由事件循环 goroutine 访问，Push 与超时刷新天然串行。
package link

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/afe-bench/internal/metrics"
	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
	"github.com/taoyao-code/afe-bench/internal/transport"
)

var (
	// ErrLinkClosed 链路已关闭
	ErrLinkClosed = errors.New("link closed")
	// ErrWriteTimeout 写队列满且超时
	ErrWriteTimeout = errors.New("write queue timeout")
)

// EventKind 接收事件类型
type EventKind int

const (
	EventFrame     EventKind = iota // 完整 16 字节帧
	EventRemainder                  // 空闲刷新输出的残帧，长度不足 16
)

func (k EventKind) String() string {
	if k == EventRemainder {
		return "remainder"
	}
	return "frame"
}

// Event 接收事件
type Event struct {
	Kind      EventKind
	Frame     afe.Frame // Kind == EventFrame
	Remainder []byte    // Kind == EventRemainder
	At        time.Time
}

// Handler 在事件循环 goroutine 中同步调用，不得阻塞或调用 Close
type Handler func(Event)

// Options 链路参数
type Options struct {
	IdleWindow   time.Duration
	QueueSize    int
	WriteTimeout time.Duration
	RatePerSec   int
	Burst        int
	Logger       *zap.Logger
	Metrics      *metrics.BenchMetrics
}

// Link 单端口读/写/重组循环
type Link struct {
	port    transport.Port
	opts    Options
	log     *zap.Logger
	handler Handler
	limiter *RateLimiter
	r       *afe.Reassembler

	ctx    context.Context
	cancel context.CancelFunc

	writeC   chan []byte
	readC    chan []byte
	doneC    chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	closed   atomic.Bool
	wg       sync.WaitGroup

	bytesIn    atomic.Int64
	bytesOut   atomic.Int64
	framesIn   atomic.Int64
	remainders atomic.Int64
	buffered   atomic.Int64
	lastErr    atomic.Value // error
}

// New 创建链路，调用 Start 后开始收发
func New(port transport.Port, handler Handler, opts Options) *Link {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Link{
		port:    port,
		opts:    opts,
		log:     log.With(zap.String("port", port.Name())),
		handler: handler,
		limiter: NewRateLimiter(opts.RatePerSec, opts.Burst),
		r:       afe.NewReassembler(opts.IdleWindow, nil),
		ctx:     ctx,
		cancel:  cancel,
		writeC:  make(chan []byte, opts.QueueSize),
		readC:   make(chan []byte, 16),
		doneC:   make(chan struct{}),
	}
}

// Name 端口名
func (l *Link) Name() string { return l.port.Name() }

// Start 启动读、写、事件循环（非阻塞）
func (l *Link) Start() {
	if l.closed.Load() || !l.started.CompareAndSwap(false, true) {
		return
	}
	if l.opts.Metrics != nil {
		l.opts.Metrics.LinkUp.Set(1)
	}
	l.wg.Add(3)
	go l.readLoop()
	go l.writeLoop()
	go l.eventLoop()
	go func() {
		l.wg.Wait()
		if l.opts.Metrics != nil {
			l.opts.Metrics.LinkUp.Set(0)
			l.opts.Metrics.QueueDepth.Set(0)
		}
		close(l.doneC)
	}()
	l.log.Info("link started", zap.Duration("idle_window", l.r.IdleWindow()))
}

// Write 异步写入，受写队列与写超时影响
func (l *Link) Write(ctx context.Context, b []byte) error {
	if l.closed.Load() {
		return ErrLinkClosed
	}
	// 复制一份，避免调用方复用底层切片
	dup := make([]byte, len(b))
	copy(dup, b)

	t := time.NewTimer(l.opts.WriteTimeout)
	defer t.Stop()
	select {
	case l.writeC <- dup:
		if l.opts.Metrics != nil {
			l.opts.Metrics.QueueDepth.Set(float64(len(l.writeC)))
		}
		return nil
	case <-t.C:
		return ErrWriteTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return ErrLinkClosed
	}
}

// Close 关闭端口并等待所有循环退出；残留字节作为余量交给 handler
func (l *Link) Close() error {
	l.stop(nil)
	if l.started.Load() {
		<-l.doneC
	}
	return nil
}

// Done 返回链路结束通知通道
func (l *Link) Done() <-chan struct{} { return l.doneC }

// Open 链路是否仍在运行
func (l *Link) Open() bool { return l.started.Load() && !l.closed.Load() }

// Err 导致链路结束的错误（主动关闭为 nil）
func (l *Link) Err() error {
	if v, ok := l.lastErr.Load().(error); ok {
		return v
	}
	return nil
}

func (l *Link) stop(cause error) {
	l.stopOnce.Do(func() {
		if cause != nil {
			l.lastErr.Store(cause)
		}
		l.closed.Store(true)
		l.cancel()
		if err := l.port.Close(); err != nil {
			l.log.Debug("close port", zap.Error(err))
		}
		if !l.started.Load() {
			close(l.doneC)
		}
	})
}

func (l *Link) readLoop() {
	defer l.wg.Done()
	defer close(l.readC)

	buf := make([]byte, 4096)
	for {
		n, err := l.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			l.bytesIn.Add(int64(n))
			if l.opts.Metrics != nil {
				l.opts.Metrics.BytesReceived.Add(float64(n))
			}
			select {
			case l.readC <- chunk:
			case <-l.ctx.Done():
				return
			}
		}
		if err != nil {
			if !l.closed.Load() {
				l.log.Warn("link read failed", zap.Error(err))
				l.stop(err)
			}
			return
		}
		// 串口读超时返回 0 字节
		if l.ctx.Err() != nil {
			return
		}
	}
}

func (l *Link) writeLoop() {
	defer l.wg.Done()
	type deadliner interface{ SetWriteDeadline(time.Time) error }

	for {
		select {
		case <-l.ctx.Done():
			return
		case msg := <-l.writeC:
			if l.opts.Metrics != nil {
				l.opts.Metrics.QueueDepth.Set(float64(len(l.writeC)))
			}
			waited, err := l.limiter.Take(l.ctx)
			if err != nil {
				return
			}
			if waited && l.opts.Metrics != nil {
				l.opts.Metrics.RateLimitedWaits.Inc()
			}
			if d, ok := l.port.(deadliner); ok {
				_ = d.SetWriteDeadline(time.Now().Add(l.opts.WriteTimeout))
			}
			n, err := l.port.Write(msg)
			l.bytesOut.Add(int64(n))
			if l.opts.Metrics != nil {
				l.opts.Metrics.BytesSent.Add(float64(n))
			}
			if err != nil {
				if l.opts.Metrics != nil {
					l.opts.Metrics.WriteErrors.Inc()
				}
				if !l.closed.Load() {
					l.log.Warn("link write failed", zap.Error(err))
					l.stop(err)
				}
				return
			}
		}
	}
}

// eventLoop 独占重组器与空闲计时器；每次收到字节都重启计时（不叠加）
func (l *Link) eventLoop() {
	defer l.wg.Done()

	idle := time.NewTimer(l.r.IdleWindow())
	idle.Stop()
	defer idle.Stop()
	var idleC <-chan time.Time

	for {
		select {
		case chunk, ok := <-l.readC:
			if !ok {
				l.flushRemainder()
				return
			}
			l.r.Push(chunk)
			for _, f := range l.r.ReadyFrames() {
				l.framesIn.Add(1)
				l.emit(Event{Kind: EventFrame, Frame: f, At: time.Now()})
			}
			if _, armed := l.r.Deadline(); armed {
				idle.Reset(l.r.IdleWindow())
				idleC = idle.C
			} else {
				idle.Stop()
				idleC = nil
			}
			l.buffered.Store(int64(l.r.Buffered()))
		case <-idleC:
			idleC = nil
			l.flushRemainder()
		}
	}
}

func (l *Link) flushRemainder() {
	rem, ok := l.r.OnIdleTimeout()
	l.buffered.Store(0)
	if !ok {
		return
	}
	l.remainders.Add(1)
	l.emit(Event{Kind: EventRemainder, Remainder: rem, At: time.Now()})
}

func (l *Link) emit(ev Event) {
	if l.handler != nil {
		l.handler(ev)
	}
}

// Stats 链路统计
type Stats struct {
	Name       string           `json:"name"`
	Open       bool             `json:"open"`
	BytesIn    int64            `json:"bytes_in"`
	BytesOut   int64            `json:"bytes_out"`
	FramesIn   int64            `json:"frames_in"`
	Remainders int64            `json:"remainders"`
	Buffered   int64            `json:"buffered"`
	QueueDepth int              `json:"queue_depth"`
	QueueSize  int              `json:"queue_size"`
	Limiter    RateLimiterStats `json:"limiter"`
}

// Stats 获取统计信息
func (l *Link) Stats() Stats {
	return Stats{
		Name:       l.port.Name(),
		Open:       l.Open(),
		BytesIn:    l.bytesIn.Load(),
		BytesOut:   l.bytesOut.Load(),
		FramesIn:   l.framesIn.Load(),
		Remainders: l.remainders.Load(),
		Buffered:   l.buffered.Load(),
		QueueDepth: len(l.writeC),
		QueueSize:  cap(l.writeC),
		Limiter:    l.limiter.Stats(),
	}
}
