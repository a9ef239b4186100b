package afe

import "time"

// DefaultIdleWindow 残留字节的空闲刷新窗口。
// 这是尽力而为的分帧手段：16 字节定长是主要分帧依据，超时仅用于把不完整的尾部交给调用方。
const DefaultIdleWindow = 100 * time.Millisecond

// Clock 时间源，测试中可替换
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 系统时钟
var SystemClock Clock = systemClock{}

// State 重组状态
type State int

const (
	StateIdle         State = iota // 缓冲为空，计时器未运行
	StateAccumulating              // 缓冲有 1..15 字节，计时器运行
)

func (s State) String() string {
	if s == StateAccumulating {
		return "accumulating"
	}
	return "idle"
}

// Reassembler 把串口字节流切分为 16 字节帧；残留字节在空闲窗口后作为余量输出。
//
// 非并发安全：Push 与 OnIdleTimeout/PollRemainder 必须由同一个调用者串行调用。
type Reassembler struct {
	idle  time.Duration
	clock Clock

	buf      []byte
	ready    []Frame
	deadline time.Time
	armed    bool
}

// NewReassembler 创建重组器；idle<=0 时使用 DefaultIdleWindow，clock 为 nil 时使用系统时钟
func NewReassembler(idle time.Duration, clock Clock) *Reassembler {
	if idle <= 0 {
		idle = DefaultIdleWindow
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Reassembler{idle: idle, clock: clock}
}

// IdleWindow 当前空闲窗口
func (r *Reassembler) IdleWindow() time.Duration { return r.idle }

// Push 追加收到的字节，提取所有完整帧；有残留则重启空闲计时，否则停止计时
func (r *Reassembler) Push(chunk []byte) {
	r.buf = append(r.buf, chunk...)
	for len(r.buf) >= FrameLen {
		var f Frame
		copy(f[:], r.buf[:FrameLen])
		r.ready = append(r.ready, f)
		r.buf = r.buf[FrameLen:]
	}
	if len(r.buf) > 0 {
		r.deadline = r.clock.Now().Add(r.idle)
		r.armed = true
		return
	}
	r.buf = nil
	r.armed = false
}

// ReadyFrames 取走已就绪的完整帧
func (r *Reassembler) ReadyFrames() []Frame {
	out := r.ready
	r.ready = nil
	return out
}

// PollRemainder 空闲窗口已过且有残留时输出余量并清空缓冲
func (r *Reassembler) PollRemainder() ([]byte, bool) {
	if !r.armed || r.clock.Now().Before(r.deadline) {
		return nil, false
	}
	return r.OnIdleTimeout()
}

// OnIdleTimeout 计时器到期：输出残留字节（长度不保证为 16）并回到 Idle
func (r *Reassembler) OnIdleTimeout() ([]byte, bool) {
	r.armed = false
	if len(r.buf) == 0 {
		return nil, false
	}
	rem := make([]byte, len(r.buf))
	copy(rem, r.buf)
	r.buf = nil
	return rem, true
}

// Deadline 空闲刷新截止时间；未计时返回 false
func (r *Reassembler) Deadline() (time.Time, bool) { return r.deadline, r.armed }

// Buffered 当前残留字节数
func (r *Reassembler) Buffered() int { return len(r.buf) }

// State 当前状态
func (r *Reassembler) State() State {
	if len(r.buf) > 0 {
		return StateAccumulating
	}
	return StateIdle
}

// Reset 丢弃残留与未取走的帧
func (r *Reassembler) Reset() {
	r.buf = nil
	r.ready = nil
	r.armed = false
}
