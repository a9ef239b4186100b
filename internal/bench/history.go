package bench

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
)

// Direction 收发方向
type Direction string

const (
	DirTX Direction = "tx"
	DirRX Direction = "rx"
)

// ParseDirection 解析方向；空串表示全部
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DirTX, DirRX:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Record 一条收发记录
type Record struct {
	Seq     uint64       `json:"seq"`
	At      time.Time    `json:"at"`
	Dir     Direction    `json:"dir"`
	Kind    string       `json:"kind"` // 帧类别，或 remainder
	Hex     string       `json:"hex"`
	Decoded *afe.Decoded `json:"decoded,omitempty"`
}

// History 定长环形记录
type History struct {
	mu   sync.RWMutex
	size int
	seq  uint64
	buf  []Record
}

// NewHistory 创建记录；size<=0 时保留 500 条
func NewHistory(size int) *History {
	if size <= 0 {
		size = 500
	}
	return &History{size: size}
}

// Add 追加记录，超出容量时丢弃最旧的
func (h *History) Add(r Record) Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	r.Seq = h.seq
	h.buf = append(h.buf, r)
	if len(h.buf) > h.size {
		h.buf = append(h.buf[:0:0], h.buf[len(h.buf)-h.size:]...)
	}
	return r
}

// List 按时间顺序返回记录；dir 为空时返回全部
func (h *History) List(dir Direction) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Record, 0, len(h.buf))
	for _, r := range h.buf {
		if dir == "" || r.Dir == dir {
			out = append(out, r)
		}
	}
	return out
}

// Clear 清除指定方向的记录；dir 为空时全部清除
func (h *History) Clear(dir Direction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if dir == "" {
		h.buf = nil
		return
	}
	kept := h.buf[:0]
	for _, r := range h.buf {
		if r.Dir != dir {
			kept = append(kept, r)
		}
	}
	h.buf = kept
}
