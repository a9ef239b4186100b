package afe

// frameWriter 顺序写入帧字段并累计校验和，finish 统一写入第 15 字节。
// 未写入的数据位保持为 0。
type frameWriter struct {
	f   Frame
	pos int
	sum byte
}

func newFrameWriter() *frameWriter {
	w := &frameWriter{}
	w.put(Head1, Head2)
	return w
}

func (w *frameWriter) put(bs ...byte) *frameWriter {
	for _, b := range bs {
		if w.pos >= OffsetChecksum {
			panic("afe: frame payload overflow")
		}
		w.f[w.pos] = b
		w.sum += b
		w.pos++
	}
	return w
}

func (w *frameWriter) u16BE(v uint16) *frameWriter { return w.put(byte(v>>8), byte(v)) }

func (w *frameWriter) u16LE(v uint16) *frameWriter { return w.put(byte(v), byte(v>>8)) }

// appCmd 写入 00 00 + 16 位应用命令码
func (w *frameWriter) appCmd(code uint16) *frameWriter { return w.put(0, 0).u16BE(code) }

// seek 跳到指定偏移，中间字节保持为 0
func (w *frameWriter) seek(off int) *frameWriter {
	if off < w.pos || off > OffsetChecksum {
		panic("afe: invalid seek")
	}
	w.pos = off
	return w
}

func (w *frameWriter) finish() Frame {
	w.f[OffsetChecksum] = w.sum
	return w.f
}
