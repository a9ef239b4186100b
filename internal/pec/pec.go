// Package pec 实现电池监测 AFE 使用的两种包错误码（PEC）：
// 命令字使用的 15 位 CRC，以及数据寄存器使用的 10 位 CRC（可带 6 位写计数器）。
//
// 两者均为查表法，结果与逐位多项式除法完全一致。
package pec

const (
	// Poly15 x^15+x^14+x^10+x^8+x^7+x^4+x^3+1
	Poly15 uint16 = 0x4599
	// Seed15 PEC15 初始余数
	Seed15 uint16 = 0x0010

	// Poly10 x^10+x^7+x^3+x^2+x+1
	Poly10 uint16 = 0x008F
	// Seed10 PEC10 初始余数
	Seed10 uint16 = 0x0008

	// Mask10 10 位 PEC 有效位
	Mask10 uint16 = 0x03FF

	// CounterBits 写计数器位宽
	CounterBits = 6
	// CounterMask 写计数器取值掩码
	CounterMask uint8 = 0x3F
)

var (
	table15 = makeTable15()
	table10 = makeTable10()
)

// makeTable15 预计算 15 位余数表：索引为进入的 8 位，结果为移过 8 位后的余数
func makeTable15() [256]uint16 {
	var t [256]uint16
	for i := range t {
		r := uint16(i) << 7
		for bit := 0; bit < 8; bit++ {
			if r&0x4000 != 0 {
				r = (r << 1) ^ Poly15
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}

func makeTable10() [256]uint16 {
	var t [256]uint16
	for i := range t {
		r := uint16(i) << 2
		for bit := 0; bit < 8; bit++ {
			r = step10(r)
		}
		t[i] = r & Mask10
	}
	return t
}

// step10 10 位余数移入一个 0 位
func step10(r uint16) uint16 {
	if r&0x200 != 0 {
		return (r << 1) ^ Poly10
	}
	return r << 1
}

// PEC15 计算 15 位 PEC，结果左移一位放入 16 位容器（bit0 恒为 0）。
// 空输入返回种子的终值变换 0x0020。
func PEC15(data []byte) uint16 {
	r := Seed15
	for _, b := range data {
		idx := byte(r>>7) ^ b
		r = (r << 8) ^ table15[idx]
	}
	return r << 1
}

// PEC10 计算 10 位 PEC，结果位于低 10 位。
//
// includesWriteCount 为 true 时，帧中 PEC 高字节将携带写计数器，
// 余数会再移入 6 位计数器（此处按 0 计）。计数器合并由调用方负责，见 MergeWriteCounter。
func PEC10(includesWriteCount bool, data []byte) uint16 {
	r := remainder10(data)
	if includesWriteCount {
		r = foldCounter(r, 0)
	}
	return r & Mask10
}

// PEC10WithCounter 以显式的 6 位写计数器计算 10 位 PEC
func PEC10WithCounter(data []byte, counter uint8) uint16 {
	return foldCounter(remainder10(data), counter) & Mask10
}

func remainder10(data []byte) uint16 {
	r := Seed10
	for _, b := range data {
		idx := byte(r>>2) ^ b
		r = ((r << 8) & Mask10) ^ table10[idx]
	}
	return r
}

// foldCounter 将计数器的 6 位依次移入余数；计数器在线上位于 PEC 高字节的 bit7..bit2
func foldCounter(r uint16, counter uint8) uint16 {
	r ^= uint16(counter&CounterMask) << 4
	for bit := 0; bit < CounterBits; bit++ {
		r = step10(r)
	}
	return r & Mask10
}

// MergeWriteCounter 将 6 位写计数器放入 bit10..bit15
func MergeWriteCounter(pec uint16, counter uint8) uint16 {
	return pec&Mask10 | uint16(counter&CounterMask)<<10
}

// SplitWriteCounter 拆分线上 16 位 PEC 字为 10 位 PEC 与写计数器
func SplitWriteCounter(word uint16) (uint16, uint8) {
	return word & Mask10, uint8(word >> 10)
}
