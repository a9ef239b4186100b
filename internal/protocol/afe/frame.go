package afe

import (
	"errors"
	"fmt"
	"strings"
)

// 帧格式：55 AA(2) + 命令字(4) + AFE索引(1) + 数据(8) + 校验和(1)，固定 16 字节
const (
	FrameLen = 16

	Head1 = 0x55
	Head2 = 0xAA

	OffsetHead     = 0
	OffsetCmd      = 2
	OffsetIndex    = 6
	OffsetData     = 7
	OffsetPEC      = 13 // 电压帧数据区内 PEC 高字节
	OffsetChecksum = 15

	CmdLen  = 4
	DataLen = 8
)

var (
	// ErrChecksumMismatch 校验和不一致
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrShortFrame 数据不足 16 字节
	ErrShortFrame = errors.New("short frame")
)

// Frame 固定 16 字节协议帧
type Frame [FrameLen]byte

// FrameFromBytes 从 16 字节切片构造帧；不检查校验和
func FrameFromBytes(b []byte) (Frame, error) {
	var f Frame
	if len(b) != FrameLen {
		return f, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	copy(f[:], b)
	return f, nil
}

// Bytes 返回帧副本
func (f Frame) Bytes() []byte {
	b := make([]byte, FrameLen)
	copy(b, f[:])
	return b
}

// HeaderOK 帧头是否为 55 AA
func (f Frame) HeaderOK() bool {
	return f[0] == Head1 && f[1] == Head2
}

// CommandWord 命令字（字节 2..5）
func (f Frame) CommandWord() [CmdLen]byte {
	var c [CmdLen]byte
	copy(c[:], f[OffsetCmd:OffsetCmd+CmdLen])
	return c
}

// AppCommand 若命令字为 00 00 + 0x8000|opcode 形式，返回该 16 位命令码
func (f Frame) AppCommand() (uint16, bool) {
	if f[2] != 0 || f[3] != 0 {
		return 0, false
	}
	code := uint16(f[4])<<8 | uint16(f[5])
	if code&AppCmdMask == 0 {
		return 0, false
	}
	return code, true
}

// Index AFE 索引
func (f Frame) Index() uint8 { return f[OffsetIndex] }

// Data 数据区（字节 7..14）
func (f Frame) Data() [DataLen]byte {
	var d [DataLen]byte
	copy(d[:], f[OffsetData:OffsetData+DataLen])
	return d
}

// Checksum 帧内携带的校验和
func (f Frame) Checksum() byte { return f[OffsetChecksum] }

// ChecksumOK 校验和是否与前 15 字节累加和一致
func (f Frame) ChecksumOK() bool {
	return Checksum(f[:OffsetChecksum]) == f[OffsetChecksum]
}

// String 大写十六进制，空格分隔
func (f Frame) String() string { return HexString(f[:]) }

// Checksum 8 位累加和（溢出丢弃高位）
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// VerifyChecksum 校验最后一字节是否为之前所有字节的累加和
func VerifyChecksum(dataWithChecksum []byte) error {
	if len(dataWithChecksum) < 1 {
		return errors.New("data too short for checksum verification")
	}
	n := len(dataWithChecksum) - 1
	if Checksum(dataWithChecksum[:n]) != dataWithChecksum[n] {
		return ErrChecksumMismatch
	}
	return nil
}

// HexString 以 "55 AA 00" 形式输出任意字节
func HexString(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}
