package afe

import (
	"fmt"
	"strings"
)

// 应用命令码：0x8000 | opcode，写入命令字字节 4..5，字节 2..3 为 0
const (
	AppCmdMask       uint16 = 0x8000
	AppCmdAFECount   uint16 = 0x8001
	AppCmdRangeVolt  uint16 = 0x8010
	AppCmdSPIModeSet uint16 = 0x8020

	MaxAFECount = 30
	MaxSPIMode  = 3
)

// CellGroup 电池电压寄存器组（RDCVA..RDCVF）
type CellGroup uint8

const (
	CellGroupA CellGroup = iota + 1
	CellGroupB
	CellGroupC
	CellGroupD
	CellGroupE
	CellGroupF
)

var cellGroups = []struct {
	group CellGroup
	name  string
	sub   [CmdLen]byte
}{
	{CellGroupA, "RDCVA", [CmdLen]byte{0x00, 0x00, 0x00, 0x04}},
	{CellGroupB, "RDCVB", [CmdLen]byte{0x00, 0x00, 0x00, 0x06}},
	{CellGroupC, "RDCVC", [CmdLen]byte{0x00, 0x00, 0x00, 0x08}},
	{CellGroupD, "RDCVD", [CmdLen]byte{0x00, 0x00, 0x00, 0x0A}},
	{CellGroupE, "RDCVE", [CmdLen]byte{0x00, 0x00, 0x00, 0x09}},
	{CellGroupF, "RDCVF", [CmdLen]byte{0x00, 0x00, 0x00, 0x0B}},
}

// CellGroups 返回全部寄存器组，按类型码排序
func CellGroups() []CellGroup {
	out := make([]CellGroup, 0, len(cellGroups))
	for _, g := range cellGroups {
		out = append(out, g.group)
	}
	return out
}

// Valid 是否为已知寄存器组
func (g CellGroup) Valid() bool { return g >= CellGroupA && g <= CellGroupF }

// TypeCode 范围电压命令中的类型码（RDCVA = 1）
func (g CellGroup) TypeCode() uint8 { return uint8(g) }

// SubCommand 电压命令直通的 4 字节子命令
func (g CellGroup) SubCommand() [CmdLen]byte {
	if !g.Valid() {
		return [CmdLen]byte{}
	}
	return cellGroups[g-1].sub
}

func (g CellGroup) String() string {
	if !g.Valid() {
		return fmt.Sprintf("CellGroup(%d)", uint8(g))
	}
	return cellGroups[g-1].name
}

// ParseCellGroup 按名称（RDCVA 或 A，大小写不敏感）解析寄存器组
func ParseCellGroup(s string) (CellGroup, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, g := range cellGroups {
		if name == g.name || name == g.name[len(g.name)-1:] {
			return g.group, nil
		}
	}
	return 0, fmt.Errorf("unknown cell group %q", s)
}

// CellGroupBySubCommand 反查直通子命令
func CellGroupBySubCommand(sub [CmdLen]byte) (CellGroup, bool) {
	for _, g := range cellGroups {
		if g.sub == sub {
			return g.group, true
		}
	}
	return 0, false
}

// AppCommandName 命令码可读名称
func AppCommandName(code uint16) string {
	switch code {
	case AppCmdAFECount:
		return "afe_count"
	case AppCmdRangeVolt:
		return "range_voltage"
	case AppCmdSPIModeSet:
		return "spi_mode"
	default:
		return fmt.Sprintf("0x%04X", code)
	}
}
