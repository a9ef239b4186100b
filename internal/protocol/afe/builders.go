package afe

import "github.com/taoyao-code/afe-bench/internal/pec"

// VoltageCommand 电压设置帧参数（命令直通模式）
type VoltageCommand struct {
	SubCommand [CmdLen]byte // 4 字节子命令，如 RDCVA = 00 00 00 04
	AFEIndex   uint8        // 0..29
	Cells      [3]Voltage
	// CorruptPEC 为 true 时将 PEC 低字节取反，用于验证接收端 PEC 校验
	CorruptPEC bool
}

// RangeVoltageCommand 区间电压设置帧参数
type RangeVoltageCommand struct {
	Group      CellGroup
	StartIndex uint8
	EndIndex   uint8
	Start      Voltage
	// Step 递增量：毫伏整数或原始 16 位值，均原样写入
	Step uint16
}

// BuildVoltageCommand 构建电压帧：三路电压小端写入数据区 0..5，
// 其 PEC10（含写计数器位）大端写入数据区 6..7
func BuildVoltageCommand(c VoltageCommand) Frame {
	var cells [6]byte
	for i, v := range c.Cells {
		raw := v.Encode()
		cells[2*i] = byte(raw)
		cells[2*i+1] = byte(raw >> 8)
	}
	dpec := pec.PEC10(true, cells[:])
	hi, lo := byte(dpec>>8), byte(dpec)
	if c.CorruptPEC {
		lo ^= 0xFF
	}

	w := newFrameWriter()
	w.put(c.SubCommand[:]...)
	w.put(c.AFEIndex)
	w.put(cells[:]...)
	w.put(hi, lo)
	return w.finish()
}

// BuildAFECountCommand 构建 AFE 总数设置帧；total 取值 1..30
func BuildAFECountCommand(total uint8, init bool) Frame {
	var flag byte
	if init {
		flag = 0x01
	}
	return newFrameWriter().
		appCmd(AppCmdAFECount).
		put(0x00). // AFE 索引不使用
		put(total, flag).
		finish()
}

// BuildRangeVoltageCommand 构建区间电压帧：起始电压与步进均为大端
func BuildRangeVoltageCommand(c RangeVoltageCommand) Frame {
	return newFrameWriter().
		appCmd(AppCmdRangeVolt).
		put(0x00).
		put(c.Group.TypeCode(), c.StartIndex, c.EndIndex).
		u16BE(c.Start.Encode()).
		u16BE(c.Step).
		finish()
}

// BuildSPIModeCommand 构建 SPI 模式设置帧；mode 取值 0..3
func BuildSPIModeCommand(mode uint8) Frame {
	return newFrameWriter().
		appCmd(AppCmdSPIModeSet).
		put(0x00).
		put(mode).
		finish()
}
