package afe

import "github.com/taoyao-code/afe-bench/internal/pec"

// Kind 帧类别
type Kind string

const (
	KindVoltage      Kind = "voltage"
	KindAFECount     Kind = "afe_count"
	KindRangeVoltage Kind = "range_voltage"
	KindSPIMode      Kind = "spi_mode"
	KindUnknown      Kind = "unknown"
)

// Decoded 帧字段拆解结果，供显示与统计
type Decoded struct {
	Kind       Kind      `json:"kind"`
	HeaderOK   bool      `json:"header_ok"`
	ChecksumOK bool      `json:"checksum_ok"`
	Command    string    `json:"command"`
	AppCommand uint16    `json:"app_command,omitempty"`
	Index      uint8     `json:"index"`
	Data       string    `json:"data"`
	Group      CellGroup `json:"group,omitempty"`
	Cells      []uint16  `json:"cells,omitempty"`

	// 电压帧 PEC 校验结果；其余帧恒为 nil
	PECOK        *bool  `json:"pec_ok,omitempty"`
	PEC          uint16 `json:"pec,omitempty"`
	WriteCounter uint8  `json:"write_counter,omitempty"`
}

// Inspect 拆解帧字段，不做拒收
func Inspect(f Frame) Decoded {
	d := Decoded{
		Kind:       KindUnknown,
		HeaderOK:   f.HeaderOK(),
		ChecksumOK: f.ChecksumOK(),
		Command:    HexString(f[OffsetCmd : OffsetCmd+CmdLen]),
		Index:      f.Index(),
		Data:       HexString(f[OffsetData : OffsetData+DataLen]),
	}

	if code, ok := f.AppCommand(); ok {
		d.AppCommand = code
		switch code {
		case AppCmdAFECount:
			d.Kind = KindAFECount
		case AppCmdRangeVolt:
			d.Kind = KindRangeVoltage
			d.Group = CellGroup(f[OffsetData])
		case AppCmdSPIModeSet:
			d.Kind = KindSPIMode
		}
		return d
	}

	if g, ok := CellGroupBySubCommand(f.CommandWord()); ok {
		d.Kind = KindVoltage
		d.Group = g
		d.Cells = make([]uint16, 3)
		for i := range d.Cells {
			off := OffsetData + 2*i
			d.Cells[i] = uint16(f[off]) | uint16(f[off+1])<<8
		}
		ok, p, c := VerifyVoltagePEC(f)
		d.PECOK, d.PEC, d.WriteCounter = &ok, p, c
	}
	return d
}

// VerifyVoltagePEC 校验电压帧数据区 PEC10。
// PEC 字高 6 位视为写计数器，先屏蔽再参与比较；返回接收到的 10 位 PEC 与计数器。
func VerifyVoltagePEC(f Frame) (bool, uint16, uint8) {
	word := uint16(f[OffsetPEC])<<8 | uint16(f[OffsetPEC+1])
	got, counter := pec.SplitWriteCounter(word)
	want := pec.PEC10WithCounter(f[OffsetData:OffsetPEC], counter)
	return got == want, got, counter
}
