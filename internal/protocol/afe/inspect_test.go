package afe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/afe-bench/internal/pec"
)

func TestInspectVoltageFrame(t *testing.T) {
	f := BuildVoltageCommand(VoltageCommand{
		SubCommand: CellGroupB.SubCommand(),
		AFEIndex:   4,
		Cells:      [3]Voltage{RawVoltage(0x0102), RawVoltage(0x0304), RawVoltage(0x0506)},
	})
	d := Inspect(f)
	assert.Equal(t, KindVoltage, d.Kind)
	assert.True(t, d.HeaderOK)
	assert.True(t, d.ChecksumOK)
	assert.Equal(t, CellGroupB, d.Group)
	assert.Equal(t, uint8(4), d.Index)
	assert.Equal(t, "00 00 00 06", d.Command)
	assert.Equal(t, []uint16{0x0102, 0x0304, 0x0506}, d.Cells)
	require.NotNil(t, d.PECOK)
	assert.True(t, *d.PECOK)
	assert.Equal(t, uint8(0), d.WriteCounter)
}

func TestInspectVoltageFrameWithWriteCounter(t *testing.T) {
	cells := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	word := pec.MergeWriteCounter(pec.PEC10WithCounter(cells, 9), 9)

	w := newFrameWriter()
	sub := CellGroupC.SubCommand()
	w.put(sub[:]...).put(0x01).put(cells...).u16BE(word)
	f := w.finish()

	d := Inspect(f)
	require.NotNil(t, d.PECOK)
	assert.True(t, *d.PECOK, "计数器位被屏蔽后 PEC 应一致")
	assert.Equal(t, uint8(9), d.WriteCounter)

	// 计数器被篡改
	f[OffsetPEC] ^= 0x04
	f[OffsetChecksum] = Checksum(f[:OffsetChecksum])
	ok, _, counter := VerifyVoltagePEC(f)
	assert.False(t, ok)
	assert.Equal(t, uint8(8), counter)
}

func TestInspectAppFrames(t *testing.T) {
	tests := []struct {
		name string
		f    Frame
		kind Kind
		code uint16
	}{
		{"afe count", BuildAFECountCommand(3, false), KindAFECount, AppCmdAFECount},
		{"range", BuildRangeVoltageCommand(RangeVoltageCommand{Group: CellGroupE}), KindRangeVoltage, AppCmdRangeVolt},
		{"spi", BuildSPIModeCommand(2), KindSPIMode, AppCmdSPIModeSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Inspect(tt.f)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.code, d.AppCommand)
			assert.Nil(t, d.PECOK)
		})
	}
	assert.Equal(t, CellGroupE, Inspect(tests[1].f).Group)
}

func TestInspectBrokenFrame(t *testing.T) {
	var f Frame
	f[0], f[1] = 0x12, 0x34
	f[15] = 0x99
	d := Inspect(f)
	assert.Equal(t, KindUnknown, d.Kind)
	assert.False(t, d.HeaderOK)
	assert.False(t, d.ChecksumOK)
}
