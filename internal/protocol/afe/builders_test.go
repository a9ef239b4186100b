package afe

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFrame(t *testing.T, s string) Frame {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	f, err := FrameFromBytes(b)
	require.NoError(t, err)
	return f
}

func TestBuildVoltageCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  VoltageCommand
		want string
	}{
		{
			name: "RDCVA 伏特与原始值混合",
			cmd: VoltageCommand{
				SubCommand: CellGroupA.SubCommand(),
				AFEIndex:   2,
				Cells:      [3]Voltage{Volts(3.3), Volts(3.3), RawVoltage(0x1234)},
			},
			want: "55 aa 00 00 00 04 02 e0 2e e0 2e 34 12 00 95 fc",
		},
		{
			name: "RDCVA PEC 取反",
			cmd: VoltageCommand{
				SubCommand: CellGroupA.SubCommand(),
				AFEIndex:   2,
				Cells:      [3]Voltage{Volts(3.3), Volts(3.3), RawVoltage(0x1234)},
				CorruptPEC: true,
			},
			want: "55 aa 00 00 00 04 02 e0 2e e0 2e 34 12 00 6a d1",
		},
		{
			name: "RDCVF 边界值",
			cmd: VoltageCommand{
				SubCommand: CellGroupF.SubCommand(),
				AFEIndex:   29,
				Cells:      [3]Voltage{Volts(1.5), RawVoltage(0x0000), RawVoltage(0xFFFF)},
			},
			want: "55 aa 00 00 00 0b 1d 00 00 00 00 ff ff 03 fb 23",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildVoltageCommand(tt.cmd)
			assert.Equal(t, mustFrame(t, tt.want), got, "got %s", got)
		})
	}
}

func TestBuildVoltageCommandCorruptPEC(t *testing.T) {
	base := VoltageCommand{
		SubCommand: CellGroupD.SubCommand(),
		AFEIndex:   7,
		Cells:      [3]Voltage{Volts(3.7), Volts(4.2), Volts(2.9)},
	}
	good := BuildVoltageCommand(base)
	base.CorruptPEC = true
	bad := BuildVoltageCommand(base)

	for i := 0; i < OffsetChecksum; i++ {
		if i == OffsetPEC+1 {
			assert.Equal(t, good[i]^0xFF, bad[i], "PEC 低字节应取反")
			continue
		}
		assert.Equal(t, good[i], bad[i], "byte %d", i)
	}
	assert.True(t, bad.ChecksumOK(), "故障注入帧的校验和仍需正确")

	ok, _, _ := VerifyVoltagePEC(good)
	assert.True(t, ok)
	ok, _, _ = VerifyVoltagePEC(bad)
	assert.False(t, ok)
}

func TestBuildAFECountCommand(t *testing.T) {
	f := BuildAFECountCommand(5, true)
	assert.Equal(t, mustFrame(t, "55 aa 00 00 80 01 00 05 01 00 00 00 00 00 00 86"), f)

	assert.Equal(t, byte(0x55), f[0])
	assert.Equal(t, byte(0xAA), f[1])
	assert.Equal(t, []byte{0x80, 0x01}, f[4:6])
	assert.Equal(t, byte(0x05), f[7])
	assert.Equal(t, byte(0x01), f[8])
	assert.Equal(t, make([]byte, 6), f[9:15])
	assert.Equal(t, Checksum(f[:15]), f[15])

	assert.Equal(t, mustFrame(t, "55 aa 00 00 80 01 00 1e 00 00 00 00 00 00 00 9e"), BuildAFECountCommand(30, false))
}

func TestBuildRangeVoltageCommand(t *testing.T) {
	f := BuildRangeVoltageCommand(RangeVoltageCommand{
		Group:      CellGroupA,
		StartIndex: 0,
		EndIndex:   29,
		Start:      Volts(3.3),
		Step:       10,
	})
	assert.Equal(t, mustFrame(t, "55 aa 00 00 80 10 00 01 00 1d 2e e0 00 0a 00 c5"), f)

	lit := BuildRangeVoltageCommand(RangeVoltageCommand{Group: CellGroupB, Start: RawVoltage(0xABCD), Step: 0x0102})
	assert.Equal(t, []byte{0xAB, 0xCD, 0x01, 0x02, 0x00}, lit[10:15])
	assert.Equal(t, byte(0x02), lit[7])
}

func TestBuildSPIModeCommand(t *testing.T) {
	for mode := uint8(0); mode <= MaxSPIMode; mode++ {
		f := BuildSPIModeCommand(mode)
		assert.Equal(t, mode, f[7])
		assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x20, 0x00}, f[2:7])
		assert.Equal(t, make([]byte, 7), f[8:15])
	}
}

func TestChecksumInvariantAllBuilders(t *testing.T) {
	var frames []Frame
	for _, g := range CellGroups() {
		for idx := uint8(0); idx < MaxAFECount; idx += 7 {
			for _, corrupt := range []bool{false, true} {
				frames = append(frames, BuildVoltageCommand(VoltageCommand{
					SubCommand: g.SubCommand(),
					AFEIndex:   idx,
					Cells:      [3]Voltage{Volts(float64(idx) * 0.1), RawVoltage(uint16(idx) << 9), Volts(4.99)},
					CorruptPEC: corrupt,
				}))
			}
		}
		frames = append(frames, BuildRangeVoltageCommand(RangeVoltageCommand{
			Group: g, StartIndex: 3, EndIndex: 9, Start: Volts(2.5), Step: 250,
		}))
	}
	for n := uint8(1); n <= MaxAFECount; n++ {
		frames = append(frames, BuildAFECountCommand(n, n%2 == 0))
	}
	for mode := uint8(0); mode <= MaxSPIMode; mode++ {
		frames = append(frames, BuildSPIModeCommand(mode))
	}

	for _, f := range frames {
		var sum byte
		for _, b := range f[:15] {
			sum += b
		}
		assert.Equal(t, sum, f[15], "frame %s", f)
		assert.True(t, f.HeaderOK())
	}
}
