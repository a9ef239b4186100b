// Package command 把文本/JSON 形式的命令参数校验后转换为 AFE 帧，
// HTTP 控制接口与场景脚本共用同一套校验规则。
package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
)

// ErrInvalidInput 参数校验失败
var ErrInvalidInput = errors.New("invalid input")

// MaxAFEIndex AFE 序号上限（0 起）
const MaxAFEIndex = afe.MaxAFECount - 1

// Command 可构建为一帧的命令
type Command interface {
	Kind() afe.Kind
	Frame() (afe.Frame, error)
}

// Voltage 电压设置命令
type Voltage struct {
	Group      string `json:"group" yaml:"group"`
	AFEIndex   int    `json:"afe_index" yaml:"afe_index"`
	V1         string `json:"v1" yaml:"v1"`
	V2         string `json:"v2" yaml:"v2"`
	V3         string `json:"v3" yaml:"v3"`
	CorruptPEC bool   `json:"corrupt_pec" yaml:"corrupt_pec"`
}

// Kind 帧类型
func (Voltage) Kind() afe.Kind { return afe.KindVoltage }

// Build 校验并转换为构建参数
func (c Voltage) Build() (afe.VoltageCommand, error) {
	g, err := parseGroup(c.Group)
	if err != nil {
		return afe.VoltageCommand{}, err
	}
	if err := checkIndex("afe_index", c.AFEIndex); err != nil {
		return afe.VoltageCommand{}, err
	}
	out := afe.VoltageCommand{
		SubCommand: g.SubCommand(),
		AFEIndex:   uint8(c.AFEIndex),
		CorruptPEC: c.CorruptPEC,
	}
	for i, s := range []string{c.V1, c.V2, c.V3} {
		v, err := ParseVoltage(s)
		if err != nil {
			return afe.VoltageCommand{}, fmt.Errorf("v%d: %w", i+1, err)
		}
		out.Cells[i] = v
	}
	return out, nil
}

// Frame 构建帧
func (c Voltage) Frame() (afe.Frame, error) {
	vc, err := c.Build()
	if err != nil {
		return afe.Frame{}, err
	}
	return afe.BuildVoltageCommand(vc), nil
}

// AFECount AFE 数量设置命令
type AFECount struct {
	Total int  `json:"total" yaml:"total"`
	Init  bool `json:"init" yaml:"init"`
}

// Kind 帧类型
func (AFECount) Kind() afe.Kind { return afe.KindAFECount }

// Frame 构建帧
func (c AFECount) Frame() (afe.Frame, error) {
	if c.Total < 1 || c.Total > afe.MaxAFECount {
		return afe.Frame{}, fmt.Errorf("%w: total %d out of range 1..%d", ErrInvalidInput, c.Total, afe.MaxAFECount)
	}
	return afe.BuildAFECountCommand(uint8(c.Total), c.Init), nil
}

// RangeVoltage 区间电压设置命令
type RangeVoltage struct {
	Group      string `json:"group" yaml:"group"`
	StartIndex int    `json:"start_index" yaml:"start_index"`
	EndIndex   int    `json:"end_index" yaml:"end_index"`
	Start      string `json:"start" yaml:"start"`
	Step       string `json:"step" yaml:"step"`
}

// Kind 帧类型
func (RangeVoltage) Kind() afe.Kind { return afe.KindRangeVoltage }

// Build 校验并转换为构建参数
func (c RangeVoltage) Build() (afe.RangeVoltageCommand, error) {
	g, err := parseGroup(c.Group)
	if err != nil {
		return afe.RangeVoltageCommand{}, err
	}
	if err := checkIndex("start_index", c.StartIndex); err != nil {
		return afe.RangeVoltageCommand{}, err
	}
	if err := checkIndex("end_index", c.EndIndex); err != nil {
		return afe.RangeVoltageCommand{}, err
	}
	start, err := ParseVoltage(c.Start)
	if err != nil {
		return afe.RangeVoltageCommand{}, fmt.Errorf("start: %w", err)
	}
	step, err := ParseUint16(c.Step)
	if err != nil {
		return afe.RangeVoltageCommand{}, fmt.Errorf("step: %w", err)
	}
	return afe.RangeVoltageCommand{
		Group:      g,
		StartIndex: uint8(c.StartIndex),
		EndIndex:   uint8(c.EndIndex),
		Start:      start,
		Step:       step,
	}, nil
}

// Frame 构建帧
func (c RangeVoltage) Frame() (afe.Frame, error) {
	rc, err := c.Build()
	if err != nil {
		return afe.Frame{}, err
	}
	return afe.BuildRangeVoltageCommand(rc), nil
}

// SPIMode SPI 模式设置命令
type SPIMode struct {
	Mode int `json:"mode" yaml:"mode"`
}

// Kind 帧类型
func (SPIMode) Kind() afe.Kind { return afe.KindSPIMode }

// Frame 构建帧
func (c SPIMode) Frame() (afe.Frame, error) {
	if c.Mode < 0 || c.Mode > afe.MaxSPIMode {
		return afe.Frame{}, fmt.Errorf("%w: mode %d out of range 0..%d", ErrInvalidInput, c.Mode, afe.MaxSPIMode)
	}
	return afe.BuildSPIModeCommand(uint8(c.Mode)), nil
}

// ParseVoltage 解析电压输入："0x" 前缀为原始 16 位值，否则为十进制伏特
func ParseVoltage(s string) (afe.Voltage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return afe.Voltage{}, fmt.Errorf("%w: missing voltage", ErrInvalidInput)
	}
	if hasHexPrefix(s) {
		raw, err := strconv.ParseUint(s[2:], 16, 16)
		if err != nil {
			return afe.Voltage{}, fmt.Errorf("%w: bad hex voltage %q", ErrInvalidInput, s)
		}
		return afe.RawVoltage(uint16(raw)), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return afe.Voltage{}, fmt.Errorf("%w: bad voltage %q", ErrInvalidInput, s)
	}
	return afe.Volts(v), nil
}

// ParseUint16 解析 16 位整数："0x" 前缀为十六进制，否则十进制
func ParseUint16(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: missing value", ErrInvalidInput)
	}
	base := 10
	if hasHexPrefix(s) {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: bad 16-bit value %q", ErrInvalidInput, s)
	}
	return uint16(v), nil
}

// ParseHexBytes 解析空格或逗号分隔的十六进制字节，也接受连续写法 "E02E"
func ParseHexBytes(s string) ([]byte, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	if len(fields) == 1 && len(fields[0]) > 2 && !hasHexPrefix(fields[0]) {
		packed := fields[0]
		if len(packed)%2 != 0 {
			return nil, fmt.Errorf("%w: odd hex length %q", ErrInvalidInput, packed)
		}
		fields = fields[:0]
		for i := 0; i < len(packed); i += 2 {
			fields = append(fields, packed[i:i+2])
		}
	}
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		if hasHexPrefix(f) {
			f = f[2:]
		}
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: bad hex byte %q", ErrInvalidInput, f)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func parseGroup(name string) (afe.CellGroup, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: missing group", ErrInvalidInput)
	}
	g, err := afe.ParseCellGroup(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return g, nil
}

func checkIndex(field string, v int) error {
	if v < 0 || v > MaxAFEIndex {
		return fmt.Errorf("%w: %s %d out of range 0..%d", ErrInvalidInput, field, v, MaxAFEIndex)
	}
	return nil
}
