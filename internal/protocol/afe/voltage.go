package afe

import "math"

// 电压换算：raw = round((µV - 1 500 000) / 150)，截断为 16 位
const (
	VoltageOffsetMicrovolts = 1500000.0
	VoltageLSBMicrovolts    = 150.0
)

// Voltage 电压输入：原始 16 位值或十进制伏特
type Voltage struct {
	raw     uint16
	volts   float64
	literal bool
}

// RawVoltage 已编码的 16 位原始值，原样写入
func RawVoltage(v uint16) Voltage { return Voltage{raw: v, literal: true} }

// Volts 十进制伏特值，写入前按 ADC 刻度换算
func Volts(v float64) Voltage { return Voltage{volts: v} }

// IsRaw 是否为原始值
func (v Voltage) IsRaw() bool { return v.literal }

// Encode 返回写入帧的 16 位值
func (v Voltage) Encode() uint16 {
	if v.literal {
		return v.raw
	}
	return VoltsToRaw(v.volts)
}

// VoltsToRaw 伏特换算为 16 位原始值；低于 1.5V 时按补码截断
func VoltsToRaw(volts float64) uint16 {
	uv := volts * 1e6
	return uint16(int64(math.Round((uv - VoltageOffsetMicrovolts) / VoltageLSBMicrovolts)))
}

// RawToVolts 原始值换算回伏特（按有符号解释）
func RawToVolts(raw uint16) float64 {
	return (float64(int16(raw))*VoltageLSBMicrovolts + VoltageOffsetMicrovolts) / 1e6
}
