package transport

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial"

	cfgpkg "github.com/taoyao-code/afe-bench/internal/config"
)

// ErrNoPort 未指定串口
var ErrNoPort = errors.New("serial port not specified")

type serialPort struct {
	serial.Port
	name string
}

func (p *serialPort) Name() string { return p.name }

// OpenSerial 打开串口（默认 115200 8N1，无流控）
func OpenSerial(cfg cfgpkg.SerialConfig) (Port, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	mode, err := serialMode(cfg)
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	// 读超时让读循环能及时观察到关闭
	if cfg.ReadTimeout > 0 {
		if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}
	return &serialPort{Port: p, name: cfg.Port}, nil
}

func serialMode(cfg cfgpkg.SerialConfig) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	switch strings.ToLower(cfg.Parity) {
	case "", "none":
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", cfg.Parity)
	}
	switch cfg.StopBits {
	case 0, 1:
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", cfg.StopBits)
	}
	return mode, nil
}

// ListPorts 扫描可用串口，按名称排序
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
