// Package script 加载并执行 YAML 场景脚本：按顺序发送一组命令帧，
// 可穿插等待，用于无人值守地复现一次台架操作。
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/afe-bench/internal/command"
	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
)

// MaxPause 单步等待上限
const MaxPause = 10 * time.Minute

// ErrEmptyScenario 场景没有任何步骤
var ErrEmptyScenario = errors.New("scenario has no steps")

// Scenario 场景脚本
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	// Repeat 整体重复次数，0 视为 1
	Repeat int    `yaml:"repeat" json:"repeat"`
	Steps  []Step `yaml:"steps" json:"steps"`
}

// Step 单个步骤，命令字段与 pause 恰好设置其一
type Step struct {
	Name         string                `yaml:"name,omitempty" json:"name,omitempty"`
	Voltage      *command.Voltage      `yaml:"voltage,omitempty" json:"voltage,omitempty"`
	AFECount     *command.AFECount     `yaml:"afe_count,omitempty" json:"afe_count,omitempty"`
	RangeVoltage *command.RangeVoltage `yaml:"range_voltage,omitempty" json:"range_voltage,omitempty"`
	SPIMode      *command.SPIMode      `yaml:"spi_mode,omitempty" json:"spi_mode,omitempty"`
	Pause        time.Duration         `yaml:"pause,omitempty" json:"pause,omitempty"`
}

// compiled 校验后的步骤
type compiled struct {
	name  string
	kind  afe.Kind
	frame afe.Frame
	pause time.Duration
}

func (c compiled) isPause() bool { return c.kind == "" }

// LoadFile 从文件加载场景
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario %s: %w", path, err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse 解析 YAML 文本
func Parse(data []byte) (*Scenario, error) {
	return Decode(bytes.NewReader(data))
}

// Decode 解码并校验，未知字段视为错误
func Decode(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyScenario
		}
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if _, err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate 校验全部步骤
func (s *Scenario) Validate() error {
	_, err := s.compile()
	return err
}

// Frames 场景一轮发送的帧数
func (s *Scenario) Frames() int {
	n := 0
	for _, st := range s.Steps {
		if st.Pause == 0 {
			n++
		}
	}
	return n
}

func (s *Scenario) repeat() int {
	if s.Repeat <= 0 {
		return 1
	}
	return s.Repeat
}

func (s *Scenario) compile() ([]compiled, error) {
	if len(s.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	if s.Repeat < 0 {
		return nil, fmt.Errorf("%w: repeat %d", command.ErrInvalidInput, s.Repeat)
	}
	out := make([]compiled, 0, len(s.Steps))
	for i, st := range s.Steps {
		c, err := st.compile()
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, st.label(), err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (st Step) label() string {
	if st.Name != "" {
		return st.Name
	}
	if c := st.command(); c != nil {
		return string(c.Kind())
	}
	return "pause"
}

func (st Step) command() command.Command {
	switch {
	case st.Voltage != nil:
		return st.Voltage
	case st.AFECount != nil:
		return st.AFECount
	case st.RangeVoltage != nil:
		return st.RangeVoltage
	case st.SPIMode != nil:
		return st.SPIMode
	}
	return nil
}

func (st Step) actions() int {
	n := 0
	for _, set := range []bool{st.Voltage != nil, st.AFECount != nil, st.RangeVoltage != nil, st.SPIMode != nil, st.Pause != 0} {
		if set {
			n++
		}
	}
	return n
}

func (st Step) compile() (compiled, error) {
	if n := st.actions(); n != 1 {
		return compiled{}, fmt.Errorf("%w: step must set exactly one action, got %d", command.ErrInvalidInput, n)
	}
	if st.Pause != 0 {
		if st.Pause < 0 || st.Pause > MaxPause {
			return compiled{}, fmt.Errorf("%w: pause %s out of range", command.ErrInvalidInput, st.Pause)
		}
		return compiled{name: st.label(), pause: st.Pause}, nil
	}
	c := st.command()
	f, err := c.Frame()
	if err != nil {
		return compiled{}, err
	}
	return compiled{name: st.label(), kind: c.Kind(), frame: f}, nil
}
