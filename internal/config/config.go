package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig 本地控制面 HTTP 配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	// APIKeys 非空时 /api 路由要求 X-API-Key 或 Bearer 认证
	APIKeys []string `mapstructure:"apiKeys"`
}

// LinkConfig 链路类型选择
type LinkConfig struct {
	Kind string `mapstructure:"kind"` // serial | tcp
}

// SerialConfig 串口参数，默认 115200 8N1 无流控
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baudRate"`
	DataBits    int           `mapstructure:"dataBits"`
	Parity      string        `mapstructure:"parity"`   // none | odd | even
	StopBits    int           `mapstructure:"stopBits"` // 1 | 2
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// TCPConfig 串口转 TCP 桥（ser2net 等）或模拟器地址
type TCPConfig struct {
	Addr        string        `mapstructure:"addr"`
	DialTimeout time.Duration `mapstructure:"dialTimeout"`
}

// ReassemblyConfig 接收重组配置
type ReassemblyConfig struct {
	IdleWindow time.Duration `mapstructure:"idleWindow"`
}

// OutboundConfig 下行发送队列与限速
type OutboundConfig struct {
	RatePerSec   int           `mapstructure:"ratePerSec"`
	Burst        int           `mapstructure:"burst"`
	QueueSize    int           `mapstructure:"queueSize"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// HistoryConfig TX/RX 记录保留条数
type HistoryConfig struct {
	Size int `mapstructure:"size"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// ScriptConfig 启动时执行的场景脚本
type ScriptConfig struct {
	Path       string `mapstructure:"path"`
	RunOnStart bool   `mapstructure:"runOnStart"`
}

// Config 顶层配置结构
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Link       LinkConfig       `mapstructure:"link"`
	Serial     SerialConfig     `mapstructure:"serial"`
	TCP        TCPConfig        `mapstructure:"tcp"`
	Reassembly ReassemblyConfig `mapstructure:"reassembly"`
	Outbound   OutboundConfig   `mapstructure:"outbound"`
	History    HistoryConfig    `mapstructure:"history"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Script     ScriptConfig     `mapstructure:"script"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 AFE_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("AFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	switch c.Link.Kind {
	case "serial", "tcp":
	default:
		return fmt.Errorf("link.kind must be serial or tcp, got %q", c.Link.Kind)
	}
	if c.Reassembly.IdleWindow <= 0 {
		return fmt.Errorf("reassembly.idleWindow must be positive")
	}
	if c.Outbound.QueueSize <= 0 {
		return fmt.Errorf("outbound.queueSize must be positive")
	}
	if c.Link.Kind == "serial" && c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baudRate must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "afe-bench")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("link.kind", "serial")

	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baudRate", 115200)
	v.SetDefault("serial.dataBits", 8)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.stopBits", 1)
	v.SetDefault("serial.readTimeout", "50ms")

	v.SetDefault("tcp.addr", "127.0.0.1:7000")
	v.SetDefault("tcp.dialTimeout", "3s")

	v.SetDefault("reassembly.idleWindow", "100ms")

	v.SetDefault("outbound.ratePerSec", 50)
	v.SetDefault("outbound.burst", 10)
	v.SetDefault("outbound.queueSize", 128)
	v.SetDefault("outbound.writeTimeout", "2s")

	v.SetDefault("history.size", 500)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "logs/afe-bench.log")
	v.SetDefault("logging.file.maxSize", 20)
	v.SetDefault("logging.file.maxBackups", 5)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("script.path", "")
	v.SetDefault("script.runOnStart", false)
}
