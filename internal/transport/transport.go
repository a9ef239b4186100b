// Package transport 打开与 AFE 模拟器之间的字节流：本地串口或串口转 TCP 桥。
package transport

import (
	"context"
	"fmt"
	"io"

	cfgpkg "github.com/taoyao-code/afe-bench/internal/config"
)

// Port 双工字节流
type Port interface {
	io.ReadWriteCloser
	// Name 端口名或远端地址，用于日志
	Name() string
}

// Open 按 link.kind 打开端口
func Open(ctx context.Context, cfg *cfgpkg.Config) (Port, error) {
	switch cfg.Link.Kind {
	case "serial":
		return OpenSerial(cfg.Serial)
	case "tcp":
		return DialTCP(ctx, cfg.TCP)
	default:
		return nil, fmt.Errorf("unsupported link kind %q", cfg.Link.Kind)
	}
}
