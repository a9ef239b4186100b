package transport

import (
	"context"
	"fmt"
	"net"

	cfgpkg "github.com/taoyao-code/afe-bench/internal/config"
)

type tcpPort struct {
	net.Conn
	addr string
}

func (p *tcpPort) Name() string { return "tcp://" + p.addr }

// DialTCP 连接串口转 TCP 桥或模拟器
func DialTCP(ctx context.Context, cfg cfgpkg.TCPConfig) (Port, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout}
	c, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}
	return &tcpPort{Conn: c, addr: cfg.Addr}, nil
}

// WrapConn 将已有连接包装为 Port（测试中配合 net.Pipe 使用）
func WrapConn(c net.Conn, name string) Port {
	return &tcpPort{Conn: c, addr: name}
}
