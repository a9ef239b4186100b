package bootstrap

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/afe-bench/internal/config"
)

func testConfig() *cfgpkg.Config {
	return &cfgpkg.Config{
		App:        cfgpkg.AppConfig{Name: "afe-bench-test"},
		HTTP:       cfgpkg.HTTPConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Link:       cfgpkg.LinkConfig{Kind: "serial"},
		Serial:     cfgpkg.SerialConfig{BaudRate: 115200, DataBits: 8, Parity: "none", StopBits: 1},
		TCP:        cfgpkg.TCPConfig{DialTimeout: time.Second},
		Reassembly: cfgpkg.ReassemblyConfig{IdleWindow: 100 * time.Millisecond},
		Outbound:   cfgpkg.OutboundConfig{QueueSize: 8, WriteTimeout: time.Second},
		History:    cfgpkg.HistoryConfig{Size: 16},
		Metrics:    cfgpkg.MetricsConfig{Enable: true, Path: "/metrics"},
	}
}

func runAsync(ctx context.Context, cfg *cfgpkg.Config) <-chan error {
	errC := make(chan error, 1)
	go func() { errC <- RunContext(ctx, cfg, zap.NewNop()) }()
	return errC
}

func TestRunOfflineWithoutPort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errC := runAsync(ctx, testConfig())

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errC:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return")
	}
}

func TestRunTCPLinkWithStartupScript(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	path := filepath.Join(t.TempDir(), "start.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: start\nsteps:\n  - afe_count: {total: 5, init: true}\n"), 0o644))

	cfg := testConfig()
	cfg.Link.Kind = "tcp"
	cfg.TCP.Addr = ln.Addr().String()
	cfg.Script = cfgpkg.ScriptConfig{Path: path, RunOnStart: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errC := runAsync(ctx, cfg)

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	got := make([]byte, 16)
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0xAA, 0x00, 0x00, 0x80, 0x01, 0x00, 0x05, 0x01, 0, 0, 0, 0, 0, 0, 0x86}, got)

	cancel()
	select {
	case err := <-errC:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return")
	}
}

func TestRunTCPDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := testConfig()
	cfg.Link.Kind = "tcp"
	cfg.TCP.Addr = addr

	err = RunContext(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
