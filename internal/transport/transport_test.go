package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	cfgpkg "github.com/taoyao-code/afe-bench/internal/config"
)

func TestSerialMode(t *testing.T) {
	tests := []struct {
		name    string
		cfg     cfgpkg.SerialConfig
		parity  serial.Parity
		stop    serial.StopBits
		wantErr bool
	}{
		{"默认 8N1", cfgpkg.SerialConfig{BaudRate: 115200}, serial.NoParity, serial.OneStopBit, false},
		{"偶校验两停止位", cfgpkg.SerialConfig{BaudRate: 9600, Parity: "EVEN", StopBits: 2}, serial.EvenParity, serial.TwoStopBits, false},
		{"奇校验", cfgpkg.SerialConfig{BaudRate: 9600, Parity: "odd", StopBits: 1}, serial.OddParity, serial.OneStopBit, false},
		{"未知校验", cfgpkg.SerialConfig{Parity: "mark"}, 0, 0, true},
		{"未知停止位", cfgpkg.SerialConfig{StopBits: 3}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := serialMode(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.BaudRate, mode.BaudRate)
			assert.Equal(t, 8, mode.DataBits)
			assert.Equal(t, tt.parity, mode.Parity)
			assert.Equal(t, tt.stop, mode.StopBits)
		})
	}
}

func TestOpenSerialRequiresPort(t *testing.T) {
	_, err := OpenSerial(cfgpkg.SerialConfig{BaudRate: 115200})
	assert.ErrorIs(t, err, ErrNoPort)
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4)
		_, _ = io.ReadFull(c, buf)
		got <- buf
	}()

	cfg := &cfgpkg.Config{
		Link: cfgpkg.LinkConfig{Kind: "tcp"},
		TCP:  cfgpkg.TCPConfig{Addr: ln.Addr().String(), DialTimeout: time.Second},
	}
	p, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "tcp://"+ln.Addr().String(), p.Name())

	_, err = p.Write([]byte{0x55, 0xAA, 0x00, 0x01})
	require.NoError(t, err)
	select {
	case b := <-got:
		assert.Equal(t, []byte{0x55, 0xAA, 0x00, 0x01}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for bytes")
	}
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(context.Background(), &cfgpkg.Config{Link: cfgpkg.LinkConfig{Kind: "usb"}})
	assert.Error(t, err)
}
