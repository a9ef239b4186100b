package bench

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taoyao-code/afe-bench/internal/link"
	"github.com/taoyao-code/afe-bench/internal/metrics"
	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
)

type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (s *fakeSender) Write(_ context.Context, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, append([]byte(nil), b...))
	return nil
}

func newTestBench(t *testing.T) (*Bench, *fakeSender, *observer.ObservedLogs, *metrics.BenchMetrics) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.NewBenchMetrics(prometheus.NewRegistry())
	b := New(Options{Logger: zap.New(core), Metrics: m, HistorySize: 10})
	s := &fakeSender{}
	b.Attach(s)
	return b, s, logs, m
}

func TestSendNotConnected(t *testing.T) {
	b := New(Options{})
	assert.False(t, b.Connected())
	err := b.Send(context.Background(), afe.KindSPIMode, afe.BuildSPIModeCommand(1))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Len(t, b.ID(), 36)
}

func TestSendBuildersRecordTX(t *testing.T) {
	b, s, logs, m := newTestBench(t)
	ctx := context.Background()

	f := afe.BuildAFECountCommand(5, true)
	require.NoError(t, b.Send(ctx, afe.KindAFECount, f))
	require.NoError(t, b.Send(ctx, afe.KindSPIMode, afe.BuildSPIModeCommand(3)))
	require.NoError(t, b.Send(ctx, afe.KindRangeVoltage, afe.BuildRangeVoltageCommand(afe.RangeVoltageCommand{
		Group: afe.CellGroupA, EndIndex: 29, Start: afe.Volts(3.3), Step: 10,
	})))
	require.NoError(t, b.Send(ctx, afe.KindVoltage, afe.BuildVoltageCommand(afe.VoltageCommand{
		SubCommand: afe.CellGroupA.SubCommand(),
		Cells:      [3]afe.Voltage{afe.Volts(3.3), afe.Volts(3.3), afe.Volts(3.3)},
	})))

	require.Len(t, s.frames, 4)
	assert.Equal(t, f[:], s.frames[0])

	tx := b.History().List(DirTX)
	require.Len(t, tx, 4)
	assert.Equal(t, "afe_count", tx[0].Kind)
	assert.Equal(t, "55 AA 00 00 80 01 00 05 01 00 00 00 00 00 00 86", tx[0].Hex)

	assert.Equal(t, 1, logs.FilterMessage("TX: 55 AA 00 00 80 01 00 05 01 00 00 00 00 00 00 86").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesSent.WithLabelValues("voltage")))
}

func TestSendWriteError(t *testing.T) {
	b, s, _, m := newTestBench(t)
	s.err = errors.New("boom")
	err := b.Send(context.Background(), afe.KindSPIMode, afe.BuildSPIModeCommand(0))
	assert.Error(t, err)
	assert.Empty(t, b.History().List(""))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WriteErrors))
}

func TestHandleEventFrames(t *testing.T) {
	b, _, logs, m := newTestBench(t)

	good := afe.BuildVoltageCommand(afe.VoltageCommand{SubCommand: afe.CellGroupB.SubCommand(), AFEIndex: 1})
	badPEC := afe.BuildVoltageCommand(afe.VoltageCommand{SubCommand: afe.CellGroupB.SubCommand(), AFEIndex: 1, CorruptPEC: true})
	badSum := afe.BuildSPIModeCommand(1)
	badSum[15]++

	now := time.Now()
	b.HandleEvent(link.Event{Kind: link.EventFrame, Frame: good, At: now})
	b.HandleEvent(link.Event{Kind: link.EventFrame, Frame: badPEC, At: now})
	b.HandleEvent(link.Event{Kind: link.EventFrame, Frame: badSum, At: now})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesReceived.WithLabelValues("bad_checksum")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PECMismatch))

	rx := b.History().List(DirRX)
	require.Len(t, rx, 3)
	require.NotNil(t, rx[0].Decoded)
	assert.Equal(t, afe.KindVoltage, rx[0].Decoded.Kind)
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestHandleEventRemainder(t *testing.T) {
	b, _, logs, m := newTestBench(t)
	b.HandleEvent(link.Event{Kind: link.EventRemainder, Remainder: []byte{0x55, 0xAA, 0x01}, At: time.Now()})

	rx := b.History().List(DirRX)
	require.Len(t, rx, 1)
	assert.Equal(t, "remainder", rx[0].Kind)
	assert.Equal(t, "55 AA 01", rx[0].Hex)
	assert.Nil(t, rx[0].Decoded)
	assert.Equal(t, 1, logs.FilterMessage("RX (Rem): 55 AA 01").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Remainders))
}

func TestHistoryRingAndClear(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		dir := DirTX
		if i%2 == 1 {
			dir = DirRX
		}
		h.Add(Record{Dir: dir})
	}
	all := h.List("")
	require.Len(t, all, 3)
	assert.Equal(t, uint64(3), all[0].Seq)
	assert.Equal(t, uint64(5), all[2].Seq)

	h.Clear(DirTX)
	left := h.List("")
	require.Len(t, left, 1)
	assert.Equal(t, DirRX, left[0].Dir)

	h.Clear("")
	assert.Empty(t, h.List(""))
	assert.Equal(t, uint64(6), h.Add(Record{}).Seq)
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": "", "rx": DirRX, " TX ": DirTX} {
		d, err := ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}
	_, err := ParseDirection("both")
	assert.Error(t, err)
}
