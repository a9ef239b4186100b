package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// BenchMetrics 测试台业务指标
type BenchMetrics struct {
	FramesSent       *prometheus.CounterVec // labels: kind
	FramesReceived   *prometheus.CounterVec // labels: result=ok|bad_header|bad_checksum
	Remainders       prometheus.Counter     // 空闲刷新输出的残帧
	BytesSent        prometheus.Counter
	BytesReceived    prometheus.Counter
	PECMismatch      prometheus.Counter // 接收电压帧 PEC 不一致
	WriteErrors      prometheus.Counter
	RateLimitedWaits prometheus.Counter // 发送前被限速等待
	LinkUp           prometheus.Gauge
	QueueDepth       prometheus.Gauge
}

// NewBenchMetrics 注册并返回业务指标
func NewBenchMetrics(reg prometheus.Registerer) *BenchMetrics {
	m := &BenchMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "afe_frames_sent_total",
			Help: "Frames written to the link by command kind.",
		}, []string{"kind"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "afe_frames_received_total",
			Help: "Complete 16-byte frames received by validation result.",
		}, []string{"result"}),
		Remainders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "afe_remainders_total",
			Help: "Short trailing fragments flushed after the idle window.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "afe_bytes_sent_total",
			Help: "Total bytes written to the link.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "afe_bytes_received_total",
			Help: "Total bytes read from the link.",
		}),
		PECMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "afe_pec_mismatch_total",
			Help: "Received voltage frames whose PEC10 does not match.",
		}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "afe_write_errors_total",
			Help: "Link write failures.",
		}),
		RateLimitedWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "afe_rate_limited_total",
			Help: "Writes delayed by the outbound rate limiter.",
		}),
		LinkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "afe_link_up",
			Help: "1 while the link is open.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "afe_outbound_queue_depth",
			Help: "Frames waiting in the outbound queue.",
		}),
	}
	reg.MustRegister(m.FramesSent, m.FramesReceived, m.Remainders, m.BytesSent, m.BytesReceived,
		m.PECMismatch, m.WriteErrors, m.RateLimitedWaits, m.LinkUp, m.QueueDepth)
	return m
}
