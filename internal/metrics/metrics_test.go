package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchMetricsExposed(t *testing.T) {
	reg := NewRegistry()
	m := NewBenchMetrics(reg)

	m.FramesSent.WithLabelValues("spi_mode").Inc()
	m.FramesReceived.WithLabelValues("ok").Add(2)
	m.Remainders.Inc()
	m.LinkUp.Set(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesSent.WithLabelValues("spi_mode")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived.WithLabelValues("ok")))

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, name := range []string{"afe_frames_sent_total", "afe_remainders_total", "afe_link_up", "go_goroutines"} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestNewBenchMetricsDuplicateRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	NewBenchMetrics(reg)
	assert.Panics(t, func() { NewBenchMetrics(reg) })
}
