package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newRouter(keys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestTracing(), APIKeyAuth(keys, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		header map[string]string
		code   int
	}{
		{"未启用", nil, nil, http.StatusOK},
		{"缺少key", []string{"bench-secret"}, nil, http.StatusUnauthorized},
		{"错误key", []string{"bench-secret"}, map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"X-API-Key", []string{"bench-secret"}, map[string]string{"X-API-Key": "bench-secret"}, http.StatusOK},
		{"Bearer", []string{"other", "bench-secret"}, map[string]string{"Authorization": "Bearer bench-secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			newRouter(tt.keys).ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestRequestTracing(t *testing.T) {
	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc", rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "benc****cret", maskAPIKey("bench-secret"))
}
