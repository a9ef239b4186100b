// Package api 控制面 HTTP 接口：串口扫描、命令发送、PEC 计算器、收发记录
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/afe-bench/internal/bench"
	"github.com/taoyao-code/afe-bench/internal/command"
	"github.com/taoyao-code/afe-bench/internal/link"
	"github.com/taoyao-code/afe-bench/internal/pec"
	"github.com/taoyao-code/afe-bench/internal/protocol/afe"
	"github.com/taoyao-code/afe-bench/internal/script"
)

// StandardResponse 标准响应格式
type StandardResponse struct {
	Code      int    `json:"code"`           // 0=成功, >0=HTTP 状态码
	Message   string `json:"message"`        // 消息
	Data      any    `json:"data,omitempty"` // 业务数据
	RequestID string `json:"request_id"`     // 请求追踪ID
	Timestamp int64  `json:"timestamp"`
}

// FrameResult 命令发送结果
type FrameResult struct {
	Kind    afe.Kind    `json:"kind"`
	Frame   string      `json:"frame"`
	Sent    bool        `json:"sent"`
	Decoded afe.Decoded `json:"decoded"`
}

// Handler 控制面处理器
type Handler struct {
	bench  *bench.Bench
	runner *script.Runner
	ports  func() ([]string, error)
	link   func() (link.Stats, bool)
	logger *zap.Logger
}

// Deps 处理器依赖；Ports 与 Link 可为空
type Deps struct {
	Bench  *bench.Bench
	Ports  func() ([]string, error)
	Link   func() (link.Stats, bool)
	Logger *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		bench:  d.Bench,
		runner: script.NewRunner(d.Bench, log),
		ports:  d.Ports,
		link:   d.Link,
		logger: log,
	}
}

// Status GET /api/status
func (h *Handler) Status(c *gin.Context) {
	data := gin.H{
		"session":   h.bench.ID(),
		"connected": h.bench.Connected(),
	}
	if h.link != nil {
		if st, ok := h.link(); ok {
			data["link"] = st
		}
	}
	h.ok(c, "ok", data)
}

// ListPorts GET /api/ports 扫描串口
func (h *Handler) ListPorts(c *gin.Context) {
	if h.ports == nil {
		h.fail(c, http.StatusNotImplemented, "port scan not available", nil)
		return
	}
	ports, err := h.ports()
	if err != nil {
		h.logger.Warn("scan ports failed", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	h.ok(c, "ok", gin.H{"ports": ports})
}

// SendVoltage POST /api/commands/voltage
func (h *Handler) SendVoltage(c *gin.Context) {
	var req command.Voltage
	h.sendCommand(c, &req)
}

// SendAFECount POST /api/commands/afe-count
func (h *Handler) SendAFECount(c *gin.Context) {
	var req command.AFECount
	h.sendCommand(c, &req)
}

// SendRangeVoltage POST /api/commands/range-voltage
func (h *Handler) SendRangeVoltage(c *gin.Context) {
	var req command.RangeVoltage
	h.sendCommand(c, &req)
}

// SendSPIMode POST /api/commands/spi-mode
func (h *Handler) SendSPIMode(c *gin.Context) {
	var req command.SPIMode
	h.sendCommand(c, &req)
}

// sendCommand 绑定、校验、构建并发送；?dry_run=1 时只构建不发送
func (h *Handler) sendCommand(c *gin.Context, req command.Command) {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid json: "+err.Error(), nil)
		return
	}
	f, err := req.Frame()
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res := FrameResult{Kind: req.Kind(), Frame: f.String(), Decoded: afe.Inspect(f)}
	if c.Query("dry_run") != "" {
		h.ok(c, "built", res)
		return
	}
	if err := h.bench.Send(c.Request.Context(), req.Kind(), f); err != nil {
		h.fail(c, classifyError(err), err.Error(), res)
		return
	}
	res.Sent = true
	h.ok(c, "sent", res)
}

// PEC15Request CRC15 计算请求
type PEC15Request struct {
	Data string `json:"data" binding:"required"`
}

// CalcPEC15 POST /api/pec/pec15
func (h *Handler) CalcPEC15(c *gin.Context) {
	var req PEC15Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid json: "+err.Error(), nil)
		return
	}
	data, err := command.ParseHexBytes(req.Data)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	v := pec.PEC15(data)
	h.ok(c, "ok", gin.H{
		"pec":  fmt.Sprintf("0x%04X", v),
		"data": afe.HexString(data),
	})
}

// PEC10Request CRC10 计算请求
type PEC10Request struct {
	Data string `json:"data"`
	// WriteCount 是否折入写计数器位，缺省为 true
	WriteCount *bool `json:"write_count"`
	// Counter 显式写计数器（0..63，十进制或 0x 前缀），设置后隐含 WriteCount
	Counter string `json:"counter"`
}

// CalcPEC10 POST /api/pec/pec10
func (h *Handler) CalcPEC10(c *gin.Context) {
	var req PEC10Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid json: "+err.Error(), nil)
		return
	}
	data, err := command.ParseHexBytes(req.Data)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	out := gin.H{"data": afe.HexString(data)}
	var v uint16
	switch {
	case req.Counter != "":
		n, err := command.ParseUint16(req.Counter)
		if err != nil || n > uint16(pec.CounterMask) {
			h.fail(c, http.StatusBadRequest, fmt.Sprintf("counter %q out of range 0..%d", req.Counter, pec.CounterMask), nil)
			return
		}
		v = pec.PEC10WithCounter(data, uint8(n))
		out["counter"] = n
		out["word"] = fmt.Sprintf("0x%04X", pec.MergeWriteCounter(v, uint8(n)))
	case req.WriteCount != nil && !*req.WriteCount:
		v = pec.PEC10(false, data)
	default:
		v = pec.PEC10(true, data)
	}
	out["pec"] = fmt.Sprintf("0x%03X", v)
	h.ok(c, "ok", out)
}

// ListHistory GET /api/history?dir=rx|tx
func (h *Handler) ListHistory(c *gin.Context) {
	dir, err := bench.ParseDirection(c.Query("dir"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	h.ok(c, "ok", gin.H{"records": h.bench.History().List(dir)})
}

// ClearHistory DELETE /api/history?dir=rx|tx
func (h *Handler) ClearHistory(c *gin.Context) {
	dir, err := bench.ParseDirection(c.Query("dir"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	h.bench.History().Clear(dir)
	h.ok(c, "cleared", nil)
}

// RunScript POST /api/scripts/run 请求体为 YAML 场景
func (h *Handler) RunScript(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	s, err := script.Parse(body)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	res, err := h.runner.Run(c.Request.Context(), s)
	if err != nil {
		h.fail(c, classifyError(err), err.Error(), res)
		return
	}
	h.ok(c, "finished", res)
}

func classifyError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, command.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, bench.ErrNotConnected), errors.Is(err, link.ErrLinkClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, link.ErrWriteTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, StandardResponse{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) fail(c *gin.Context, status int, message string, data any) {
	c.JSON(status, StandardResponse{
		Code:      status,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
	})
}
