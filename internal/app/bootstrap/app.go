// Package bootstrap 编排台架进程的启动与关闭顺序
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/afe-bench/internal/api"
	"github.com/taoyao-code/afe-bench/internal/bench"
	cfgpkg "github.com/taoyao-code/afe-bench/internal/config"
	"github.com/taoyao-code/afe-bench/internal/health"
	"github.com/taoyao-code/afe-bench/internal/httpserver"
	"github.com/taoyao-code/afe-bench/internal/link"
	"github.com/taoyao-code/afe-bench/internal/metrics"
	"github.com/taoyao-code/afe-bench/internal/script"
	"github.com/taoyao-code/afe-bench/internal/transport"
)

// Run 统一启动流程，阻塞直到收到 SIGINT/SIGTERM
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, cfg, log)
}

// RunContext 与 Run 相同，由 ctx 控制退出
func RunContext(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting afe bench", zap.String("app", cfg.App.Name), zap.String("link", cfg.Link.Kind))

	// ========== 阶段1: 指标与会话 ==========
	reg := metrics.NewRegistry()
	bm := metrics.NewBenchMetrics(reg)
	b := bench.New(bench.Options{Logger: log, Metrics: bm, HistorySize: cfg.History.Size})
	log.Info("bench session created", zap.String("session", b.ID()))

	// ========== 阶段2: 打开链路（未配置串口时以离线模式运行）==========
	lk, err := openLink(ctx, cfg, b, bm, log)
	if err != nil {
		return err
	}
	if lk != nil {
		defer func() { _ = lk.Close() }()
	}

	// ========== 阶段3: 健康检查与 HTTP 控制面 ==========
	agg := health.NewAggregator(health.NewLinkChecker(func() health.StatsSource {
		if lk == nil {
			return nil
		}
		return lk
	}))

	var metricsHandler = metrics.Handler(reg)
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}
	readyFn := func() bool { return agg.Ready(context.Background()) }
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, readyFn, log)

	handler := api.NewHandler(api.Deps{
		Bench:  b,
		Ports:  transport.ListPorts,
		Link:   linkStats(lk),
		Logger: log,
	})
	httpSrv.Register(func(r *gin.Engine) {
		health.RegisterHTTPRoutes(r, agg)
		api.RegisterRoutes(r, handler, cfg.HTTP.APIKeys)
	})

	httpErr := make(chan error, 1)
	go func() { httpErr <- httpSrv.Start() }()

	// ========== 阶段4: 启动脚本（可选）==========
	if cfg.Script.RunOnStart && cfg.Script.Path != "" {
		s, err := script.LoadFile(cfg.Script.Path)
		if err != nil {
			log.Error("load startup script failed", zap.Error(err))
		} else {
			go func() {
				if _, err := script.NewRunner(b, log).Run(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("startup script failed", zap.Error(err))
				}
			}()
		}
	}

	// ========== 阶段5: 等待退出 ==========
	var linkDone <-chan struct{}
	if lk != nil {
		linkDone = lk.Done()
	}
	var runErr error
wait:
	for {
		select {
		case <-ctx.Done():
			log.Info("received shutdown signal, gracefully shutting down...")
			break wait
		case err := <-httpErr:
			if err != nil {
				log.Error("http server error", zap.Error(err))
				runErr = err
			}
			break wait
		case <-linkDone:
			// 链路断开后控制面继续服务，发送返回 ErrNotConnected
			log.Warn("link closed", zap.Error(lk.Err()))
			b.Attach(nil)
			linkDone = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("afe bench stopped")
	return runErr
}

func openLink(ctx context.Context, cfg *cfgpkg.Config, b *bench.Bench, bm *metrics.BenchMetrics, log *zap.Logger) (*link.Link, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.TCP.DialTimeout+time.Second)
	defer cancel()

	port, err := transport.Open(dialCtx, cfg)
	if errors.Is(err, transport.ErrNoPort) {
		log.Warn("no serial port configured, running offline; use GET /api/ports to scan")
		return nil, nil
	}
	if err != nil {
		log.Error("open transport failed", zap.Error(err))
		return nil, err
	}

	lk := link.New(port, b.HandleEvent, link.Options{
		IdleWindow:   cfg.Reassembly.IdleWindow,
		QueueSize:    cfg.Outbound.QueueSize,
		WriteTimeout: cfg.Outbound.WriteTimeout,
		RatePerSec:   cfg.Outbound.RatePerSec,
		Burst:        cfg.Outbound.Burst,
		Logger:       log,
		Metrics:      bm,
	})
	lk.Start()
	b.Attach(lk)
	log.Info("link started", zap.String("port", lk.Name()))
	return lk, nil
}

func linkStats(lk *link.Link) func() (link.Stats, bool) {
	if lk == nil {
		return nil
	}
	return func() (link.Stats, bool) { return lk.Stats(), true }
}
