// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"promohub/internal/pkg/middleware"
	"promohub/internal/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

type AppCtx struct {
	Engine *gin.Engine
	Config *Config
	Tracer trace.Tracer
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// RegisterHandlers 允许服务注册自己的 HTTP 路由
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown 在 HTTP 服务关闭后按注册的逆序执行
	OnShutdown []func(ctx context.Context) error
}

// NewEngine 创建挂好通用中间件的 gin 引擎。
// 顺序：RequestID -> Tracing -> Logger（依赖前两者）-> Metrics -> Recovery -> CORS
func NewEngine(cfg *Config, tracer trace.Tracer) *gin.Engine {
	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Tracing(tracer),
		middleware.Logger(),
		middleware.Metrics(),
		gin.Recovery(),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn().Err(err).Msg("failed to set trusted proxies")
	}
	return r
}

// StartService 封装了通用的启动和优雅关停逻辑，阻塞直到收到退出信号。
func StartService(info AppInfo) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, info); err != nil {
		log.Fatal().Err(err).Str("service", info.ServiceName).Msg("service exited with error")
	}
}

// Run 启动服务直到 ctx 结束，然后依次关闭 HTTP 服务、OnShutdown 钩子与 Tracer。
func Run(ctx context.Context, info AppInfo) error {
	cfg := GetCurrentConfig()

	tc := tracing.Config{ServiceName: info.ServiceName, SampleRatio: cfg.Infra.Jaeger.SampleRatio}
	if cfg.Infra.Jaeger.Enabled {
		tc.Endpoint = cfg.Infra.Jaeger.Endpoint
	}
	tp, err := tracing.InitTracerProvider(tc)
	if err != nil {
		return errors.Wrap(err, "init tracer provider")
	}
	tracer := otel.Tracer(info.ServiceName)

	engine := NewEngine(cfg, tracer)
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Engine: engine, Config: cfg, Tracer: tracer})
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return errors.Wrapf(err, "listen on %s", server.Addr)
		}
	}
	log.Info().Str("service", info.ServiceName).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// a. 先关闭 HTTP 服务器，不再接收新请求
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down http server")
	}

	// b. 释放各服务自己的资源 (后进先出)
	for i := len(info.OnShutdown) - 1; i >= 0; i-- {
		if err := info.OnShutdown[i](shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown hook failed")
		}
	}

	// c. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down tracer provider")
	}

	log.Info().Str("service", info.ServiceName).Msg("gracefully shut down")
	return nil
}
