package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"promohub/internal/pkg/tracing"
)

// Logger 把携带 request_id 与 trace_id 的 logger 注入 context，并在请求结束时记录一行访问日志
// 需要放在 RequestID 与 Tracing 之后
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		logger := zlog.With().
			Str("request_id", GetRequestID(c)).
			Str("trace_id", tracing.GetTraceIDFromContext(ctx)).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(ctx))

		c.Next()

		status := c.Writer.Status()
		ev := logger.Info()
		switch {
		case status >= 500:
			ev = logger.Error()
		case status >= 400:
			ev = logger.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}
