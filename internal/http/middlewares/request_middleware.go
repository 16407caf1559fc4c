package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags every request with a correlation id and echoes it in the
// response header. An inbound id is kept only when it parses as a UUID;
// anything else is replaced, so log fields never carry client-chosen text.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)

		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Set(CtxRequestID, id)

		ctx.Next()
	}
}

// RequestIDFromContext returns the id stamped by RequestID, or "" when the
// middleware did not run.
func RequestIDFromContext(c *gin.Context) string {
	v, ok := c.Get(CtxRequestID)

	if !ok {
		return ""
	}

	id, _ := v.(string)

	return id
}

// RequestLogger emits one line per request after the handler chain ran.
// Server faults log at error, client faults at warn, the rest at info.
func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path // unrouted, e.g. 404
		}

		method := ctx.Request.Method

		ctx.Next()

		status := ctx.Writer.Status()

		attrs := []any{
			"method", method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFromContext(ctx),
			"client_ip", ctx.ClientIP(),
		}

		if uid, ok := UserIDFromContext(ctx); ok && uid != "" {
			attrs = append(attrs, "user_id", uid)
		}

		if len(ctx.Errors) > 0 {
			attrs = append(attrs, "errors", ctx.Errors.String())
		}

		level := slog.LevelInfo

		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		slog.Default().Log(ctx.Request.Context(), level, "http_request", attrs...)
	}
}
