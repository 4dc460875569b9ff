package middleware

import (
	"net/http"
	"time"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	// RequestIDHeader заголовок с идентификатором запроса (входящий и исходящий)
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey ключ идентификатора в gin.Context
	RequestIDKey = "request_id"

	streamKey = "stream"
)

// AccessLogOptions настройки журнала запросов
type AccessLogOptions struct {
	// SlowThreshold запросы дольше пишутся как Warn; 0 – 250мс
	SlowThreshold time.Duration
	// Quiet маршруты, которые не пишутся вовсе (health, metrics)
	Quiet []string
}

// AccessLog пишет по строке на запрос в логгер компонента "http".
// Чтения мира идут на уровне Debug, правки на Info, 5xx на Error.
func AccessLog(opts AccessLogOptions) gin.HandlerFunc {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 250 * time.Millisecond
	}
	quiet := make(map[string]struct{}, len(opts.Quiet))
	for _, route := range opts.Quiet {
		quiet[route] = struct{}{}
	}
	logger := logging.GetComponentLogger("http")

	return func(c *gin.Context) {
		id := requestID(c)
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		route := routeOf(c)
		if _, skip := quiet[route]; skip {
			return
		}

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("🌐 %s %s → %d за %s (id=%s) %s", c.Request.Method, route, status, latency, id, c.Errors.String())
		case latency > opts.SlowThreshold && !IsStream(c):
			logger.Warn("🐢 %s %s → %d за %s (id=%s)", c.Request.Method, route, status, latency, id)
		case c.Request.Method == http.MethodGet:
			logger.Debug("🌐 %s %s → %d за %s (id=%s)", c.Request.Method, route, status, latency, id)
		default:
			logger.Info("🌐 %s %s → %d за %s ip=%s (id=%s)", c.Request.Method, route, status, latency, c.ClientIP(), id)
		}
	}
}

// RequestID возвращает идентификатор, выданный AccessLog
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// requestID берёт корректный UUID из заголовка клиента, затем trace-ID
// активного спана, иначе выдаёт новый
func requestID(c *gin.Context) string {
	if hdr := c.GetHeader(RequestIDHeader); hdr != "" {
		if id, err := uuid.Parse(hdr); err == nil {
			return id.String()
		}
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

// routeOf шаблон маршрута вместо сырого URL, чтобы координаты чанков
// не порождали отдельные строки и метки
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// MarkStream помечает запрос как долгоживущий поток: его длительность
// не считается медленным запросом и не попадает в гистограмму
func MarkStream(c *gin.Context) {
	c.Set(streamKey, true)
}

// IsStream сообщает, помечен ли запрос через MarkStream
func IsStream(c *gin.Context) bool {
	return c.GetBool(streamKey)
}
