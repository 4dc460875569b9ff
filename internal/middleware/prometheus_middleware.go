package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics метрики REST API мира.
//
//   - <ns>_http_requests_total{route,method,code} – счётчик ответов
//   - <ns>_http_request_duration_seconds{route,method} – гистограмма, без WebSocket-потоков
//   - <ns>_http_requests_inflight – запросы в обработке
//   - <ns>_http_streams_open – открытые WebSocket-потоки событий
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	streams  prometheus.Gauge
}

// NewHTTPMetrics регистрирует метрики в reg (nil – дефолтный регистр).
// Повторная регистрация в том же регистре возвращает ошибку.
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) (*HTTPMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	hm := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Ответы REST API по маршруту и коду.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Время ответа REST API, включая ожидание тика мира.",
			// Запросы к миру ждут ближайшего тика, поэтому сетка смещена к десяткам мс
			Buckets: []float64{0.001, 0.005, 0.02, 0.05, 0.1, 0.25, 1, 5},
		}, []string{"route", "method"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "Запросы REST API в обработке.",
		}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_streams_open",
			Help:      "Открытые WebSocket-потоки событий.",
		}),
	}

	for _, c := range []prometheus.Collector{hm.requests, hm.duration, hm.inflight, hm.streams} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return hm, nil
}

// Handler middleware для router.Use()
func (hm *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hm.inflight.Inc()
		start := time.Now()
		c.Next()
		hm.inflight.Dec()

		route := routeOf(c)
		hm.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		if !IsStream(c) {
			hm.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		}
	}
}

// StreamOpened учитывает новый поток; вызывающий обязан вызвать StreamClosed
func (hm *HTTPMetrics) StreamOpened() { hm.streams.Inc() }

// StreamClosed парный к StreamOpened
func (hm *HTTPMetrics) StreamClosed() { hm.streams.Dec() }

// MetricsHandler отдаёт метрики из gatherer (nil – дефолтный сборщик)
func MetricsHandler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
