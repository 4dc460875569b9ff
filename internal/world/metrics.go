package world

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики подсистемы чанков
type Metrics struct {
	resident    *prometheus.GaugeVec
	generation  prometheus.Histogram
	loaded      prometheus.Counter
	failed      prometheus.Counter
	unloaded    prometheus.Counter
	faces       prometheus.Histogram
	budgetLimit prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// nil reg – метрики создаются, но никуда не регистрируются (для тестов).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resident: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "chunks",
			Name:      "resident",
			Help:      "Количество чанков в памяти по состояниям жизненного цикла.",
		}, []string{"state"}),
		generation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "chunks",
			Name:      "generation_seconds",
			Help:      "Время процедурной генерации одного чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunks",
			Name:      "loaded_total",
			Help:      "Чанков, успешно заполненных источником.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunks",
			Name:      "failed_total",
			Help:      "Чанков, которые источник не смог заполнить.",
		}),
		unloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunks",
			Name:      "unloaded_total",
			Help:      "Выгруженных чанков.",
		}),
		faces: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "mesh",
			Name:      "visible_faces",
			Help:      "Видимых граней в меше одного чанка.",
			Buckets:   []float64{0, 64, 256, 1024, 1536, 4096, 8192, 16384},
		}),
		budgetLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "chunks",
			Name:      "budget",
			Help:      "Максимальное число резидентных чанков.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.resident, m.generation, m.loaded, m.failed, m.unloaded, m.faces, m.budgetLimit)
	}
	return m
}

// ObserveGeneration записывает длительность генерации
func (m *Metrics) ObserveGeneration(d time.Duration) {
	m.generation.Observe(d.Seconds())
}

// ObserveFaces записывает количество видимых граней меша
func (m *Metrics) ObserveFaces(n int) {
	m.faces.Observe(float64(n))
}

func (m *Metrics) addLoaded(n int)   { m.loaded.Add(float64(n)) }
func (m *Metrics) addFailed(n int)   { m.failed.Add(float64(n)) }
func (m *Metrics) addUnloaded(n int) { m.unloaded.Add(float64(n)) }

// setResident обновляет счётчики по состояниям
func (m *Metrics) setResident(counts map[ChunkState]int) {
	for _, s := range allStates {
		m.resident.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

func (m *Metrics) setBudget(limit int) {
	m.budgetLimit.Set(float64(limit))
}
