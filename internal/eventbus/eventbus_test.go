package eventbus

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.Configure("", logging.WARN, logging.WARN)
	os.Exit(m.Run())
}

func mustEnvelope(t *testing.T, eventType string, priority int) *Envelope {
	t.Helper()
	ev, err := NewEnvelope("test", eventType, 1, priority, ChunkEvent{Position: world.ChunkPosition{X: 1, Y: 2, Z: 3}})
	require.NoError(t, err)
	return ev
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ev := mustEnvelope(t, TypeChunkLoaded, PriorityLow)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 1, ev.Version)

	var payload ChunkEvent
	require.NoError(t, ev.Decode(&payload))
	assert.Equal(t, world.ChunkPosition{X: 1, Y: 2, Z: 3}, payload.Position)
}

func TestMemoryBusFilters(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	var got []string
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeBlockChanged}}, func(_ context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkLoaded, PriorityLow)))
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeBlockChanged, PriorityHigh)))
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{TypeBlockChanged}, got)
	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Consumed)
	assert.Zero(t, stats.InFlight)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := make(chan struct{}, 4)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {
		calls <- struct{}{}
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, TypeLoaderMoved, PriorityLow)))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, time.Millisecond)
	assert.Empty(t, calls)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	// Шина без рассылки: буфер не разгружается, пока тест не запустит цикл
	bus := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, 1),
		done:        make(chan struct{}),
	}

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkLoaded, PriorityLow)))
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkLoaded, PriorityLow)))
	assert.Equal(t, uint64(1), bus.Metrics().Dropped)
	assert.Equal(t, 1, bus.Metrics().InFlight)

	// Высокий приоритет ждёт места и уважает отмену
	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(cctx, mustEnvelope(t, TypeBlockChanged, PriorityHigh)), context.DeadlineExceeded)
	assert.Equal(t, uint64(2), bus.Metrics().Dropped)

	go bus.dispatchLoop()
	require.NoError(t, bus.Close())
	assert.Equal(t, uint64(1), bus.Metrics().Published)
	assert.ErrorIs(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkLoaded, PriorityLow)), ErrClosed)
	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMetricsExporter(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	exporter, err := NewMetricsExporter(bus, reg, time.Millisecond)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkUnloaded, PriorityLow)))
	}
	require.NoError(t, bus.Close())

	exporter.Collect()
	exporter.Collect() // повторный сбор не удваивает счётчики
	assert.Equal(t, 3.0, testutil.ToFloat64(exporter.published))
	assert.Zero(t, testutil.ToFloat64(exporter.inflight))

	// Повторная регистрация в том же регистре – ошибка
	_, err = NewMetricsExporter(bus, reg, 0)
	assert.Error(t, err)
}

func TestLoggingListener(t *testing.T) {
	bus := NewMemoryBus(4)
	sub, err := StartLoggingListener(context.Background(), bus)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, TypeChunkFailed, PriorityHigh)))
	require.NoError(t, bus.Close())
	assert.Equal(t, uint64(1), bus.Metrics().Consumed)
	sub.Unsubscribe()
}

func TestJetStreamNames(t *testing.T) {
	assert.Equal(t, "voxel.chunk.loaded", subject(TypeChunkLoaded))
	assert.Equal(t, "api_voxel_block_changed", durableName("api", subject(TypeBlockChanged)))
	assert.Equal(t, "api_voxel_all", durableName("api", subjectPrefix+".>"))
}
