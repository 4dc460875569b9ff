package observability

import (
	"context"
	"os"
	"testing"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestMain(m *testing.M) {
	logging.Configure("", logging.WARN, logging.WARN)
	os.Exit(m.Run())
}

func TestInitTelemetryDisabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTelemetry(context.Background(), Options{ServiceName: "voxel-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	// Глобальный провайдер не подменяется
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestInitTelemetryEnabled(t *testing.T) {
	// Экспортер подключается лениво, поэтому создание не требует коллектора
	shutdown, err := InitTelemetry(context.Background(), Options{
		Enabled:     true,
		ServiceName: "voxel-test",
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		SampleRatio: 0.5,
		WorldSeed:   1337,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Сброс в недоступный коллектор может вернуть ошибку, но не должен зависать
	_ = shutdown(ctx)
}
