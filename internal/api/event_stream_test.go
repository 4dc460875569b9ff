package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStream(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	rs, err := NewRestServer(Config{
		World:    newFakeWorld(),
		Events:   bus,
		Registry: reg,
		Gatherer: reg,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(rs.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events?types=" + eventbus.TypeBlockChanged
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello streamHello
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "subscribed", hello.Type)
	assert.Equal(t, []string{eventbus.TypeBlockChanged}, hello.Types)

	ctx := context.Background()
	skipped, err := eventbus.NewEnvelope("world", eventbus.TypeChunkLoaded, 1, eventbus.PriorityLow, eventbus.ChunkEvent{})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, skipped))

	changed, err := eventbus.NewEnvelope("world", eventbus.TypeBlockChanged, 2, eventbus.PriorityHigh, eventbus.BlockChanged{
		Position: vec.Vec3{X: 1, Y: 2, Z: 3},
		Block:    1,
		Name:     "stone",
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, changed))

	var got eventbus.Envelope
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, changed.ID, got.ID)
	assert.Equal(t, eventbus.TypeBlockChanged, got.EventType)

	var payload eventbus.BlockChanged
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, vec.Vec3{X: 1, Y: 2, Z: 3}, payload.Position)

	// Открытый поток виден в метриках
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "voxel_api_http_streams_open 1")
}

func TestEventStreamDisabled(t *testing.T) {
	rs := newTestServer(t, newFakeWorld(), nil)
	w := do(rs, http.MethodGet, "/api/events", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
