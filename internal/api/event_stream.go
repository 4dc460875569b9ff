package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamBuffer    = 256
	streamPingEvery = 30 * time.Second
	streamWriteWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // отладочный API
}

// streamHello первое сообщение потока: подписка активна
type streamHello struct {
	Type  string   `json:"type"`
	Types []string `json:"types,omitempty"`
}

// handleEvents отдаёт события мира в WebSocket.
// ?types=chunk.loaded,block.changed ограничивает типы.
func (rs *RestServer) handleEvents(c *gin.Context) {
	var types []string
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	middleware.MarkStream(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return // Upgrade уже ответил клиенту
	}
	defer conn.Close()

	rs.httpMetrics.StreamOpened()
	defer rs.httpMetrics.StreamClosed()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := make(chan *eventbus.Envelope, streamBuffer)
	sub, err := rs.events.Subscribe(ctx, eventbus.Filter{Types: types}, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case out <- ev:
		default:
			logging.Debug("Поток событий %s переполнен, %s отброшено", middleware.RequestID(c), ev.EventType)
		}
	})
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "шина событий недоступна"),
			time.Now().Add(time.Second))
		return
	}
	defer sub.Unsubscribe()

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(streamHello{Type: "subscribed", Types: types}); err != nil {
		return
	}

	// Клиент ничего не шлёт; чтение нужно только чтобы заметить закрытие
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
