// Package stream bridges the fan-out publisher to WebSocket clients.
//
// Each client connection holds exactly one fan-out subscription. A
// client that stops reading is dropped by the publisher's bounded-send
// rule; from its point of view the stream simply ends.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quantfolio/market-data/internal/fanout"
	"github.com/quantfolio/market-data/internal/model"
)

// TickStream is the subscription surface of the pipeline coordinator.
type TickStream interface {
	Subscribe() *fanout.Subscription
	Unsubscribe(id uuid.UUID)
}

// Handler serves live tick streams over WebSocket.
type Handler struct {
	source   TickStream
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// tickOut is the wire format sent to stream clients.
type tickOut struct {
	Instrument string `json:"instrument"`
	Price      string `json:"price"`
	Volume     int64  `json:"volume"`
	ObservedAt int64  `json:"observed_at"` // milliseconds since epoch
	Source     string `json:"source"`
}

// NewHandler creates a stream handler on the given tick source.
func NewHandler(source TickStream, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams ticks until the client
// disconnects or the pipeline shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.source.Subscribe()
	if sub == nil {
		// Pipeline already shut down.
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		return
	}
	defer h.source.Unsubscribe(sub.ID)

	h.logger.Debug("stream client connected", "id", sub.ID, "remote", r.RemoteAddr)

	// Reader goroutine: surfaces client disconnect.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			h.logger.Debug("stream client disconnected", "id", sub.ID)
			return
		case tick, ok := <-sub.C:
			if !ok {
				// Unsubscribed (dropped as slow, or shutdown).
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(time.Second))
				return
			}
			if err := h.writeTick(conn, tick); err != nil {
				h.logger.Debug("stream write failed", "id", sub.ID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) writeTick(conn *websocket.Conn, tick model.Tick) error {
	out := tickOut{
		Instrument: tick.Instrument,
		Price:      tick.Price.String(),
		Volume:     tick.Volume,
		ObservedAt: tick.ObservedAt.UnixMilli(),
		Source:     tick.Source,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
