package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// mockFeedServer serves a WebSocket endpoint driven by handler.
func mockFeedServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func feedURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestParseTick(t *testing.T) {
	tick, err := parseTick([]byte(`{"instrument":"AAPL","price":"187.25","volume":100,"ts":1705321800123,"source":"nasdaq-ws"}`))
	if err != nil {
		t.Fatalf("parseTick() error = %v", err)
	}

	if tick.Instrument != "AAPL" {
		t.Errorf("Instrument = %s, want AAPL", tick.Instrument)
	}
	if !tick.Price.Equal(decimal.NewFromFloat(187.25)) {
		t.Errorf("Price = %s, want 187.25", tick.Price)
	}
	if tick.Volume != 100 {
		t.Errorf("Volume = %d, want 100", tick.Volume)
	}
	if tick.ObservedAt.UnixMilli() != 1705321800123 {
		t.Errorf("ObservedAt = %v, want ts 1705321800123", tick.ObservedAt)
	}
	if tick.Source != "nasdaq-ws" {
		t.Errorf("Source = %s, want nasdaq-ws", tick.Source)
	}
}

func TestParseTick_Malformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{"instrument":"AAPL","price":"one-eighty-seven","ts":1}`,
	}
	for _, raw := range cases {
		if _, err := parseTick([]byte(raw)); err == nil {
			t.Errorf("parseTick(%q) error = nil, want error", raw)
		}
	}
}

func TestWSFeed_ForwardsTicks(t *testing.T) {
	messages := []string{
		`{"instrument":"AAPL","price":"187.25","volume":10,"ts":1705321800000,"source":"test"}`,
		`{"instrument":"MSFT","price":"401.10","volume":20,"ts":1705321800500,"source":"test"}`,
		`this is not a tick`,
		`{"instrument":"AAPL","price":"187.30","volume":5,"ts":1705321801000,"source":"test"}`,
	}

	server := mockFeedServer(t, func(conn *websocket.Conn) {
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	f := NewWSFeed(WSConfig{URL: feedURL(server)}, nil)
	sink := &collectSink{}

	ctx, cancel := context.WithCancel(context.Background())
	go f.Run(ctx, sink)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sink.collected()) >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	ticks := sink.collected()
	if len(ticks) != 3 {
		t.Fatalf("collected %d ticks, want 3 (malformed message skipped)", len(ticks))
	}
	if ticks[0].Instrument != "AAPL" || ticks[1].Instrument != "MSFT" || ticks[2].Instrument != "AAPL" {
		t.Errorf("instruments = %s %s %s, delivery order broken",
			ticks[0].Instrument, ticks[1].Instrument, ticks[2].Instrument)
	}
}

func TestWSFeed_StopsOnCancel(t *testing.T) {
	server := mockFeedServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	f := NewWSFeed(WSConfig{URL: feedURL(server)}, nil)
	sink := &collectSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, sink) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
