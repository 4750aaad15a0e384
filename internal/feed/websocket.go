package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/quantfolio/market-data/internal/model"
)

// WSConfig holds settings for the WebSocket feed client.
type WSConfig struct {
	URL                string
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	ReadTimeout        time.Duration
}

// WSFeed reads tick JSON from an upstream exchange feed and forwards
// each tick to the sink. Disconnects trigger reconnection with
// exponential backoff; ticks published upstream while disconnected are
// not replayed.
type WSFeed struct {
	cfg    WSConfig
	logger *slog.Logger
}

// tickWire is the upstream wire format for one tick.
type tickWire struct {
	Instrument string `json:"instrument"`
	Price      string `json:"price"`  // decimal string, e.g. "187.25"
	Volume     int64  `json:"volume"`
	Ts         int64  `json:"ts"`     // milliseconds since epoch
	Source     string `json:"source"`
}

// NewWSFeed creates a WebSocket feed client.
func NewWSFeed(cfg WSConfig, logger *slog.Logger) *WSFeed {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = time.Second
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = 60 * time.Second
	}
	return &WSFeed{cfg: cfg, logger: logger}
}

// Run connects and reads ticks until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context, sink Sink) error {
	delay := f.cfg.ReconnectBaseDelay

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := f.dial(ctx)
		if err != nil {
			f.logger.Warn("feed dial failed",
				"url", f.cfg.URL,
				"retry_in", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay *= 2
			if delay > f.cfg.ReconnectMaxDelay {
				delay = f.cfg.ReconnectMaxDelay
			}
			continue
		}

		delay = f.cfg.ReconnectBaseDelay
		f.logger.Info("feed connected", "url", f.cfg.URL)

		err = f.readLoop(ctx, conn, sink)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected, reconnecting", "error", err)
	}
}

func (f *WSFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	return conn, err
}

// readLoop reads messages until the connection breaks or ctx is done.
func (f *WSFeed) readLoop(ctx context.Context, conn *websocket.Conn, sink Sink) error {
	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if f.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		tick, err := parseTick(data)
		if err != nil {
			f.logger.Warn("unparseable feed message", "error", err)
			continue
		}

		if err := sink.Ingest(tick); err != nil {
			f.logger.Warn("tick not admitted",
				"instrument", tick.Instrument,
				"error", err,
			)
		}
	}
}

// parseTick decodes one upstream message into a model.Tick.
func parseTick(data []byte) (model.Tick, error) {
	var wire tickWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.Tick{}, err
	}

	price, err := decimal.NewFromString(wire.Price)
	if err != nil {
		return model.Tick{}, err
	}

	return model.Tick{
		Instrument: wire.Instrument,
		Price:      price,
		Volume:     wire.Volume,
		ObservedAt: time.UnixMilli(wire.Ts).UTC(),
		Source:     wire.Source,
	}, nil
}
