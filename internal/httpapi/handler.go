// Package httpapi exposes read-only price lookups and health checks.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantfolio/market-data/internal/model"
)

// PriceReader is the lookup surface of the pipeline coordinator.
type PriceReader interface {
	Lookup(instrument string) (model.CachedPrice, bool)
	Instruments() []string
	BufferDepth() int
}

// Pinger checks durable-store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// priceOut is the JSON shape for one cached price.
type priceOut struct {
	Instrument string `json:"instrument"`
	Price      string `json:"price"`
	ObservedAt int64  `json:"observed_at"` // milliseconds since epoch
}

// NewHandler builds the API mux: /prices, /prices/{instrument}, /health.
func NewHandler(reader PriceReader, store Pinger, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /prices/{instrument}", func(w http.ResponseWriter, r *http.Request) {
		instrument := r.PathValue("instrument")

		p, ok := reader.Lookup(instrument)
		if !ok {
			http.Error(w, "no price for instrument", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toPriceOut(p))
	})

	mux.HandleFunc("GET /prices", func(w http.ResponseWriter, r *http.Request) {
		instruments := reader.Instruments()
		out := make([]priceOut, 0, len(instruments))
		for _, inst := range instruments {
			if p, ok := reader.Lookup(inst); ok {
				out = append(out, toPriceOut(p))
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":  len(out),
			"prices": out,
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := store.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}

		health.Components["pipeline"] = map[string]any{
			"buffer_depth": reader.BufferDepth(),
			"instruments":  len(reader.Instruments()),
		}

		code := http.StatusOK
		if health.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health)
	})

	return mux
}

func toPriceOut(p model.CachedPrice) priceOut {
	return priceOut{
		Instrument: p.Instrument,
		Price:      p.Price.String(),
		ObservedAt: p.ObservedAt.UnixMilli(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
