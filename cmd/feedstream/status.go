package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/feedstream/internal/connection"
	"github.com/rickgao/feedstream/internal/version"
)

// statsSource is satisfied by *connection.Controller.
type statsSource interface {
	Stats() connection.Stats
}

type healthResponse struct {
	Status        string       `json:"status"`
	State         string       `json:"state"`
	Attempt       int          `json:"attempt"`
	Connects      int64        `json:"connects"`
	Failures      int64        `json:"failures"`
	Subscriptions int          `json:"subscriptions"`
	Tokens        int          `json:"tokens"`
	LastConnected *time.Time   `json:"last_connected,omitempty"`
	LastPong      *time.Time   `json:"last_pong,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	Version       version.Info `json:"version"`
}

// newStatusHandler serves /health and the Prometheus registry at metricsPath.
func newStatusHandler(src statsSource, gatherer prometheus.Gatherer, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := src.Stats()

		resp := healthResponse{
			Status:        "healthy",
			State:         stats.State.String(),
			Attempt:       stats.Attempt,
			Connects:      stats.Connects,
			Failures:      stats.Failures,
			Subscriptions: stats.Subscriptions,
			Tokens:        stats.Tokens,
			LastConnected: timePtr(stats.LastConnectedAt),
			LastPong:      timePtr(stats.LastPongAt),
			LastError:     stats.LastError,
			Version:       version.Get(),
		}

		switch stats.State {
		case connection.StateConnected:
		case connection.StateConnecting, connection.StateReconnecting:
			resp.Status = "degraded"
		default:
			resp.Status = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
