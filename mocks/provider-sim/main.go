// Command provider-sim serves deterministic responses shaped like the
// external verification and listing APIs, for local runs of the server.
//
// Point the server at it with a PROVIDER_CONFIG_FILE overlay that sets every
// baseURL to the simulator address. Any non-empty credential is accepted.
package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"landtrust/internal/platform/httpserver"
	"landtrust/internal/platform/logger"
)

const (
	defaultPort      = "8090"
	defaultLatencyMs = 50
)

func main() {
	log := logger.New(envOr("LOG_LEVEL", "info"))
	port := envOr("PORT", defaultPort)

	latency := defaultLatencyMs
	if v := os.Getenv("LATENCY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Warn("invalid LATENCY_MS, using default", "value", v, "default", defaultLatencyMs)
		} else {
			latency = n
		}
	}

	sim := newSimulator(time.Duration(latency)*time.Millisecond, log)
	log.Info("provider simulator starting", "port", port, "latency_ms", latency)

	if err := httpserver.New(":"+port, sim.routes()).ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

