// Package server implements the HTTP and WebSocket demo server that exposes
// static QR scanning over the network.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/qrscan/decode"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	handle        *decode.Handle
	logger        *slog.Logger
	corsOrigin    string
	maxUploadMB   int64
	scanTimeout   time.Duration
	retryWithFull bool
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	ScanTimeout time.Duration
	// RetryFull retries whole-image decoding when a requested scan region
	// holds no code.
	RetryFull bool
	// Detector optionally injects a native detection primitive; without one
	// the built-in worker decoder serves all requests.
	Detector decode.Detector
	Logger   *slog.Logger
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ScanResponse is the scan endpoint payload.
type ScanResponse struct {
	Success      bool   `json:"success"`
	Payload      string `json:"payload,omitempty"`
	Error        string `json:"error,omitempty"`
	ProcessingMs int64  `json:"processing_ms"`
}

// NewServer creates a new scan server instance. The decode backend is shared
// across requests and replaced lazily if it becomes unavailable.
func NewServer(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scanTimeout := config.ScanTimeout
	if scanTimeout <= 0 {
		scanTimeout = decode.DefaultTimeout
	}
	return &Server{
		handle:        decode.NewHandle(decode.Config{Native: config.Detector, Timeout: scanTimeout}),
		logger:        logger,
		corsOrigin:    config.CORSOrigin,
		maxUploadMB:   config.MaxUploadMB,
		scanTimeout:   scanTimeout,
		retryWithFull: config.RetryFull,
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.handle.Close()
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.scanImageHandler))
	mux.HandleFunc("/scan/ws", s.scanWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
