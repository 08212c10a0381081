package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rjboer/sarsolver/internal/logging"
)

// WebServer exposes evaluation history, live updates and Prometheus metrics
// over HTTP.
type WebServer struct {
	srv    *http.Server
	hub    *Hub
	logger logging.Logger
}

// NewWebServer builds an HTTP server for hub. A nil metrics skips /metrics.
func NewWebServer(addr string, hub *Hub, metrics *Metrics, logger logging.Logger) *WebServer {
	if logger == nil {
		logger = logging.Default()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/history", hub.handleHistory)
	mux.HandleFunc("/api/live", hub.handleLive)
	mux.HandleFunc("/api/config", hub.handleGetConfig)
	mux.HandleFunc("/api/config/update", hub.handleSetConfig)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return &WebServer{
		hub:    hub,
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.With(logging.F("subsystem", "web")),
	}
}

// Handler returns the server's request multiplexer.
func (w *WebServer) Handler() http.Handler { return w.srv.Handler }

// Start listens until the context is canceled, then shuts down gracefully.
func (w *WebServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.srv.Shutdown(shutdownCtx); err != nil {
			w.logger.Warn("web telemetry shutdown", logging.F("error", err))
		}
	}()

	w.logger.Info("web telemetry listening", logging.F("addr", w.srv.Addr))
	if err := w.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
