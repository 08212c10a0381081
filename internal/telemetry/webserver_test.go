package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWebServerRoutes(t *testing.T) {
	hub := newTestHub(10)
	hub.Report(Sample{Direction: DirectionForward, Pulses: 3})
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.Report(Sample{Direction: DirectionForward})

	srv := httptest.NewServer(NewWebServer("", hub, m, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	var history []Sample
	err = json.NewDecoder(resp.Body).Decode(&history)
	resp.Body.Close()
	if err != nil || len(history) != 1 || history[0].Pulses != 3 {
		t.Fatalf("unexpected history %+v (%v)", history, err)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `sar_evaluations_total{direction="forward"} 1`) {
		t.Fatalf("expected forward counter in metrics output:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET config: %v", err)
	}
	var cfg Config
	err = json.NewDecoder(resp.Body).Decode(&cfg)
	resp.Body.Close()
	if err != nil || cfg.HistoryLimit != 10 {
		t.Fatalf("unexpected config %+v (%v)", cfg, err)
	}
}

func TestWebServerWithoutMetrics(t *testing.T) {
	srv := httptest.NewServer(NewWebServer("", newTestHub(1), nil, nil).Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", resp.StatusCode)
	}
}

func TestLiveStreamsHistory(t *testing.T) {
	hub := newTestHub(10)
	hub.Report(Sample{Direction: DirectionAdjoint, Scatterers: 9})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/live", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		hub.handleLive(rr, req)
		close(done)
	}()
	cancel()
	<-done

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"scatterers":9`) {
		t.Fatalf("expected replayed history, got %q", rr.Body.String())
	}
}

func TestWebServerStartStops(t *testing.T) {
	ws := NewWebServer("127.0.0.1:0", newTestHub(1), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- ws.Start(ctx) }()
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Start: %v", err)
	}
}
