package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves /metrics and /healthz on a side port.
type MetricsServer struct {
	srv      *http.Server
	listener net.Listener
	log      *slog.Logger
}

func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// StartMetricsServer listens on addr and serves in the background. An empty
// addr disables the server and returns nil, nil.
func StartMetricsServer(addr string, log *slog.Logger) (*MetricsServer, error) {
	if addr == "" {
		return nil, nil
	}
	if log == nil {
		log = Discard()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	ms := &MetricsServer{
		srv:      &http.Server{Handler: NewRouter(), ReadHeaderTimeout: 5 * time.Second},
		listener: listener,
		log:      log,
	}
	log.Info("metrics server listening", "addr", listener.Addr().String())
	go func() {
		if err := ms.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()
	return ms, nil
}

func (m *MetricsServer) Addr() string {
	if m == nil || m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m == nil || m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
