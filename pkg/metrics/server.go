package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	METRICS_PATH        = "/metrics"
	HEALTH_PATH         = "/health"
	READ_HEADER_TIMEOUT = 10 * time.Second
	SHUTDOWN_TIMEOUT    = 10 * time.Second
)

// Server exposes the metrics gathered from one registry over HTTP.
type Server struct {
	addr     string
	gatherer prometheus.Gatherer
	server   *http.Server
	logger   *zap.Logger
}

func NewServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	return &Server{addr: addr, gatherer: gatherer, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(METRICS_PATH, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc(HEALTH_PATH, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK\n")
	})
	return mux
}

// Start listens in the background. Listen errors other than a shutdown are logged.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: READ_HEADER_TIMEOUT,
	}
	s.logger.Sugar().Infof("serving metrics on %s%s", s.addr, METRICS_PATH)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	return s.server.Shutdown(ctx)
}
