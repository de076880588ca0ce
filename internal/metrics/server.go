package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes a gatherer on /metrics while a run is in progress.
type Server struct {
	srv  *http.Server
	addr string
	log  zerolog.Logger
}

// Serve starts serving g on ln in the background.
func Serve(ln net.Listener, g prometheus.Gatherer, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	s := &Server{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr().String(),
		log:  log.With().Str("component", "metrics").Str("addr", ln.Addr().String()).Logger(),
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return s
}

func (s *Server) Addr() string { return s.addr }

// Close shuts the server down, waiting at most timeout for open connections.
func (s *Server) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("metrics server shutdown failed")
		return err
	}
	return nil
}
