// Package station composes a satellite-side session.Server's serve loop,
// an optional metrics HTTP endpoint and extra runnables into a single
// long-running process, the way the teacher's module/aggregate package runs
// multiple server modules concurrently under one errgroup.
package station

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cubesat-gs/satlink/metrics"
	"github.com/cubesat-gs/satlink/session"
)

// Runnable is a long-running component the Station drives to completion (or
// until ctx is cancelled), mirroring the teacher's module.Module.Start shape.
type Runnable func(ctx context.Context) error

// Station runs a satellite-side session.Server alongside housekeeping
// runnables (a metrics endpoint, a TAP monitor pump, ...) under one
// cancellation scope: if any of them exits, the rest are stopped.
type Station struct {
	Logger *log.Logger

	server *session.Server
	extra  []Runnable

	metricsAddr string
	registry    *prometheus.Registry
}

// New returns a Station driving server's Serve loop.
func New(server *session.Server) *Station {
	return &Station{server: server}
}

// WithMetrics registers collector on a fresh prometheus.Registry and adds a
// runnable serving it over HTTP on addr (e.g. ":9090"), in the shape of the
// exporter examples' http.Handle("/metrics", promhttp.Handler()).
func (s *Station) WithMetrics(addr string, collector *metrics.LinkCollector) *Station {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)
	s.metricsAddr = addr
	s.registry = reg
	return s
}

// Also registers an additional Runnable to start alongside the session
// server and metrics endpoint, e.g. a monitor.TapBridge read pump.
func (s *Station) Also(r Runnable) *Station {
	s.extra = append(s.extra, r)
	return s
}

func (s *Station) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// Run starts the session server and every registered runnable and blocks
// until ctx is cancelled or one of them returns an error.
func (s *Station) Run(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	if s.server != nil {
		eg.Go(func() error {
			err := s.server.Serve(egctx)
			if err != nil && egctx.Err() == nil {
				return fmt.Errorf("session server exited: %w", err)
			}
			return nil
		})
	}

	if s.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		httpServer := &http.Server{Addr: s.metricsAddr, Handler: mux}
		eg.Go(func() error {
			s.logf("station: metrics listening on %s", s.metricsAddr)
			err := httpServer.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server exited: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-egctx.Done()
			return httpServer.Close()
		})
	}

	for _, r := range s.extra {
		r := r
		eg.Go(func() error { return r(egctx) })
	}

	return eg.Wait()
}
