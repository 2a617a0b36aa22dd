// Package api mounts the HTTP front end of the fleet service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/robotaxi/api/commands"
	"github.com/kilianp07/robotaxi/api/fleet"
	"github.com/kilianp07/robotaxi/api/stream"
	"github.com/kilianp07/robotaxi/api/trips"
	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
	"github.com/kilianp07/robotaxi/core/report"
	"github.com/kilianp07/robotaxi/core/sim"
	"github.com/kilianp07/robotaxi/core/triplog"
	"github.com/kilianp07/robotaxi/infra/logger"
	"github.com/kilianp07/robotaxi/internal/eventbus"
)

// Routes carries the collaborators behind the endpoints.
type Routes struct {
	Queue   coremqtt.CommandQueue
	Reports *report.Store
	Trips   triplog.Store
	Bus     *eventbus.Bus[sim.Event]
	Token   string
	// Metrics mounts /metrics on the API mux.
	Metrics bool
	Log     logger.Logger
}

// NewMux registers every endpoint on a fresh ServeMux.
func NewMux(r Routes) *http.ServeMux {
	if r.Trips == nil {
		r.Trips = triplog.NopStore{}
	}
	mux := http.NewServeMux()
	mux.Handle("/api/commands", commands.NewHandler(r.Queue, r.Token))
	mux.Handle("/api/status", fleet.NewStatusHandler(r.Reports))
	mux.Handle("/api/taxis", fleet.NewTaxisHandler(r.Reports))
	mux.Handle("/api/trips", trips.NewHandler(r.Trips, r.Token))
	if r.Bus != nil {
		mux.Handle("/api/stream", stream.NewHandler(r.Bus, r.Log))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if r.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

// Serve runs an HTTP server on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("api")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
