// Package server assembles the workload HTTP server with fx.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/config"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
	"github.com/fxnlabs/gpuprim/internal/metrics"
	"github.com/fxnlabs/gpuprim/internal/primitives"
	"github.com/fxnlabs/gpuprim/internal/workload"
	"github.com/fxnlabs/gpuprim/internal/workload/executors"
)

const (
	WorkloadPath = "/workload"
	MetricsPath  = "/metrics"
	HealthPath   = "/healthz"
)

// Module provides everything between a *config.Config plus *zap.Logger and
// a started *http.Server.
var Module = fx.Module("server",
	fx.Provide(
		NewManager,
		NewRunner,
		NewEnv,
		workload.NewHandler,
		NewMux,
		NewHTTPServer,
	),
)

// NewManager selects the device backend and releases it on stop.
func NewManager(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gpu.Manager, error) {
	m, err := gpu.NewManager(log, gpu.ManagerOptions{
		Backend:  cfg.Device.Backend,
		Workers:  cfg.Device.Workers,
		Platform: cfg.Device.Platform,
		Library:  kernels.HostLibrary(),
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return m.Cleanup()
		},
	})
	return m, nil
}

func NewRunner(m *gpu.Manager, cfg *config.Config, log *zap.Logger) *primitives.Runner {
	return primitives.NewRunner(m.GetDevice(), log, cfg.Kernels)
}

func NewEnv(r *primitives.Runner, cfg *config.Config) executors.Env {
	return executors.Env{Runner: r, MaxElements: cfg.Server.MaxElements}
}

func NewMux(h *workload.Handler, m *gpu.Manager) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(WorkloadPath, metrics.Middleware(h, WorkloadPath))
	mux.Handle(MetricsPath, promhttp.Handler())
	mux.Handle(HealthPath, metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "ok %s\n", m.GetBackendType())
	}), HealthPath))
	return mux
}

// NewHTTPServer listens when the app starts and shuts down gracefully when
// it stops.
func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux, log *zap.Logger) *http.Server {
	log = log.Named("server")
	srv := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.ListenAddress, fmt.Sprint(cfg.Server.ListenPort)),
		Handler:     mux,
		ReadTimeout: cfg.Server.ReadTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting server on", zap.String("address", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping server")
			return srv.Shutdown(ctx)
		},
	})
	return srv
}
