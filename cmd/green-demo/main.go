// Command green-demo runs concurrent query clients against an
// in-process echodb server, with waits handled by the configured
// scheduler.
//
// The configuration file is read from $GREEN_CONFIG; without it the
// defaults apply.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webriots/green"
	"github.com/webriots/green/coop"
	"github.com/webriots/green/internal/config"
	"github.com/webriots/green/internal/echodb"
	"github.com/webriots/green/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const configEnv = "GREEN_CONFIG"

type configPath string

func main() {
	fx.New(app(configPath(os.Getenv(configEnv)))).Run()
}

func app(path configPath) fx.Option {
	return fx.Options(
		fx.Supply(path),
		fx.Provide(
			loadConfig,
			newLogger,
			newPromRegistry,
			newMetrics,
			newRegistry,
			newServer,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(serveMetrics, runWorkload),
	)
}

func loadConfig(p configPath) (config.Config, error) {
	return config.Load(string(p))
}

func newLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() { _ = log.Sync() }))
	return log, nil
}

func newPromRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newMetrics(reg *prometheus.Registry) (*green.Metrics, error) {
	return green.NewMetrics(reg)
}

// newRegistry installs the wait handler selected by the configuration
// and clears it again on shutdown.
func newRegistry(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, m *green.Metrics) *green.Registry {
	reg := green.NewRegistry(
		green.WithLogger(log.Named("green")),
		green.WithMetrics(m),
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			switch cfg.Scheduler.Mode {
			case config.ModeCoop:
				reg.SetWaitHandler(coop.Handler())
			case config.ModeSelect:
				reg.SetWaitHandler(green.WaitSelect)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			reg.SetWaitHandler(nil)
			return nil
		},
	})

	return reg
}

func newServer(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*echodb.Server, error) {
	srv, err := echodb.Listen(cfg.Demo.Addr,
		echodb.WithLatency(cfg.Demo.Latency()),
		echodb.WithServerLogger(log.Named("echodb")),
	)
	if err != nil {
		return nil, err
	}
	log.Info("echodb listening", zap.String("addr", srv.Addr()))
	lc.Append(fx.StopHook(srv.Close))
	return srv, nil
}

func serveMetrics(lc fx.Lifecycle, cfg config.Config, reg *prometheus.Registry, log *zap.Logger) {
	if cfg.Metrics.Listen == "" {
		return
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", cfg.Metrics.Listen)
			if err != nil {
				return err
			}
			log.Info("metrics listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

func runWorkload(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	cfg config.Config,
	reg *green.Registry,
	srv *echodb.Server,
	log *zap.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				w := &workload{cfg: cfg, reg: reg, addr: srv.Addr(), log: log.Named("workload")}
				code := 0
				if err := w.run(ctx); err != nil {
					log.Error("workload failed", zap.Error(err))
					code = 1
				}
				_ = sd.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stop.Done():
				return stop.Err()
			}
		},
	})
}
