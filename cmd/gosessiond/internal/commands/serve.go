package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/logger"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type ServeCmd struct {
	Config        string `help:"path to a YAML config file; environment variables override it" type:"existingfile" env:"GOSESSION_CONFIG" optional:""`
	EmbeddedRedis bool   `help:"run an in-process Redis (development only); overrides REDIS_ADDR" env:"GOSESSION_EMBEDDED_REDIS"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if globals.Debug {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return err
	}

	if c.EmbeddedRedis {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		defer mr.Close()
		cfg.Redis.Addr = mr.Addr()
		log.WithField("addr", mr.Addr()).Warn("using embedded redis; sessions are lost on restart")
	}

	manager, err := goSession.New().
		WithConfig(cfg.Session()).
		WithLogger(log).
		Build()
	if err != nil {
		return err
	}
	// Close runs a final sweep after the server has drained.
	defer manager.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.StartSweeper(ctx, 0); err != nil {
		return err
	}

	registry := promexport.NewPrometheusExporter(manager).Registry(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	router := httpapi.NewRouter(httpapi.Options{
		Manager: manager,
		Logger:  log,
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := configureHTTPServer(cfg.Server.ListenAddress, router)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.WithFields(logrus.Fields{
		"addr":    cfg.Server.ListenAddress,
		"version": globals.Version,
		"backend": manager.Health(ctx).Backend,
	}).Info("gosessiond ready")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
