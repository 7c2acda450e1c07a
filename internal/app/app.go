// Package app wires configuration, logging, the world, and the HTTP surface
// into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	server "primal-royale/server"
	"primal-royale/server/gear"
	"primal-royale/server/internal/config"
	"primal-royale/server/logging"
	loggingsinks "primal-royale/server/logging/sinks"
)

const (
	configEnv = "PRIMAL_CONFIG"
	gearEnv   = "PRIMAL_GEAR"
)

// Run boots the server and blocks until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv(configEnv))
	if err != nil {
		return err
	}

	catalog := gear.Default()
	if path := os.Getenv(gearEnv); path != "" {
		catalog, err = gear.Load(path)
		if err != nil {
			return err
		}
	}

	router, zapLogger, err := buildRouter(cfg.Logging)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			log.Printf("failed to close logging router: %v", cerr)
		}
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	}()

	world := server.NewWorld(cfg, catalog, router)
	hub := server.NewHub(world, cfg.Server.TickRate, log.Default())

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	srv := &http.Server{
		Addr:    cfg.Server.BindAddress,
		Handler: server.NewHTTPHandler(hub),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Server.BindAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildRouter assembles the event pipeline from the configured sink names.
func buildRouter(cfg config.LoggingConfig) (*logging.Router, *zap.Logger, error) {
	logCfg := logging.DefaultConfig()
	if len(cfg.Sinks) > 0 {
		logCfg.EnabledSinks = cfg.Sinks
	}
	logCfg.MinimumSeverity = parseSeverity(cfg.MinSeverity)

	var named []logging.NamedSink
	var zapLogger *zap.Logger
	for _, name := range logCfg.EnabledSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: loggingsinks.NewConsoleSink(os.Stdout, logCfg.Console),
			})
		case "zap":
			logger, err := zap.NewProduction()
			if err != nil {
				return nil, nil, err
			}
			zapLogger = logger
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: loggingsinks.NewZapSink(logger),
			})
		case "memory":
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: loggingsinks.NewMemorySink(),
			})
		default:
			return nil, nil, fmt.Errorf("unknown log sink %q", name)
		}
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logCfg, named)
	if err != nil {
		return nil, nil, err
	}
	return router, zapLogger, nil
}

func parseSeverity(name string) logging.Severity {
	switch name {
	case "debug":
		return logging.SeverityDebug
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}
