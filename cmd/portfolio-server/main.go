package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/songzhibin97/portfolio/internal/config"
	"github.com/songzhibin97/portfolio/internal/log/driver/stdout"
	"github.com/songzhibin97/portfolio/internal/server"
	"github.com/songzhibin97/portfolio/internal/store"
	"github.com/songzhibin97/portfolio/internal/store/driver/memory"
	"github.com/songzhibin97/portfolio/internal/store/driver/mongo"
	"github.com/songzhibin97/portfolio/internal/tracing"
	"github.com/songzhibin97/portfolio/pkg/log"
)

var (
	configFile = flag.String("config", "", "Configuration file path")
	version    = flag.Bool("version", false, "Show version information")
)

const (
	// Version information
	Version   = "v1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Portfolio Server %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		stdlog.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()
	log.SetDefault(logger.With(log.String(log.FieldService, "portfolio"), log.String(log.FieldVersion, Version)))

	mainLogger := log.Component("main")

	db, err := openDatabase(context.Background(), cfg.Store)
	if err != nil {
		mainLogger.Fatal("Failed to open store", log.String("type", cfg.Store.Type), log.Error(err))
	}
	mainLogger.Info("Store opened", log.String("type", cfg.Store.Type), log.String("database", cfg.Store.Database))

	tp, err := tracing.NewTracerProvider(context.Background(), cfg.Tracing, Version)
	if err != nil {
		mainLogger.Fatal("Failed to initialize tracing", log.Error(err))
	}
	if tp.IsEnabled() {
		mainLogger.Info("Tracing enabled", log.String("endpoint", cfg.Tracing.Endpoint))
	}

	srv, err := server.New(cfg, db, log.Component("server"), server.WithTracerProvider(tp.Provider()))
	if err != nil {
		mainLogger.Fatal("Failed to create server", log.Error(err))
	}

	if err := srv.Start(); err != nil {
		mainLogger.Fatal("Failed to start server", log.Error(err))
	}

	// Wait for interrupt signal or a serve failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		mainLogger.Info("Shutting down", log.String("signal", sig.String()))
	case err := <-srv.Errors():
		mainLogger.Error("Server stopped unexpectedly", log.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		mainLogger.Error("Server forced to shutdown", log.Error(err))
	}
	if err := db.Close(ctx); err != nil {
		mainLogger.Error("Failed to close store", log.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		mainLogger.Error("Failed to shut down tracing", log.Error(err))
	}
	mainLogger.Info("Server gracefully stopped")
}

func newLogger(cfg config.LoggingConfig) (*stdout.StdoutLogger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logCfg := stdout.DefaultConfig()
	logCfg.Level = level
	logCfg.EnableCaller = cfg.EnableCaller
	if cfg.TimeFormat != "" {
		logCfg.TimeFormat = cfg.TimeFormat
	}
	return stdout.New(logCfg)
}

// openDatabase opens the store selected by the configuration
func openDatabase(ctx context.Context, cfg config.StoreConfig) (store.Database, error) {
	switch cfg.Type {
	case config.StoreTypeMemory:
		return memory.New(), nil
	case config.StoreTypeMongo:
		connectCtx := ctx
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		db, err := mongo.Connect(connectCtx, mongo.Config{
			URI:              cfg.URI,
			Database:         cfg.Database,
			ConnectTimeout:   cfg.ConnectTimeout,
			OperationTimeout: cfg.OperationTimeout,
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
