// Command clobx runs the single-venue CLOB matching engine described by
// the exchange core: a bare process binding port 8080 by default,
// optionally backed by the snapshot file at $PERSISTENT_DIR/exchange_state.json.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/faytonn/clobx/internal/clock"
	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/internal/server"
	"github.com/faytonn/clobx/internal/snapshot"
	"github.com/faytonn/clobx/internal/stream"
	"github.com/faytonn/clobx/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("clobx: load config: %v", err)
	}
	cfg.ApplyEnv()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("clobx: build logger: %v", err)
	}
	defer logger.Sync()

	snap, err := snapshot.NewWriter(cfg.Persistence.Dir, logger)
	if err != nil {
		logger.Fatal("build snapshot writer", zap.Error(err))
	}
	defer snap.Close()

	bus := eventbus.New(cfg.Trading.EventBufferSize, logger)
	eng := engine.New(
		clock.New(),
		logger,
		bus,
		snap,
		engine.WindowParams{PreWindowDays: cfg.Trading.PreWindowDays, PostWindowSec: cfg.Trading.PostWindowSec},
		cfg.Admin.BearerToken,
	)

	if state, err := snapshot.Load(cfg.Persistence.Dir); err != nil {
		logger.Warn("snapshot load failed, starting empty", zap.Error(err))
	} else if state != nil {
		eng.LoadSnapshot(state)
		logger.Info("restored snapshot", zap.String("dir", cfg.Persistence.Dir))
	}

	hub := stream.New(bus, logger)
	srv := server.New(eng, hub, cfg, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      srv.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownGraceS)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Logging.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err == nil {
		zcfg.Level = level
	}
	if cfg.Logging.Encoding != "" {
		zcfg.Encoding = cfg.Logging.Encoding
	}
	return zcfg.Build()
}
