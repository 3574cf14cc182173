package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/config"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/server"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/swapengine"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// loadEnv reads .env from the module root when present.
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "../..", ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
		return
	}
	logger.Infof("loaded .env from %s", envPath)
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.ValidateAPI(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	engine, err := swapengine.NewEngine(initCtx, swapengine.EngineConfigFrom(cfg, logger))
	cancelInit()
	if err != nil {
		logger.WithError(err).Fatal("failed to create swap engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.WithError(err).Warn("engine close")
		}
	}()

	h := &server.Handlers{
		Swaps:       engine,
		Wallet:      engine.Wallet().Address(),
		DevMode:     cfg.DevMode,
		Logger:      logger,
		SwapTimeout: cfg.APISwapTimeout,
	}
	// Redis-backed surfaces stay nil interfaces when Redis is off
	if rc := engine.Cache(); rc != nil {
		h.Recent = rc
	}
	if store := engine.Controls(); store != nil {
		h.Controls = store
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Logger:   logger,
		Config: server.ServerConfig{
			Addr:          cfg.APIAddr,
			DevMode:       cfg.DevMode,
			APIKey:        cfg.APIKey,
			SwapRateLimit: cfg.APISwapRPS,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":   cfg.APIAddr,
		"wallet": engine.Wallet().Address(),
		"redis":  h.Recent != nil,
	}).Info("api server starting")
	if err := srv.Start(); err != nil {
		logger.WithError(err).Fatal("api server failed")
	}

	waitCtx, cancelWait := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelWait()
	if err := srv.WaitClosed(waitCtx); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
