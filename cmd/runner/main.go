package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"btc-dca-engine/internal/app"
	"btc-dca-engine/internal/config"
	"btc-dca-engine/internal/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	dateFlag := flag.String("date", "", "trade date (YYYY-MM-DD), defaults to today UTC")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log)
	log.Info("config loaded", zap.String("path", *configPath))

	tradeDate := time.Now().UTC()
	if *dateFlag != "" {
		tradeDate, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Error("invalid -date", zap.String("date", *dateFlag), zap.Error(err))
			os.Exit(1)
		}
	}

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize app", zap.Error(err))
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if handler := application.MetricsHandler(); handler != nil && cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer server.Close()
		log.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	if err := application.RunDaily(ctx, tradeDate); err != nil && err != context.Canceled {
		log.Error("daily run failed", zap.Error(err))
		os.Exit(1)
	}
}
