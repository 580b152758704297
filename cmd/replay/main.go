package main

import (
	"context"
	"flag"
	"fmt"
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
	dateFlag := flag.String("date", "", "audit date (YYYY-MM-DD), defaults to today UTC")
	customer := flag.String("customer", "", "audit a single customer, default all active")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log)

	auditDate := time.Now().UTC()
	if *dateFlag != "" {
		auditDate, err = time.Parse("2006-01-02", *dateFlag)
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

	drifts, err := application.RunReplayAudit(ctx, auditDate, *customer)
	if err != nil && err != context.Canceled {
		log.Error("replay audit failed", zap.Error(err))
		os.Exit(1)
	}
	for _, drift := range drifts {
		fmt.Printf("%s: stored=%v replayed=%v\n", drift.Customer, drift.Stored, drift.Replayed)
		for _, rec := range drift.Recent {
			fmt.Printf("  %s %s %s (%s)\n", rec.TradeDate.Format("2006-01-02"), rec.Action, rec.Tier, rec.Rule)
		}
	}
	if len(drifts) > 0 {
		os.Exit(2)
	}
}
