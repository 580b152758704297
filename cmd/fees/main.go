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
	monthFlag := flag.String("month", "", "month to settle (YYYY-MM), defaults to the previous month")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log)

	month := time.Now().UTC().AddDate(0, -1, 0)
	if *monthFlag != "" {
		month, err = time.Parse("2006-01", *monthFlag)
		if err != nil {
			log.Error("invalid -month", zap.String("month", *monthFlag), zap.Error(err))
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

	if err := application.RunMonthlyFees(ctx, month); err != nil && err != context.Canceled {
		log.Error("fee run failed", zap.Error(err))
		os.Exit(1)
	}
}
