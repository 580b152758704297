package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"btc-dca-engine/internal/bands"
	"btc-dca-engine/internal/config"
	"btc-dca-engine/internal/logging"
	"btc-dca-engine/internal/store/postgres"

	"go.uber.org/zap"
)

// Imports a published band table from CSV. Expected header:
// date,close,m100,m075,m050,m025,mean,p050,p100,p150,p200,p250
// An empty level cell marks a level that was not published for the date.
func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	csvPath := flag.String("csv", "", "path to the band table CSV")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log)

	if *csvPath == "" {
		log.Error("-csv is required")
		os.Exit(1)
	}
	file, err := os.Open(*csvPath)
	if err != nil {
		log.Error("failed to open csv", zap.String("path", *csvPath), zap.Error(err))
		os.Exit(1)
	}
	defer file.Close()

	store, err := postgres.New(cfg.Database, cfg.Strategy.Org, log)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		log.Error("failed to read csv header", zap.Error(err))
		os.Exit(1)
	}
	if len(header) < 12 || strings.ToLower(strings.TrimSpace(header[0])) != "date" {
		log.Error("unexpected csv header", zap.Strings("header", header))
		os.Exit(1)
	}

	var imported, lineNo int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			log.Error("failed to read csv record", zap.Int("line", lineNo), zap.Error(err))
			os.Exit(1)
		}
		row, err := parseRow(cfg.Strategy.Org, record)
		if err != nil {
			log.Error("bad csv record", zap.Int("line", lineNo), zap.Error(err))
			os.Exit(1)
		}
		if err := store.UpsertBandRow(ctx, row); err != nil {
			log.Error("band row upsert failed", zap.Int("line", lineNo), zap.Error(err))
			os.Exit(1)
		}
		imported++
	}
	log.Info("band table imported", zap.Int("rows", imported), zap.String("path", *csvPath))
}

func parseRow(org string, record []string) (bands.Row, error) {
	if len(record) < 12 {
		return bands.Row{}, fmt.Errorf("expected 12 columns, got %d", len(record))
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return bands.Row{}, fmt.Errorf("parse date: %w", err)
	}
	close64, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return bands.Row{}, fmt.Errorf("parse close: %w", err)
	}
	levels := make([]float64, 10)
	for i := 0; i < 10; i++ {
		cell := strings.TrimSpace(record[2+i])
		if cell == "" {
			levels[i] = bands.Absent()
			continue
		}
		levels[i], err = strconv.ParseFloat(cell, 64)
		if err != nil {
			return bands.Row{}, fmt.Errorf("parse level %d: %w", i, err)
		}
	}
	return bands.Row{
		Org: org, Date: date, Close: close64,
		M100: levels[0], M075: levels[1], M050: levels[2], M025: levels[3],
		Mean: levels[4],
		P050: levels[5], P100: levels[6], P150: levels[7], P200: levels[8], P250: levels[9],
	}, nil
}
