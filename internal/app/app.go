package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"btc-dca-engine/internal/alerts"
	"btc-dca-engine/internal/bands"
	"btc-dca-engine/internal/config"
	"btc-dca-engine/internal/decision"
	"btc-dca-engine/internal/fees"
	"btc-dca-engine/internal/metrics"
	"btc-dca-engine/internal/sizing"
	"btc-dca-engine/internal/state"
	"btc-dca-engine/internal/state/sqlite"
	"btc-dca-engine/internal/store/postgres"
)

// Database is the slice of the relational store the orchestrator reads
// and writes directly. The sizing and fee engines hold their own views.
type Database interface {
	BandRow(ctx context.Context, date time.Time) (bands.Row, bool, error)
	BandHistory(ctx context.Context, to time.Time, days int) ([]bands.Row, error)
	ListActiveCustomers(ctx context.Context) ([]string, error)
	DecisionState(ctx context.Context, customer string) (decision.State, bool, error)
	SaveDecisionState(ctx context.Context, customer string, st decision.State) error
	RecordDecision(ctx context.Context, customer string, tradeDate time.Time, d decision.Decision) error
	ListDecisions(ctx context.Context, customer string, limit int) ([]decision.Recorded, error)
	Close() error
}

type App struct {
	cfg      *config.Config
	log      *zap.Logger
	db       Database
	runState state.Store
	engine   *decision.Engine
	sizer    *sizing.Sizer
	fees     *fees.Engine
	alerts   alerts.Sink
	metrics  *metrics.Metrics
	prom     *metrics.Prometheus
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.RunState.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	runState, err := sqlite.New(cfg.RunState.SQLitePath)
	if err != nil {
		return nil, err
	}
	db, err := postgres.New(cfg.Database, cfg.Strategy.Org, log)
	if err != nil {
		_ = runState.Close()
		return nil, err
	}
	sizer, err := sizing.New(sizing.Config{
		Org:              cfg.Strategy.Org,
		QuoteAsset:       cfg.Strategy.QuoteAsset,
		MinQuoteNotional: decimal.NewFromFloat(cfg.Strategy.MinQuoteNotional),
	}, db, db, db.Intents(), log)
	if err != nil {
		_ = db.Close()
		_ = runState.Close()
		return nil, err
	}
	policy, err := fees.ParsePolicy(cfg.Fees.Policy)
	if err != nil {
		_ = db.Close()
		_ = runState.Close()
		return nil, err
	}
	feeEngine, err := fees.New(fees.Config{
		Org:          cfg.Strategy.Org,
		QuoteAsset:   cfg.Strategy.QuoteAsset,
		FeeRate:      decimal.NewFromFloat(cfg.Fees.Rate),
		TradeFeeRate: decimal.NewFromFloat(cfg.Fees.TradeFeeRate),
		Policy:       policy,
	}, db, db, db, db, db.FeeRecords(), log)
	if err != nil {
		_ = db.Close()
		_ = runState.Close()
		return nil, err
	}
	app := &App{
		cfg:      cfg,
		log:      log,
		db:       db,
		runState: runState,
		engine:   decision.NewEngine(cfg.Strategy.Tiers),
		sizer:    sizer,
		fees:     feeEngine,
		alerts:   alerts.NewTelegram(cfg.Telegram, log),
		metrics:  metrics.NewNoop(),
	}
	if cfg.Metrics.EnabledValue() {
		app.prom = metrics.NewPrometheus()
		app.metrics = app.prom.Metrics
	}
	return app, nil
}

// MetricsHandler returns the scrape handler, or nil when metrics are
// disabled.
func (a *App) MetricsHandler() http.Handler {
	if a.prom == nil {
		return nil
	}
	return a.prom.Handler()
}

func (a *App) Close() error {
	var firstErr error
	if a.runState != nil {
		if err := a.runState.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) notify(ctx context.Context, event alerts.Event) {
	if a.alerts == nil {
		return
	}
	if err := a.alerts.Notify(ctx, event); err != nil {
		a.log.Warn("alert delivery failed", zap.Error(err))
	}
}
