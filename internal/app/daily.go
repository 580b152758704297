package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"btc-dca-engine/internal/alerts"
	"btc-dca-engine/internal/bands"
	"btc-dca-engine/internal/sizing"
	"btc-dca-engine/internal/state"
)

// RunDaily executes the decision and sizing pass for every active
// customer on one trade date. Customer failures are isolated: the
// failing customer is skipped and the batch continues. A checkpoint in
// the run-state store lets an interrupted batch resume without
// repeating finished customers.
func (a *App) RunDaily(ctx context.Context, tradeDate time.Time) error {
	tradeDate = tradeDate.UTC().Truncate(24 * time.Hour)
	dateKey := tradeDate.Format("2006-01-02")

	row, ok, err := a.db.BandRow(ctx, tradeDate)
	if err != nil {
		return fmt.Errorf("load band row for %s: %w", dateKey, err)
	}
	if !ok {
		return fmt.Errorf("no band row published for %s", dateKey)
	}
	roc, err := a.rateOfChange(ctx, tradeDate, row.Close)
	if err != nil {
		return err
	}

	customers, err := a.db.ListActiveCustomers(ctx)
	if err != nil {
		return fmt.Errorf("list customers: %w", err)
	}

	checkpoint, resumed, err := state.LoadCheckpoint(ctx, a.runState, dateKey)
	if err != nil {
		return fmt.Errorf("load checkpoint for %s: %w", dateKey, err)
	}
	if resumed {
		a.log.Info("resuming daily batch from checkpoint",
			zap.String("trade_date", dateKey),
			zap.Int("already_done", len(checkpoint.Done)))
	}

	limitPrice := decimal.NewFromFloat(row.Close)
	var processed, skipped, placed, deferred int
	for _, customer := range customers {
		if checkpoint.IsDone(customer) {
			continue
		}
		outcome, err := a.processCustomer(ctx, customer, tradeDate, row, roc, limitPrice)
		if err != nil {
			skipped++
			a.metrics.CustomersSkipped.Inc()
			a.log.Warn("customer failed, continuing batch",
				zap.String("customer", customer),
				zap.String("trade_date", dateKey),
				zap.Error(err))
			continue
		}
		processed++
		a.metrics.CustomersProcessed.Inc()
		switch outcome.Kind {
		case sizing.OutcomePlaced:
			placed++
			if outcome.Result == sizing.UpsertDuplicate {
				a.metrics.IntentsDuplicate.Inc()
			} else {
				a.metrics.IntentsCreated.Inc()
			}
		case sizing.OutcomeDeferred:
			deferred++
			a.metrics.CarryDeferrals.Inc()
		}
		checkpoint.MarkDone(customer)
		checkpoint.UpdatedAtMS = time.Now().UnixMilli()
		if err := state.SaveCheckpoint(ctx, a.runState, checkpoint); err != nil {
			return fmt.Errorf("save checkpoint for %s: %w", dateKey, err)
		}
	}

	if err := state.ClearCheckpoint(ctx, a.runState, dateKey); err != nil {
		a.log.Warn("checkpoint clear failed", zap.String("trade_date", dateKey), zap.Error(err))
	}

	severity := "info"
	if skipped > 0 {
		severity = "warn"
	}
	a.notify(ctx, alerts.Event{
		Source:   "daily",
		Severity: severity,
		Message:  "daily batch complete",
		Context: map[string]string{
			"date":      dateKey,
			"processed": strconv.Itoa(processed),
			"skipped":   strconv.Itoa(skipped),
			"placed":    strconv.Itoa(placed),
			"deferred":  strconv.Itoa(deferred),
		},
	})
	a.log.Info("daily batch complete",
		zap.String("trade_date", dateKey),
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
		zap.Int("placed", placed),
		zap.Int("deferred", deferred))
	return nil
}

func (a *App) processCustomer(ctx context.Context, customer string, tradeDate time.Time, row bands.Row, roc float64, limitPrice decimal.Decimal) (sizing.Outcome, error) {
	prior, _, err := a.db.DecisionState(ctx, customer)
	if err != nil {
		return sizing.Outcome{}, fmt.Errorf("load state: %w", err)
	}
	dec, next, err := a.engine.Decide(row.Close, roc, row, prior)
	if err != nil {
		return sizing.Outcome{}, fmt.Errorf("decide: %w", err)
	}
	if err := a.db.RecordDecision(ctx, customer, tradeDate, dec); err != nil {
		return sizing.Outcome{}, fmt.Errorf("record decision: %w", err)
	}
	if err := a.db.SaveDecisionState(ctx, customer, next); err != nil {
		return sizing.Outcome{}, fmt.Errorf("save state: %w", err)
	}
	outcome, err := a.sizer.Size(ctx, customer, tradeDate, dec, limitPrice)
	if err != nil {
		return sizing.Outcome{}, fmt.Errorf("size: %w", err)
	}
	return outcome, nil
}

// rateOfChange computes the N-day close-over-close percentage change
// that feeds the sell momentum gate. With too little published history
// it returns 0, which the gate treats as "momentum not positive".
func (a *App) rateOfChange(ctx context.Context, tradeDate time.Time, todayClose float64) (float64, error) {
	window := a.cfg.Strategy.ROCWindowDays
	history, err := a.db.BandHistory(ctx, tradeDate, window+1)
	if err != nil {
		return 0, fmt.Errorf("load band history: %w", err)
	}
	if len(history) < window+1 {
		a.log.Warn("insufficient history for rate of change",
			zap.Int("have", len(history)),
			zap.Int("need", window+1))
		return 0, nil
	}
	base := history[0].Close
	if !bands.Finite(base) || base == 0 {
		return 0, nil
	}
	return (todayClose - base) / base * 100, nil
}
