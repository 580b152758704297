package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"btc-dca-engine/internal/alerts"
	"btc-dca-engine/internal/fees"
)

// RunMonthlyFees settles the performance fee for every active customer
// for the month containing the given date. Like the daily batch,
// per-customer failures are logged and skipped.
func (a *App) RunMonthlyFees(ctx context.Context, month time.Time) error {
	monthKey := month.UTC().Format("2006-01")
	customers, err := a.db.ListActiveCustomers(ctx)
	if err != nil {
		return fmt.Errorf("list customers: %w", err)
	}

	var settled, invoiced, arrears, skipped int
	for _, customer := range customers {
		record, err := a.fees.SettleMonth(ctx, customer, month)
		if err != nil {
			skipped++
			a.log.Warn("fee settlement failed, continuing batch",
				zap.String("customer", customer),
				zap.String("month", monthKey),
				zap.Error(err))
			continue
		}
		switch record.Status {
		case fees.StatusSettled:
			settled++
			a.metrics.FeesSettled.Inc()
		case fees.StatusArrears:
			arrears++
			a.metrics.FeesArrears.Inc()
		case fees.StatusInvoiced:
			invoiced++
		}
	}

	severity := "info"
	if skipped > 0 || arrears > 0 {
		severity = "warn"
	}
	a.notify(ctx, alerts.Event{
		Source:   "fees",
		Severity: severity,
		Message:  "monthly fee batch complete",
		Context: map[string]string{
			"month":    monthKey,
			"settled":  strconv.Itoa(settled),
			"invoiced": strconv.Itoa(invoiced),
			"arrears":  strconv.Itoa(arrears),
			"skipped":  strconv.Itoa(skipped),
		},
	})
	a.log.Info("monthly fee batch complete",
		zap.String("month", monthKey),
		zap.Int("settled", settled),
		zap.Int("invoiced", invoiced),
		zap.Int("arrears", arrears),
		zap.Int("skipped", skipped))
	return nil
}
