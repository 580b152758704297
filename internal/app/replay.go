package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"btc-dca-engine/internal/alerts"
	"btc-dca-engine/internal/decision"
)

// replayHistoryDays bounds the band history pulled for an audit. The
// pause hysteresis has no lookback horizon of its own, so the audit
// replays everything published.
const replayHistoryDays = 36500

// driftContextDecisions is how many recent decisions are attached to a
// drift report for operator context.
const driftContextDecisions = 5

// Drift is one customer whose persisted pause flag disagrees with a
// fresh replay of the full band history. Recent carries the customer's
// latest recorded decisions, newest first.
type Drift struct {
	Customer string
	Stored   bool
	Replayed bool
	Recent   []decision.Recorded
}

// RunReplayAudit recomputes the bear-pause flag from the full published
// band history up to tradeDate and compares it against each customer's
// persisted state. Pass a single customer id, or "" to audit every
// active customer. Drift is reported, never repaired.
func (a *App) RunReplayAudit(ctx context.Context, tradeDate time.Time, customer string) ([]Drift, error) {
	tradeDate = tradeDate.UTC().Truncate(24 * time.Hour)
	history, err := a.db.BandHistory(ctx, tradeDate, replayHistoryDays)
	if err != nil {
		return nil, fmt.Errorf("load band history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no band history on or before %s", tradeDate.Format("2006-01-02"))
	}
	replayed := decision.ReplayBearPause(history)

	customers := []string{customer}
	if customer == "" {
		customers, err = a.db.ListActiveCustomers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list customers: %w", err)
		}
	}

	var drifts []Drift
	for _, id := range customers {
		st, ok, err := a.db.DecisionState(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load state for %s: %w", id, err)
		}
		if !ok {
			// Never-traded customers carry the zero state.
			st = decision.State{}
		}
		if st.BearPause != replayed {
			recent, err := a.db.ListDecisions(ctx, id, driftContextDecisions)
			if err != nil {
				return nil, fmt.Errorf("list decisions for %s: %w", id, err)
			}
			drifts = append(drifts, Drift{Customer: id, Stored: st.BearPause, Replayed: replayed, Recent: recent})
			a.log.Warn("bear pause drift detected",
				zap.String("customer", id),
				zap.Bool("stored", st.BearPause),
				zap.Bool("replayed", replayed))
		}
	}

	if len(drifts) > 0 {
		a.notify(ctx, alerts.Event{
			Source:   "replay",
			Severity: "error",
			Message:  "bear pause drift detected",
			Context: map[string]string{
				"date":     tradeDate.Format("2006-01-02"),
				"drifted":  strconv.Itoa(len(drifts)),
				"replayed": strconv.FormatBool(replayed),
			},
		})
	}
	a.log.Info("replay audit complete",
		zap.String("trade_date", tradeDate.Format("2006-01-02")),
		zap.Int("audited", len(customers)),
		zap.Int("drifted", len(drifts)),
		zap.Bool("replayed_pause", replayed))
	return drifts, nil
}
