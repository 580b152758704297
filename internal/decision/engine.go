package decision

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"btc-dca-engine/internal/bands"
)

var (
	ErrPriceNotFinite = errors.New("price is not a finite number")
	ErrMeanMissing    = errors.New("band row has no mean level")
)

// Engine decides a trade action and sizing percentage for one customer on
// one date. It is stateless; the per-customer hysteresis state is an
// explicit input and output so batching customers cannot alias state.
type Engine struct {
	tiers map[string]decimal.Decimal
}

// NewEngine builds an engine from configured tier percentages keyed
// B1..B11. Values are fractions in [0,1].
func NewEngine(tiers map[string]float64) *Engine {
	sized := make(map[string]decimal.Decimal, len(tiers))
	for name, pct := range tiers {
		sized[name] = decimal.NewFromFloat(pct)
	}
	return &Engine{tiers: sized}
}

func (e *Engine) pct(tier string) decimal.Decimal {
	if pct, ok := e.tiers[tier]; ok {
		return pct
	}
	return decimal.Zero
}

// Transition applies the state rules in order: pause set above +2.00σ,
// pause clear below -1.00σ (priority: clearing also resets every flag so
// a single update can exit pause and re-arm from clean state), pause
// suppressing eligibility memory, eligibility memory, re-arming.
// Absent levels exclude their rule rather than firing it.
func Transition(price float64, row bands.Row, prior State) State {
	next := prior.Normalize()
	if bands.Finite(row.P200) && price > row.P200 {
		next.BearPause = true
	}
	if bands.Finite(row.M100) && price < row.M100 {
		next = State{}
	}
	if next.BearPause {
		next.WasAboveP1 = false
		next.WasAboveP15 = false
		next.R1Armed = false
		next.R15Armed = false
		return next
	}
	if inZone(price, row.P100, row.P150) {
		next.WasAboveP1 = true
	}
	if inZone(price, row.P150, row.P200) {
		next.WasAboveP15 = true
	}
	if next.WasAboveP1 && bands.Finite(row.P050) && price >= row.P050 {
		next.R1Armed = true
	}
	if next.WasAboveP15 && bands.Finite(row.P100) && price >= row.P100 {
		next.R15Armed = true
	}
	return next
}

// inZone reports price in [lo, hi). An absent lo disables the zone; an
// absent hi leaves the zone open-ended upward.
func inZone(price, lo, hi float64) bool {
	if !bands.Finite(lo) || price < lo {
		return false
	}
	if bands.Finite(hi) && price >= hi {
		return false
	}
	return true
}

// Decide runs one daily step for a customer: transition the hysteresis
// state, then pick an action from the retrace exceptions and the band
// ladder. roc5 is the 5-day price rate of change. The returned state must
// be persisted atomically with the decision.
func (e *Engine) Decide(price, roc5 float64, row bands.Row, prior State) (Decision, State, error) {
	if !bands.Finite(price) {
		return Decision{}, prior, ErrPriceNotFinite
	}
	if !bands.Finite(row.Mean) {
		return Decision{}, prior, fmt.Errorf("%w for %s", ErrMeanMissing, row.Date.Format("2006-01-02"))
	}
	next := Transition(price, row, prior)
	note := bands.Classify(price, row)

	// Retrace exceptions fire before the ladder, BUY side only. Pause
	// suppresses them except at the exact update that clears the pause,
	// and the transition has already cleared all eligibility memory in
	// that case, so checking the updated state covers both.
	if !next.BearPause {
		if next.WasAboveP15 && inZone(price, row.P050, row.P100) {
			return e.buy("B3", "retrace B9→B7", note), next, nil
		}
		if next.WasAboveP1 && inZone(price, row.Mean, row.P050) {
			return e.buy("B3", "retrace B8→B6", note), next, nil
		}
	}

	if price < row.Mean {
		return e.decideBuySide(price, row, next, note), next, nil
	}
	return e.decideSellSide(price, roc5, row, next, note), next, nil
}

func (e *Engine) decideBuySide(price float64, row bands.Row, next State, note string) Decision {
	// BearPause survives the transition only when price did not drop
	// below -1.00σ, which is exactly the condition for holding here.
	if next.BearPause {
		return hold("Pause", note)
	}
	switch {
	case bands.Finite(row.M100) && price < row.M100:
		return e.buy("B1", "B1", note)
	case bands.Finite(row.M075) && price < row.M075:
		return e.buy("B2", "B2", note)
	case bands.Finite(row.M050) && price < row.M050:
		return e.buy("B3", "B3", note)
	case bands.Finite(row.M025) && price < row.M025:
		return e.buy("B4", "B4", note)
	default:
		return e.buy("B5", "B5", note)
	}
}

func (e *Engine) decideSellSide(price, roc5 float64, row bands.Row, next State, note string) Decision {
	rungs := []struct {
		level float64
		tier  string
	}{
		{row.Mean, "B6"},
		{row.P050, "B7"},
		{row.P100, "B8"},
		{row.P150, "B9"},
		{row.P200, "B10"},
		{row.P250, "B11"},
	}
	tier := "B6"
	for _, rung := range rungs {
		if bands.Finite(rung.level) && price >= rung.level {
			tier = rung.tier
		}
	}
	// B7-B9 sells require positive 5-day momentum unless paused; pause
	// disables the gate entirely. B6, B10 and B11 never gate.
	if tier == "B7" || tier == "B8" || tier == "B9" {
		if roc5 <= 0 && !next.BearPause {
			return hold("momentum blocks sell", note)
		}
	}
	return e.sell(tier, tier, note)
}

func (e *Engine) buy(tier, rule, note string) Decision {
	return Decision{Action: ActionBuy, Tier: tier, Pct: e.pct(tier), Rule: rule, Note: note}
}

func (e *Engine) sell(tier, rule, note string) Decision {
	return Decision{Action: ActionSell, Tier: tier, Pct: e.pct(tier), Rule: rule, Note: note}
}

func hold(rule, note string) Decision {
	return Decision{Action: ActionHold, Pct: decimal.Zero, Rule: rule, Note: note}
}
