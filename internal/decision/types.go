package decision

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// State is the cross-day hysteresis memory carried per customer.
// BearPause suppresses buys and the sell momentum gate once price has
// spiked above +2.00σ, until price retraces below -1.00σ. The eligibility
// flags remember visits to the upper bands and feed the retrace buys.
// R1Armed/R15Armed are transitioned and persisted but not read by any
// current rule branch.
type State struct {
	BearPause   bool `json:"bear_pause"`
	WasAboveP1  bool `json:"was_above_p1"`
	WasAboveP15 bool `json:"was_above_p15"`
	R1Armed     bool `json:"r1_armed"`
	R15Armed    bool `json:"r15_armed"`
}

// Normalize clears flag combinations the transition rules never produce:
// an armed flag without its eligibility flag, or any eligibility memory
// while paused. Persisted state is normalized on load so that drifted or
// hand-edited rows cannot steer a decision.
func (s State) Normalize() State {
	if s.BearPause {
		return State{BearPause: true}
	}
	if !s.WasAboveP1 {
		s.R1Armed = false
	}
	if !s.WasAboveP15 {
		s.R15Armed = false
	}
	return s
}

// Decision is the daily outcome for one customer: what to do, which tier
// percentage to size with, the rule that fired, and a free-text note.
type Decision struct {
	Action Action
	Tier   string
	Pct    decimal.Decimal
	Rule   string
	Note   string
}

// Recorded is a decision as persisted for one customer and trade date.
type Recorded struct {
	Customer  string
	TradeDate time.Time
	Decision
}
