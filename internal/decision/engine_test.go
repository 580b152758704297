package decision

import (
	"testing"

	"github.com/shopspring/decimal"

	"btc-dca-engine/internal/bands"
)

func testTiers() map[string]float64 {
	return map[string]float64{
		"B1": 0.10, "B2": 0.08, "B3": 0.06, "B4": 0.04, "B5": 0.02,
		"B6": 0.02, "B7": 0.04, "B8": 0.06, "B9": 0.08, "B10": 0.10, "B11": 0.15,
	}
}

func testRow() bands.Row {
	return bands.Row{
		M100: 60000,
		M075: 62000,
		M050: 64000,
		M025: 66000,
		Mean: 68000,
		P050: 72000,
		P100: 76000,
		P150: 80000,
		P200: 84000,
		P250: 88000,
	}
}

func mustDecide(t *testing.T, e *Engine, price, roc5 float64, row bands.Row, prior State) (Decision, State) {
	t.Helper()
	dec, next, err := e.Decide(price, roc5, row, prior)
	if err != nil {
		t.Fatalf("Decide(%v) failed: %v", price, err)
	}
	return dec, next
}

func TestBuyLadderBelowMean(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	cases := []struct {
		price float64
		tier  string
	}{
		{59000, "B1"},
		{61000, "B2"},
		{63000, "B3"},
		{65000, "B4"},
		{67000, "B5"},
	}
	for _, tc := range cases {
		dec, _ := mustDecide(t, e, tc.price, 0, row, State{})
		if dec.Action != ActionBuy {
			t.Fatalf("price %v: expected BUY, got %s", tc.price, dec.Action)
		}
		if dec.Tier != tc.tier || dec.Rule != tc.tier {
			t.Fatalf("price %v: expected tier %s, got %s (rule %s)", tc.price, tc.tier, dec.Tier, dec.Rule)
		}
		want := decimal.NewFromFloat(testTiers()[tc.tier])
		if !dec.Pct.Equal(want) {
			t.Fatalf("price %v: expected pct %s, got %s", tc.price, want, dec.Pct)
		}
	}
}

func TestBuyLadderSkipsAbsentLevel(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	row.M075 = bands.Absent()
	dec, _ := mustDecide(t, e, 61000, 0, row, State{})
	if dec.Tier != "B3" {
		t.Fatalf("expected absent -0.75σ to fall through to B3, got %s", dec.Tier)
	}
}

func TestUnconditionalSells(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	for _, roc := range []float64{-0.5, 0, 0.5} {
		dec, _ := mustDecide(t, e, 90000, roc, row, State{})
		if dec.Action != ActionSell || dec.Tier != "B11" {
			t.Fatalf("roc %v: expected SELL B11, got %s %s", roc, dec.Action, dec.Tier)
		}
	}
	dec, _ := mustDecide(t, e, 85000, -1, row, State{})
	if dec.Action != ActionSell || dec.Tier != "B10" {
		t.Fatalf("expected SELL B10 with negative momentum, got %s %s", dec.Action, dec.Tier)
	}
	dec, _ = mustDecide(t, e, 69000, -1, row, State{})
	if dec.Action != ActionSell || dec.Tier != "B6" {
		t.Fatalf("expected SELL B6 with negative momentum, got %s %s", dec.Action, dec.Tier)
	}
}

func TestMomentumGate(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	for _, price := range []float64{73000, 77000, 81000} {
		dec, _ := mustDecide(t, e, price, 0.01, row, State{})
		if dec.Action != ActionSell {
			t.Fatalf("price %v roc>0: expected SELL, got %s", price, dec.Action)
		}
		dec, _ = mustDecide(t, e, price, 0, row, State{})
		if dec.Action != ActionHold || dec.Rule != "momentum blocks sell" {
			t.Fatalf("price %v roc=0: expected momentum hold, got %s %q", price, dec.Action, dec.Rule)
		}
		if !dec.Pct.IsZero() {
			t.Fatalf("price %v: expected zero pct on gated hold, got %s", price, dec.Pct)
		}
	}
}

func TestPauseDisablesMomentumGate(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	dec, _ := mustDecide(t, e, 77000, -0.3, row, State{BearPause: true})
	if dec.Action != ActionSell || dec.Tier != "B8" {
		t.Fatalf("expected paused SELL B8 despite negative momentum, got %s %s", dec.Action, dec.Tier)
	}
}

func TestPauseSetAndHold(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	dec, next := mustDecide(t, e, 85000, 1, row, State{})
	if !next.BearPause {
		t.Fatalf("expected pause set above +2.00σ")
	}
	if dec.Action != ActionSell || dec.Tier != "B10" {
		t.Fatalf("expected B10 sell while entering pause, got %s %s", dec.Action, dec.Tier)
	}
	dec, next = mustDecide(t, e, 65000, 0, row, next)
	if dec.Action != ActionHold || dec.Rule != "Pause" {
		t.Fatalf("expected pause hold below mean, got %s %q", dec.Action, dec.Rule)
	}
	if !next.BearPause {
		t.Fatalf("pause should persist above -1.00σ")
	}
}

func TestPauseClearRearmsCleanAndBuys(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	prior := State{BearPause: true, WasAboveP1: true, R1Armed: true}
	dec, next := mustDecide(t, e, 59000, 0, row, prior)
	if next != (State{}) {
		t.Fatalf("expected clean state after pause clear, got %+v", next)
	}
	if dec.Action != ActionBuy || dec.Tier != "B1" {
		t.Fatalf("expected B1 buy at the pause-clearing update, got %s %s", dec.Action, dec.Tier)
	}
}

func TestEligibilityMemoryAndArming(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	_, next := mustDecide(t, e, 77000, 1, row, State{})
	if !next.WasAboveP1 || next.WasAboveP15 {
		t.Fatalf("price in [+1.00σ,+1.50σ): expected WasAboveP1 only, got %+v", next)
	}
	if !next.R1Armed {
		t.Fatalf("expected R1Armed with WasAboveP1 at +1σ, got %+v", next)
	}
	_, next = mustDecide(t, e, 81000, 1, row, next)
	if !next.WasAboveP15 || !next.R15Armed {
		t.Fatalf("price in [+1.50σ,+2.00σ): expected WasAboveP15 and R15Armed, got %+v", next)
	}
}

func TestRetracePrecedenceOverSellZone(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	dec, _ := mustDecide(t, e, 73000, 1, row, State{WasAboveP15: true})
	if dec.Action != ActionBuy || dec.Tier != "B3" || dec.Rule != "retrace B9→B7" {
		t.Fatalf("expected retrace B9→B7 buy in the B7 zone, got %s %s %q", dec.Action, dec.Tier, dec.Rule)
	}
}

func TestRetraceB8ToB6(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	dec, _ := mustDecide(t, e, 69000, -1, row, State{WasAboveP1: true})
	if dec.Action != ActionBuy || dec.Tier != "B3" || dec.Rule != "retrace B8→B6" {
		t.Fatalf("expected retrace B8→B6 buy in the B6 zone, got %s %s %q", dec.Action, dec.Tier, dec.Rule)
	}
	// The P15 retrace wins when both eligibility flags are set and price
	// sits in its zone.
	dec, _ = mustDecide(t, e, 73000, -1, row, State{WasAboveP1: true, WasAboveP15: true})
	if dec.Rule != "retrace B9→B7" {
		t.Fatalf("expected B9→B7 retrace to take precedence, got %q", dec.Rule)
	}
}

func TestPauseSuppressesRetrace(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	// Eligibility memory cannot survive a pause; a paused customer in a
	// retrace zone holds instead of buying.
	dec, _ := mustDecide(t, e, 73000, 0, row, State{BearPause: true, WasAboveP15: true})
	if dec.Action != ActionHold {
		t.Fatalf("expected hold while paused in retrace zone, got %s %q", dec.Action, dec.Rule)
	}
}

func TestDecideErrors(t *testing.T) {
	e := NewEngine(testTiers())
	row := testRow()
	if _, _, err := e.Decide(bands.Absent(), 0, row, State{}); err == nil {
		t.Fatalf("expected error for non-finite price")
	}
	row.Mean = bands.Absent()
	if _, _, err := e.Decide(68000, 0, row, State{}); err == nil {
		t.Fatalf("expected error for missing mean level")
	}
}

func TestNormalizeGuardsUnreachableStates(t *testing.T) {
	s := State{R1Armed: true, R15Armed: true}
	n := s.Normalize()
	if n.R1Armed || n.R15Armed {
		t.Fatalf("expected armed flags cleared without eligibility, got %+v", n)
	}
	s = State{BearPause: true, WasAboveP1: true, WasAboveP15: true, R1Armed: true}
	n = s.Normalize()
	if n != (State{BearPause: true}) {
		t.Fatalf("expected pause to clear eligibility memory, got %+v", n)
	}
	s = State{WasAboveP1: true, R1Armed: true}
	if s.Normalize() != s {
		t.Fatalf("expected well-formed state unchanged")
	}
}

func TestDecisionNoteCarriesBandLabel(t *testing.T) {
	e := NewEngine(testTiers())
	dec, _ := mustDecide(t, e, 77000, 1, testRow(), State{})
	if dec.Note != "+1.00σ" {
		t.Fatalf("expected band label note, got %q", dec.Note)
	}
}
