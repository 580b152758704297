package sizing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"btc-dca-engine/internal/decision"
)

type fakeBalances struct {
	usdt      decimal.Decimal
	btc       decimal.Decimal
	available decimal.Decimal
	missing   bool
	err       error
}

func (f *fakeBalances) Latest(ctx context.Context, customer string, at time.Time) (Balance, bool, error) {
	_ = ctx
	if f.err != nil {
		return Balance{}, false, f.err
	}
	if f.missing {
		return Balance{}, false, nil
	}
	return Balance{USDT: f.usdt, BTC: f.btc}, true, nil
}

func (f *fakeBalances) AvailableUSDT(ctx context.Context, customer string, at time.Time) (decimal.Decimal, error) {
	_ = ctx
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.available, nil
}

type fakeCarry struct {
	balance decimal.Decimal
}

func (f *fakeCarry) Peek(ctx context.Context, customer, asset string) (decimal.Decimal, error) {
	_ = ctx
	return f.balance, nil
}

func (f *fakeCarry) Add(ctx context.Context, customer, asset string, amount decimal.Decimal) error {
	_ = ctx
	if amount.IsNegative() {
		return errors.New("negative carry add")
	}
	f.balance = f.balance.Add(amount)
	return nil
}

func (f *fakeCarry) Consume(ctx context.Context, customer, asset string, amount decimal.Decimal) error {
	_ = ctx
	if amount.GreaterThan(f.balance) {
		return errors.New("carry consume exceeds balance")
	}
	f.balance = f.balance.Sub(amount)
	return nil
}

type fakeSink struct {
	seen    map[string]Intent
	intents []Intent
}

func newFakeSink() *fakeSink {
	return &fakeSink{seen: make(map[string]Intent)}
}

func (f *fakeSink) Upsert(ctx context.Context, intent Intent) (UpsertResult, error) {
	_ = ctx
	if _, ok := f.seen[intent.IdempotencyKey]; ok {
		return UpsertDuplicate, nil
	}
	f.seen[intent.IdempotencyKey] = intent
	f.intents = append(f.intents, intent)
	return UpsertCreated, nil
}

func newTestSizer(t *testing.T, balances BalanceProvider, carry CarryStore, sink IntentSink) *Sizer {
	t.Helper()
	sizer, err := New(Config{
		Org:              "acme",
		QuoteAsset:       "USDT",
		MinQuoteNotional: decimal.RequireFromString("0.52"),
	}, balances, carry, sink, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build sizer: %v", err)
	}
	return sizer
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var tradeDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func buy(pct string) decision.Decision {
	return decision.Decision{Action: decision.ActionBuy, Tier: "B3", Pct: d(pct), Rule: "B3", Note: "-0.50σ"}
}

func sell(pct string) decision.Decision {
	return decision.Decision{Action: decision.ActionSell, Tier: "B8", Pct: d(pct), Rule: "B8", Note: "+1.00σ"}
}

func TestBuySizingDeterminism(t *testing.T) {
	balances := &fakeBalances{available: d("1000")}
	carry := &fakeCarry{}
	sink := newFakeSink()
	sizer := newTestSizer(t, balances, carry, sink)

	out, err := sizer.Size(context.Background(), "cust-1", tradeDate, buy("0.05"), d("50000"))
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if out.Kind != OutcomePlaced || out.Result != UpsertCreated {
		t.Fatalf("expected placed/created, got %s/%s", out.Kind, out.Result)
	}
	if !out.Notional.Equal(d("50.00")) {
		t.Fatalf("expected notional 50.00, got %s", out.Notional)
	}
	if !out.Intent.Amount.Equal(d("0.00100000")) {
		t.Fatalf("expected quantity 0.00100000, got %s", out.Intent.Amount)
	}
	if !carry.balance.IsZero() {
		t.Fatalf("expected carry unaffected, got %s", carry.balance)
	}
}

func TestBuyBelowMinimumDefersToCarry(t *testing.T) {
	balances := &fakeBalances{available: d("10")}
	carry := &fakeCarry{}
	sink := newFakeSink()
	sizer := newTestSizer(t, balances, carry, sink)

	out, err := sizer.Size(context.Background(), "cust-1", tradeDate, buy("0.01"), d("50000"))
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if out.Kind != OutcomeDeferred {
		t.Fatalf("expected deferred outcome, got %s", out.Kind)
	}
	if !out.Carried.Equal(d("0.10")) {
		t.Fatalf("expected 0.10 carried, got %s", out.Carried)
	}
	if !carry.balance.Equal(d("0.10")) {
		t.Fatalf("expected carry balance 0.10, got %s", carry.balance)
	}
	if len(sink.intents) != 0 {
		t.Fatalf("expected no intent, got %d", len(sink.intents))
	}
}

func TestBuyConsumesCarry(t *testing.T) {
	balances := &fakeBalances{available: d("100")}
	carry := &fakeCarry{balance: d("4.50")}
	sink := newFakeSink()
	sizer := newTestSizer(t, balances, carry, sink)

	out, err := sizer.Size(context.Background(), "cust-1", tradeDate, buy("0.02"), d("50000"))
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	// available = 100 + 4.50, notional = 2.09
	if !out.Notional.Equal(d("2.09")) {
		t.Fatalf("expected notional 2.09, got %s", out.Notional)
	}
	if !out.Consumed.Equal(d("2.09")) {
		t.Fatalf("expected consume capped at notional, got %s", out.Consumed)
	}
	if !carry.balance.Equal(d("2.41")) {
		t.Fatalf("expected carry 2.41 left, got %s", carry.balance)
	}
}

func TestBuyConsumeCappedByCarry(t *testing.T) {
	balances := &fakeBalances{available: d("1000")}
	carry := &fakeCarry{balance: d("1.25")}
	sink := newFakeSink()
	sizer := newTestSizer(t, balances, carry, sink)

	out, err := sizer.Size(context.Background(), "cust-1", tradeDate, buy("0.05"), d("50000"))
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if !out.Consumed.Equal(d("1.25")) {
		t.Fatalf("expected full carry consumed, got %s", out.Consumed)
	}
	if !carry.balance.IsZero() {
		t.Fatalf("expected empty carry, got %s", carry.balance)
	}
	if carry.balance.IsNegative() {
		t.Fatalf("carry went negative: %s", carry.balance)
	}
}

func TestSellSizing(t *testing.T) {
	balances := &fakeBalances{btc: d("0.5")}
	carry := &fakeCarry{}
	sink := newFakeSink()
	sizer := newTestSizer(t, balances, carry, sink)

	out, err := sizer.Size(context.Background(), "cust-1", tradeDate, sell("0.04"), d("50000"))
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if out.Kind != OutcomePlaced {
		t.Fatalf("expected placed, got %s", out.Kind)
	}
	if !out.Intent.Amount.Equal(d("0.02000000")) {
		t.Fatalf("expected quantity 0.02, got %s", out.Intent.Amount)
	}
	if out.Intent.Side != decision.ActionSell {
		t.Fatalf("expected sell side, got %s", out.Intent.Side)
	}
}

func TestSellZeroBalanceSkips(t *testing.T) {
	balances := &fakeBalances{btc: decimal.Zero}
	sizer := newTestSizer(t, balances, &fakeCarry{}, newFakeSink())

	out, err := sizer.Size(context.Background(), "cust-1", tradeDate, sell("0.04"), d("50000"))
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if out.Kind != OutcomeSkipped {
		t.Fatalf("expected skip with zero BTC, got %s", out.Kind)
	}
}

func TestHoldSkips(t *testing.T) {
	sizer := newTestSizer(t, &fakeBalances{}, &fakeCarry{}, newFakeSink())
	hold := decision.Decision{Action: decision.ActionHold, Rule: "Pause"}
	out, err := sizer.Size(context.Background(), "cust-1", tradeDate, hold, d("50000"))
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if out.Kind != OutcomeSkipped {
		t.Fatalf("expected skip on hold, got %s", out.Kind)
	}
}

func TestIntentKeyStable(t *testing.T) {
	k1 := IntentKey("acme", "cust-1", tradeDate, decision.ActionBuy)
	k2 := IntentKey("acme", "cust-1", tradeDate.Add(6*time.Hour), decision.ActionBuy)
	if k1 != k2 {
		t.Fatalf("key must depend on the date only, got %s and %s", k1, k2)
	}
	if k1 == IntentKey("acme", "cust-1", tradeDate, decision.ActionSell) {
		t.Fatalf("sides must produce distinct keys")
	}
	if k1 == IntentKey("acme", "cust-2", tradeDate, decision.ActionBuy) {
		t.Fatalf("customers must produce distinct keys")
	}
	if k1 == IntentKey("other", "cust-1", tradeDate, decision.ActionBuy) {
		t.Fatalf("orgs must produce distinct keys")
	}
}

func TestRerunIsDuplicate(t *testing.T) {
	balances := &fakeBalances{available: d("1000")}
	sink := newFakeSink()
	sizer := newTestSizer(t, balances, &fakeCarry{}, sink)

	ctx := context.Background()
	if _, err := sizer.Size(ctx, "cust-1", tradeDate, buy("0.05"), d("50000")); err != nil {
		t.Fatalf("first size failed: %v", err)
	}
	out, err := sizer.Size(ctx, "cust-1", tradeDate, buy("0.05"), d("50000"))
	if err != nil {
		t.Fatalf("second size failed: %v", err)
	}
	if out.Result != UpsertDuplicate {
		t.Fatalf("expected duplicate result on re-run, got %s", out.Result)
	}
	if len(sink.intents) != 1 {
		t.Fatalf("expected a single stored intent, got %d", len(sink.intents))
	}
}

func TestBalanceFailurePropagates(t *testing.T) {
	balances := &fakeBalances{err: errors.New("backend down")}
	sizer := newTestSizer(t, balances, &fakeCarry{}, newFakeSink())
	if _, err := sizer.Size(context.Background(), "cust-1", tradeDate, buy("0.05"), d("50000")); err == nil {
		t.Fatalf("expected error from balance provider")
	}
}

func TestNewRequiresMinimumNotional(t *testing.T) {
	_, err := New(Config{Org: "acme"}, &fakeBalances{}, &fakeCarry{}, newFakeSink(), zap.NewNop())
	if err == nil {
		t.Fatalf("expected error without minimum notional")
	}
}
