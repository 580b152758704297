package sizing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"btc-dca-engine/internal/decision"
	"btc-dca-engine/internal/money"
)

// Balance is the latest known customer balance at or before a date.
type Balance struct {
	USDT decimal.Decimal
	BTC  decimal.Decimal
}

type BalanceProvider interface {
	Latest(ctx context.Context, customer string, at time.Time) (Balance, bool, error)
	// AvailableUSDT is the reserve-aware quote balance free for trading.
	AvailableUSDT(ctx context.Context, customer string, at time.Time) (decimal.Decimal, error)
}

// CarryStore tracks per-customer amounts deferred below the minimum
// order notional. Add and Consume must be atomic per customer/asset; the
// balance never goes negative and Consume never exceeds it.
type CarryStore interface {
	Peek(ctx context.Context, customer, asset string) (decimal.Decimal, error)
	Add(ctx context.Context, customer, asset string, amount decimal.Decimal) error
	Consume(ctx context.Context, customer, asset string, amount decimal.Decimal) error
}

type UpsertResult string

const (
	UpsertCreated   UpsertResult = "created"
	UpsertDuplicate UpsertResult = "duplicate"
)

// Intent is an executable order handed to the external execution
// collaborator. Intents are immutable once created; retried generation
// reuses the idempotency key and upserts to a no-op.
type Intent struct {
	Org            string
	Customer       string
	TradeDate      time.Time
	Side           decision.Action
	Amount         decimal.Decimal // base asset quantity
	LimitPrice     decimal.Decimal
	IdempotencyKey string
	Reason         string
	Note           string
}

type IntentSink interface {
	Upsert(ctx context.Context, intent Intent) (UpsertResult, error)
}

// intentNamespace seeds deterministic UUIDv5 idempotency keys. Fixed
// forever: changing it would re-trade every retried batch.
var intentNamespace = uuid.MustParse("8b2e9c44-0d67-4a31-9c1d-5f12e07a6b9e")

// IntentKey derives the stable idempotency key for one customer, trade
// date and side. Re-running a batch produces the same key, making the
// sink upsert a no-op instead of a duplicate trade.
func IntentKey(org, customer string, tradeDate time.Time, side decision.Action) string {
	name := fmt.Sprintf("%s/%s/%s/%s", org, customer, tradeDate.UTC().Format("2006-01-02"), side)
	return uuid.NewSHA1(intentNamespace, []byte(name)).String()
}

type OutcomeKind string

const (
	OutcomePlaced   OutcomeKind = "placed"
	OutcomeDeferred OutcomeKind = "deferred" // below minimum, added to carry
	OutcomeSkipped  OutcomeKind = "skipped"  // nothing to trade
)

// Outcome describes what sizing did with one decision. Deferred is a
// first-class result, not an error: the notional went to the carry
// bucket and will fund a later buy.
type Outcome struct {
	Kind     OutcomeKind
	Result   UpsertResult
	Intent   *Intent
	Notional decimal.Decimal
	Carried  decimal.Decimal
	Consumed decimal.Decimal
}

type Config struct {
	Org              string
	QuoteAsset       string
	MinQuoteNotional decimal.Decimal
}

// Sizer turns a decision into an order intent, honoring available-funds
// constraints and the carry accumulator.
type Sizer struct {
	cfg      Config
	balances BalanceProvider
	carry    CarryStore
	intents  IntentSink
	log      *zap.Logger
}

func New(cfg Config, balances BalanceProvider, carry CarryStore, intents IntentSink, log *zap.Logger) (*Sizer, error) {
	if !cfg.MinQuoteNotional.IsPositive() {
		return nil, errors.New("minimum quote notional is required")
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sizer{cfg: cfg, balances: balances, carry: carry, intents: intents, log: log}, nil
}

// Size executes the sizing step for one customer's daily decision at the
// given limit price. HOLD decisions and zero percentages skip without
// touching the carry bucket.
func (s *Sizer) Size(ctx context.Context, customer string, tradeDate time.Time, dec decision.Decision, limitPrice decimal.Decimal) (Outcome, error) {
	switch dec.Action {
	case decision.ActionBuy:
		return s.sizeBuy(ctx, customer, tradeDate, dec, limitPrice)
	case decision.ActionSell:
		return s.sizeSell(ctx, customer, tradeDate, dec, limitPrice)
	default:
		return Outcome{Kind: OutcomeSkipped}, nil
	}
}

func (s *Sizer) sizeBuy(ctx context.Context, customer string, tradeDate time.Time, dec decision.Decision, limitPrice decimal.Decimal) (Outcome, error) {
	if !limitPrice.IsPositive() {
		return Outcome{}, fmt.Errorf("limit price must be positive, got %s", limitPrice)
	}
	if !dec.Pct.IsPositive() {
		return Outcome{Kind: OutcomeSkipped}, nil
	}
	available, err := s.balances.AvailableUSDT(ctx, customer, tradeDate)
	if err != nil {
		return Outcome{}, fmt.Errorf("available balance for %s: %w", customer, err)
	}
	carried, err := s.carry.Peek(ctx, customer, s.cfg.QuoteAsset)
	if err != nil {
		return Outcome{}, fmt.Errorf("carry peek for %s: %w", customer, err)
	}
	notional := money.RoundQuote(available.Add(carried).Mul(dec.Pct))
	if notional.LessThan(s.cfg.MinQuoteNotional) {
		if notional.IsPositive() {
			if err := s.carry.Add(ctx, customer, s.cfg.QuoteAsset, notional); err != nil {
				return Outcome{}, fmt.Errorf("carry add for %s: %w", customer, err)
			}
		}
		s.log.Debug("notional below minimum, deferred to carry",
			zap.String("customer", customer),
			zap.String("notional", notional.String()),
			zap.String("minimum", s.cfg.MinQuoteNotional.String()))
		return Outcome{Kind: OutcomeDeferred, Notional: notional, Carried: notional}, nil
	}
	quantity := money.RoundBase(notional.Div(limitPrice))
	if !quantity.IsPositive() {
		return Outcome{Kind: OutcomeSkipped, Notional: notional}, nil
	}
	consumed := money.Min(carried, notional)
	if consumed.IsPositive() {
		if err := s.carry.Consume(ctx, customer, s.cfg.QuoteAsset, consumed); err != nil {
			return Outcome{}, fmt.Errorf("carry consume for %s: %w", customer, err)
		}
	}
	intent := Intent{
		Org:            s.cfg.Org,
		Customer:       customer,
		TradeDate:      tradeDate,
		Side:           decision.ActionBuy,
		Amount:         quantity,
		LimitPrice:     limitPrice,
		IdempotencyKey: IntentKey(s.cfg.Org, customer, tradeDate, decision.ActionBuy),
		Reason:         dec.Rule,
		Note:           dec.Note,
	}
	result, err := s.intents.Upsert(ctx, intent)
	if err != nil {
		return Outcome{}, fmt.Errorf("intent upsert for %s: %w", customer, err)
	}
	return Outcome{Kind: OutcomePlaced, Result: result, Intent: &intent, Notional: notional, Consumed: consumed}, nil
}

func (s *Sizer) sizeSell(ctx context.Context, customer string, tradeDate time.Time, dec decision.Decision, limitPrice decimal.Decimal) (Outcome, error) {
	if !dec.Pct.IsPositive() {
		return Outcome{Kind: OutcomeSkipped}, nil
	}
	balance, ok, err := s.balances.Latest(ctx, customer, tradeDate)
	if err != nil {
		return Outcome{}, fmt.Errorf("balance for %s: %w", customer, err)
	}
	if !ok {
		return Outcome{}, fmt.Errorf("no balance row for %s on or before %s", customer, tradeDate.Format("2006-01-02"))
	}
	quantity := money.RoundBase(balance.BTC.Mul(dec.Pct))
	if !quantity.IsPositive() {
		return Outcome{Kind: OutcomeSkipped}, nil
	}
	intent := Intent{
		Org:            s.cfg.Org,
		Customer:       customer,
		TradeDate:      tradeDate,
		Side:           decision.ActionSell,
		Amount:         quantity,
		LimitPrice:     limitPrice,
		IdempotencyKey: IntentKey(s.cfg.Org, customer, tradeDate, decision.ActionSell),
		Reason:         dec.Rule,
		Note:           dec.Note,
	}
	result, err := s.intents.Upsert(ctx, intent)
	if err != nil {
		return Outcome{}, fmt.Errorf("intent upsert for %s: %w", customer, err)
	}
	return Outcome{Kind: OutcomePlaced, Result: result, Intent: &intent}, nil
}
