package fees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"btc-dca-engine/internal/money"
)

type Policy string

const (
	PolicyInvoiceOnly   Policy = "invoice_only"
	PolicyUSDT          Policy = "usdt"
	PolicyUSDTOrSellBTC Policy = "usdt_or_sell_btc"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyInvoiceOnly, PolicyUSDT, PolicyUSDTOrSellBTC:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown fee policy %q", s)
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusInvoiced Status = "invoiced"
	StatusSettled  Status = "settled"
	StatusArrears  Status = "arrears"
)

// Record is the per-customer, per-calendar-month performance fee
// computation. One record per month; status transitions are monotonic.
type Record struct {
	Org      string
	Customer string
	Month    time.Time // first day of the month, UTC
	NAVStart decimal.Decimal
	NAVEnd   decimal.Decimal
	NetFlows decimal.Decimal
	FeeRate  decimal.Decimal
	FeeDue   decimal.Decimal
	FeePaid  decimal.Decimal
	Arrears  decimal.Decimal
	Status   Status
}

type FundingEvent struct {
	Kind       string // "deposit" | "withdrawal"
	Asset      string
	Amount     decimal.Decimal
	OccurredAt time.Time
}

// NAVSource exposes the customer's mark-to-market series and funding
// events recorded by the ledger. FundingEvents covers the half-open
// window [from, to).
type NAVSource interface {
	NAVOnOrBefore(ctx context.Context, customer string, at time.Time) (decimal.Decimal, bool, error)
	FundingEvents(ctx context.Context, customer string, from, to time.Time) ([]FundingEvent, error)
}

type AccountSource interface {
	AvailableUSDT(ctx context.Context, customer string, at time.Time) (decimal.Decimal, error)
}

type PriceSource interface {
	LatestClose(ctx context.Context, at time.Time) (decimal.Decimal, error)
}

// LedgerLine is a fee deduction or fee-funding sale appended to the
// customer ledger during settlement.
type LedgerLine struct {
	Org        string
	Customer   string
	Kind       string // "fee" | "fee_sell"
	Asset      string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	OccurredAt time.Time
}

type LedgerWriter interface {
	AppendLine(ctx context.Context, line LedgerLine) error
}

// RecordStore persists fee records keyed by (customer, month). Upsert
// replaces the row for the key; Get reports whether one exists.
type RecordStore interface {
	Get(ctx context.Context, customer string, month time.Time) (Record, bool, error)
	Upsert(ctx context.Context, record Record) error
}

type Config struct {
	Org          string
	QuoteAsset   string
	FeeRate      decimal.Decimal
	TradeFeeRate decimal.Decimal
	Policy       Policy
}

// Engine settles the monthly performance fee for one customer at a time.
type Engine struct {
	cfg      Config
	nav      NAVSource
	accounts AccountSource
	prices   PriceSource
	ledger   LedgerWriter
	records  RecordStore
	log      *zap.Logger
}

func New(cfg Config, nav NAVSource, accounts AccountSource, prices PriceSource, ledger LedgerWriter, records RecordStore, log *zap.Logger) (*Engine, error) {
	if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.New("fee rate must be in [0, 1]")
	}
	if cfg.TradeFeeRate.IsNegative() || cfg.TradeFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, errors.New("trade fee rate must be in [0, 1)")
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyUSDTOrSellBTC
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, nav: nav, accounts: accounts, prices: prices, ledger: ledger, records: records, log: log}, nil
}

// monthBounds returns the first day, the last day, and the start of the
// following month for the calendar month containing t, in UTC.
func monthBounds(t time.Time) (start, end, next time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	next = start.AddDate(0, 1, 0)
	end = next.AddDate(0, 0, -1)
	return start, end, next
}

// SettleMonth computes and settles the fee for the calendar month
// containing month. Re-running before the next month boundary re-derives
// the same record; a record already past pending is returned untouched
// so ledger deductions are never duplicated.
func (e *Engine) SettleMonth(ctx context.Context, customer string, month time.Time) (Record, error) {
	start, end, next := monthBounds(month)
	if existing, ok, err := e.records.Get(ctx, customer, start); err != nil {
		return Record{}, fmt.Errorf("fee record lookup for %s: %w", customer, err)
	} else if ok && existing.Status != StatusPending {
		return existing, nil
	}

	navStart, okStart, err := e.nav.NAVOnOrBefore(ctx, customer, start)
	if err != nil {
		return Record{}, fmt.Errorf("nav at month start for %s: %w", customer, err)
	}
	navEnd, okEnd, err := e.nav.NAVOnOrBefore(ctx, customer, end)
	if err != nil {
		return Record{}, fmt.Errorf("nav at month end for %s: %w", customer, err)
	}
	if !okStart || !okEnd {
		return Record{}, fmt.Errorf("nav history missing for %s in %s", customer, start.Format("2006-01"))
	}
	flows, err := e.netFlows(ctx, customer, start, next)
	if err != nil {
		return Record{}, err
	}

	profit := navEnd.Sub(navStart).Sub(flows)
	feeDue := money.Max(decimal.Zero, money.RoundQuote(profit.Mul(e.cfg.FeeRate)))

	record := Record{
		Org:      e.cfg.Org,
		Customer: customer,
		Month:    start,
		NAVStart: navStart,
		NAVEnd:   navEnd,
		NetFlows: flows,
		FeeRate:  e.cfg.FeeRate,
		FeeDue:   feeDue,
		FeePaid:  decimal.Zero,
		Arrears:  decimal.Zero,
	}

	switch {
	case feeDue.IsZero():
		record.Status = StatusSettled
	case e.cfg.Policy == PolicyInvoiceOnly:
		record.Status = StatusInvoiced
	default:
		if err := e.deduct(ctx, customer, end, feeDue, &record); err != nil {
			return Record{}, err
		}
	}

	if err := e.records.Upsert(ctx, record); err != nil {
		return Record{}, fmt.Errorf("fee record upsert for %s: %w", customer, err)
	}
	return record, nil
}

func (e *Engine) netFlows(ctx context.Context, customer string, from, to time.Time) (decimal.Decimal, error) {
	events, err := e.nav.FundingEvents(ctx, customer, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("funding events for %s: %w", customer, err)
	}
	flows := decimal.Zero
	for _, ev := range events {
		if ev.Asset != e.cfg.QuoteAsset {
			continue
		}
		switch ev.Kind {
		case "deposit":
			flows = flows.Add(ev.Amount)
		case "withdrawal":
			flows = flows.Sub(ev.Amount)
		}
	}
	return flows, nil
}

// deduct applies the USDT-first policy: take what the quote balance
// covers, then (when the policy allows) fund the remainder by selling
// BTC at the latest known price net of the trade fee.
func (e *Engine) deduct(ctx context.Context, customer string, asOf time.Time, feeDue decimal.Decimal, record *Record) error {
	available, err := e.accounts.AvailableUSDT(ctx, customer, asOf)
	if err != nil {
		return fmt.Errorf("available balance for %s: %w", customer, err)
	}
	paid := money.Min(feeDue, money.Max(decimal.Zero, available))
	if paid.IsPositive() {
		line := LedgerLine{
			Org:        e.cfg.Org,
			Customer:   customer,
			Kind:       "fee",
			Asset:      e.cfg.QuoteAsset,
			Amount:     paid,
			OccurredAt: asOf,
		}
		if err := e.ledger.AppendLine(ctx, line); err != nil {
			return fmt.Errorf("fee ledger line for %s: %w", customer, err)
		}
	}
	remainder := feeDue.Sub(paid)

	if remainder.IsPositive() && e.cfg.Policy == PolicyUSDTOrSellBTC {
		price, err := e.prices.LatestClose(ctx, asOf)
		if err != nil {
			return fmt.Errorf("latest price for %s: %w", customer, err)
		}
		if !price.IsPositive() {
			return fmt.Errorf("no usable price to sell BTC for %s", customer)
		}
		one := decimal.NewFromInt(1)
		quantity := money.RoundBase(remainder.Div(price.Mul(one.Sub(e.cfg.TradeFeeRate))))
		sellFee := money.RoundQuote(quantity.Mul(price).Mul(e.cfg.TradeFeeRate))
		line := LedgerLine{
			Org:        e.cfg.Org,
			Customer:   customer,
			Kind:       "fee_sell",
			Asset:      "BTC",
			Amount:     quantity,
			Fee:        sellFee,
			OccurredAt: asOf,
		}
		if err := e.ledger.AppendLine(ctx, line); err != nil {
			return fmt.Errorf("fee sell line for %s: %w", customer, err)
		}
		paid = paid.Add(remainder)
		remainder = decimal.Zero
	}

	record.FeePaid = paid
	record.Arrears = remainder
	if remainder.IsPositive() {
		record.Status = StatusArrears
	} else {
		record.Status = StatusSettled
	}
	return nil
}
