package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"btc-dca-engine/internal/bands"
	"btc-dca-engine/internal/config"
	"btc-dca-engine/internal/decision"
	"btc-dca-engine/internal/fees"
	"btc-dca-engine/internal/sizing"
)

// Store is the relational system of record: band rows, per-customer
// decision state, carry buckets, order intents, balances, funding
// events, fee records and ledger lines. All monetary columns are
// NUMERIC; band levels are nullable doubles where NULL means the level
// was not published for that date.
type Store struct {
	db     *sql.DB
	log    *zap.Logger
	org    string
	schema string
}

func New(cfg config.DatabaseConfig, org string, log *zap.Logger) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	if strings.TrimSpace(org) == "" {
		return nil, errors.New("org is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := &Store{db: db, log: log, org: org, schema: schema}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) table(name string) string {
	return s.schema + "." + name
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}
	if s.schema != "public" {
		if err := s.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.schema)); err != nil {
			return err
		}
	}
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			org TEXT NOT NULL,
			date DATE NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			m100 DOUBLE PRECISION,
			m075 DOUBLE PRECISION,
			m050 DOUBLE PRECISION,
			m025 DOUBLE PRECISION,
			mean DOUBLE PRECISION,
			p050 DOUBLE PRECISION,
			p100 DOUBLE PRECISION,
			p150 DOUBLE PRECISION,
			p200 DOUBLE PRECISION,
			p250 DOUBLE PRECISION,
			PRIMARY KEY (org, date)
		)`, s.table("band_rows")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			org TEXT NOT NULL,
			id TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org, id)
		)`, s.table("customers")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org, customer)
		)`, s.table("decision_state")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			trade_date DATE NOT NULL,
			action TEXT NOT NULL,
			tier TEXT NOT NULL DEFAULT '',
			pct NUMERIC NOT NULL DEFAULT 0,
			rule TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org, customer, trade_date)
		)`, s.table("decisions")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			asset TEXT NOT NULL,
			balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org, customer, asset)
		)`, s.table("carry_buckets")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			idempotency_key TEXT PRIMARY KEY,
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			trade_date DATE NOT NULL,
			side TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			limit_price NUMERIC NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table("order_intents")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			usdt NUMERIC NOT NULL DEFAULT 0,
			btc NUMERIC NOT NULL DEFAULT 0,
			reserved_usdt NUMERIC NOT NULL DEFAULT 0,
			nav NUMERIC NOT NULL DEFAULT 0,
			PRIMARY KEY (org, customer, ts)
		)`, s.table("balance_snapshots")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			kind TEXT NOT NULL,
			asset TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)`, s.table("funding_events")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			month DATE NOT NULL,
			nav_start NUMERIC NOT NULL,
			nav_end NUMERIC NOT NULL,
			net_flows NUMERIC NOT NULL,
			fee_rate NUMERIC NOT NULL,
			fee_due NUMERIC NOT NULL,
			fee_paid NUMERIC NOT NULL,
			arrears NUMERIC NOT NULL,
			status TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org, customer, month)
		)`, s.table("fee_records")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			org TEXT NOT NULL,
			customer TEXT NOT NULL,
			kind TEXT NOT NULL,
			asset TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			fee NUMERIC NOT NULL DEFAULT 0,
			occurred_at TIMESTAMPTZ NOT NULL
		)`, s.table("ledger_lines")),
	}
	for _, stmt := range statements {
		if err := s.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func level(v sql.NullFloat64) float64 {
	if !v.Valid {
		return bands.Absent()
	}
	return v.Float64
}

func levelArg(v float64) any {
	if !bands.Finite(v) {
		return nil
	}
	return v
}

// UpsertBandRow replaces the published row for (org, date). Absent
// levels are stored as NULL.
func (s *Store) UpsertBandRow(ctx context.Context, row bands.Row) error {
	query := fmt.Sprintf(`INSERT INTO %s (
		org, date, close, m100, m075, m050, m025, mean, p050, p100, p150, p200, p250
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (org, date) DO UPDATE SET
		close = excluded.close,
		m100 = excluded.m100, m075 = excluded.m075, m050 = excluded.m050, m025 = excluded.m025,
		mean = excluded.mean,
		p050 = excluded.p050, p100 = excluded.p100, p150 = excluded.p150,
		p200 = excluded.p200, p250 = excluded.p250`, s.table("band_rows"))
	return s.exec(ctx, query,
		row.Org, row.Date.UTC().Truncate(24*time.Hour), row.Close,
		levelArg(row.M100), levelArg(row.M075), levelArg(row.M050), levelArg(row.M025),
		levelArg(row.Mean),
		levelArg(row.P050), levelArg(row.P100), levelArg(row.P150), levelArg(row.P200), levelArg(row.P250),
	)
}

func scanBandRow(scanner interface{ Scan(...any) error }) (bands.Row, error) {
	var row bands.Row
	var m100, m075, m050, m025, mean, p050, p100, p150, p200, p250 sql.NullFloat64
	if err := scanner.Scan(
		&row.Org, &row.Date, &row.Close,
		&m100, &m075, &m050, &m025, &mean, &p050, &p100, &p150, &p200, &p250,
	); err != nil {
		return bands.Row{}, err
	}
	row.M100 = level(m100)
	row.M075 = level(m075)
	row.M050 = level(m050)
	row.M025 = level(m025)
	row.Mean = level(mean)
	row.P050 = level(p050)
	row.P100 = level(p100)
	row.P150 = level(p150)
	row.P200 = level(p200)
	row.P250 = level(p250)
	return row, nil
}

func (s *Store) BandRow(ctx context.Context, date time.Time) (bands.Row, bool, error) {
	query := fmt.Sprintf(`SELECT org, date, close, m100, m075, m050, m025, mean, p050, p100, p150, p200, p250
		FROM %s WHERE org = $1 AND date = $2`, s.table("band_rows"))
	row, err := scanBandRow(s.db.QueryRowContext(ctx, query, s.org, date.UTC().Truncate(24*time.Hour)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bands.Row{}, false, nil
		}
		return bands.Row{}, false, err
	}
	return row, true, nil
}

// BandHistory returns up to days rows ending at the given date,
// ascending by date.
func (s *Store) BandHistory(ctx context.Context, to time.Time, days int) ([]bands.Row, error) {
	query := fmt.Sprintf(`SELECT org, date, close, m100, m075, m050, m025, mean, p050, p100, p150, p200, p250
		FROM %s WHERE org = $1 AND date <= $2 ORDER BY date DESC LIMIT $3`, s.table("band_rows"))
	rows, err := s.db.QueryContext(ctx, query, s.org, to.UTC().Truncate(24*time.Hour), days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []bands.Row
	for rows.Next() {
		row, err := scanBandRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) ListActiveCustomers(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE org = $1 AND active ORDER BY id`, s.table("customers"))
	rows, err := s.db.QueryContext(ctx, query, s.org)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) DecisionState(ctx context.Context, customer string) (decision.State, bool, error) {
	query := fmt.Sprintf(`SELECT state FROM %s WHERE org = $1 AND customer = $2`, s.table("decision_state"))
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, s.org, customer).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decision.State{}, false, nil
		}
		return decision.State{}, false, err
	}
	var st decision.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return decision.State{}, false, fmt.Errorf("decode decision state for %s: %w", customer, err)
	}
	return st.Normalize(), true, nil
}

func (s *Store) SaveDecisionState(ctx context.Context, customer string, st decision.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (org, customer, state, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (org, customer) DO UPDATE SET state = excluded.state, updated_at = now()`, s.table("decision_state"))
	return s.exec(ctx, query, s.org, customer, raw)
}

// RecordDecision keeps one decision per customer and trade date. A
// re-run overwrites the row with the recomputed outcome.
func (s *Store) RecordDecision(ctx context.Context, customer string, tradeDate time.Time, d decision.Decision) error {
	query := fmt.Sprintf(`INSERT INTO %s (org, customer, trade_date, action, tier, pct, rule, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (org, customer, trade_date) DO UPDATE SET
			action = excluded.action, tier = excluded.tier, pct = excluded.pct,
			rule = excluded.rule, note = excluded.note`, s.table("decisions"))
	return s.exec(ctx, query, s.org, customer, tradeDate.UTC().Truncate(24*time.Hour),
		string(d.Action), d.Tier, d.Pct, d.Rule, d.Note)
}

// ListDecisions returns the most recent recorded decisions for one
// customer, newest first.
func (s *Store) ListDecisions(ctx context.Context, customer string, limit int) ([]decision.Recorded, error) {
	query := fmt.Sprintf(`SELECT customer, trade_date, action, tier, pct, rule, note
		FROM %s WHERE org = $1 AND customer = $2 ORDER BY trade_date DESC LIMIT $3`, s.table("decisions"))
	rows, err := s.db.QueryContext(ctx, query, s.org, customer, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []decision.Recorded
	for rows.Next() {
		var rec decision.Recorded
		var action string
		if err := rows.Scan(&rec.Customer, &rec.TradeDate, &action, &rec.Tier, &rec.Pct, &rec.Rule, &rec.Note); err != nil {
			return nil, err
		}
		rec.Action = decision.Action(action)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Peek(ctx context.Context, customer, asset string) (decimal.Decimal, error) {
	query := fmt.Sprintf(`SELECT balance FROM %s WHERE org = $1 AND customer = $2 AND asset = $3`, s.table("carry_buckets"))
	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx, query, s.org, customer, asset).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *Store) Add(ctx context.Context, customer, asset string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("carry add amount must not be negative")
	}
	query := fmt.Sprintf(`INSERT INTO %s (org, customer, asset, balance, updated_at) VALUES ($1,$2,$3,$4, now())
		ON CONFLICT (org, customer, asset) DO UPDATE SET balance = %s.balance + excluded.balance, updated_at = now()`,
		s.table("carry_buckets"), s.table("carry_buckets"))
	return s.exec(ctx, query, s.org, customer, asset, amount)
}

// Consume debits the carry bucket, failing instead of going negative.
func (s *Store) Consume(ctx context.Context, customer, asset string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("carry consume amount must not be negative")
	}
	if amount.IsZero() {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET balance = balance - $4, updated_at = now()
		WHERE org = $1 AND customer = $2 AND asset = $3 AND balance >= $4`, s.table("carry_buckets"))
	result, err := s.db.ExecContext(ctx, query, s.org, customer, asset, amount)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("carry balance below %s for %s/%s", amount, customer, asset)
	}
	return nil
}

// UpsertIntent inserts the intent unless its idempotency key already
// exists, in which case the stored intent wins and duplicate is
// reported.
func (s *Store) UpsertIntent(ctx context.Context, intent sizing.Intent) (sizing.UpsertResult, error) {
	query := fmt.Sprintf(`INSERT INTO %s (
		idempotency_key, org, customer, trade_date, side, amount, limit_price, reason, note
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (idempotency_key) DO NOTHING`, s.table("order_intents"))
	result, err := s.db.ExecContext(ctx, query,
		intent.IdempotencyKey, intent.Org, intent.Customer,
		intent.TradeDate.UTC().Truncate(24*time.Hour), string(intent.Side),
		intent.Amount, intent.LimitPrice, intent.Reason, intent.Note)
	if err != nil {
		return "", err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return sizing.UpsertDuplicate, nil
	}
	return sizing.UpsertCreated, nil
}

func (s *Store) Latest(ctx context.Context, customer string, at time.Time) (sizing.Balance, bool, error) {
	query := fmt.Sprintf(`SELECT usdt, btc FROM %s
		WHERE org = $1 AND customer = $2 AND ts <= $3 ORDER BY ts DESC LIMIT 1`, s.table("balance_snapshots"))
	var balance sizing.Balance
	err := s.db.QueryRowContext(ctx, query, s.org, customer, at).Scan(&balance.USDT, &balance.BTC)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sizing.Balance{}, false, nil
		}
		return sizing.Balance{}, false, err
	}
	return balance, true, nil
}

func (s *Store) AvailableUSDT(ctx context.Context, customer string, at time.Time) (decimal.Decimal, error) {
	query := fmt.Sprintf(`SELECT usdt, reserved_usdt FROM %s
		WHERE org = $1 AND customer = $2 AND ts <= $3 ORDER BY ts DESC LIMIT 1`, s.table("balance_snapshots"))
	var usdt, reserved decimal.Decimal
	err := s.db.QueryRowContext(ctx, query, s.org, customer, at).Scan(&usdt, &reserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	available := usdt.Sub(reserved)
	if available.IsNegative() {
		return decimal.Zero, nil
	}
	return available, nil
}

func (s *Store) NAVOnOrBefore(ctx context.Context, customer string, at time.Time) (decimal.Decimal, bool, error) {
	query := fmt.Sprintf(`SELECT nav FROM %s
		WHERE org = $1 AND customer = $2 AND ts <= $3 ORDER BY ts DESC LIMIT 1`, s.table("balance_snapshots"))
	var nav decimal.Decimal
	err := s.db.QueryRowContext(ctx, query, s.org, customer, at).Scan(&nav)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return nav, true, nil
}

func (s *Store) FundingEvents(ctx context.Context, customer string, from, to time.Time) ([]fees.FundingEvent, error) {
	query := fmt.Sprintf(`SELECT kind, asset, amount, occurred_at FROM %s
		WHERE org = $1 AND customer = $2 AND occurred_at >= $3 AND occurred_at < $4
		ORDER BY occurred_at`, s.table("funding_events"))
	rows, err := s.db.QueryContext(ctx, query, s.org, customer, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fees.FundingEvent
	for rows.Next() {
		var event fees.FundingEvent
		if err := rows.Scan(&event.Kind, &event.Asset, &event.Amount, &event.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// LatestClose returns the most recent published close at or before the
// given date.
func (s *Store) LatestClose(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	query := fmt.Sprintf(`SELECT close FROM %s WHERE org = $1 AND date <= $2 ORDER BY date DESC LIMIT 1`, s.table("band_rows"))
	var lastClose float64
	err := s.db.QueryRowContext(ctx, query, s.org, at.UTC().Truncate(24*time.Hour)).Scan(&lastClose)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("no close on or before %s", at.UTC().Format("2006-01-02"))
		}
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(lastClose), nil
}

func (s *Store) GetFeeRecord(ctx context.Context, customer string, month time.Time) (fees.Record, bool, error) {
	query := fmt.Sprintf(`SELECT org, customer, month, nav_start, nav_end, net_flows, fee_rate, fee_due, fee_paid, arrears, status
		FROM %s WHERE org = $1 AND customer = $2 AND month = $3`, s.table("fee_records"))
	var record fees.Record
	var status string
	err := s.db.QueryRowContext(ctx, query, s.org, customer, month.UTC().Truncate(24*time.Hour)).Scan(
		&record.Org, &record.Customer, &record.Month,
		&record.NAVStart, &record.NAVEnd, &record.NetFlows,
		&record.FeeRate, &record.FeeDue, &record.FeePaid, &record.Arrears, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fees.Record{}, false, nil
		}
		return fees.Record{}, false, err
	}
	record.Status = fees.Status(status)
	return record, true, nil
}

func (s *Store) UpsertFeeRecord(ctx context.Context, record fees.Record) error {
	query := fmt.Sprintf(`INSERT INTO %s (
		org, customer, month, nav_start, nav_end, net_flows, fee_rate, fee_due, fee_paid, arrears, status, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now())
	ON CONFLICT (org, customer, month) DO UPDATE SET
		nav_start = excluded.nav_start, nav_end = excluded.nav_end, net_flows = excluded.net_flows,
		fee_rate = excluded.fee_rate, fee_due = excluded.fee_due, fee_paid = excluded.fee_paid,
		arrears = excluded.arrears, status = excluded.status, updated_at = now()`, s.table("fee_records"))
	return s.exec(ctx, query,
		record.Org, record.Customer, record.Month.UTC().Truncate(24*time.Hour),
		record.NAVStart, record.NAVEnd, record.NetFlows,
		record.FeeRate, record.FeeDue, record.FeePaid, record.Arrears, string(record.Status))
}

func (s *Store) AppendLine(ctx context.Context, line fees.LedgerLine) error {
	query := fmt.Sprintf(`INSERT INTO %s (org, customer, kind, asset, amount, fee, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`, s.table("ledger_lines"))
	return s.exec(ctx, query, line.Org, line.Customer, line.Kind, line.Asset, line.Amount, line.Fee, line.OccurredAt)
}

type intentSink struct {
	store *Store
}

func (i intentSink) Upsert(ctx context.Context, intent sizing.Intent) (sizing.UpsertResult, error) {
	return i.store.UpsertIntent(ctx, intent)
}

// Intents adapts the store to the sizing sink interface; the method
// name Upsert is already taken by the fee-record view.
func (s *Store) Intents() sizing.IntentSink {
	return intentSink{store: s}
}

type feeRecordStore struct {
	store *Store
}

func (f feeRecordStore) Get(ctx context.Context, customer string, month time.Time) (fees.Record, bool, error) {
	return f.store.GetFeeRecord(ctx, customer, month)
}

func (f feeRecordStore) Upsert(ctx context.Context, record fees.Record) error {
	return f.store.UpsertFeeRecord(ctx, record)
}

func (s *Store) FeeRecords() fees.RecordStore {
	return feeRecordStore{store: s}
}
