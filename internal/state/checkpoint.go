package state

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// RunCheckpoint records per-customer progress of a daily batch so an
// interrupted run can resume without repeating completed customers.
type RunCheckpoint struct {
	TradeDate   string   `msgpack:"trade_date"`
	Done        []string `msgpack:"done"`
	UpdatedAtMS int64    `msgpack:"updated_at_ms"`
}

func checkpointKey(tradeDate string) string {
	return "run:checkpoint:" + tradeDate
}

func (c *RunCheckpoint) IsDone(customer string) bool {
	for _, id := range c.Done {
		if id == customer {
			return true
		}
	}
	return false
}

func (c *RunCheckpoint) MarkDone(customer string) {
	if c.IsDone(customer) {
		return
	}
	c.Done = append(c.Done, customer)
}

func LoadCheckpoint(ctx context.Context, store Store, tradeDate string) (RunCheckpoint, bool, error) {
	if store == nil {
		return RunCheckpoint{TradeDate: tradeDate}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, checkpointKey(tradeDate))
	if err != nil {
		return RunCheckpoint{}, false, err
	}
	if !ok || len(raw) == 0 {
		return RunCheckpoint{TradeDate: tradeDate}, false, nil
	}
	var checkpoint RunCheckpoint
	if err := msgpack.Unmarshal(raw, &checkpoint); err != nil {
		return RunCheckpoint{}, false, fmt.Errorf("decode checkpoint for %s: %w", tradeDate, err)
	}
	return checkpoint, true, nil
}

func SaveCheckpoint(ctx context.Context, store Store, checkpoint RunCheckpoint) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := msgpack.Marshal(checkpoint)
	if err != nil {
		return err
	}
	return store.Set(ctx, checkpointKey(checkpoint.TradeDate), payload)
}

func ClearCheckpoint(ctx context.Context, store Store, tradeDate string) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return store.Delete(ctx, checkpointKey(tradeDate))
}
