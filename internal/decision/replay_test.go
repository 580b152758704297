package decision

import (
	"math"
	"testing"
	"time"

	"btc-dca-engine/internal/bands"
)

func rowAt(day int, close float64) bands.Row {
	row := bands.Row{
		Date:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Close: close,
		M100:  60000,
		M075:  62000,
		M050:  64000,
		M025:  66000,
		Mean:  68000,
		P050:  72000,
		P100:  76000,
		P150:  80000,
		P200:  84000,
		P250:  88000,
	}
	return row
}

func TestReplayMatchesIncrementalState(t *testing.T) {
	// Deterministic pseudo-random walk across the band table, including
	// excursions above +2.00σ and below -1.00σ.
	seed := uint64(0x9e3779b97f4a7c15)
	price := 68000.0
	var history []bands.Row
	state := State{}
	for day := 0; day < 500; day++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		step := float64(int64(seed>>33)%4001-2000) * 4
		price += step
		if price < 50000 {
			price = 50000
		}
		if price > 95000 {
			price = 95000
		}
		row := rowAt(day, price)
		history = append(history, row)
		state = Transition(row.Close, row, state)
		if got := ReplayBearPause(history); got != state.BearPause {
			t.Fatalf("day %d price %.0f: replay pause %v, incremental %v", day, price, got, state.BearPause)
		}
	}
}

func TestReplayEmptyHistory(t *testing.T) {
	if ReplayBearPause(nil) {
		t.Fatalf("expected no pause with no history")
	}
}

func TestReplayPauseSetAndClear(t *testing.T) {
	history := []bands.Row{
		rowAt(0, 70000),
		rowAt(1, 85000),
		rowAt(2, 75000),
	}
	if !ReplayBearPause(history) {
		t.Fatalf("expected pause after spike above +2.00σ")
	}
	history = append(history, rowAt(3, 59000))
	if ReplayBearPause(history) {
		t.Fatalf("expected pause cleared below -1.00σ")
	}
}

func TestReplaySkipsNonFiniteCloses(t *testing.T) {
	spike := rowAt(0, 85000)
	gap := rowAt(1, math.NaN())
	if !ReplayBearPause([]bands.Row{spike, gap}) {
		t.Fatalf("expected gap day to leave pause untouched")
	}
}

func TestReplaySameDaySpikeAndDrop(t *testing.T) {
	// A close below -1.00σ clears even when the same row would also set:
	// the clear rule has priority.
	row := rowAt(0, 59000)
	row.P200 = 58000
	if ReplayBearPause([]bands.Row{row}) {
		t.Fatalf("expected clear rule to win over set rule")
	}
}
