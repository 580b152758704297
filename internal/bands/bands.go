package bands

import (
	"math"
	"time"
)

// Row is one published day of the price-band table: the observed close
// plus price levels at fixed standard-deviation offsets from the rolling
// mean. Rows are immutable once published. A level that was not computed
// for a date is carried as NaN and skipped by every threshold check.
type Row struct {
	Org   string
	Date  time.Time
	Close float64

	M100 float64 // -1.00σ
	M075 float64 // -0.75σ
	M050 float64 // -0.50σ
	M025 float64 // -0.25σ
	Mean float64
	P050 float64 // +0.50σ
	P100 float64 // +1.00σ
	P150 float64 // +1.50σ
	P200 float64 // +2.00σ
	P250 float64 // +2.50σ
}

// Absent marks a level that was not published for a date.
func Absent() float64 { return math.NaN() }

// Finite reports whether a level is usable in a threshold check.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LabelBelowAll is returned when the price sits under every defined level.
const LabelBelowAll = "<-1.00σ"

type boundary struct {
	label string
	value float64
}

func (r Row) boundaries() []boundary {
	return []boundary{
		{"-1.00σ", r.M100},
		{"-0.75σ", r.M075},
		{"-0.50σ", r.M050},
		{"-0.25σ", r.M025},
		{"mean", r.Mean},
		{"+0.50σ", r.P050},
		{"+1.00σ", r.P100},
		{"+1.50σ", r.P150},
		{"+2.00σ", r.P200},
		{"+2.50σ", r.P250},
	}
}

// Classify returns the label of the highest defined boundary the price
// meets or exceeds. Non-finite boundaries are treated as absent, not as
// zero; with every boundary absent the price classifies below all.
func Classify(price float64, row Row) string {
	label := LabelBelowAll
	for _, b := range row.boundaries() {
		if !Finite(b.value) {
			continue
		}
		if price >= b.value {
			label = b.label
		}
	}
	return label
}
