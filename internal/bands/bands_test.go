package bands

import (
	"math"
	"testing"
)

func fullRow() Row {
	return Row{
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

func TestClassifyHighestBoundaryMet(t *testing.T) {
	row := fullRow()
	cases := []struct {
		price float64
		want  string
	}{
		{59999, LabelBelowAll},
		{60000, "-1.00σ"},
		{61999, "-1.00σ"},
		{65000, "-0.50σ"},
		{68000, "mean"},
		{71999, "mean"},
		{72000, "+0.50σ"},
		{83999, "+1.50σ"},
		{84000, "+2.00σ"},
		{95000, "+2.50σ"},
	}
	for _, tc := range cases {
		if got := Classify(tc.price, row); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.price, got, tc.want)
		}
	}
}

func TestClassifySkipsAbsentLevels(t *testing.T) {
	row := fullRow()
	row.P050 = Absent()
	row.P100 = math.Inf(1)
	if got := Classify(74000, row); got != "mean" {
		t.Fatalf("expected absent levels to widen the mean band, got %q", got)
	}
	row.M100 = Absent()
	if got := Classify(59000, row); got != LabelBelowAll {
		t.Fatalf("expected below-all with lowest level absent, got %q", got)
	}
}

func TestClassifyAllAbsent(t *testing.T) {
	var row Row
	row.M100 = Absent()
	row.M075 = Absent()
	row.M050 = Absent()
	row.M025 = Absent()
	row.Mean = Absent()
	row.P050 = Absent()
	row.P100 = Absent()
	row.P150 = Absent()
	row.P200 = Absent()
	row.P250 = Absent()
	if got := Classify(68000, row); got != LabelBelowAll {
		t.Fatalf("expected %q with no levels defined, got %q", LabelBelowAll, got)
	}
}
