package performance

import (
	"math"
	"testing"
)

func TestSharpe(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, 0.01}

	got, ok := Sharpe(returns, 0)
	if !ok {
		t.Fatal("Sharpe reported undefined for a varying series")
	}
	// Sample standard deviation, n-1.
	mean := 0.0075
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(ss / 3)
	want := math.Sqrt(252) * mean / sd
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Sharpe = %v, want %v", got, want)
	}

	withRF, _ := Sharpe(returns, 0.0252)
	wantRF := math.Sqrt(252) * (mean - 0.0001) / sd
	if math.Abs(withRF-wantRF) > 1e-12 {
		t.Errorf("Sharpe(rf=0.0252) = %v, want %v", withRF, wantRF)
	}
}

func TestSharpeSkipsUndefined(t *testing.T) {
	a, okA := Sharpe([]float64{math.NaN(), 0.01, -0.02, 0.03}, 0)
	b, okB := Sharpe([]float64{0.01, -0.02, 0.03}, 0)
	if !okA || !okB || a != b {
		t.Errorf("Sharpe with leading NaN = %v/%v, without = %v/%v", a, okA, b, okB)
	}
}

func TestSharpeUndefined(t *testing.T) {
	cases := map[string][]float64{
		"empty":    nil,
		"single":   {0.01},
		"constant": {0.01, 0.01, 0.01},
		"zeros":    {0, 0, 0, 0},
		"all NaN":  {math.NaN(), math.NaN()},
	}
	for name, returns := range cases {
		got, ok := Sharpe(returns, 0)
		if ok {
			t.Errorf("%s: Sharpe reported defined (%v), want undefined", name, got)
		}
		if got != 0 || math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("%s: Sharpe = %v, want 0", name, got)
		}
	}
}

func TestMaxDrawdown(t *testing.T) {
	cases := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"flat", []float64{1, 1, 1}, 0},
		{"rising", []float64{1, 1.1, 1.2}, 0},
		{"single dip", []float64{1, 0.98, 1.0094, 1.0094}, -0.02},
		{"deepest of two", []float64{1, 1.2, 0.9, 1.5, 1.2}, -0.25},
		{"total loss", []float64{1, 0.5, 0}, -1},
	}
	for _, c := range cases {
		got := MaxDrawdown(c.equity)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("%s: MaxDrawdown = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMaxDrawdownBounded(t *testing.T) {
	equity := []float64{1}
	for i := 1; i < 500; i++ {
		r := 0.03 * math.Sin(float64(i)*1.7)
		equity = append(equity, equity[i-1]*(1+r))
	}
	dd := MaxDrawdown(equity)
	if dd < -1 || dd > 0 {
		t.Errorf("MaxDrawdown = %v, outside [-1, 0]", dd)
	}
}

func TestTotalReturn(t *testing.T) {
	if got := TotalReturn([]float64{1, 1.1, 1.21}); math.Abs(got-0.21) > 1e-12 {
		t.Errorf("TotalReturn = %v, want 0.21", got)
	}
	if got := TotalReturn(nil); got != 0 {
		t.Errorf("TotalReturn(nil) = %v, want 0", got)
	}
}
