package model

import (
	"context"
	"errors"
	"math"
	"testing"
)

// separable returns n rows where label 1 iff the first feature exceeds n/2.
// The second feature is noise-free but uninformative.
func separable(n int) ([][]float64, []int) {
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		x[i] = []float64{float64(i), float64(i%7) - 3}
		if i >= n/2 {
			y[i] = 1
		}
	}
	return x, y
}

func accuracy(pred, y []int) float64 {
	var hit int
	for i := range y {
		if pred[i] == y[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(y))
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	names := r.List()
	if len(names) != 2 || names[0] != NameLogistic || names[1] != NameGradientBoosted {
		t.Fatalf("List() = %v, want [%s %s]", names, NameLogistic, NameGradientBoosted)
	}
	for _, name := range names {
		a, ok := r.New(name)
		if !ok {
			t.Fatalf("New(%q) not found", name)
		}
		if a.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, a.Name())
		}
		b, _ := r.New(name)
		if a == b {
			t.Errorf("New(%q) returned a shared instance", name)
		}
	}
	if _, ok := r.New("svm"); ok {
		t.Error("New(svm) should not be found")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("m", func() Classifier { return NewLogistic(LogisticConfig{C: 1}) })
	r.Register("m", func() Classifier { return NewGradientBoosted(BoostConfig{Rounds: 1}) })
	c, ok := r.New("m")
	if !ok {
		t.Fatal("New(m) not found")
	}
	if c.Name() != NameGradientBoosted {
		t.Errorf("New(m).Name() = %q, want %q", c.Name(), NameGradientBoosted)
	}
}

func TestClassifiersLearnSeparableData(t *testing.T) {
	x, y := separable(120)
	for _, name := range DefaultRegistry().List() {
		t.Run(name, func(t *testing.T) {
			c, _ := DefaultRegistry().New(name)
			if err := c.Fit(context.Background(), x, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			pred, err := c.Predict(x)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if acc := accuracy(pred, y); acc < 0.95 {
				t.Errorf("training accuracy = %v, want >= 0.95", acc)
			}
			proba, err := c.PredictProba(x)
			if err != nil {
				t.Fatalf("PredictProba: %v", err)
			}
			for i, p := range proba {
				if p < 0 || p > 1 || math.IsNaN(p) {
					t.Fatalf("proba[%d] = %v, outside [0, 1]", i, p)
				}
			}
			if proba[0] >= proba[len(proba)-1] {
				t.Errorf("proba[0] = %v, proba[last] = %v, want increasing", proba[0], proba[len(proba)-1])
			}
		})
	}
}

func TestClassifiersAreDeterministic(t *testing.T) {
	x, y := separable(80)
	for _, name := range DefaultRegistry().List() {
		a, _ := DefaultRegistry().New(name)
		b, _ := DefaultRegistry().New(name)
		if err := a.Fit(context.Background(), x, y); err != nil {
			t.Fatalf("%s Fit: %v", name, err)
		}
		if err := b.Fit(context.Background(), x, y); err != nil {
			t.Fatalf("%s Fit: %v", name, err)
		}
		pa, _ := a.PredictProba(x)
		pb, _ := b.PredictProba(x)
		for i := range pa {
			if pa[i] != pb[i] {
				t.Fatalf("%s: proba[%d] = %v vs %v across identical fits", name, i, pa[i], pb[i])
			}
		}
	}
}

func TestPredictBeforeFit(t *testing.T) {
	for _, c := range []Classifier{NewLogistic(DefaultLogisticConfig()), NewGradientBoosted(DefaultBoostConfig())} {
		if _, err := c.Predict([][]float64{{1, 2}}); !errors.Is(err, ErrNotFitted) {
			t.Errorf("%s Predict before Fit: err = %v, want ErrNotFitted", c.Name(), err)
		}
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		x    [][]float64
		y    []int
	}{
		{"empty", nil, nil},
		{"length mismatch", [][]float64{{1}, {2}}, []int{0}},
		{"ragged", [][]float64{{1, 2}, {3}}, []int{0, 1}},
		{"bad label", [][]float64{{1}, {2}}, []int{0, 2}},
		{"single class", [][]float64{{1}, {2}, {3}}, []int{1, 1, 1}},
	}
	for _, tc := range cases {
		for _, c := range []Classifier{NewLogistic(DefaultLogisticConfig()), NewGradientBoosted(DefaultBoostConfig())} {
			if err := c.Fit(context.Background(), tc.x, tc.y); err == nil {
				t.Errorf("%s Fit(%s) should fail", c.Name(), tc.name)
			}
		}
	}
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	x, y := separable(40)
	c := NewGradientBoosted(BoostConfig{Rounds: 5})
	if err := c.Fit(context.Background(), x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := c.Predict([][]float64{{1}}); err == nil {
		t.Error("Predict with one feature should fail on a two-feature model")
	}
	if c.Trees() != 5 {
		t.Errorf("Trees() = %d, want 5", c.Trees())
	}
}

func TestFitHonoursContext(t *testing.T) {
	x, y := separable(40)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, c := range []Classifier{NewLogistic(DefaultLogisticConfig()), NewGradientBoosted(DefaultBoostConfig())} {
		if err := c.Fit(ctx, x, y); !errors.Is(err, context.Canceled) {
			t.Errorf("%s Fit on cancelled context: err = %v, want context.Canceled", c.Name(), err)
		}
	}
}

func TestLogisticCoefficientSign(t *testing.T) {
	x, y := separable(100)
	m := NewLogistic(DefaultLogisticConfig())
	if m.Coefficients() != nil {
		t.Error("Coefficients() before Fit should be nil")
	}
	if err := m.Fit(context.Background(), x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	coef := m.Coefficients()
	if len(coef) != 3 {
		t.Fatalf("len(Coefficients()) = %d, want 3", len(coef))
	}
	if coef[1] <= 0 {
		t.Errorf("weight on the informative feature = %v, want > 0", coef[1])
	}
}

func TestFailedRefitKeepsPreviousFit(t *testing.T) {
	x, y := separable(60)
	wide := make([][]float64, len(x))
	for i, row := range x {
		wide[i] = append([]float64{float64(i % 3)}, row...)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, c := range []Classifier{NewLogistic(DefaultLogisticConfig()), NewGradientBoosted(BoostConfig{Rounds: 10})} {
		if err := c.Fit(context.Background(), x, y); err != nil {
			t.Fatalf("%s Fit: %v", c.Name(), err)
		}
		before, err := c.PredictProba(x)
		if err != nil {
			t.Fatalf("%s PredictProba: %v", c.Name(), err)
		}

		if err := c.Fit(ctx, wide, y); !errors.Is(err, context.Canceled) {
			t.Fatalf("%s refit on cancelled context: err = %v, want context.Canceled", c.Name(), err)
		}
		if _, err := c.PredictProba(wide); err == nil {
			t.Errorf("%s PredictProba on three features should fail after a failed refit", c.Name())
		}
		after, err := c.PredictProba(x)
		if err != nil {
			t.Fatalf("%s PredictProba after failed refit: %v", c.Name(), err)
		}
		for i := range before {
			if after[i] != before[i] {
				t.Fatalf("%s proba[%d] = %v after failed refit, want %v", c.Name(), i, after[i], before[i])
			}
		}
	}
}
