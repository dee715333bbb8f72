// Package model defines the Classifier interface used by the experiment
// pipeline and provides the built-in classifier families plus a Registry for
// looking them up by name.
package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNotFitted is returned when predicting with a classifier that has not
// been fitted.
var ErrNotFitted = errors.New("model: not fitted")

// Classifier is a binary classifier over row-major feature matrices.
type Classifier interface {
	// Name returns the identifier of the classifier family.
	Name() string

	// Fit trains the classifier on x with 0/1 labels y.
	Fit(ctx context.Context, x [][]float64, y []int) error

	// PredictProba returns the probability of label 1 for every row of x.
	PredictProba(x [][]float64) ([]float64, error)

	// Predict returns a 0/1 label for every row of x.
	Predict(x [][]float64) ([]int, error)
}

// Factory creates an unfitted classifier.
type Factory func() Classifier

// Registry holds named classifier factories. Every New call returns a fresh
// instance, so one registry can serve concurrent experiments.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a Registry with the built-in classifiers under
// their default configurations.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NameLogistic, func() Classifier { return NewLogistic(DefaultLogisticConfig()) })
	r.Register(NameGradientBoosted, func() Classifier { return NewGradientBoosted(DefaultBoostConfig()) })
	return r
}

// Register adds a factory under name, replacing any previous entry.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New creates a classifier by name. The second return value indicates whether
// the name was found.
func (r *Registry) New(name string) (Classifier, bool) {
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// List returns a sorted slice of all registered names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate checks that x and y form a usable binary training set and returns
// the feature count.
func validate(x [][]float64, y []int) (int, error) {
	if len(x) == 0 {
		return 0, errors.New("model: empty training set")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("model: %d rows but %d labels", len(x), len(y))
	}
	d := len(x[0])
	var pos int
	for i, row := range x {
		if len(row) != d {
			return 0, fmt.Errorf("model: row %d has %d features, want %d", i, len(row), d)
		}
		switch y[i] {
		case 0:
		case 1:
			pos++
		default:
			return 0, fmt.Errorf("model: label %d at row %d is not 0 or 1", y[i], i)
		}
	}
	if pos == 0 || pos == len(y) {
		return 0, errors.New("model: training labels contain a single class")
	}
	return d, nil
}

func checkWidth(x [][]float64, d int) error {
	for i, row := range x {
		if len(row) != d {
			return fmt.Errorf("model: row %d has %d features, want %d", i, len(row), d)
		}
	}
	return nil
}

// threshold maps probabilities to labels at 0.5.
func threshold(p []float64) []int {
	out := make([]int, len(p))
	for i, v := range p {
		if v >= 0.5 {
			out[i] = 1
		}
	}
	return out
}
