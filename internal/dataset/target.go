// Package dataset turns a feature table into model-ready data: it labels
// future direction, resolves undefined rows, and splits chronologically.
package dataset

import (
	"fmt"

	"quantdir/internal/frame"
)

// ColTarget holds the binary direction label.
const ColTarget = "target"

// DefaultHorizon is the number of rows ahead used to define the label.
const DefaultHorizon = 15

// CreateTarget labels row t with 1 when close[t+horizon] > close[t] and 0
// otherwise. The last horizon rows have no future close and are dropped, so
// the result has exactly t.Len()-horizon rows (none when horizon >= t.Len()).
func CreateTarget(t *frame.Table, horizon int) (*frame.Table, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	if !t.Has(frame.ColClose) {
		return nil, fmt.Errorf("table has no %q column", frame.ColClose)
	}

	closes := t.Column(frame.ColClose)
	labels := make([]float64, len(closes))
	for i := 0; i+horizon < len(closes); i++ {
		if closes[i+horizon] > closes[i] {
			labels[i] = 1
		}
	}
	// Tail rows are cut below; their zero labels are never exposed.
	return t.With(ColTarget, labels).Slice(0, len(closes)-horizon), nil
}
