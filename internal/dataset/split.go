package dataset

import (
	"fmt"
	"math"

	"quantdir/internal/frame"
)

// DefaultSplitRatio is the share of rows used for training.
const DefaultSplitRatio = 0.8

// Chronological splits t at floor(N*ratio): train holds rows [0, cut) and
// test holds rows [cut, N). Rows are never shuffled. Either side may be empty;
// a ratio outside (0, 1] is an error.
func Chronological(t *frame.Table, ratio float64) (train, test *frame.Table, err error) {
	if math.IsNaN(ratio) || ratio <= 0 || ratio > 1 {
		return nil, nil, fmt.Errorf("split ratio must be in (0, 1], got %v", ratio)
	}
	cut := int(math.Floor(float64(t.Len()) * ratio))
	return t.Slice(0, cut), t.Slice(cut, t.Len()), nil
}
