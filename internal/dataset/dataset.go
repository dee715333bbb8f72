package dataset

import (
	"math"

	"quantdir/internal/frame"
)

// DropUndefined removes rows where any of cols (plus the target, when
// present) is undefined.
func DropUndefined(t *frame.Table, cols []string) *frame.Table {
	check := append([]string(nil), cols...)
	if t.Has(ColTarget) {
		check = append(check, ColTarget)
	}
	return t.DropUndefined(check...)
}

// Labels returns the target column as 0/1 ints. A table without a target
// yields nil.
func Labels(t *frame.Table) []int {
	if !t.Has(ColTarget) {
		return nil
	}
	col := t.Column(ColTarget)
	out := make([]int, len(col))
	for i, v := range col {
		if v > 0 {
			out[i] = 1
		}
	}
	return out
}

// Audit counts the NaN and infinite values in a table.
type Audit struct {
	NaN int
	Inf int
}

// Clean reports whether the audit found nothing.
func (a Audit) Clean() bool { return a.NaN == 0 && a.Inf == 0 }

// AuditTable scans every column of t, or only cols when given.
func AuditTable(t *frame.Table, cols ...string) Audit {
	if len(cols) == 0 {
		cols = t.Names()
	}
	var a Audit
	for _, name := range cols {
		for _, v := range t.Column(name) {
			switch {
			case math.IsNaN(v):
				a.NaN++
			case math.IsInf(v, 0):
				a.Inf++
			}
		}
	}
	return a
}
