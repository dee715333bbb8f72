// Package frame provides Table, an immutable column-oriented table indexed by
// date. Every operation that changes a table returns a new one; column slices
// are never written after construction, so unchanged columns are shared
// between a table and the tables derived from it.
package frame

import (
	"fmt"
	"math"
	"time"

	"quantdir/internal/domain"
)

// Price column names produced by FromBars.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// NA returns the marker used for undefined values.
func NA() float64 { return math.NaN() }

// IsNA reports whether v is the undefined marker.
func IsNA(v float64) bool { return math.IsNaN(v) }

// Table is an ordered set of named float64 columns sharing a date index.
type Table struct {
	dates []time.Time
	names []string
	cols  map[string][]float64
}

// New creates a table with the given date index and no columns.
func New(dates []time.Time) *Table {
	d := make([]time.Time, len(dates))
	copy(d, dates)
	return &Table{dates: d, cols: make(map[string][]float64)}
}

// FromBars builds a table with the five price columns from bars, which must
// already be sorted by timestamp.
func FromBars(bars []domain.Bar) *Table {
	n := len(bars)
	dates := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	cl := make([]float64, n)
	vol := make([]float64, n)
	for i, b := range bars {
		dates[i] = b.Timestamp
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		cl[i] = b.Close
		vol[i] = float64(b.Volume)
	}
	return &Table{
		dates: dates,
		names: []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume},
		cols: map[string][]float64{
			ColOpen:   open,
			ColHigh:   high,
			ColLow:    low,
			ColClose:  cl,
			ColVolume: vol,
		},
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns a copy of the date index.
func (t *Table) Dates() []time.Time {
	out := make([]time.Time, len(t.dates))
	copy(out, t.dates)
	return out
}

// Date returns the date of row i.
func (t *Table) Date(i int) time.Time { return t.dates[i] }

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns a copy of the named column, or nil if it does not exist.
func (t *Table) Column(name string) []float64 {
	c, ok := t.cols[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(c))
	copy(out, c)
	return out
}

// Value returns the value of column name at row i. A missing column reads as
// undefined.
func (t *Table) Value(name string, i int) float64 {
	c, ok := t.cols[name]
	if !ok {
		return NA()
	}
	return c[i]
}

// With returns a new table with values stored under name. An existing column
// of that name is replaced and keeps its position; otherwise the column is
// appended. values is copied. It panics if len(values) differs from the row
// count.
func (t *Table) With(name string, values []float64) *Table {
	if len(values) != len(t.dates) {
		panic(fmt.Sprintf("frame: column %q has %d values, table has %d rows", name, len(values), len(t.dates)))
	}
	c := make([]float64, len(values))
	copy(c, values)

	out := &Table{
		dates: t.dates,
		names: t.names,
		cols:  make(map[string][]float64, len(t.cols)+1),
	}
	for k, v := range t.cols {
		out.cols[k] = v
	}
	if _, exists := t.cols[name]; !exists {
		out.names = append(t.Names(), name)
	}
	out.cols[name] = c
	return out
}

// Slice returns rows [i, j) as a new table. Bounds are clamped to the table.
func (t *Table) Slice(i, j int) *Table {
	i = max(i, 0)
	j = min(max(j, 0), len(t.dates))
	if i > j {
		i = j
	}
	out := &Table{
		dates: t.dates[i:j:j],
		names: t.names,
		cols:  make(map[string][]float64, len(t.cols)),
	}
	for k, v := range t.cols {
		out.cols[k] = v[i:j:j]
	}
	return out
}

// DropUndefined returns a table without the rows where any of cols is
// undefined. With no cols every column is checked.
func (t *Table) DropUndefined(cols ...string) *Table {
	if len(cols) == 0 {
		cols = t.names
	}
	keep := make([]int, 0, len(t.dates))
	for i := range t.dates {
		ok := true
		for _, name := range cols {
			if IsNA(t.Value(name, i)) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return t.take(keep)
}

// take returns a new table holding the given rows in order.
func (t *Table) take(rows []int) *Table {
	out := &Table{
		dates: make([]time.Time, len(rows)),
		names: t.names,
		cols:  make(map[string][]float64, len(t.cols)),
	}
	for j, i := range rows {
		out.dates[j] = t.dates[i]
	}
	for k, v := range t.cols {
		c := make([]float64, len(rows))
		for j, i := range rows {
			c[j] = v[i]
		}
		out.cols[k] = c
	}
	return out
}

// Matrix returns the row-major values of cols. Missing columns read as
// undefined.
func (t *Table) Matrix(cols []string) [][]float64 {
	out := make([][]float64, len(t.dates))
	for i := range t.dates {
		row := make([]float64, len(cols))
		for j, name := range cols {
			row[j] = t.Value(name, i)
		}
		out[i] = row
	}
	return out
}
