package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quantdir/internal/frame"
)

// FrameRecord is the long-format Parquet schema for a derived table: one row
// per (timestamp, column) cell. Undefined cells have no value. Each column
// also gets one Header record so that a table with no rows keeps its schema.
type FrameRecord struct {
	Ticker    string   `parquet:"ticker"`
	Timestamp int64    `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Column    string   `parquet:"column"`
	Value     *float64 `parquet:"value,optional"`
	Header    bool     `parquet:"header"`
}

// WriteFrame writes t to <DataDir>/processed/<TICKER>_<kind>.parquet,
// replacing any previous file.
func (s *ParquetStore) WriteFrame(ctx context.Context, ticker, kind string, t *frame.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ticker = strings.ToUpper(ticker)
	names := t.Names()
	records := make([]FrameRecord, 0, (t.Len()+1)*len(names))
	for _, name := range names {
		records = append(records, FrameRecord{Ticker: ticker, Column: name, Header: true})
	}
	for i := 0; i < t.Len(); i++ {
		ts := t.Date(i).UnixMilli()
		for _, name := range names {
			rec := FrameRecord{Ticker: ticker, Timestamp: ts, Column: name}
			if v := t.Value(name, i); !frame.IsNA(v) {
				rec.Value = &v
			}
			records = append(records, rec)
		}
	}
	if err := writeParquetFile(s.framePath(ticker, kind), records); err != nil {
		return fmt.Errorf("writing %s frame for %s: %w", kind, ticker, err)
	}
	return nil
}

// ReadFrame loads the table written by WriteFrame. Columns keep their
// original order; rows are ordered by timestamp.
func (s *ParquetStore) ReadFrame(ctx context.Context, ticker, kind string) (*frame.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker = strings.ToUpper(ticker)
	records, err := readParquetFile[FrameRecord](s.framePath(ticker, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s frame for %s: %w", kind, ticker, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s frame for %s: %w", kind, ticker, err)
	}

	var names []string
	seenCol := make(map[string]bool)
	rowOf := make(map[int64]int)
	var stamps []int64
	for _, r := range records {
		if !seenCol[r.Column] {
			seenCol[r.Column] = true
			names = append(names, r.Column)
		}
		if r.Header {
			continue
		}
		if _, ok := rowOf[r.Timestamp]; !ok {
			rowOf[r.Timestamp] = 0
			stamps = append(stamps, r.Timestamp)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })
	dates := make([]time.Time, len(stamps))
	for i, ts := range stamps {
		rowOf[ts] = i
		dates[i] = time.UnixMilli(ts).UTC()
	}

	cols := make(map[string][]float64, len(names))
	for _, name := range names {
		c := make([]float64, len(dates))
		for i := range c {
			c[i] = frame.NA()
		}
		cols[name] = c
	}
	for _, r := range records {
		if !r.Header && r.Value != nil {
			cols[r.Column][rowOf[r.Timestamp]] = *r.Value
		}
	}

	t := frame.New(dates)
	for _, name := range names {
		t = t.With(name, cols[name])
	}
	return t, nil
}

// framePath returns <dataDir>/processed/<TICKER>_<kind>.parquet.
func (s *ParquetStore) framePath(ticker, kind string) string {
	return filepath.Join(s.DataDir, "processed", fmt.Sprintf("%s_%s.parquet", strings.ToUpper(ticker), kind))
}
