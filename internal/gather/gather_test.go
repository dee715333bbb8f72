package gather

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"quantdir/internal/domain"
	"quantdir/internal/store"
)

type fakeSource struct {
	bars  []domain.Bar
	err   error
	calls int
}

func (f *fakeSource) Name() string          { return "fake" }
func (f *fakeSource) Market() domain.Market { return domain.MarketUS }

func (f *fakeSource) FetchDailyBars(_ context.Context, _ string, start, end time.Time) ([]domain.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Bar
	for _, b := range f.bars {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func bar(d int, c float64) domain.Bar {
	return domain.Bar{Symbol: "SPY", Timestamp: day(d), Open: c, High: c, Low: c, Close: c, Volume: 10}
}

func newTestLoader(t *testing.T, src Source) (*Loader, *store.ParquetStore) {
	t.Helper()
	ps := store.NewParquetStore(t.TempDir())
	l := NewLoader(src, ps, nil)
	l.now = func() time.Time { return day(31) }
	return l, ps
}

func TestClean(t *testing.T) {
	in := []domain.Bar{
		bar(3, 103),
		bar(1, 101),
		bar(2, 102),
		bar(2, 202),
		bar(4, math.NaN()),
		bar(5, 0),
		{Symbol: "SPY", Timestamp: day(6), Open: math.Inf(1), High: 1, Low: 1, Close: 1},
		bar(7, 107),
	}
	got, dropped := Clean(in)
	if dropped != 4 {
		t.Errorf("dropped = %d, want 4", dropped)
	}
	want := []float64{101, 202, 103, 107}
	if len(got) != len(want) {
		t.Fatalf("Clean returned %d bars, want %d", len(got), len(want))
	}
	for i, c := range want {
		if got[i].Close != c {
			t.Errorf("bar %d Close = %v, want %v", i, got[i].Close, c)
		}
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Timestamp.Before(got[i].Timestamp) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
	if in[0].Close != 103 {
		t.Error("Clean reordered its input")
	}
}

func TestLoaderFetchesAndCaches(t *testing.T) {
	src := &fakeSource{bars: []domain.Bar{bar(2, 10), bar(3, 11), bar(4, 12)}}
	l, ps := newTestLoader(t, src)
	ctx := context.Background()

	got, err := l.Load(ctx, "spy", day(1))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 || src.calls != 1 {
		t.Fatalf("Load returned %d bars after %d fetches, want 3 after 1", len(got), src.calls)
	}

	cached, err := ps.ReadBars(ctx, "SPY", domain.MarketUS, day(1), day(31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(cached) != 3 {
		t.Errorf("cache holds %d bars, want 3", len(cached))
	}

	// A second load is served from the cache even if the source changed.
	src.bars = append(src.bars, bar(5, 13))
	got, err = l.Load(ctx, "SPY", day(1))
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if len(got) != 3 || src.calls != 1 {
		t.Errorf("second Load: %d bars after %d fetches, want 3 after 1", len(got), src.calls)
	}

	// Refresh goes to the source and merges.
	got, err = l.Refresh(ctx, "SPY", day(1))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(got) != 4 || src.calls != 2 {
		t.Errorf("Refresh: %d bars after %d fetches, want 4 after 2", len(got), src.calls)
	}
}

func TestLoaderNoData(t *testing.T) {
	l, _ := newTestLoader(t, &fakeSource{})
	if _, err := l.Load(context.Background(), "SPY", day(1)); !errors.Is(err, ErrNoData) {
		t.Errorf("Load with empty source: err = %v, want ErrNoData", err)
	}
}

func TestLoaderSourceError(t *testing.T) {
	boom := errors.New("boom")
	l, _ := newTestLoader(t, &fakeSource{err: boom})
	if _, err := l.Load(context.Background(), "SPY", day(1)); !errors.Is(err, boom) {
		t.Errorf("Load with failing source: err = %v, want %v", err, boom)
	}
}
