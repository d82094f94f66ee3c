package pagination

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSource serves total items split into pages.
type fakeSource struct {
	total     int
	noEvent   bool
	calls     []int
	failAt    int
	failErr   error
	misreport int // overrides the declared total when non-zero
}

func (s *fakeSource) FetchPage(_ context.Context, limit, offset int) (Page[int], error) {
	s.calls = append(s.calls, offset)
	if s.failErr != nil && offset == s.failAt {
		return Page[int]{}, s.failErr
	}
	if s.noEvent {
		return Page[int]{NoEvent: true}, nil
	}

	var items []int
	for i := offset; i < offset+limit && i < s.total; i++ {
		items = append(items, i)
	}
	declared := s.total
	if s.misreport != 0 {
		declared = s.misreport
	}
	return Page[int]{Items: items, Total: declared}, nil
}

type countingSleeper struct {
	count int
	total time.Duration
}

func (c *countingSleeper) sleep(_ context.Context, d time.Duration) error {
	c.count++
	c.total += d
	return nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PageSize != 1000 {
		t.Errorf("PageSize = %d, want 1000", cfg.PageSize)
	}
	if cfg.PageDelay != 1200*time.Millisecond {
		t.Errorf("PageDelay = %v, want 1.2s", cfg.PageDelay)
	}
}

func TestOffsetFetcher_FetchAll(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		pageSize   int
		wantPages  int
		wantPauses int
	}{
		{"empty total", 0, 10, 1, 0},
		{"single partial page", 7, 10, 1, 0},
		{"exact single page", 10, 10, 1, 0},
		{"exact multiple pages", 30, 10, 3, 2},
		{"partial last page", 31, 10, 4, 3},
		{"default page size", 55, 1000, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{total: tt.total}
			sleeper := &countingSleeper{}
			fetcher := NewOffsetFetcher[int](Config{PageSize: tt.pageSize, PageDelay: time.Second}, sleeper.sleep)

			items, err := fetcher.FetchAll(context.Background(), source)
			if err != nil {
				t.Fatalf("FetchAll() error = %v", err)
			}

			if len(items) != tt.total {
				t.Errorf("items = %d, want %d", len(items), tt.total)
			}
			for i, v := range items {
				if v != i {
					t.Fatalf("items[%d] = %d, want in-order accumulation", i, v)
				}
			}
			if len(source.calls) != tt.wantPages {
				t.Errorf("requests = %d (%v), want %d", len(source.calls), source.calls, tt.wantPages)
			}
			if sleeper.count != tt.wantPauses {
				t.Errorf("pauses = %d, want %d", sleeper.count, tt.wantPauses)
			}
			if sleeper.total != time.Duration(tt.wantPauses)*time.Second {
				t.Errorf("paused for %v", sleeper.total)
			}
		})
	}
}

func TestOffsetFetcher_Offsets(t *testing.T) {
	source := &fakeSource{total: 25}
	fetcher := NewOffsetFetcher[int](Config{PageSize: 10}, (&countingSleeper{}).sleep)

	if _, err := fetcher.FetchAll(context.Background(), source); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	want := []int{0, 10, 20}
	if len(source.calls) != len(want) {
		t.Fatalf("offsets = %v, want %v", source.calls, want)
	}
	for i := range want {
		if source.calls[i] != want[i] {
			t.Errorf("offsets = %v, want %v", source.calls, want)
		}
	}
}

func TestOffsetFetcher_NoEvent(t *testing.T) {
	source := &fakeSource{noEvent: true}
	sleeper := &countingSleeper{}
	fetcher := NewOffsetFetcher[int](DefaultConfig(), sleeper.sleep)

	items, err := fetcher.FetchAll(context.Background(), source)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", items)
	}
	if len(source.calls) != 1 {
		t.Errorf("requests = %d, want 1", len(source.calls))
	}
	if sleeper.count != 0 {
		t.Errorf("pauses = %d, want 0", sleeper.count)
	}
}

func TestOffsetFetcher_InconsistentTotal(t *testing.T) {
	// declared total larger than the data: stops on the first empty page
	source := &fakeSource{total: 15, misreport: 100}
	fetcher := NewOffsetFetcher[int](Config{PageSize: 10}, (&countingSleeper{}).sleep)

	items, err := fetcher.FetchAll(context.Background(), source)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 15 {
		t.Errorf("items = %d, want 15", len(items))
	}
	if len(source.calls) != 3 {
		t.Errorf("requests = %d, want 3 (third page empty)", len(source.calls))
	}
}

func TestOffsetFetcher_AbsentTotal(t *testing.T) {
	// total missing from the response: stop after the first page
	source := PageFetcherFunc[int](func(_ context.Context, limit, offset int) (Page[int], error) {
		return Page[int]{Items: []int{1, 2, 3}}, nil
	})
	fetcher := NewOffsetFetcher[int](Config{PageSize: 3}, (&countingSleeper{}).sleep)

	items, err := fetcher.FetchAll(context.Background(), source)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 3 {
		t.Errorf("items = %d, want 3", len(items))
	}
}

func TestOffsetFetcher_SourceError(t *testing.T) {
	sentinel := errors.New("could not fetch")
	source := &fakeSource{total: 30, failAt: 10, failErr: sentinel}
	fetcher := NewOffsetFetcher[int](Config{PageSize: 10}, (&countingSleeper{}).sleep)

	items, err := fetcher.FetchAll(context.Background(), source)
	if !errors.Is(err, sentinel) {
		t.Fatalf("FetchAll() error = %v, want wrapped source error", err)
	}
	if items != nil {
		t.Errorf("items = %v, want nil on error", items)
	}
}

func TestOffsetFetcher_CancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &fakeSource{total: 30}
	fetcher := NewOffsetFetcher[int](Config{PageSize: 10, PageDelay: time.Second}, func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	_, err := fetcher.FetchAll(ctx, source)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchAll() error = %v, want context.Canceled", err)
	}
	if len(source.calls) != 1 {
		t.Errorf("requests = %d, want 1", len(source.calls))
	}
}
