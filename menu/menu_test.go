package menu

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shrimpy/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name, category string) models.MenuItem {
	return models.MenuItem{ID: name, Name: name, Category: category, Price: decimal.NewFromInt(10)}
}

func names(items []models.MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestDeriveCategories(t *testing.T) {
	tests := []struct {
		name  string
		items []models.MenuItem
		want  []string
	}{
		{"empty", nil, []string{}},
		{"first occurrence order", []models.MenuItem{item("a", "Shrimp"), item("b", "Soups"), item("c", "Shrimp")}, []string{"Shrimp", "Soups"}},
		{"case sensitive", []models.MenuItem{item("a", "shrimp"), item("b", "Shrimp")}, []string{"shrimp", "Shrimp"}},
		{"no trimming", []models.MenuItem{item("a", "Shrimp"), item("b", "Shrimp ")}, []string{"Shrimp", "Shrimp "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveCategories(tt.items)
			assert.Equal(t, tt.want, got)
			assert.NotNil(t, got)
		})
	}
}

func TestFilter(t *testing.T) {
	items := []models.MenuItem{item("a", "X"), item("b", "Y"), item("c", "X")}

	assert.Equal(t, []string{"a", "c"}, names(Filter(items, Category("X"))))
	assert.Equal(t, []string{"a", "b", "c"}, names(Filter(items, All)))
	assert.Empty(t, Filter(items, Category("Z")))
	assert.Empty(t, Filter(nil, Category("X")))

	// 入参不被修改
	assert.Equal(t, []string{"a", "b", "c"}, names(items))
}

func TestFilter_SubsetOfDerivedCategory(t *testing.T) {
	items := []models.MenuItem{item("a", "Grilled Fish"), item("b", "Shrimp"), item("c", "Grilled Fish")}
	for _, c := range DeriveCategories(items) {
		for _, it := range Filter(items, Category(c)) {
			assert.Equal(t, c, it.Category)
		}
	}
}

func TestParseSelection(t *testing.T) {
	assert.True(t, ParseSelection("").IsAll())

	sel := ParseSelection("Shrimp")
	assert.False(t, sel.IsAll())
	assert.Equal(t, "Shrimp", sel.Name())
	assert.True(t, sel.Matches("Shrimp"))
	assert.False(t, sel.Matches("shrimp"))
	assert.False(t, All.Matches(""))
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int32
	items []models.MenuItem
	err   error
	gate  chan struct{}
}

func (f *fakeFetcher) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

func (f *fakeFetcher) set(items []models.MenuItem, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items, f.err = items, err
}

func TestQuery_InitialLoading(t *testing.T) {
	q := NewQuery(&fakeFetcher{})
	assert.Equal(t, Loading, q.Peek().State)
	assert.Equal(t, "loading", q.Peek().State.String())
}

func TestQuery_CachesSuccess(t *testing.T) {
	f := &fakeFetcher{items: []models.MenuItem{item("a", "X")}}
	q := NewQuery(f)

	r := q.Get(context.Background())
	require.Equal(t, Success, r.State)
	assert.Equal(t, []string{"a"}, names(r.Items))

	q.Get(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestQuery_EmptyStoreIsSuccess(t *testing.T) {
	q := NewQuery(&fakeFetcher{})
	r := q.Get(context.Background())
	assert.Equal(t, Success, r.State)
	assert.NotNil(t, r.Items)
	assert.Empty(t, DeriveCategories(r.Items))
}

func TestQuery_FailureSurfacedAndRetried(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	q := NewQuery(f)

	r := q.Get(context.Background())
	assert.Equal(t, Failure, r.State)
	assert.EqualError(t, r.Err, "connection refused")
	assert.Equal(t, Failure, q.Peek().State)

	f.set([]models.MenuItem{item("a", "X")}, nil)
	r = q.Get(context.Background())
	assert.Equal(t, Success, r.State)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
}

func TestQuery_InvalidateRefetches(t *testing.T) {
	f := &fakeFetcher{items: []models.MenuItem{item("a", "X")}}
	q := NewQuery(f)
	q.Get(context.Background())

	f.set([]models.MenuItem{item("a", "X"), item("b", "Y")}, nil)
	r := q.Invalidate(context.Background())
	assert.Equal(t, []string{"a", "b"}, names(r.Items))
	assert.Equal(t, []string{"a", "b"}, names(q.Get(context.Background()).Items))
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
}

func TestQuery_ConcurrentGetSharesFetch(t *testing.T) {
	f := &fakeFetcher{items: []models.MenuItem{item("a", "X")}, gate: make(chan struct{})}
	q := NewQuery(f)

	var wg sync.WaitGroup
	results := make([]Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = q.Get(context.Background())
		}(i)
	}
	// 等待首个请求进入数据源
	require.Eventually(t, func() bool { return atomic.LoadInt32(&f.calls) >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, Success, r.State)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
	assert.Equal(t, Success, q.Peek().State)
}

func TestQuery_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := &fakeFetcher{items: []models.MenuItem{item("a", "X")}, gate: make(chan struct{})}
	q := NewQuery(f)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan Result)
	go func() { first <- q.Get(ctx) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&f.calls) == 1 }, time.Second, time.Millisecond)

	second := make(chan Result)
	go func() { second <- q.Get(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	// 首个调用方断开，共享拉取继续进行
	cancel()
	r := <-first
	assert.Equal(t, Failure, r.State)
	assert.ErrorIs(t, r.Err, context.Canceled)
	assert.Equal(t, Loading, q.Peek().State)

	close(f.gate)
	r = <-second
	require.Equal(t, Success, r.State)
	assert.Equal(t, []string{"a"}, names(r.Items))
	assert.Equal(t, Success, q.Peek().State)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestQuery_InvalidateDoesNotJoinEarlierFetch(t *testing.T) {
	f := &fakeFetcher{items: []models.MenuItem{item("old", "X")}, gate: make(chan struct{})}
	q := NewQuery(f)

	done := make(chan Result)
	go func() { done <- q.Get(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&f.calls) == 1 }, time.Second, time.Millisecond)

	// 写入确认后失效，新请求必须独立发起
	f.set([]models.MenuItem{item("old", "X"), item("new", "X")}, nil)
	inv := make(chan Result)
	go func() { inv <- q.Invalidate(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&f.calls) == 2 }, time.Second, time.Millisecond)

	close(f.gate)
	<-done
	r := <-inv
	assert.Equal(t, []string{"old", "new"}, names(r.Items))
	assert.Equal(t, []string{"old", "new"}, names(q.Peek().Items))
}
