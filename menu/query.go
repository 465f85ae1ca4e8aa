package menu

import (
	"context"
	"strconv"
	"sync"
	"time"

	"shrimpy/metrics"
	"shrimpy/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// State 查询状态
type State int

const (
	Loading State = iota
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "loading"
	}
}

// Fetcher 菜品数据源，按 created_at 升序返回全部菜品
type Fetcher interface {
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
}

// Result 某一时刻的查询结果
type Result struct {
	State     State
	Items     []models.MenuItem
	Err       error
	FetchedAt time.Time
}

// Query 菜单查询缓存
//
// 成功结果会被缓存直到 Invalidate；失败结果不缓存，下一次 Get 重新拉取。
// 并发的 Get 共享同一次数据源请求。Invalidate 之后发起的请求不会复用
// 失效前已在进行中的请求，保证写入确认之后的读取能看到新数据。
type Query struct {
	fetcher Fetcher
	group   singleflight.Group

	mu         sync.RWMutex
	result     Result
	stale      bool
	generation uint64
}

// NewQuery 创建查询，初始状态为 Loading
func NewQuery(fetcher Fetcher) *Query {
	return &Query{
		fetcher: fetcher,
		result:  Result{State: Loading},
		stale:   true,
	}
}

// Get 返回缓存的成功结果，否则拉取
func (q *Query) Get(ctx context.Context) Result {
	q.mu.RLock()
	if !q.stale && q.result.State == Success {
		r := q.result
		q.mu.RUnlock()
		return r
	}
	gen := q.generation
	q.mu.RUnlock()

	return q.fetch(ctx, gen)
}

// Invalidate 标记缓存失效并立即重新拉取，仅在写入被确认后调用
func (q *Query) Invalidate(ctx context.Context) Result {
	q.mu.Lock()
	q.stale = true
	q.generation++
	gen := q.generation
	q.mu.Unlock()

	return q.fetch(ctx, gen)
}

// Peek 返回当前状态，不触发拉取
func (q *Query) Peek() Result {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.result
}

// fetch 发起或加入同一代的共享拉取。共享拉取不随任一调用方取消，
// 调用方自身取消时单独返回失败，不影响缓存与其他调用方。
func (q *Query) fetch(ctx context.Context, gen uint64) Result {
	shared := context.WithoutCancel(ctx)
	ch := q.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		items, err := q.fetcher.ListMenuItems(shared)
		var r Result
		if err != nil {
			log.Error().Err(err).Msg("菜单查询失败")
			metrics.MenuFetches.WithLabelValues("failure").Inc()
			r = Result{State: Failure, Err: err, FetchedAt: time.Now()}
		} else {
			if items == nil {
				items = []models.MenuItem{}
			}
			metrics.MenuFetches.WithLabelValues("success").Inc()
			r = Result{State: Success, Items: items, FetchedAt: time.Now()}
		}

		q.mu.Lock()
		// 拉取期间发生了新的失效，结果只返回给本次调用方，不覆盖缓存
		if gen == q.generation {
			q.result = r
			q.stale = r.State != Success
		}
		q.mu.Unlock()
		return r, nil
	})

	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		return Result{State: Failure, Err: ctx.Err(), FetchedAt: time.Now()}
	}
}
