// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"context"
	"sync"
	"sync/atomic"
)

// WorkItem is the input to one cook operation: an item id (for
// readiness bookkeeping) and an opaque payload resolved by the
// WorkDispatcher (e.g. a material item's payload carries the bindless
// texture indices produced by its prerequisite texture items).
type WorkItem struct {
	ItemId  ItemId
	Payload any
}

// Result is a cook operation's outcome.
type Result struct {
	ItemId      ItemId
	Payload     any
	Diagnostics []Diagnostic
	Canceled    bool
	UsedFallback bool
	Err         error
}

// CookFunc performs one item's cook step. It must check ctx and return
// promptly, with Result.Canceled set, if ctx is done (spec.md §4.6
// "Workers: for each item, check stop_token").
type CookFunc func(ctx context.Context, item WorkItem) Result

// ThreadPool offloads CPU-heavy sub-steps (e.g. content hashing) off
// the worker goroutine, mirroring the external thread-pool handle
// spec.md §5 describes ("a separate thread pool executes CPU-heavy
// work ... via an explicit Run(fn, cancel_token) call").
type ThreadPool interface {
	Run(ctx context.Context, fn func() Result) Result
}

// inlinePool runs fn on the calling goroutine; the default when no
// ThreadPool is configured.
type inlinePool struct{}

func (inlinePool) Run(_ context.Context, fn func() Result) Result { return fn() }

// Counters reports a Pipeline's lifetime bookkeeping.
type Counters struct {
	Submitted int64
	InFlight  int64
	Completed int64
	Failed    int64
}

// Pipeline is the uniform per-kind pipeline contract (spec.md §4.6): a
// bounded channel of WorkItems, a pool of workers cooking them, and a
// channel of Results. Grounded on ariadne's engine/internal/pipeline
// worker-pool shape (bounded channel in, bounded channel out, a
// sync.WaitGroup closing the output once every worker exits).
type Pipeline struct {
	kind Kind
	cook CookFunc
	pool ThreadPool

	in  chan WorkItem
	out chan Result

	wg        sync.WaitGroup
	closeOnce sync.Once

	submitted, inFlight, completed, failed atomic.Int64
}

// NewPipeline starts a Pipeline of the given kind with workers
// goroutines reading from a channel of depth queueDepth. pool may be
// nil, in which case cooks run on the worker goroutine.
func NewPipeline(kind Kind, workers, queueDepth int, cook CookFunc, pool ThreadPool) *Pipeline {
	if pool == nil {
		pool = inlinePool{}
	}
	p := &Pipeline{
		kind: kind,
		cook: cook,
		pool: pool,
		in:   make(chan WorkItem, queueDepth),
		out:  make(chan Result, queueDepth),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.out)
	}()
	return p
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for item := range p.in {
		p.inFlight.Add(1)
		res := p.cookOne(item)
		p.inFlight.Add(-1)
		if res.Canceled || res.Err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
		p.out <- res
	}
}

func (p *Pipeline) cookOne(item WorkItem) Result {
	return p.pool.Run(context.Background(), func() Result { return p.cook(context.Background(), item) })
}

// Submit enqueues item, blocking until there is room or ctx is done.
func (p *Pipeline) Submit(ctx context.Context, item WorkItem) error {
	select {
	case p.in <- item:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues item without blocking, returning false if the
// queue is full or the pipeline is closed.
func (p *Pipeline) TrySubmit(item WorkItem) (ok bool) {
	defer func() {
		if r := recover(); r != nil { // send on closed channel
			ok = false
		}
	}()
	select {
	case p.in <- item:
		p.submitted.Add(1)
		return true
	default:
		return false
	}
}

// Collect dequeues one Result, blocking until one is available, the
// pipeline is closed and drained (ok=false), or ctx is done.
func (p *Pipeline) Collect(ctx context.Context) (Result, bool) {
	select {
	case res, ok := <-p.out:
		return res, ok
	case <-ctx.Done():
		return Result{}, false
	}
}

// TryCollect dequeues one Result without blocking.
func (p *Pipeline) TryCollect() (Result, bool) {
	select {
	case res, ok := <-p.out:
		return res, ok
	default:
		return Result{}, false
	}
}

// Pending reports whether a Collect on this pipeline would currently
// have a result ready without blocking.
func (p *Pipeline) Pending() bool {
	return len(p.out) > 0
}

// Close signals that no further Submit/TrySubmit calls will be made;
// in-flight work completes and workers then exit, closing Collect's
// channel.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() { close(p.in) })
}

// Counters returns a snapshot of this pipeline's lifetime counters.
func (p *Pipeline) Counters() Counters {
	return Counters{
		Submitted: p.submitted.Load(),
		InFlight:  p.inFlight.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Kind returns the asset kind this pipeline cooks.
func (p *Pipeline) Kind() Kind { return p.kind }
