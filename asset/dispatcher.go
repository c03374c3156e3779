// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"

	"oxygen/telemetry/log"
)

// ErrDeadlock is returned by WorkDispatcher.Run when an iteration of the
// dispatch loop neither submits a new item nor completes one (spec.md
// §4.6 step 2.f: "if nothing pending and nothing completed, report a
// deadlock diagnostic and fail").
var ErrDeadlock = errors.New("asset: import plan deadlocked")

// BindingResolver builds the WorkItem payload for a now-ready item,
// given the plan and the results already emitted for its prerequisites
// (e.g. a MaterialAsset item's payload carries the bindless texture
// indices its prerequisite TextureResource items produced).
type BindingResolver func(plan *Plan, item Item, results map[ItemId]Result) any

// Emitter is called once per completed item, in completion order, with
// its cooked Result. Implementations typically write the payload into a
// resource.Registry/resource.AnyCache or accumulate a cook report.
type Emitter func(item Item, res Result)

// Session is the set of per-kind Pipelines a WorkDispatcher drives. Every
// Kind an Item in the Plan uses must have an entry.
type Session struct {
	Pipelines map[Kind]*Pipeline
}

// NewSession constructs a Session from the given per-kind pipelines.
func NewSession(pipelines map[Kind]*Pipeline) *Session {
	return &Session{Pipelines: pipelines}
}

// Close closes every pipeline in the session so their worker goroutines
// terminate once in-flight work drains.
func (s *Session) Close() {
	for _, p := range s.Pipelines {
		p.Close()
	}
}

// WorkDispatcher drives a Plan to completion against a Session: it seeds
// a ready queue from items with no unsatisfied prerequisites, submits
// ready items to their per-kind pipeline, collects results, promotes
// newly-ready dependents, and repeats until the plan is complete or
// ctx is canceled (spec.md §4.6). Grounded on the engine/internal/
// pipeline fan-out shape, using golang.org/x/sync/errgroup for the
// nursery scope and context.Context as the stop_token.
type WorkDispatcher struct {
	plan    *Plan
	session *Session
	resolve BindingResolver
	emit    Emitter
	log     *log.Logger
}

// NewWorkDispatcher constructs a WorkDispatcher over plan and session.
// logger may be nil, in which case a no-op logger is used.
func NewWorkDispatcher(plan *Plan, session *Session, resolve BindingResolver, emit Emitter, logger *log.Logger) *WorkDispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &WorkDispatcher{plan: plan, session: session, resolve: resolve, emit: emit, log: logger}
}

// Run drives the plan to completion. It returns ctx.Err() on
// cancellation, ErrDeadlock if the loop stalls, or nil on success. On
// every return path every pipeline in the session is closed (spec.md
// §4.6 step 3: "on scope exit, all per-kind pipelines are closed so
// worker coroutines terminate").
func (d *WorkDispatcher) Run(ctx context.Context) error {
	defer d.session.Close()

	// g is the nursery scope for blocking submits pushed out of the main
	// loop below (step b's full-queue fallback): they run concurrently
	// with further collection instead of stalling the whole dispatcher,
	// and g.Wait() at the end folds their errors into Run's return. The
	// cancel ensures an early return (deadlock, missing pipeline) still
	// unblocks any submit left waiting in the nursery.
	scope, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(scope)

	results := make(map[ItemId]Result)
	ready := d.plan.Ready()
	inFlight := 0

	for d.plan.Incomplete() {
		select {
		case <-gctx.Done():
			return gctx.Err()
		default:
		}

		progressed := false
		var deferred []ItemId

		// Step a/b: submit every ready item; if a pipeline's queue is
		// full, first try to make room by collecting a pending result
		// from any pipeline before retrying the submit.
		for _, id := range ready {
			item, ok := d.plan.Item(id)
			if !ok {
				continue
			}
			pipe := d.session.Pipelines[item.Kind]
			if pipe == nil {
				return fmt.Errorf("asset: no pipeline registered for kind %s", item.Kind)
			}
			wi := WorkItem{ItemId: id, Payload: d.resolve(d.plan, item, results)}

			if pipe.TrySubmit(wi) {
				inFlight++
				progressed = true
				continue
			}
			if d.tryCollectAndComplete(results, &deferred, &inFlight) {
				progressed = true
			}
			if pipe.TrySubmit(wi) {
				inFlight++
				progressed = true
				continue
			}
			// Queue still full and nothing was collectable: hand the
			// blocking submit to the nursery so collection can proceed
			// concurrently rather than stall behind it.
			inFlight++
			g.Go(func() error { return pipe.Submit(gctx, wi) })
			progressed = true
		}

		// Step c/d: await one result, but only if something is actually
		// in flight — with nothing outstanding no channel will ever
		// yield, and blocking here would hide a genuine deadlock.
		if inFlight > 0 {
			if res, ok := d.awaitAny(gctx); ok {
				inFlight--
				d.complete(res, results, &deferred)
				progressed = true
			} else if gctx.Err() != nil {
				return gctx.Err()
			}
		}

		// Step e is folded into the gctx.Done() checks above and below.
		select {
		case <-gctx.Done():
			return gctx.Err()
		default:
		}

		// Step f: an iteration that submitted nothing and completed
		// nothing means the plan can never finish.
		if !progressed {
			d.log.Error("asset: import plan deadlocked",
				log.Int("remaining", d.remaining()))
			return ErrDeadlock
		}

		ready = deferred
	}
	return g.Wait()
}

// tryCollectAndComplete polls every pipeline once, non-blocking, for a
// pending result; if one is found it is completed and true is returned.
func (d *WorkDispatcher) tryCollectAndComplete(results map[ItemId]Result, newlyReady *[]ItemId, inFlight *int) bool {
	for _, pipe := range d.session.Pipelines {
		if res, ok := pipe.TryCollect(); ok {
			*inFlight--
			d.complete(res, results, newlyReady)
			return true
		}
	}
	return false
}

// awaitAny blocks until any pipeline in the session yields a Result or
// ctx is done. It uses reflect.Select since the set of output channels
// is built from a map at construction time.
func (d *WorkDispatcher) awaitAny(ctx context.Context) (Result, bool) {
	if len(d.session.Pipelines) == 0 {
		<-ctx.Done()
		return Result{}, false
	}
	cases := make([]reflect.SelectCase, 0, len(d.session.Pipelines)+1)
	for _, pipe := range d.session.Pipelines {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(pipe.out),
		})
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	chosen, recv, recvOK := reflect.Select(cases)
	if chosen == len(cases)-1 || !recvOK {
		return Result{}, false
	}
	return recv.Interface().(Result), true
}

// complete records res, emits it, marks its item done in the plan, and
// appends any dependents that became ready as a result.
func (d *WorkDispatcher) complete(res Result, results map[ItemId]Result, newlyReady *[]ItemId) {
	results[res.ItemId] = res
	if item, ok := d.plan.Item(res.ItemId); ok {
		d.emit(item, res)
	}
	*newlyReady = append(*newlyReady, d.plan.Complete(res.ItemId)...)
}

func (d *WorkDispatcher) remaining() int {
	n := 0
	for _, id := range d.plan.Ready() {
		if _, ok := d.plan.Item(id); ok {
			n++
		}
	}
	return n
}
