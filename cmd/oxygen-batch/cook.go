// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"context"
	"fmt"
	"hash/fnv"

	"golang.org/x/sync/semaphore"

	"oxygen/asset"
)

// semaphorePool bounds the number of cook steps running at once across
// every pipeline in a session, using a weighted semaphore as the
// structured-concurrency stand-in for a fixed-size thread pool (spec.md
// §5). Each Pipeline already bounds its own worker count, but a session
// with several kinds' pipelines running concurrently needs a shared cap
// to honor --max-in-flight as a whole-run budget rather than a
// per-kind one.
type semaphorePool struct {
	sem *semaphore.Weighted
}

func newSemaphorePool(maxInFlight int) *semaphorePool {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &semaphorePool{sem: semaphore.NewWeighted(int64(maxInFlight))}
}

func (p *semaphorePool) Run(ctx context.Context, fn func() asset.Result) asset.Result {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return asset.Result{Canceled: true, Err: err}
	}
	defer p.sem.Release(1)
	return fn()
}

// cookFunc performs the placeholder cook step for a batch run: no
// concrete graphics backend is involved (spec.md §1 excludes cooking to
// GPU-ready formats as a core concern), so the "cooked" payload is a
// content hash of the discovered payload's debug form, which is enough
// to exercise the full plan/pipeline/dispatcher machinery end to end.
func cookFunc(ctx context.Context, item asset.WorkItem) asset.Result {
	if err := ctx.Err(); err != nil {
		return asset.Result{ItemId: item.ItemId, Canceled: true}
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%v", item.Payload)
	return asset.Result{ItemId: item.ItemId, Payload: h.Sum64()}
}

// buildSession starts one Pipeline per Kind present in byId, each
// backed by the shared semaphorePool so --max-in-flight caps the whole
// run rather than each kind independently.
func buildSession(byId map[asset.ItemId]discovered, maxInFlight int) *asset.Session {
	kinds := make(map[asset.Kind]bool)
	for _, d := range byId {
		kinds[d.kind] = true
	}
	pool := newSemaphorePool(maxInFlight)
	pipelines := make(map[asset.Kind]*asset.Pipeline, len(kinds))
	for kind := range kinds {
		workers := maxInFlight
		if workers < 1 {
			workers = 1
		}
		pipelines[kind] = asset.NewPipeline(kind, workers, workers*2, cookFunc, pool)
	}
	return asset.NewSession(pipelines)
}

// resolvePayload hands each cook step its own discovered Emission
// payload; prerequisite results aren't folded in since the placeholder
// cookFunc has nothing concrete to bind them into.
func resolvePayload(byId map[asset.ItemId]discovered) asset.BindingResolver {
	return func(_ *asset.Plan, item asset.Item, _ map[asset.ItemId]asset.Result) any {
		return byId[item.Id].emission.Payload
	}
}
