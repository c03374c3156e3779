// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package asset implements the async import pipeline: a cancelable DAG
// of work items cooked by per-kind worker pools while respecting
// inter-asset dependencies (spec.md §4.6). Its worker-pool/bounded-
// channel shape is grounded on 99souls-ariadne's engine/internal/
// pipeline/pipeline.go multi-stage pipeline; its structured-concurrency
// dispatch loop uses golang.org/x/sync/errgroup as the Go idiom for a
// "nursery" scope, and context.Context as the idiomatic stand-in for a
// stop_token.
package asset

import (
	"fmt"
	"sync"
)

// Kind names the cookable asset categories (spec.md §3 Import plan).
type Kind int

const (
	TextureResource Kind = iota
	BufferResource
	MaterialAsset
	GeometryAsset
	SceneAsset
	AudioResource

	kindCount
)

func (k Kind) String() string {
	switch k {
	case TextureResource:
		return "TextureResource"
	case BufferResource:
		return "BufferResource"
	case MaterialAsset:
		return "MaterialAsset"
	case GeometryAsset:
		return "GeometryAsset"
	case SceneAsset:
		return "SceneAsset"
	case AudioResource:
		return "AudioResource"
	default:
		return "Kind(invalid)"
	}
}

// ItemId identifies one PlanItem within a Plan.
type ItemId int

// Item is one node of the import DAG: a unit of cook work with a kind,
// a handle into per-kind payload storage, and a list of prerequisite
// items that must complete before it becomes ready.
type Item struct {
	Id           ItemId
	Kind         Kind
	WorkHandle   int
	Prereqs      []ItemId
	DebugName    string
	remaining    int // unsatisfied prerequisite count
	dependents   []ItemId
	done         bool
}

// Plan is a DAG of Items. The zero value is not usable; construct with
// NewPlan. Every method takes Plan's internal lock. A Plan is built
// up-front, then handed to a WorkDispatcher which owns readiness
// tracking during execution.
type Plan struct {
	mu    sync.Mutex
	items map[ItemId]*Item
	next  ItemId
}

// NewPlan constructs an empty Plan.
func NewPlan() *Plan {
	return &Plan{items: make(map[ItemId]*Item)}
}

// AddItem creates a new Item of the given kind and work handle, with
// no prerequisites yet, and returns its id.
func (p *Plan) AddItem(kind Kind, workHandle int, debugName string) ItemId {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.items[id] = &Item{Id: id, Kind: kind, WorkHandle: workHandle, DebugName: debugName}
	return id
}

// AddEdge records that to depends on from (from must complete before
// to becomes ready). It refuses the edge, returning false, if adding
// it would close a cycle (spec.md §4.6 "cycle guard": DFS from the
// would-be dependency to see whether the dependent is reachable).
func (p *Plan) AddEdge(from, to ItemId) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if from == to {
		return false
	}
	if _, ok := p.items[from]; !ok {
		return false
	}
	target, ok := p.items[to]
	if !ok {
		return false
	}
	if p.reachableLocked(from, to) {
		return false
	}
	target.Prereqs = append(target.Prereqs, from)
	target.remaining++
	p.items[from].dependents = append(p.items[from].dependents, to)
	return true
}

// reachableLocked reports whether to is reachable from start by
// following dependent edges (i.e. whether adding start -> to would
// close a cycle through an existing to -> ... -> start path).
func (p *Plan) reachableLocked(start, to ItemId) bool {
	visited := make(map[ItemId]bool)
	var dfs func(ItemId) bool
	dfs = func(id ItemId) bool {
		if id == start {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		item := p.items[id]
		if item == nil {
			return false
		}
		for _, dep := range item.dependents {
			if dfs(dep) {
				return true
			}
		}
		return false
	}
	return dfs(to)
}

// Ready returns the ids of every item with zero unsatisfied
// prerequisites and not yet complete.
func (p *Plan) Ready() []ItemId {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ItemId
	for id, item := range p.items {
		if !item.done && item.remaining == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Complete marks id done and returns the ids of dependents that became
// ready as a result (their prerequisite counters reached zero).
func (p *Plan) Complete(id ItemId) []ItemId {
	p.mu.Lock()
	defer p.mu.Unlock()
	item := p.items[id]
	if item == nil || item.done {
		return nil
	}
	item.done = true
	var newlyReady []ItemId
	for _, dep := range item.dependents {
		d := p.items[dep]
		if d == nil {
			continue
		}
		d.remaining--
		if d.remaining == 0 {
			newlyReady = append(newlyReady, dep)
		}
	}
	return newlyReady
}

// Item returns a copy of the item's static fields (Prereqs aliases the
// stored slice and must not be mutated by the caller).
func (p *Plan) Item(id ItemId) (Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Len returns the total number of items in the plan.
func (p *Plan) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Incomplete reports whether any item has not yet been marked Complete.
func (p *Plan) Incomplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.items {
		if !item.done {
			return true
		}
	}
	return false
}

func (k Kind) validate() error {
	if k < 0 || k >= kindCount {
		return fmt.Errorf("asset: invalid kind %d", int(k))
	}
	return nil
}
