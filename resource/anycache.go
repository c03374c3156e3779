// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package resource implements the bindless resource registry: a
// bounded, type-erased, reference-counted Any-Cache (spec.md §4.5),
// generational resource handles, and the descriptor-view bookkeeping
// layered on top of it. Its LRU shape is grounded on
// 99souls-ariadne/engine/resources/manager.go's container/list cache;
// its index allocation is grounded on the teacher's internal/bitm
// growable bitmap, adapted as internal/indexpool.
package resource

import (
	"container/list"
	"sync"
)

// EvictionFunc is invoked when an entry leaves the cache, whether by
// budget pressure, Remove, or Clear. It never runs while AnyCache's
// internal lock is held.
type EvictionFunc func(key uint64, value any, typeId uint64, reason EvictionReason)

// EvictionReason names why an entry was evicted.
type EvictionReason int

const (
	EvictedByBudget EvictionReason = iota
	EvictedByRemove
	EvictedByClear
	EvictedByReplace
)

type cacheEntry struct {
	key      uint64
	value    any
	typeId   uint64
	refCount int
	cost     int
	elem     *list.Element
}

// AnyCache is a bounded, type-erased, reference-counted cache keyed by
// a 64-bit integer (spec.md §4.5). All public methods are safe for
// concurrent use; eviction callbacks run outside the internal lock so
// they can safely call back into the cache.
type AnyCache struct {
	mu       sync.Mutex
	budget   int
	consumed int
	lru      *list.List // front = most recently used
	entries  map[uint64]*cacheEntry

	subMu sync.Mutex
	subs  []EvictionFunc
}

// NewAnyCache constructs a cache with the given cost budget. A budget
// of 0 or less means unbounded: Store never evicts for space.
func NewAnyCache(budget int) *AnyCache {
	return &AnyCache{
		budget:  budget,
		lru:     list.New(),
		entries: make(map[uint64]*cacheEntry),
	}
}

// OnEviction subscribes cb to future evictions and returns an unsubscribe
// function, Oxygen's rendition of the "scope_guard" spec.md §4.5 names.
func (c *AnyCache) OnEviction(cb EvictionFunc) (unsubscribe func()) {
	c.subMu.Lock()
	c.subs = append(c.subs, cb)
	idx := len(c.subs) - 1
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if idx < len(c.subs) {
			c.subs[idx] = nil
		}
	}
}

func (c *AnyCache) notify(key uint64, value any, typeId uint64, reason EvictionReason) {
	c.subMu.Lock()
	subs := append([]EvictionFunc(nil), c.subs...)
	c.subMu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn(key, value, typeId, reason)
		}
	}
}

// Store inserts value under key with an initial reference count of 1,
// evicting least-recently-used zero-refcount entries as needed to stay
// within budget. It returns false, leaving the cache unchanged, if no
// combination of evictable entries would make room for cost.
func (c *AnyCache) Store(key uint64, value any, typeId uint64, cost int) bool {
	var toEvict []*cacheEntry
	ok := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()

		if old, exists := c.entries[key]; exists {
			c.consumed -= old.cost
			c.lru.Remove(old.elem)
			delete(c.entries, key)
			toEvict = append(toEvict, old)
		}

		if c.budget > 0 {
			freed := 0
			var candidates []*cacheEntry
			for e := c.lru.Back(); e != nil && c.consumed+cost-freed > c.budget; e = e.Prev() {
				ce := e.Value.(*cacheEntry)
				if ce.refCount == 0 {
					candidates = append(candidates, ce)
					freed += ce.cost
				}
			}
			if c.consumed+cost-freed > c.budget {
				// Not enough evictable space; restore anything we removed above and fail.
				for _, ce := range toEvict {
					c.insertLocked(ce.key, ce.value, ce.typeId, ce.cost, ce.refCount)
				}
				toEvict = nil
				return false
			}
			for _, ce := range candidates {
				c.lru.Remove(ce.elem)
				delete(c.entries, ce.key)
				c.consumed -= ce.cost
				toEvict = append(toEvict, ce)
			}
		}

		c.insertLocked(key, value, typeId, cost, 1)
		return true
	}()

	for _, ce := range toEvict {
		reason := EvictedByBudget
		if ce.key == key {
			reason = EvictedByReplace
		}
		c.notify(ce.key, ce.value, ce.typeId, reason)
	}
	return ok
}

// insertLocked must be called with mu held.
func (c *AnyCache) insertLocked(key uint64, value any, typeId uint64, cost, refCount int) {
	ce := &cacheEntry{key: key, value: value, typeId: typeId, cost: cost, refCount: refCount}
	ce.elem = c.lru.PushFront(ce)
	c.entries[key] = ce
	c.consumed += cost
}

// checkOut increments key's refcount and returns its value and type
// id if present.
func (c *AnyCache) checkOut(key uint64) (value any, typeId uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, exists := c.entries[key]
	if !exists {
		return nil, 0, false
	}
	ce.refCount++
	c.lru.MoveToFront(ce.elem)
	return ce.value, ce.typeId, true
}

// CheckOut[T] increments key's reference count and returns its value
// typed as T, if present and T matches the stored value's dynamic
// type. Go has no runtime type-id registry to compare against a
// caller-supplied expected id the way spec.md §4.5 describes, so the
// type assertion itself is the check.
func CheckOut[T any](c *AnyCache, key uint64) (T, bool) {
	v, _, ok := c.checkOut(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		c.CheckIn(key)
		var zero T
		return zero, false
	}
	return t, true
}

// CheckIn decrements key's reference count. At zero, the entry becomes
// evictable but is not evicted until space is needed.
func (c *AnyCache) CheckIn(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ce, ok := c.entries[key]; ok && ce.refCount > 0 {
		ce.refCount--
	}
}

// Touch increments key's reference count without producing a value,
// used to record a dependency edge on an entry the caller does not
// need to read right now.
func (c *AnyCache) Touch(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, ok := c.entries[key]
	if !ok {
		return false
	}
	ce.refCount++
	c.lru.MoveToFront(ce.elem)
	return true
}

// Replace atomically swaps key's value and type id, preserving its
// reference count and cost.
func (c *AnyCache) Replace(key uint64, newValue any, newTypeId uint64) bool {
	var old *cacheEntry
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		ce, ok := c.entries[key]
		if !ok {
			return
		}
		old = &cacheEntry{key: ce.key, value: ce.value, typeId: ce.typeId}
		ce.value = newValue
		ce.typeId = newTypeId
	}()
	if old == nil {
		return false
	}
	c.notify(old.key, old.value, old.typeId, EvictedByReplace)
	return true
}

// Remove forcibly evicts key regardless of its reference count.
func (c *AnyCache) Remove(key uint64) bool {
	var removed *cacheEntry
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		ce, ok := c.entries[key]
		if !ok {
			return
		}
		c.lru.Remove(ce.elem)
		delete(c.entries, key)
		c.consumed -= ce.cost
		removed = ce
	}()
	if removed == nil {
		return false
	}
	c.notify(removed.key, removed.value, removed.typeId, EvictedByRemove)
	return true
}

// Peek[T] returns key's value typed as T without affecting refcount
// or LRU order.
func Peek[T any](c *AnyCache, key uint64) (T, bool) {
	c.mu.Lock()
	ce, ok := c.entries[key]
	var value any
	if ok {
		value = ce.value
	}
	c.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := value.(T)
	if !ok {
		var zero T
		return zero, false
	}
	return t, true
}

// Contains reports whether key is currently cached.
func (c *AnyCache) Contains(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// GetTypeId returns the stored type id for key.
func (c *AnyCache) GetTypeId(key uint64) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return ce.typeId, true
}

// RefCount returns key's current reference count, for tests and
// diagnostics.
func (c *AnyCache) RefCount(key uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return ce.refCount, true
}

// Size returns the number of entries currently cached.
func (c *AnyCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Consumed returns the sum of costs of all currently cached entries.
func (c *AnyCache) Consumed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}

// Clear evicts every entry, notifying subscribers for each.
func (c *AnyCache) Clear() {
	var all []*cacheEntry
	c.mu.Lock()
	for _, ce := range c.entries {
		all = append(all, ce)
	}
	c.entries = make(map[uint64]*cacheEntry)
	c.lru = list.New()
	c.consumed = 0
	c.mu.Unlock()

	for _, ce := range all {
		c.notify(ce.key, ce.value, ce.typeId, EvictedByClear)
	}
}
