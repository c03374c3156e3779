// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package resource

import (
	"errors"
	"sync"

	"oxygen/internal/indexpool"
)

var (
	// ErrResourceNotRegistered is returned when a view operation names a
	// resource key the cache has no entry for.
	ErrResourceNotRegistered = errors.New("resource: resource not registered")
	// ErrViewConstructionFailed is returned when a ViewFactory fails to
	// produce a native view.
	ErrViewConstructionFailed = errors.New("resource: view construction failed")
)

// NativeView is the opaque handle a ViewFactory produces for a
// resource + view description pair (e.g. a descriptor-heap slot
// wrapping a GPU image view). The registry never inspects it.
type NativeView any

// ViewFactory constructs the native view for a resource given a view
// description. Supplied externally (spec.md §1: "concrete graphics
// backend details ... out of scope").
type ViewFactory interface {
	GetNativeView(resource any, desc any) (NativeView, error)
}

// ViewUpdater computes the replacement view description for a
// transferred view, or reports that the view should not be
// transferred (spec.md §4.5 Replace).
type ViewUpdater func(oldDesc any) (newDesc any, transfer bool)

type viewRecord struct {
	resourceKey uint64
	desc        any
	native      NativeView
	descIndex   uint32
}

// Registry is the Any-Cache plus a secondary index mapping bindless
// descriptor indices to view descriptors, plus a per-resource set of
// registered views (spec.md §4.5). Descriptor index allocation uses
// an indexpool.Pool growable bitmap, which recycles released slots.
type Registry struct {
	Cache *AnyCache

	mu         sync.Mutex
	alloc      indexpool.Pool[uint32]
	byIndex    map[uint32]*viewRecord
	byResource map[uint64][]uint32
}

// NewRegistry constructs a Registry backed by cache.
func NewRegistry(cache *AnyCache) *Registry {
	return &Registry{
		Cache:      cache,
		byIndex:    make(map[uint32]*viewRecord),
		byResource: make(map[uint64][]uint32),
	}
}

// Register stores resource under key in the backing cache.
func (r *Registry) Register(key uint64, resourceValue any, typeId uint64, cost int) bool {
	return r.Cache.Store(key, resourceValue, typeId, cost)
}

// RegisterView allocates a descriptor index from the pool, builds the
// native view via factory, and records
// (resourceKey, desc) -> (native view, descriptor index). It fails if
// resourceKey is not registered in the backing cache.
func (r *Registry) RegisterView(resourceKey uint64, resourceValue any, desc any, factory ViewFactory) (NativeView, uint32, error) {
	if !r.Cache.Contains(resourceKey) {
		return nil, 0, ErrResourceNotRegistered
	}
	native, err := factory.GetNativeView(resourceValue, desc)
	if err != nil || native == nil {
		return nil, 0, ErrViewConstructionFailed
	}

	r.mu.Lock()
	idx := r.allocIndexLocked()
	rec := &viewRecord{resourceKey: resourceKey, desc: desc, native: native, descIndex: idx}
	r.byIndex[idx] = rec
	r.byResource[resourceKey] = append(r.byResource[resourceKey], idx)
	r.mu.Unlock()

	return native, idx, nil
}

// allocIndexLocked must be called with mu held.
func (r *Registry) allocIndexLocked() uint32 {
	idx, ok := r.alloc.FindFree()
	if !ok {
		idx = r.alloc.Grow(1)
	}
	r.alloc.Take(idx)
	return uint32(idx)
}

// UpdateView reports true, and records desc, iff descriptorIndex is
// currently owned by resourceKey.
func (r *Registry) UpdateView(resourceKey uint64, descriptorIndex uint32, desc any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byIndex[descriptorIndex]
	if !ok || rec.resourceKey != resourceKey {
		return false
	}
	rec.desc = desc
	return true
}

// releaseDescriptorLocked frees descriptorIndex back to the allocator
// and removes its bookkeeping, without reassigning ownership.
func (r *Registry) releaseDescriptorLocked(descriptorIndex uint32, ownerKey uint64) {
	delete(r.byIndex, descriptorIndex)
	r.alloc.Release(int(descriptorIndex))
	owned := r.byResource[ownerKey]
	for i, idx := range owned {
		if idx == descriptorIndex {
			r.byResource[ownerKey] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
}

// Replace transfers oldKey's views to newKey per updater, then
// unregisters oldKey and registers newKey (spec.md §4.5 Replace).
// Replace on an unregistered resource fails. A resource with no
// registered views is replaced as a plain unregister + register.
func (r *Registry) Replace(oldKey, newKey uint64, newResourceValue any, newTypeId uint64, newCost int, factory ViewFactory, updater ViewUpdater) bool {
	if !r.Cache.Contains(oldKey) {
		return false
	}

	r.mu.Lock()
	indices := append([]uint32(nil), r.byResource[oldKey]...)
	r.mu.Unlock()

	for _, idx := range indices {
		r.mu.Lock()
		rec, ok := r.byIndex[idx]
		r.mu.Unlock()
		if !ok {
			continue
		}

		newDesc, transfer := updater(rec.desc)
		if !transfer {
			r.mu.Lock()
			r.releaseDescriptorLocked(idx, oldKey)
			r.mu.Unlock()
			continue
		}

		native, err := factory.GetNativeView(newResourceValue, newDesc)
		if err != nil || native == nil {
			r.mu.Lock()
			r.releaseDescriptorLocked(idx, oldKey)
			r.mu.Unlock()
			continue
		}

		r.mu.Lock()
		rec.desc = newDesc
		rec.native = native
		rec.resourceKey = newKey
		owned := r.byResource[oldKey]
		for i, v := range owned {
			if v == idx {
				r.byResource[oldKey] = append(owned[:i], owned[i+1:]...)
				break
			}
		}
		r.byResource[newKey] = append(r.byResource[newKey], idx)
		r.mu.Unlock()
	}

	r.Cache.Remove(oldKey)
	r.Cache.Store(newKey, newResourceValue, newTypeId, newCost)
	return true
}

// ViewsOf returns the descriptor indices currently owned by key.
func (r *Registry) ViewsOf(key uint64) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.byResource[key]...)
}

// ViewAt returns the native view and owning resource key for
// descriptorIndex, if allocated.
func (r *Registry) ViewAt(descriptorIndex uint32) (native NativeView, resourceKey uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, exists := r.byIndex[descriptorIndex]
	if !exists {
		return nil, 0, false
	}
	return rec.native, rec.resourceKey, true
}

// RemainingDescriptors returns the number of unallocated descriptor
// index slots, for allocator-invariant tests.
func (r *Registry) RemainingDescriptors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alloc.Free()
}
