// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package asset

import "context"

// SourceAdapter is the narrow interface the import pipeline consumes
// for a concrete asset format (spec.md §6): given a source path, it
// emits the WorkItems the format decomposes into, with any diagnostics
// encountered while discovering them (a missing file, a malformed
// header). Concrete formats (glTF, image codecs) are out of scope
// (spec.md §1); Oxygen's core only depends on this interface.
type SourceAdapter interface {
	// Kind reports which asset Kind this adapter discovers items for.
	Kind() Kind
	// Discover reads path and returns one Emission per discovered work
	// item. It must not block on anything but I/O and must respect
	// ctx cancellation.
	Discover(ctx context.Context, path string) ([]Emission, error)
}

// Emission is one work item a SourceAdapter discovered, named by a
// debug-friendly path within the source (e.g. a mesh primitive's name
// inside a scene file) and optionally depending on other emissions
// from the same or other adapters, referenced by DebugName.
type Emission struct {
	DebugName   string
	Payload     any
	Prereqs     []string // DebugNames of emissions this one depends on
	Diagnostics []Diagnostic
}

// Registry maps a Kind to the SourceAdapter responsible for it.
type Registry struct {
	adapters map[Kind]SourceAdapter
}

// NewRegistry constructs an empty adapter Registry.
func NewRegistry() *Registry { return &Registry{adapters: make(map[Kind]SourceAdapter)} }

// Register associates adapter with its own Kind().
func (r *Registry) Register(adapter SourceAdapter) { r.adapters[adapter.Kind()] = adapter }

// Get returns the adapter registered for kind, if any.
func (r *Registry) Get(kind Kind) (SourceAdapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}
