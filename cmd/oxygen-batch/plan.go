// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"context"
	"fmt"

	"oxygen/asset"
	"oxygen/asset/gltfadapter"
)

// adapters returns the fixed set of SourceAdapters a batch run discovers
// emissions with. Concrete formats beyond the trimmed glTF-shaped
// adapters are out of scope (spec.md §1); a real deployment would
// register more kinds here.
func adapters() *asset.Registry {
	reg := asset.NewRegistry()
	reg.Register(gltfadapter.TextureAdapter{})
	reg.Register(gltfadapter.MaterialAdapter{})
	reg.Register(gltfadapter.GeometryAdapter{})
	reg.Register(gltfadapter.SceneAdapter{})
	return reg
}

// discovered is one SourceAdapter's Emission, resolved to a source path
// and carrying the Kind it was discovered under.
type discovered struct {
	kind       asset.Kind
	sourcePath string
	emission   asset.Emission
}

// discoverAll runs every registered adapter's Discover over every
// manifest source, collecting all emissions. An adapter reporting an
// error for one source aborts the whole run: manifests are meant to
// name well-formed sources, and a read/parse failure for any of them is
// a configuration problem, not a per-item cook failure.
func discoverAll(ctx context.Context, reg *asset.Registry, sources []SourceEntry) ([]discovered, error) {
	var out []discovered
	kinds := []asset.Kind{asset.TextureResource, asset.MaterialAsset, asset.GeometryAsset, asset.SceneAsset}
	for _, src := range sources {
		for _, kind := range kinds {
			adapter, ok := reg.Get(kind)
			if !ok {
				continue
			}
			emissions, err := adapter.Discover(ctx, src.Path)
			if err != nil {
				return nil, fmt.Errorf("oxygen-batch: discover %s (%s): %w", src.Path, kind, err)
			}
			for _, e := range emissions {
				out = append(out, discovered{kind: kind, sourcePath: src.Path, emission: e})
			}
		}
	}
	return out, nil
}

// buildPlan lays discovered emissions out as an asset.Plan, resolving
// each Emission's Prereqs (named by DebugName) into plan edges. A
// prerequisite naming an emission no source produced is dropped with a
// warning rather than failing the run, since a dangling reference in
// one source file shouldn't block cooking everything else.
func buildPlan(items []discovered) (*asset.Plan, map[asset.ItemId]discovered, []string) {
	plan := asset.NewPlan()
	byName := make(map[string]asset.ItemId, len(items))
	byId := make(map[asset.ItemId]discovered, len(items))
	var warnings []string

	for i, d := range items {
		id := plan.AddItem(d.kind, i, d.emission.DebugName)
		byName[d.emission.DebugName] = id
		byId[id] = d
	}
	for _, d := range items {
		to := byName[d.emission.DebugName]
		for _, prereqName := range d.emission.Prereqs {
			from, ok := byName[prereqName]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("dangling prerequisite %q of %q", prereqName, d.emission.DebugName))
				continue
			}
			if !plan.AddEdge(from, to) {
				warnings = append(warnings, fmt.Sprintf("cyclic or invalid edge %q -> %q", prereqName, d.emission.DebugName))
			}
		}
	}
	return plan, byId, warnings
}
