// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package gltfadapter is a trimmed example asset.SourceAdapter for
// scene files, adapted from the teacher's glTF decoder
// (_examples/gviegas-neo3/gltf/gltf.go). Concrete glTF parsing is out
// of scope for the core (spec.md §1: "concrete asset formats ... seen
// as SourceAdapter capabilities"), so this package keeps only the
// teacher's top-level document shape — named textures, materials,
// meshes, and a scene referencing them — and walks it into
// asset.Emissions instead of building renderer-ready buffers.
package gltfadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"oxygen/asset"
	"oxygen/linear"
)

// document is the trimmed subset of the teacher's GLTF root object
// (gltf.GLTF) this adapter needs: named textures/materials/meshes and
// a default scene listing which meshes and materials it uses.
type document struct {
	Textures  []namedRef `json:"textures"`
	Materials []namedRef `json:"materials"`
	Meshes    []meshRef  `json:"meshes"`
	Scene     struct {
		Name      string   `json:"name"`
		Meshes    []string `json:"meshes"`
		Materials []string `json:"materials"`
	} `json:"scene"`
}

type namedRef struct {
	Name string `json:"name"`
}

// meshRef carries a mesh's name plus the axis-aligned bounding box an
// importer would otherwise derive from its vertex positions. The
// trimmed schema stores the box directly rather than vertex data, since
// real vertex decoding is the concrete-format detail this adapter
// skips.
type meshRef struct {
	Name string     `json:"name"`
	Min  [3]float32 `json:"min"`
	Max  [3]float32 `json:"max"`
}

// Bounds is a geometry item's axis-aligned bounding box.
type Bounds struct {
	Min, Max, Center linear.V3
}

func boundsOf(m meshRef) Bounds {
	min, max := linear.V3(m.Min), linear.V3(m.Max)
	var sum, center linear.V3
	sum.Add(&min, &max)
	center.Scale(0.5, &sum)
	return Bounds{Min: min, Max: max, Center: center}
}

// TextureAdapter discovers TextureResource emissions from a document's
// textures list.
type TextureAdapter struct{}

func (TextureAdapter) Kind() asset.Kind { return asset.TextureResource }

func (TextureAdapter) Discover(ctx context.Context, path string) ([]asset.Emission, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	out := make([]asset.Emission, 0, len(doc.Textures))
	for _, t := range doc.Textures {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, asset.Emission{DebugName: "texture:" + t.Name, Payload: t.Name})
	}
	return out, nil
}

// MaterialAdapter discovers MaterialAsset emissions, each prerequisite
// on the textures the teacher's material object would reference. This
// trimmed form assumes a material depends on every texture in the
// document, since the schema fields that narrow that (pbrMetallicRoughness,
// etc.) are exactly the concrete-format detail spec.md §1 excludes.
type MaterialAdapter struct{}

func (MaterialAdapter) Kind() asset.Kind { return asset.MaterialAsset }

func (MaterialAdapter) Discover(ctx context.Context, path string) ([]asset.Emission, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	var texturePrereqs []string
	for _, t := range doc.Textures {
		texturePrereqs = append(texturePrereqs, "texture:"+t.Name)
	}
	out := make([]asset.Emission, 0, len(doc.Materials))
	for _, m := range doc.Materials {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, asset.Emission{
			DebugName: "material:" + m.Name,
			Payload:   m.Name,
			Prereqs:   texturePrereqs,
		})
	}
	return out, nil
}

// GeometryPayload is a GeometryAsset emission's payload: the mesh name
// plus its bounding box.
type GeometryPayload struct {
	Name   string
	Bounds Bounds
}

// GeometryAdapter discovers GeometryAsset emissions from a document's
// meshes list, computing each mesh's bounding box via linear.V3 rather
// than carrying the min/max fields through verbatim.
type GeometryAdapter struct{}

func (GeometryAdapter) Kind() asset.Kind { return asset.GeometryAsset }

func (GeometryAdapter) Discover(ctx context.Context, path string) ([]asset.Emission, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	out := make([]asset.Emission, 0, len(doc.Meshes))
	for _, m := range doc.Meshes {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, asset.Emission{
			DebugName: "geometry:" + m.Name,
			Payload:   GeometryPayload{Name: m.Name, Bounds: boundsOf(m)},
		})
	}
	return out, nil
}

// SceneAdapter discovers one SceneAsset emission per document,
// prerequisite on every mesh and material the scene references.
type SceneAdapter struct{}

func (SceneAdapter) Kind() asset.Kind { return asset.SceneAsset }

func (SceneAdapter) Discover(ctx context.Context, path string) ([]asset.Emission, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	var prereqs []string
	for _, m := range doc.Scene.Meshes {
		prereqs = append(prereqs, "geometry:"+m)
	}
	for _, m := range doc.Scene.Materials {
		prereqs = append(prereqs, "material:"+m)
	}
	name := doc.Scene.Name
	if name == "" {
		name = path
	}
	return []asset.Emission{{DebugName: "scene:" + name, Payload: name, Prereqs: prereqs}}, nil
}

func loadDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gltfadapter: read %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("gltfadapter: parse %s: %w", path, err)
	}
	return &doc, nil
}
