// Package linear implements the small vector-math vocabulary Oxygen's
// asset pipeline needs for geometry bounds: no matrices, no
// quaternions, no scene-graph transforms — those belong to a renderer,
// which is out of scope (spec.md §1). What's left is just enough to
// compute and merge axis-aligned bounding boxes during import.
package linear

import (
	"math"
)

// V3 is a 3-component vector of float32, used throughout the asset
// pipeline for bounding-box corners and centers (see
// asset/gltfadapter.Bounds).
type V3 [3]float32

// Add sets v to contain l + r.
func (v *V3) Add(l, r *V3) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *V3) Sub(l, r *V3) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s ⋅ w.
func (v *V3) Scale(s float32, w *V3) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Dot returns v ⋅ w.
func (v *V3) Dot(w *V3) (d float32) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *V3) Len() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

// Norm sets v to contain w normalized.
func (v *V3) Norm(w *V3) { v.Scale(1/w.Len(), w) }

// Cross sets v to contain l × r.
func (v *V3) Cross(l, r *V3) {
	v[0] = l[1]*r[2] - l[2]*r[1]
	v[1] = l[2]*r[0] - l[0]*r[2]
	v[2] = l[0]*r[1] - l[1]*r[0]
}

// Min sets v to the component-wise minimum of l and r, widening a
// bounding box to include both corners.
func (v *V3) Min(l, r *V3) {
	for i := range v {
		if l[i] < r[i] {
			v[i] = l[i]
		} else {
			v[i] = r[i]
		}
	}
}

// Max sets v to the component-wise maximum of l and r.
func (v *V3) Max(l, r *V3) {
	for i := range v {
		if l[i] > r[i] {
			v[i] = l[i]
		} else {
			v[i] = r[i]
		}
	}
}
