package frame

import "sync/atomic"

// Versioner hands out the strictly increasing snapshot_version values
// spec.md §8 requires across frames. The Coordinator owns exactly one
// Versioner for the lifetime of a Run and threads it into every
// FrameContext it constructs, since each frame gets a fresh
// FrameContext but the version sequence must survive across frames.
type Versioner struct {
	n atomic.Uint64
}

// Next returns the next snapshot version. The first call returns 1, so
// that 0 can unambiguously mean "never published".
func (v *Versioner) Next() uint64 { return v.n.Add(1) }
