package graphics

import (
	"context"
	"sync"
	"sync/atomic"
)

// Fake is a minimal, dependency-free Backend used by coordinator and
// engine tests, and as documentation of the Backend contract. It
// generalizes the wsi_dummy.go shape from the teacher
// (_examples/gviegas-neo3/wsi/wsi_dummy.go) to the graphics boundary.
type Fake struct {
	mu sync.Mutex

	BeginFrames int
	EndFrames   int
	Presented   [][]SurfaceId
	Flushes     int

	nextId atomic.Uint64
}

// NewFake constructs a Fake backend.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) Name() string { return "fake" }

func (f *Fake) BeginFrame(context.Context, uint64, int) error {
	f.mu.Lock()
	f.BeginFrames++
	f.mu.Unlock()
	return nil
}

func (f *Fake) EndFrame(context.Context, uint64, int) error {
	f.mu.Lock()
	f.EndFrames++
	f.mu.Unlock()
	return nil
}

func (f *Fake) PresentSurfaces(_ context.Context, surfaces []SurfaceId) error {
	f.mu.Lock()
	f.Presented = append(f.Presented, append([]SurfaceId(nil), surfaces...))
	f.mu.Unlock()
	return nil
}

func (f *Fake) Flush(context.Context) error {
	f.mu.Lock()
	f.Flushes++
	f.mu.Unlock()
	return nil
}

func (f *Fake) CreateBuffer(BufferDesc) (uint64, error)   { return f.nextId.Add(1), nil }
func (f *Fake) CreateTexture(TextureDesc) (uint64, error) { return f.nextId.Add(1), nil }

func (f *Fake) CreateCommandQueue(string, QueueRole) (uint64, error) {
	return f.nextId.Add(1), nil
}

func (f *Fake) CreateSurface(SurfaceDesc) (SurfaceId, error) {
	return SurfaceId(f.nextId.Add(1)), nil
}
