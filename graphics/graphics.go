// Package graphics defines the GraphicsBackend capability the core
// consumes but never implements (spec.md §1, §6): concrete backend
// details (D3D12 object creation, shader compilation) are explicitly
// out of scope. Oxygen only sees the narrow Backend interface below,
// generalized from the teacher's driver.Driver/driver.GPU split
// (_examples/gviegas-neo3/driver/driver.go) so an application can link
// in exactly the backend it wants via blank import, the same way the
// teacher selects a GPU driver.
package graphics

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// SurfaceId identifies a presentation surface at the backend boundary.
// It is distinct from frame.SurfaceId so graphics never imports frame.
type SurfaceId uint32

// QueueRole names the kind of work a command queue accepts.
type QueueRole int

const (
	Graphics QueueRole = iota
	Compute
	Transfer
)

// BufferDesc and TextureDesc are the minimal resource-creation
// parameters the core needs to pass through to a backend; concrete
// formats/usages are backend-defined via the Extra field.
type BufferDesc struct {
	SizeBytes uint64
	Extra     any
}

type TextureDesc struct {
	Width, Height, Depth uint32
	MipLevels            uint32
	Extra                any
}

type SurfaceDesc struct {
	Width, Height uint32
	Extra         any
}

// Backend is the capability interface the Frame Coordinator drives
// across FrameStart (BeginFrame), FrameEnd (EndFrame), and Present
// (spec.md §6). Implementations live outside this module's core and
// register themselves via RegisterBackend.
type Backend interface {
	Name() string

	BeginFrame(ctx context.Context, seq uint64, slot int) error
	EndFrame(ctx context.Context, seq uint64, slot int) error
	PresentSurfaces(ctx context.Context, surfaces []SurfaceId) error
	// Flush blocks until all submitted work completes.
	Flush(ctx context.Context) error

	CreateBuffer(desc BufferDesc) (uint64, error)
	CreateTexture(desc TextureDesc) (uint64, error)
	CreateCommandQueue(key string, role QueueRole) (uint64, error)
	CreateSurface(desc SurfaceDesc) (SurfaceId, error)
}

var (
	mu       sync.Mutex
	backends = map[string]func() (Backend, error){}
)

// ErrUnknownBackend is returned by Open when no backend was registered
// under the requested name.
var ErrUnknownBackend = errors.New("graphics: unknown backend")

// RegisterBackend registers a backend constructor under name. Intended
// to be called from a backend package's init, so applications select a
// backend purely by blank-importing it (mirrors driver.Register in
// _examples/gviegas-neo3/driver/driver.go).
func RegisterBackend(name string, open func() (Backend, error)) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("graphics: backend %q registered twice", name))
	}
	backends[name] = open
}

// Backends returns the names of every registered backend.
func Backends() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	return names
}

// Open constructs the backend registered under name.
func Open(name string) (Backend, error) {
	mu.Lock()
	open, ok := backends[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return open()
}
