package frame

import (
	"fmt"
	"sync"
	"time"

	"oxygen/phase"
)

// Context is the per-frame hub modules read and mutate under
// registry-enforced permissions (spec.md §4.4). A capability-token
// pattern gates mutation: mutating methods take an EngineTag,
// constructible only by the coordinator. Read methods are
// unrestricted and safe for concurrent use alongside mutation of
// unrelated fields.
type Context struct {
	mu sync.RWMutex

	currentPhase     phase.Id
	allowedMutations phase.AllowMutation

	sequence   uint64
	slot       int
	frameStart time.Time

	timing ModuleTiming
	input  InputSnapshot
	views  []View

	surfaces []Surface

	errors []ErrorReport

	versioner *Versioner
	published *UnifiedSnapshot
}

// New constructs the FrameContext for one frame. tag must come from
// the coordinator driving this frame; v is the coordinator's single
// Versioner, shared across every frame of a Run.
func New(tag EngineTag, v *Versioner, sequence uint64, slot int, frameStart time.Time) *Context {
	if !tag.Valid() {
		panic("frame: New called without a valid EngineTag")
	}
	return &Context{
		currentPhase: phase.FrameStart,
		sequence:     sequence,
		slot:         slot,
		frameStart:   frameStart,
		versioner:    v,
	}
}

// assertMutable panics with an InvariantViolation-shaped message if
// the current phase does not permit mutating layer l. Per spec.md §7,
// this is fatal in debug builds; Oxygen has no release/debug split at
// the type-system level, so it always panics — callers that want the
// spec's "logged + degraded in release" behavior should run modules
// through module.Manager, which recovers module-handler panics into
// ErrorReports before they ever reach here as an uncaught crash of the
// whole process caused by a well-behaved module.
func (c *Context) assertMutable(l phase.AllowMutation, who string) {
	if !c.allowedMutations.Has(l) {
		panic(fmt.Sprintf("frame: %s not permitted to mutate state during phase %v", who, c.currentPhase))
	}
}

// SetPhase transitions the context to phase p. Only the coordinator,
// holding the EngineTag it minted for this frame, may call this.
func (c *Context) SetPhase(tag EngineTag, p phase.Id) {
	if !tag.Valid() {
		panic("frame: SetPhase called without a valid EngineTag")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentPhase = p
	c.allowedMutations = phase.DescOf(p).AllowedMutations
}

// Phase returns the phase currently executing.
func (c *Context) Phase() phase.Id {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentPhase
}

// Sequence, Slot, and FrameStartTime report this frame's identity.
func (c *Context) Sequence() uint64        { return c.sequence }
func (c *Context) Slot() int               { return c.slot }
func (c *Context) FrameStartTime() time.Time { return c.frameStart }

// Timing returns the current module timing.
func (c *Context) Timing() ModuleTiming {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timing
}

// SetTiming publishes the frame's initial timing at FrameStart.
func (c *Context) SetTiming(tag EngineTag, t ModuleTiming) {
	if !tag.Valid() {
		panic("frame: SetTiming called without a valid EngineTag")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timing = t
}

// SetFixedStepTiming updates the substep count and interpolation alpha
// after the FixedSimulation accumulator loop runs. Only valid while
// the current phase is FixedSimulation.
func (c *Context) SetFixedStepTiming(tag EngineTag, substepCount int, alpha float64) {
	if !tag.Valid() {
		panic("frame: SetFixedStepTiming called without a valid EngineTag")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentPhase != phase.FixedSimulation {
		panic("frame: SetFixedStepTiming called outside FixedSimulation")
	}
	c.timing.SubstepCount = substepCount
	c.timing.Alpha = alpha
}

// InputSnapshot returns the snapshot published at the Input phase.
func (c *Context) InputSnapshot() InputSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.input
}

// SetInputSnapshot publishes the frame's input snapshot. Valid only
// during the Input phase (spec.md §4.2 "Input phase contract").
func (c *Context) SetInputSnapshot(tag EngineTag, in InputSnapshot) {
	if !tag.Valid() {
		panic("frame: SetInputSnapshot called without a valid EngineTag")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentPhase != phase.Input {
		panic("frame: SetInputSnapshot called outside the Input phase")
	}
	c.input = in
}

// ClearViews resets the per-frame view list. Called by the coordinator
// at FrameStart.
func (c *Context) ClearViews(tag EngineTag) {
	if !tag.Valid() {
		panic("frame: ClearViews called without a valid EngineTag")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views = c.views[:0]
}

// AddView appends a view contributed by a PreRender module. Modules
// call this without an EngineTag: the permission check is on the
// mutation layer (FrameState), which PreRender grants to modules, not
// on coordinator-only identity.
func (c *Context) AddView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assertMutable(phase.FrameState, "AddView")
	c.views = append(c.views, v)
}

// Views returns a copy of the current view list.
func (c *Context) Views() []View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]View, len(c.views))
	copy(out, c.views)
	return out
}

// SetSurfaces resets the per-frame surface list. Called by the
// coordinator at FrameStart.
func (c *Context) SetSurfaces(tag EngineTag, surfaces []Surface) {
	if !tag.Valid() {
		panic("frame: SetSurfaces called without a valid EngineTag")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaces = append([]Surface(nil), surfaces...)
}

// MarkPresentable flags a surface as ready for Present. Called by
// render modules during a FrameState-mutable phase.
func (c *Context) MarkPresentable(id SurfaceId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assertMutable(phase.FrameState, "MarkPresentable")
	for i := range c.surfaces {
		if c.surfaces[i].Id == id {
			c.surfaces[i].Presentable = true
			return
		}
	}
}

// Surfaces returns a copy of the current surface list.
func (c *Context) Surfaces() []Surface {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Surface, len(c.surfaces))
	copy(out, c.surfaces)
	return out
}

// PresentableSurfaces returns the ids of surfaces currently marked
// presentable, in the order they appear in Surfaces.
func (c *Context) PresentableSurfaces() []SurfaceId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []SurfaceId
	for _, s := range c.surfaces {
		if s.Presentable {
			out = append(out, s.Id)
		}
	}
	return out
}

// ReportError appends an error. Safe to call concurrently from
// multiple modules within a barriered phase.
func (c *Context) ReportError(e ErrorReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.Phase = c.currentPhase.String()
	c.errors = append(c.errors, e)
}

// Errors returns a copy of the accumulated error reports.
func (c *Context) Errors() []ErrorReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ErrorReport, len(c.errors))
	copy(out, c.errors)
	return out
}

// ClearErrors removes every error report matching typeId, and
// optionally also matching sourceKey (ignored if empty).
func (c *Context) ClearErrors(typeId uint64, sourceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.errors[:0]
	for _, e := range c.errors {
		if e.SourceTypeId == typeId && (sourceKey == "" || e.SourceKey == sourceKey) {
			continue
		}
		kept = append(kept, e)
	}
	c.errors = kept
}

// PublishSnapshot bumps the snapshot version and publishes the
// immutable UnifiedSnapshot for this frame. Valid only during the
// Snapshot phase, and only once per frame: a second call is an
// InvariantViolation.
func (c *Context) PublishSnapshot(tag EngineTag, valid bool) *UnifiedSnapshot {
	if !tag.Valid() {
		panic("frame: PublishSnapshot called without a valid EngineTag")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentPhase != phase.Snapshot {
		panic("frame: PublishSnapshot called outside the Snapshot phase")
	}
	if c.published != nil {
		panic("frame: PublishSnapshot called twice for the same frame")
	}
	snap := &UnifiedSnapshot{
		Version: c.versioner.Next(),
		Input:   c.input,
		Frame: FrameSubSnapshot{
			Sequence: c.sequence,
			Slot:     c.slot,
			Timing:   c.timing,
			Views:    append([]View(nil), c.views...),
			Surfaces: append([]Surface(nil), c.surfaces...),
			Valid:    valid,
		},
	}
	c.published = snap
	return snap
}

// PublishedSnapshot returns the snapshot published this frame, or nil
// if PublishSnapshot has not yet been called.
func (c *Context) PublishedSnapshot() *UnifiedSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published
}
