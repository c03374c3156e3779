package frame

// InputSnapshot is the opaque, shared input view published once per
// frame at the Input phase (spec.md §3, §4.2 "Input phase contract").
// Readers must treat Value as read-only; ownership is shared (multiple
// parallel tasks may hold a reference to the same InputSnapshot).
type InputSnapshot struct {
	Seq   uint64
	Value any
}

// View is one render view's per-frame contribution, added by modules
// during PreRender.
type View struct {
	Name string
	Data any
}

// SurfaceId identifies one presentation surface.
type SurfaceId uint32

// Surface is one presentation target and whether it has been marked
// ready for Present this frame.
type Surface struct {
	Id          SurfaceId
	Presentable bool
}

// FrameSubSnapshot is the frame-derived half of UnifiedSnapshot:
// timing, views, and surfaces as they stood at the Snapshot phase,
// plus validation metadata recording how the snapshot was produced.
type FrameSubSnapshot struct {
	Sequence uint64
	Slot     int
	Timing   ModuleTiming
	Views    []View
	Surfaces []Surface
	// Valid is false if the coordinator detected an invariant
	// violation while consolidating contributions (e.g. a module
	// mutated Views after Snapshot); published anyway so consumers
	// can at least observe the frame occurred, but must not trust
	// its contents.
	Valid bool
}

// UnifiedSnapshot is the published, immutable per-frame view consumed
// by ParallelTasks modules and any other reader outside the frame
// (spec.md §3, §4.4). Callers who retain a UnifiedSnapshot beyond the
// frame that produced it hold their own reference; publication never
// mutates a previously returned value.
type UnifiedSnapshot struct {
	Version uint64
	Input   InputSnapshot
	Frame   FrameSubSnapshot
}
