package frame

// ErrorReport is one typed error surfaced into a FrameContext
// (spec.md §3, §7). It is never an exception: the coordinator converts
// any module panic/error into one of these and keeps going.
type ErrorReport struct {
	// SourceTypeId identifies the reporting module (EngineModule's
	// stable type id), or 0 if the source cannot be attributed.
	SourceTypeId uint64
	Message      string
	// SourceKey optionally disambiguates multiple error sources that
	// share a SourceTypeId (e.g. distinct instances of a module
	// type). Empty if not applicable.
	SourceKey string
	Phase     string
}
