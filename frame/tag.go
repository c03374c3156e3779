// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package frame implements FrameContext, the phase-gated shared state
// modules read and mutate under registry-enforced permissions
// (spec.md §3, §4.4), and UnifiedSnapshot, the immutable per-frame view
// published once per frame at the Snapshot phase.
package frame

// EngineTag is a capability token gating FrameContext mutation.
// Its zero value is unusable: the only way to obtain a valid EngineTag
// is through NewEngineTag, which the coordinator package calls once
// per Coordinator. NewEngineTag is exported, so any package can mint
// one; within the engine the coordinator is the only production caller,
// which keeps mutating methods that require an EngineTag argument
// coordinator-driven in practice.
type EngineTag struct {
	// minted distinguishes a real token from the zero value.
	minted bool
}

// NewEngineTag mints a new EngineTag. coordinator.Coordinator is its
// only production caller; it is exported so the coordinator package
// (which cannot import frame's internal details) can construct one, and
// tests of other packages call it to drive a Context directly.
func NewEngineTag() EngineTag { return EngineTag{minted: true} }

// Valid reports whether t was obtained from NewEngineTag.
func (t EngineTag) Valid() bool { return t.minted }
