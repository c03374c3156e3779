// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package module defines EngineModule, the per-phase behavior
// extension point (spec.md §3, §6), and Manager, the registry and
// dispatcher that runs registered modules in each phase with the
// correct concurrency model, ordering, and failure semantics
// (spec.md §4.3).
package module

import (
	"context"

	"oxygen/frame"
	"oxygen/phase"
)

// AttachEngine is the narrow view of the engine facade that
// OnAttached receives. It is defined here, not imported from the
// engine package, so that module and engine can depend on each other
// without a cycle: engine implements AttachEngine, module only
// declares what a module is allowed to see of it.
type AttachEngine interface {
	// EngineConfig returns the engine's current configuration. Its
	// concrete type is left to the caller (engine.Engine) to avoid
	// module depending on config; modules that need it type-assert.
	EngineConfig() any
}

// Module is the extension point applications implement (spec.md §6
// EngineModule). Every On* handler except OnParallelTasks (which
// receives the published UnifiedSnapshot) receives the frame's Context;
// handlers for barriered-concurrency phases also receive a
// context.Context carrying the phase's cancellation signal and must
// return promptly when it is done.
type Module interface {
	TypeId() uint64
	Name() string
	Priority() int
	Critical() bool
	SupportedPhases() phase.Mask

	OnAttached(engine AttachEngine) bool
	OnShutdown()

	// Synchronous-ordered / engine-internal phases.
	OnFrameStart(fc *frame.Context)
	OnSnapshot(fc *frame.Context)
	OnFrameEnd(fc *frame.Context)

	// Barriered-concurrency phases: each returns once its work for
	// the phase is done, or ctx is canceled.
	OnInput(ctx context.Context, fc *frame.Context) error
	OnFixedSimulation(ctx context.Context, fc *frame.Context) error
	OnGameplay(ctx context.Context, fc *frame.Context) error
	OnSceneMutation(ctx context.Context, fc *frame.Context) error
	OnTransformPropagation(ctx context.Context, fc *frame.Context) error
	OnPostParallel(ctx context.Context, fc *frame.Context) error
	OnGuiUpdate(ctx context.Context, fc *frame.Context) error
	OnPreRender(ctx context.Context, fc *frame.Context) error
	OnRender(ctx context.Context, fc *frame.Context) error
	OnCompositing(ctx context.Context, fc *frame.Context) error
	OnAsyncPoll(ctx context.Context, fc *frame.Context) error

	// Deferred-pipelines phase: receives the just-published snapshot,
	// with mutation permission None.
	OnParallelTasks(ctx context.Context, snap *frame.UnifiedSnapshot) error
}

// Base implements every Module method as a no-op, so concrete modules
// can embed it and override only the phases they support.
type Base struct {
	Id       uint64
	NameStr  string
	Prio     int
	Crit     bool
	Phases   phase.Mask
}

func (b *Base) TypeId() uint64           { return b.Id }
func (b *Base) Name() string             { return b.NameStr }
func (b *Base) Priority() int            { return b.Prio }
func (b *Base) Critical() bool           { return b.Crit }
func (b *Base) SupportedPhases() phase.Mask { return b.Phases }

func (b *Base) OnAttached(AttachEngine) bool { return true }
func (b *Base) OnShutdown()                  {}

func (b *Base) OnFrameStart(*frame.Context) {}
func (b *Base) OnSnapshot(*frame.Context)   {}
func (b *Base) OnFrameEnd(*frame.Context)   {}

func (b *Base) OnInput(context.Context, *frame.Context) error                { return nil }
func (b *Base) OnFixedSimulation(context.Context, *frame.Context) error      { return nil }
func (b *Base) OnGameplay(context.Context, *frame.Context) error             { return nil }
func (b *Base) OnSceneMutation(context.Context, *frame.Context) error        { return nil }
func (b *Base) OnTransformPropagation(context.Context, *frame.Context) error { return nil }
func (b *Base) OnPostParallel(context.Context, *frame.Context) error         { return nil }
func (b *Base) OnGuiUpdate(context.Context, *frame.Context) error            { return nil }
func (b *Base) OnPreRender(context.Context, *frame.Context) error            { return nil }
func (b *Base) OnRender(context.Context, *frame.Context) error               { return nil }
func (b *Base) OnCompositing(context.Context, *frame.Context) error          { return nil }
func (b *Base) OnAsyncPoll(context.Context, *frame.Context) error            { return nil }

func (b *Base) OnParallelTasks(context.Context, *frame.UnifiedSnapshot) error { return nil }
