// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package coordinator implements the Frame Coordinator (spec.md §4.2):
// the per-frame state machine that sequences the 20 canonical phases,
// paces to a target frame rate, runs the fixed-simulation accumulator,
// and publishes the per-frame UnifiedSnapshot. It is the engine's
// single-threaded driver; parallelism within a phase is delegated to
// module.Manager's barriered dispatch.
package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"oxygen/config"
	"oxygen/frame"
	"oxygen/graphics"
	"oxygen/module"
	"oxygen/phase"
	"oxygen/platform"
	"oxygen/telemetry/log"
	"oxygen/telemetry/metrics"
)

// Coordinator drives one engine's frame loop. It holds the only
// frame.EngineTag and frame.Versioner for its lifetime (spec.md §4.4,
// §7: "the coordinator holds the capability token permitting phase
// transitions").
type Coordinator struct {
	cfg     *config.Store
	manager *module.Manager
	backend graphics.Backend
	plat    platform.Platform
	log     *log.Logger
	metrics *metrics.Registry

	tag       frame.EngineTag
	versioner frame.Versioner

	framesInFlight int
	housekeeping   func()
	pacer          pacer

	mu             sync.Mutex
	sequence       uint64
	lastFrameStart time.Time
	accumulator    time.Duration
	timeScale      float64
	surfaces       []frame.SurfaceId

	stopRequested atomic.Bool

	loggedNoInputSystem    atomic.Bool
	loggedNoRendererModule atomic.Bool
}

// Option configures optional Coordinator behavior.
type Option func(*Coordinator)

// WithMetrics installs a metrics.Registry; frame pacing slip
// observations are recorded against it when set. The coordinator does
// not record phase durations.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithFramesInFlight overrides the default frame-slot modulus (3).
func WithFramesInFlight(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.framesInFlight = n
		}
	}
}

// WithHousekeeping installs a function run detached (not joined) at
// the DetachedServices phase, the engine's module-invisible slot for
// background bookkeeping such as Any-Cache GC.
func WithHousekeeping(fn func()) Option {
	return func(c *Coordinator) { c.housekeeping = fn }
}

// WithSurfaces seeds the coordinator's known presentation surfaces,
// cleared to non-presentable each FrameStart and marked presentable by
// render modules during the frame.
func WithSurfaces(ids ...frame.SurfaceId) Option {
	return func(c *Coordinator) { c.surfaces = append([]frame.SurfaceId(nil), ids...) }
}

// DefaultFramesInFlight is spec.md's "frame slot = sequence mod
// frames-in-flight" modulus absent an explicit override.
const DefaultFramesInFlight = 3

// New constructs a Coordinator. cfg supplies timing/pacing/frame-count
// options (spec.md §6); manager dispatches modules per phase; backend
// and plat are the external GraphicsBackend/Platform capabilities
// (spec.md §1, §6) — either may be nil for headless/test use.
func New(cfg *config.Store, manager *module.Manager, backend graphics.Backend, plat platform.Platform, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:            cfg,
		manager:        manager,
		backend:        backend,
		plat:           plat,
		log:            log.Default(),
		tag:            frame.NewEngineTag(),
		framesInFlight: DefaultFramesInFlight,
		timeScale:      1.0,
	}
	for _, o := range opts {
		o(c)
	}
	c.pacer = newPacer(c.cfg.Get().Timing.PacingSafetyMargin)
	return c
}

// SetTimeScale adjusts the multiplier applied to wall-clock delta
// before it accumulates as game time (spec.md §3 ModuleTiming.Scale).
// A scale of 0 pauses simulation time without pausing the frame loop.
func (c *Coordinator) SetTimeScale(scale float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeScale = scale
}

// Stop requests the frame loop terminate at the top of its next
// iteration (spec.md §4.2 "Cancellation").
func (c *Coordinator) Stop() { c.stopRequested.Store(true) }

// Stopped reports whether Stop has been called.
func (c *Coordinator) Stopped() bool { return c.stopRequested.Load() }

// Run drives the frame loop until a requested frame count is reached,
// Stop is called, the platform reports its last window closed, or ctx
// is canceled. It never returns a module error: per-phase failures are
// reported into each frame's FrameContext and triaged by module.Manager
// (spec.md §4.2 "Failure semantics").
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		cfg := c.cfg.Get()

		if ctx.Err() != nil || c.stopRequested.Load() {
			c.shutdown(ctx)
			return ctx.Err()
		}
		if c.plat != nil && c.plat.LastWindowClosed() {
			c.log.Info("coordinator: last window closed, shutting down")
			c.shutdown(ctx)
			return nil
		}

		c.mu.Lock()
		c.sequence++
		seq := c.sequence
		c.mu.Unlock()

		if cfg.FrameCount != 0 && seq > uint64(cfg.FrameCount) {
			c.shutdown(ctx)
			return nil
		}

		c.runFrame(ctx, cfg, seq)

		if cfg.TargetFPS == 0 {
			continue
		}
		slip := c.pacer.waitNext(time.Second / time.Duration(cfg.TargetFPS))
		if c.metrics != nil {
			c.metrics.FrameSlipSeconds.Observe(slip.Seconds())
		}
		if slip > 0 {
			c.log.Debug("coordinator: frame pacing slip", log.Int64("slip_micros", slip.Microseconds()))
		}
	}
}

func (c *Coordinator) runFrame(ctx context.Context, cfg config.EngineConfig, seq uint64) {
	slot := int(seq % uint64(c.framesInFlight))
	frameStart := c.now()

	fc := frame.New(c.tag, &c.versioner, seq, slot, frameStart)

	c.runFrameStart(ctx, fc, cfg, frameStart, seq, slot)
	c.runInput(ctx, fc)
	c.runNetworkReconciliation(fc)
	c.runRandomSeedManagement(fc)
	c.runFixedSimulation(ctx, fc, cfg)
	c.runBarrieredModulePhase(ctx, fc, phase.Gameplay, module.Module.OnGameplay)
	c.runBarrieredModulePhase(ctx, fc, phase.SceneMutation, module.Module.OnSceneMutation)
	c.runBarrieredModulePhase(ctx, fc, phase.TransformPropagation, module.Module.OnTransformPropagation)
	snap := c.runSnapshot(fc)
	fc.SetPhase(c.tag, phase.ParallelTasks)
	c.manager.DispatchParallelTasks(ctx, fc, snap)
	c.runBarrieredModulePhase(ctx, fc, phase.PostParallel, module.Module.OnPostParallel)
	c.runBarrieredModulePhase(ctx, fc, phase.GuiUpdate, module.Module.OnGuiUpdate)
	c.runBarrieredModulePhase(ctx, fc, phase.PreRender, module.Module.OnPreRender)
	c.runBarrieredModulePhase(ctx, fc, phase.Render, module.Module.OnRender)
	c.runBarrieredModulePhase(ctx, fc, phase.Compositing, module.Module.OnCompositing)
	c.runPresent(ctx, fc)
	c.runBarrieredModulePhase(ctx, fc, phase.AsyncPoll, module.Module.OnAsyncPoll)
	c.runBudgetAdapt(fc)
	c.runFrameEnd(ctx, fc, seq, slot)
	c.runDetachedServices(fc)
}

func (c *Coordinator) now() time.Time {
	if c.plat != nil {
		return c.plat.Now()
	}
	return time.Now()
}

func (c *Coordinator) runFrameStart(ctx context.Context, fc *frame.Context, cfg config.EngineConfig, frameStart time.Time, seq uint64, slot int) {
	fc.SetPhase(c.tag, phase.FrameStart)
	fc.ClearViews(c.tag)

	if c.backend != nil {
		if err := c.backend.BeginFrame(ctx, seq, slot); err != nil {
			c.log.Error("coordinator: graphics backend BeginFrame failed", log.Error(err))
			fc.ReportError(frame.ErrorReport{SourceKey: "graphics.Backend", Message: err.Error()})
		}
	}

	surfaces := make([]frame.Surface, len(c.surfaces))
	for i, id := range c.surfaces {
		surfaces[i] = frame.Surface{Id: id}
	}
	fc.SetSurfaces(c.tag, surfaces)

	c.mu.Lock()
	delta := time.Duration(0)
	if !c.lastFrameStart.IsZero() {
		delta = frameStart.Sub(c.lastFrameStart)
	}
	c.lastFrameStart = frameStart
	scale := c.timeScale
	c.mu.Unlock()

	fps := 0.0
	if delta > 0 {
		fps = float64(time.Second) / float64(delta)
	}
	fc.SetTiming(c.tag, frame.ModuleTiming{
		Delta:      delta,
		Scale:      scale,
		Paused:     scale == 0,
		FixedDelta: cfg.Timing.FixedDelta,
		FPS:        fps,
	})

	c.manager.DispatchSync(fc, phase.FrameStart, func(m module.Module, fc *frame.Context) { m.OnFrameStart(fc) })
}

func (c *Coordinator) runInput(ctx context.Context, fc *frame.Context) {
	fc.SetPhase(c.tag, phase.Input)
	c.manager.DispatchBarriered(ctx, fc, phase.Input, func(m module.Module) func(context.Context, *frame.Context) error {
		return m.OnInput
	})
	snap, ok := c.manager.InputSystemSnapshot()
	if ok {
		fc.SetInputSnapshot(c.tag, snap)
	} else if !c.loggedNoInputSystem.Swap(true) {
		c.log.Warn("coordinator: no InputSystem module produced an input snapshot this run")
	}
}

// runNetworkReconciliation is module-invisible (spec.md §4.2 phase
// registry comment): no EngineModule handler exists for this phase.
// It is the coordinator's slot to apply server-reconciled state before
// FixedSimulation runs; Oxygen's core has no network transport of its
// own (out of scope per spec.md §1), so this is a no-op placeholder
// transition.
func (c *Coordinator) runNetworkReconciliation(fc *frame.Context) {
	fc.SetPhase(c.tag, phase.NetworkReconciliation)
}

// runRandomSeedManagement is module-invisible, mirroring
// runNetworkReconciliation: the coordinator's slot to reseed or advance
// deterministic RNG streams before FixedSimulation consumes them.
// Oxygen's core leaves seed derivation to the application, so this is a
// no-op placeholder transition.
func (c *Coordinator) runRandomSeedManagement(fc *frame.Context) {
	fc.SetPhase(c.tag, phase.RandomSeedManagement)
}

func (c *Coordinator) runFixedSimulation(ctx context.Context, fc *frame.Context, cfg config.EngineConfig) {
	fc.SetPhase(c.tag, phase.FixedSimulation)

	fixedDelta := cfg.Timing.FixedDelta
	if fixedDelta <= 0 {
		// spec.md §9 open question: fixed_delta == 0 mandates an
		// early return with zero substeps and alpha == 0.
		fc.SetFixedStepTiming(c.tag, 0, 0)
		return
	}

	timing := fc.Timing()
	scaled := time.Duration(float64(timing.Delta) * timing.Scale)

	c.mu.Lock()
	c.accumulator += scaled
	if c.accumulator > cfg.Timing.MaxAccumulator {
		c.accumulator = cfg.Timing.MaxAccumulator
	}
	acc := c.accumulator
	c.mu.Unlock()

	substeps := 0
	for acc >= fixedDelta && substeps < cfg.Timing.MaxSubsteps {
		c.manager.DispatchBarriered(ctx, fc, phase.FixedSimulation, func(m module.Module) func(context.Context, *frame.Context) error {
			return m.OnFixedSimulation
		})
		acc -= fixedDelta
		substeps++
	}
	if acc > fixedDelta {
		// The substep cap was hit: drop the backlog beyond one fixed
		// step so the accumulator stays <= fixedDelta and alpha <= 1.
		acc = fixedDelta
	}

	c.mu.Lock()
	c.accumulator = acc
	c.mu.Unlock()

	alpha := float64(acc) / float64(fixedDelta)
	fc.SetFixedStepTiming(c.tag, substeps, alpha)
}

func (c *Coordinator) runBarrieredModulePhase(ctx context.Context, fc *frame.Context, p phase.Id, method func(module.Module, context.Context, *frame.Context) error) {
	fc.SetPhase(c.tag, p)
	c.manager.DispatchBarriered(ctx, fc, p, func(m module.Module) func(context.Context, *frame.Context) error {
		return func(ctx context.Context, fc *frame.Context) error { return method(m, ctx, fc) }
	})
}

func (c *Coordinator) runSyncModulePhase(fc *frame.Context, p phase.Id, method func(module.Module, *frame.Context)) {
	fc.SetPhase(c.tag, p)
	c.manager.DispatchSync(fc, p, func(m module.Module, fc *frame.Context) { method(m, fc) })
}

func (c *Coordinator) runSnapshot(fc *frame.Context) *frame.UnifiedSnapshot {
	fc.SetPhase(c.tag, phase.Snapshot)
	c.manager.DispatchSync(fc, phase.Snapshot, func(m module.Module, fc *frame.Context) { m.OnSnapshot(fc) })
	return fc.PublishSnapshot(c.tag, true)
}

// runBudgetAdapt is module-invisible: the coordinator's slot to adapt
// quality/resource budgets from the frame's observed pacing slip before
// FrameEnd closes the frame out. Oxygen's core has no budget controller
// of its own (out of scope per spec.md §1), so this is a no-op
// placeholder transition.
func (c *Coordinator) runBudgetAdapt(fc *frame.Context) {
	fc.SetPhase(c.tag, phase.BudgetAdapt)
}

func (c *Coordinator) runPresent(ctx context.Context, fc *frame.Context) {
	fc.SetPhase(c.tag, phase.Present)
	if c.backend == nil {
		return
	}
	ids := fc.PresentableSurfaces()
	if len(ids) == 0 {
		return
	}
	gfxIds := make([]graphics.SurfaceId, len(ids))
	for i, id := range ids {
		gfxIds[i] = graphics.SurfaceId(id)
	}
	if err := c.backend.PresentSurfaces(ctx, gfxIds); err != nil {
		c.log.Error("coordinator: PresentSurfaces failed", log.Error(err))
		fc.ReportError(frame.ErrorReport{SourceKey: "graphics.Backend", Message: err.Error()})
	}
}

// runFrameEnd dispatches OnFrameEnd to modules, then ends the graphics
// backend's frame; the backend's EndFrame call happens only after every
// module has seen FrameEnd, mirroring the original engine's PhaseFrameEnd
// (module dispatch first, gfx->EndFrame after).
func (c *Coordinator) runFrameEnd(ctx context.Context, fc *frame.Context, seq uint64, slot int) {
	c.runSyncModulePhase(fc, phase.FrameEnd, module.Module.OnFrameEnd)
	if c.backend == nil {
		return
	}
	if err := c.backend.EndFrame(ctx, seq, slot); err != nil {
		c.log.Error("coordinator: graphics backend EndFrame failed", log.Error(err))
		fc.ReportError(frame.ErrorReport{SourceKey: "graphics.Backend", Message: err.Error()})
	}
}

func (c *Coordinator) runDetachedServices(fc *frame.Context) {
	fc.SetPhase(c.tag, phase.DetachedServices)
	if c.housekeeping == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Warn("coordinator: housekeeping panicked", log.Any("panic", r))
			}
		}()
		c.housekeeping()
	}()
}

// shutdown runs the shutdown sequence (spec.md §4.2 "Cancellation"):
// flush the graphics backend, then tear down modules in reverse
// attach order. Platform shutdown signaling is left to the caller of
// Run, which owns the Platform's lifetime beyond this Coordinator.
func (c *Coordinator) shutdown(ctx context.Context) {
	if c.backend != nil {
		if err := c.backend.Flush(ctx); err != nil {
			c.log.Error("coordinator: backend Flush failed during shutdown", log.Error(err))
		}
	}
	c.manager.Shutdown()
}
