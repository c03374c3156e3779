// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package engine composes the Phase/Barrier Registry, Frame Context,
// Module Manager, and Frame Coordinator into the facade applications
// drive (spec.md §6 "Engine facade"): RegisterModule, UnregisterModule,
// GetEngineConfig, Run, Stop. The shape mirrors the teacher's
// package-level Config/Configure idiom
// (_examples/gviegas-neo3/engine/engine.go), generalized to hold a
// Coordinator instead of a fixed render loop.
package engine

import (
	"context"

	"oxygen/config"
	"oxygen/coordinator"
	"oxygen/frame"
	"oxygen/graphics"
	"oxygen/module"
	"oxygen/platform"
	"oxygen/telemetry/log"
	"oxygen/telemetry/metrics"
)

// Engine is the top-level facade an application holds. It is the
// concrete type behind module.AttachEngine.
type Engine struct {
	cfg     *config.Store
	manager *module.Manager
	coord   *coordinator.Coordinator
	log     *log.Logger
}

// Options configures a new Engine.
type Options struct {
	Config       config.EngineConfig
	Backend      graphics.Backend
	Platform     platform.Platform
	Logger       *log.Logger
	Metrics      *metrics.Registry
	Housekeeping func()
	Surfaces     []uint32
}

// New constructs an Engine from opts. Backend and Platform may be nil
// for headless use.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := opts.Config
	if (cfg == config.EngineConfig{}) {
		cfg = config.Default()
	}
	store := config.NewStore(cfg)
	manager := module.NewManager(logger)

	var coordOpts []coordinator.Option
	if opts.Metrics != nil {
		coordOpts = append(coordOpts, coordinator.WithMetrics(opts.Metrics))
	}
	if opts.Housekeeping != nil {
		coordOpts = append(coordOpts, coordinator.WithHousekeeping(opts.Housekeeping))
	}
	if len(opts.Surfaces) > 0 {
		ids := make([]frame.SurfaceId, len(opts.Surfaces))
		for i, s := range opts.Surfaces {
			ids[i] = frame.SurfaceId(s)
		}
		coordOpts = append(coordOpts, coordinator.WithSurfaces(ids...))
	}

	e := &Engine{cfg: store, manager: manager, log: logger}
	e.coord = coordinator.New(store, manager, opts.Backend, opts.Platform, coordOpts...)
	return e
}

// EngineConfig returns the engine's current configuration (spec.md §6).
// It implements module.AttachEngine.
func (e *Engine) EngineConfig() any { return e.cfg.Get() }

// ConfigStore returns the engine's live config.Store, so callers may
// Set/Subscribe for hot-reloadable fields (target_fps, pacing) without
// reaching into the Coordinator.
func (e *Engine) ConfigStore() *config.Store { return e.cfg }

// RegisterModule attaches m to the engine (spec.md §4.3 Register).
func (e *Engine) RegisterModule(m module.Module) bool {
	return e.manager.Register(m, e)
}

// UnregisterModule detaches the module named name.
func (e *Engine) UnregisterModule(name string) {
	e.manager.Unregister(name)
}

// SetRendererModule designates the module that must run last within
// PreRender (spec.md §4.3).
func (e *Engine) SetRendererModule(typeId uint64) {
	e.manager.SetRendererTypeId(typeId)
}

// SetInputSystemModule designates the module whose InputSnapshot the
// coordinator publishes after the Input phase (spec.md §4.2).
func (e *Engine) SetInputSystemModule(typeId uint64) {
	e.manager.SetInputSystemTypeId(typeId)
}

// Run drives the frame loop until termination (spec.md §6 Run()).
func (e *Engine) Run(ctx context.Context) error {
	return e.coord.Run(ctx)
}

// Stop requests the frame loop terminate at the top of its next
// iteration (spec.md §6 Stop()).
func (e *Engine) Stop() { e.coord.Stop() }

// SetTimeScale adjusts simulation time scale (0 pauses game time
// without pausing the frame loop).
func (e *Engine) SetTimeScale(scale float64) { e.coord.SetTimeScale(scale) }
