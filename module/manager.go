package module

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"oxygen/frame"
	"oxygen/phase"
	"oxygen/telemetry/log"
)

// InputProducer is implemented by the module designated as the
// InputSystem (spec.md §4.2 "Input phase contract"): after Input's
// barriered modules complete, the coordinator calls InputSnapshot on
// whichever registered module matches the configured input-system
// type id, and publishes the result synchronously.
type InputProducer interface {
	InputSnapshot() frame.InputSnapshot
}

// AttachSubscriber is notified whenever a module is registered.
type AttachSubscriber interface {
	ModuleAttached(m Module)
}

// Manager holds modules in registration (attach) order and maintains a
// per-phase cache of modules sorted by ascending priority (spec.md
// §4.3).
type Manager struct {
	mu      sync.RWMutex
	modules []Module
	byPhase [phase.Count][]Module

	subs []AttachSubscriber

	rendererTypeId    uint64
	hasRenderer       bool
	inputSystemTypeId uint64
	hasInputSystem    bool

	log *log.Logger
}

// NewManager constructs an empty Manager.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{log: logger}
}

// SetRendererTypeId designates the module that must run last within
// PreRender (spec.md §4.3 "Special ordering rule for PreRender").
func (mgr *Manager) SetRendererTypeId(id uint64) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.rendererTypeId = id
	mgr.hasRenderer = true
}

// SetInputSystemTypeId designates the module whose InputSnapshot the
// coordinator publishes after the Input phase's barrier completes.
func (mgr *Manager) SetInputSystemTypeId(id uint64) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.inputSystemTypeId = id
	mgr.hasInputSystem = true
}

// InputSystemSnapshot locates the registered module designated as the
// InputSystem and, if it implements InputProducer, returns its
// snapshot. ok is false if no input-system module is configured, not
// currently registered, or does not implement InputProducer.
func (mgr *Manager) InputSystemSnapshot() (snap frame.InputSnapshot, ok bool) {
	mgr.mu.RLock()
	id, has := mgr.inputSystemTypeId, mgr.hasInputSystem
	var m Module
	if has {
		for _, cand := range mgr.modules {
			if cand.TypeId() == id {
				m = cand
				break
			}
		}
	}
	mgr.mu.RUnlock()

	if m == nil {
		return frame.InputSnapshot{}, false
	}
	producer, isProducer := m.(InputProducer)
	if !isProducer {
		return frame.InputSnapshot{}, false
	}
	return producer.InputSnapshot(), true
}

// Subscribe registers sub to be notified of future registrations. If
// replay is true, sub is immediately notified of every already
// registered module, in attach order.
func (mgr *Manager) Subscribe(sub AttachSubscriber, replay bool) {
	mgr.mu.Lock()
	existing := append([]Module(nil), mgr.modules...)
	mgr.subs = append(mgr.subs, sub)
	mgr.mu.Unlock()
	if replay {
		for _, m := range existing {
			notifyAttach(mgr.log, sub, m)
		}
	}
}

func notifyAttach(logger *log.Logger, sub AttachSubscriber, m Module) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("module: attach subscriber panicked",
				log.String("module", m.Name()), log.Any("panic", r))
		}
	}()
	sub.ModuleAttached(m)
}

// Register calls m.OnAttached(engine); on failure m is not retained
// and Register returns false. On success, attach subscribers are
// notified synchronously (panics swallowed with a diagnostic).
func (mgr *Manager) Register(m Module, engine AttachEngine) bool {
	if !m.OnAttached(engine) {
		return false
	}

	mgr.mu.Lock()
	mgr.modules = append(mgr.modules, m)
	mgr.rebuildCacheLocked()
	subs := append([]AttachSubscriber(nil), mgr.subs...)
	mgr.mu.Unlock()

	for _, sub := range subs {
		notifyAttach(mgr.log, sub, m)
	}
	return true
}

// Unregister removes the module named name: extracts and erases it
// from the registry first, then calls OnShutdown. Panics during
// OnShutdown are caught and logged.
func (mgr *Manager) Unregister(name string) {
	mgr.mu.Lock()
	var removed Module
	kept := mgr.modules[:0]
	for _, m := range mgr.modules {
		if m.Name() == name {
			removed = m
			continue
		}
		kept = append(kept, m)
	}
	mgr.modules = kept
	mgr.rebuildCacheLocked()
	mgr.mu.Unlock()

	if removed != nil {
		mgr.shutdownOne(removed)
	}
}

// unregisterModule is like Unregister but matches by Module identity,
// used by error triage which has the Module value in hand already.
func (mgr *Manager) unregisterModule(target Module) {
	mgr.mu.Lock()
	kept := mgr.modules[:0]
	removed := false
	for _, m := range mgr.modules {
		if m == target {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	mgr.modules = kept
	mgr.rebuildCacheLocked()
	mgr.mu.Unlock()

	if removed {
		mgr.shutdownOne(target)
	}
}

func (mgr *Manager) shutdownOne(m Module) {
	defer func() {
		if r := recover(); r != nil {
			mgr.log.Warn("module: OnShutdown panicked",
				log.String("module", m.Name()), log.Any("panic", r))
		}
	}()
	m.OnShutdown()
}

// Shutdown tears down every registered module in reverse attach order
// (spec.md §4.2 "shutdown sequence").
func (mgr *Manager) Shutdown() {
	mgr.mu.Lock()
	modules := append([]Module(nil), mgr.modules...)
	mgr.modules = nil
	mgr.byPhase = [phase.Count][]Module{}
	mgr.mu.Unlock()

	for i := len(modules) - 1; i >= 0; i-- {
		mgr.shutdownOne(modules[i])
	}
}

// Modules returns a snapshot of the currently registered modules, in
// attach order.
func (mgr *Manager) Modules() []Module {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return append([]Module(nil), mgr.modules...)
}

func (mgr *Manager) rebuildCacheLocked() {
	var cache [phase.Count][]Module
	for p := 0; p < phase.Count; p++ {
		var list []Module
		for _, m := range mgr.modules {
			if m.SupportedPhases().Has(phase.Id(p)) {
				list = append(list, m)
			}
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() < list[j].Priority()
		})
		cache[p] = list
	}
	mgr.byPhase = cache
}

func (mgr *Manager) phaseCache(p phase.Id) []Module {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return append([]Module(nil), mgr.byPhase[p]...)
}

// moduleError converts a recovered panic or returned error from a
// module handler into a frame.ErrorReport.
func moduleError(m Module, cause any) frame.ErrorReport {
	return frame.ErrorReport{
		SourceTypeId: m.TypeId(),
		SourceKey:    m.Name(),
		Message:      fmt.Sprint(cause),
	}
}

func invokeSync(fc *frame.Context, m Module, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			fc.ReportError(moduleError(m, r))
		}
	}()
	fn()
}

func invokeAsync(ctx context.Context, fc *frame.Context, m Module, fn func(context.Context, *frame.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			fc.ReportError(moduleError(m, r))
		}
	}()
	if err := fn(ctx, fc); err != nil {
		fc.ReportError(moduleError(m, err))
	}
}

// DispatchSync runs every module subscribed to p, in priority order,
// on the calling goroutine (spec.md §4.3 "Synchronous/engine-internal
// phases"). handler selects the phase-specific method to invoke.
func (mgr *Manager) DispatchSync(fc *frame.Context, p phase.Id, handler func(Module, *frame.Context)) {
	for _, m := range mgr.phaseCache(p) {
		invokeSync(fc, m, func() { handler(m, fc) })
	}
	mgr.TriageErrors(fc)
}

// DispatchBarriered launches one awaitable per module subscribed to p
// and joins them all before returning (spec.md §4.3 "Barriered-
// concurrency phases"). For PreRender specifically, every non-renderer
// module is awaited as a group before the designated Renderer module
// is dispatched (spec.md §4.3 "Special ordering rule for PreRender").
func (mgr *Manager) DispatchBarriered(ctx context.Context, fc *frame.Context, p phase.Id, handler func(Module) func(context.Context, *frame.Context) error) {
	mods := mgr.phaseCache(p)

	if p == phase.PreRender {
		mgr.dispatchPreRender(ctx, fc, mods, handler)
		mgr.TriageErrors(fc)
		return
	}

	mgr.joinAll(ctx, fc, mods, handler)
	mgr.TriageErrors(fc)
}

func (mgr *Manager) dispatchPreRender(ctx context.Context, fc *frame.Context, mods []Module, handler func(Module) func(context.Context, *frame.Context) error) {
	mgr.mu.RLock()
	rendererId, hasRenderer := mgr.rendererTypeId, mgr.hasRenderer
	mgr.mu.RUnlock()

	var renderer Module
	var rest []Module
	for _, m := range mods {
		if hasRenderer && m.TypeId() == rendererId {
			renderer = m
			continue
		}
		rest = append(rest, m)
	}
	mgr.joinAll(ctx, fc, rest, handler)

	if renderer != nil {
		invokeAsync(ctx, fc, renderer, handler(renderer))
	} else if !hasRenderer {
		mgr.log.Info("module: no renderer module registered, skipping its PreRender dispatch")
	}
}

func (mgr *Manager) joinAll(ctx context.Context, fc *frame.Context, mods []Module, handler func(Module) func(context.Context, *frame.Context) error) {
	if len(mods) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range mods {
		m := m
		fn := handler(m)
		g.Go(func() error {
			invokeAsync(gctx, fc, m, fn)
			return nil // module errors become ErrorReports, never fail the group
		})
	}
	_ = g.Wait()
}

// DispatchParallelTasks runs the ParallelTasks phase's deferred-
// pipelines model: modules receive the published snapshot and have
// mutation permission None (spec.md §4.3).
func (mgr *Manager) DispatchParallelTasks(ctx context.Context, fc *frame.Context, snap *frame.UnifiedSnapshot) {
	mods := mgr.phaseCache(phase.ParallelTasks)
	if len(mods) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range mods {
		m := m
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					fc.ReportError(moduleError(m, r))
				}
			}()
			if err := m.OnParallelTasks(gctx, snap); err != nil {
				fc.ReportError(moduleError(m, err))
			}
			return nil
		})
	}
	_ = g.Wait()
	mgr.TriageErrors(fc)
}

// TriageErrors applies the error triage policy (spec.md §4.3, §7):
// for each reported error, find the module by its type id.
// Non-critical -> unregister and clear. Critical -> keep, leave error
// visible. Unattributable (no registered module has that type id) ->
// logged once per type id per call and left in the context as
// reported; it is not rewritten into a new "bad module" error.
func (mgr *Manager) TriageErrors(fc *frame.Context) {
	errs := fc.Errors()
	if len(errs) == 0 {
		return
	}
	mgr.mu.RLock()
	byId := make(map[uint64]Module, len(mgr.modules))
	for _, m := range mgr.modules {
		byId[m.TypeId()] = m
	}
	mgr.mu.RUnlock()

	seenBad := map[uint64]bool{}
	for _, e := range errs {
		m, found := byId[e.SourceTypeId]
		switch {
		case found && !m.Critical():
			mgr.log.Warn("module: unregistering non-critical module after handler failure",
				log.String("module", m.Name()), log.String("message", e.Message))
			fc.ClearErrors(e.SourceTypeId, e.SourceKey)
			mgr.unregisterModule(m)
		case found && m.Critical():
			mgr.log.Error("module: critical module handler failure",
				log.String("module", m.Name()), log.String("message", e.Message))
		case !found && !seenBad[e.SourceTypeId]:
			seenBad[e.SourceTypeId] = true
			mgr.log.Error("module: error from unattributable module",
				log.Uint32("type_id_low32", uint32(e.SourceTypeId)), log.String("message", e.Message))
		}
	}
}
