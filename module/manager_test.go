package module

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"oxygen/frame"
	"oxygen/phase"
)

// recordingModule mutates frame state from whichever phases are
// listed in its Phases mask, and optionally fails in OnGameplay.
type recordingModule struct {
	Base
	failInGameplay bool
	shutdownCalled bool
}

func (m *recordingModule) OnShutdown() { m.shutdownCalled = true }

func (m *recordingModule) OnInput(ctx context.Context, fc *frame.Context) error {
	fc.AddView(frame.View{})
	return nil
}

func (m *recordingModule) OnGameplay(ctx context.Context, fc *frame.Context) error {
	if m.failInGameplay {
		panic("boom")
	}
	return nil
}

func newTestManager() *Manager {
	return NewManager(nil)
}

func newTestContext(p phase.Id) *frame.Context {
	tag := frame.NewEngineTag()
	fc := frame.New(tag, &frame.Versioner{}, 1, 0, time.Time{})
	fc.SetPhase(tag, p)
	return fc
}

// scenario 1: phase ordering and permissions (spec.md §8 scenario 1).
func TestManager_PhaseOrderingAndPermissions(t *testing.T) {
	mgr := newTestManager()
	m := &recordingModule{Base: Base{Id: 1, NameStr: "m1", Phases: phase.MaskOf(phase.Input, phase.Gameplay)}}
	ok := mgr.Register(m, nil)
	require.True(t, ok)

	fc := newTestContext(phase.Input)
	mgr.DispatchBarriered(context.Background(), fc, phase.Input, func(mod Module) func(context.Context, *frame.Context) error {
		return mod.(*recordingModule).OnInput
	})
	require.Empty(t, fc.Errors())
	require.Len(t, fc.Views(), 1)
}

// scenario 2: critical vs. non-critical module failure (spec.md §8
// scenario 2).
func TestManager_CriticalVsNonCriticalFailure(t *testing.T) {
	mgr := newTestManager()
	a := &recordingModule{Base: Base{Id: 1, NameStr: "A", Crit: false, Phases: phase.MaskOf(phase.Gameplay)}, failInGameplay: true}
	b := &recordingModule{Base: Base{Id: 2, NameStr: "B", Crit: true, Phases: phase.MaskOf(phase.Gameplay)}, failInGameplay: true}
	require.True(t, mgr.Register(a, nil))
	require.True(t, mgr.Register(b, nil))

	fc := newTestContext(phase.Gameplay)
	mgr.DispatchBarriered(context.Background(), fc, phase.Gameplay, func(mod Module) func(context.Context, *frame.Context) error {
		return mod.(*recordingModule).OnGameplay
	})

	mods := mgr.Modules()
	require.Len(t, mods, 1)
	require.Equal(t, "B", mods[0].Name())
	require.True(t, a.shutdownCalled)

	errs := fc.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, uint64(2), errs[0].SourceTypeId)
}

func TestManager_RegisterRejectedOnAttachFailure(t *testing.T) {
	mgr := newTestManager()
	m := &rejectingModule{Base: Base{Id: 9, NameStr: "nope"}}
	ok := mgr.Register(m, nil)
	require.False(t, ok)
	require.Empty(t, mgr.Modules())
}

type rejectingModule struct {
	Base
}

func (m *rejectingModule) OnAttached(AttachEngine) bool { return false }

func TestManager_ShutdownReverseOrder(t *testing.T) {
	mgr := newTestManager()
	var order []string
	a := &orderModule{Base: Base{Id: 1, NameStr: "a"}, record: &order}
	b := &orderModule{Base: Base{Id: 2, NameStr: "b"}, record: &order}
	require.True(t, mgr.Register(a, nil))
	require.True(t, mgr.Register(b, nil))

	mgr.Shutdown()
	require.Equal(t, []string{"b", "a"}, order)
}

type orderModule struct {
	Base
	record *[]string
}

func (m *orderModule) OnShutdown() { *m.record = append(*m.record, m.NameStr) }

func TestManager_PreRenderOrdersRendererLast(t *testing.T) {
	mgr := newTestManager()
	rec := &orderRecorder{}
	other := &preRenderModule{Base: Base{Id: 1, NameStr: "other", Phases: phase.MaskOf(phase.PreRender)}, rec: rec, name: "other"}
	renderer := &preRenderModule{Base: Base{Id: 2, NameStr: "renderer", Phases: phase.MaskOf(phase.PreRender)}, rec: rec, name: "renderer"}
	require.True(t, mgr.Register(other, nil))
	require.True(t, mgr.Register(renderer, nil))
	mgr.SetRendererTypeId(2)

	fc := newTestContext(phase.PreRender)
	mgr.DispatchBarriered(context.Background(), fc, phase.PreRender, func(mod Module) func(context.Context, *frame.Context) error {
		return mod.(*preRenderModule).OnPreRender
	})
	require.Equal(t, "renderer", rec.order[len(rec.order)-1])
	require.Len(t, rec.order, 2)
}

type orderRecorder struct {
	order []string
}

type preRenderModule struct {
	Base
	rec  *orderRecorder
	name string
}

func (m *preRenderModule) OnPreRender(ctx context.Context, fc *frame.Context) error {
	m.rec.order = append(m.rec.order, m.name)
	return nil
}
