package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"oxygen/config"
	"oxygen/graphics"
	"oxygen/module"
	"oxygen/phase"
	"oxygen/platform"
)

type noopModule struct {
	module.Base
	attached bool
}

func (m *noopModule) OnAttached(module.AttachEngine) bool {
	m.attached = true
	return true
}

func TestRegisterModuleCallsOnAttached(t *testing.T) {
	e := New(Options{Platform: platform.NewFake(), Backend: graphics.NewFake()})
	m := &noopModule{Base: module.Base{Id: 1, NameStr: "noop", Phases: phase.MaskOf(phase.FrameStart)}}
	require.True(t, e.RegisterModule(m))
	require.True(t, m.attached)
}

func TestRunHonorsFrameCount(t *testing.T) {
	cfg := config.Default()
	cfg.FrameCount = 3
	cfg.TargetFPS = 0

	e := New(Options{Config: cfg, Platform: platform.NewFake(), Backend: graphics.NewFake()})
	require.NoError(t, e.Run(context.Background()))
}

func TestEngineConfigReflectsStore(t *testing.T) {
	cfg := config.Default()
	cfg.TargetFPS = 30
	e := New(Options{Config: cfg})

	got, ok := e.EngineConfig().(config.EngineConfig)
	require.True(t, ok)
	require.Equal(t, uint(30), got.TargetFPS)
}

func TestUnregisterModuleRunsShutdown(t *testing.T) {
	e := New(Options{Platform: platform.NewFake()})
	shutdownCalled := false
	m := &shutdownModule{Base: module.Base{Id: 2, NameStr: "shut", Phases: phase.MaskOf(phase.FrameStart)}, onShutdown: func() { shutdownCalled = true }}
	require.True(t, e.RegisterModule(m))
	e.UnregisterModule("shut")
	require.True(t, shutdownCalled)
}

type shutdownModule struct {
	module.Base
	onShutdown func()
}

func (m *shutdownModule) OnShutdown() { m.onShutdown() }
