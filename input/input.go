// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package input implements the input subsystem integration spec.md §2
// budgets explicitly ("mapping → context → action triggers"):
// raw platform.Event values are mapped, via a configurable binding
// table, into named action triggers, which System publishes into
// FrameContext as the Input phase's InputSnapshot (spec.md §4.2
// "Input phase contract"). Binding/Key/Button/Modifier are generalized
// from the teacher's wsi.Key/Button/Modifier enums
// (_examples/gviegas-neo3/wsi/wsi.go); the config-file-loadable Mapper
// follows the package-level Load idiom of oxygen/config.
package input

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"oxygen/platform"
)

// Action names a semantic, application-defined input action (e.g.
// "move_forward", "fire", "pause") decoupled from any specific key or
// button.
type Action string

// Binding maps one physical key or button to an Action. Normally one of
// Key/Button is set per Binding; if both are set, the Action is indexed
// under both, for ResolveKey and for ResolveButton.
type Binding struct {
	Action Action          `yaml:"action"`
	Key    *platform.Key   `yaml:"key,omitempty"`
	Button *platform.Button `yaml:"button,omitempty"`
}

// Mapper is a bindings table loaded from configuration.
type Mapper struct {
	Bindings []Binding `yaml:"bindings"`

	byKey    map[platform.Key]Action
	byButton map[platform.Button]Action
}

// NewMapper builds a Mapper's lookup indices from bindings. Call this
// (or LoadMapper) rather than constructing Mapper{Bindings: ...}
// directly: the indices are unexported and only built here, so a Mapper
// constructed directly resolves nothing.
func NewMapper(bindings []Binding) *Mapper {
	m := &Mapper{Bindings: bindings}
	m.index()
	return m
}

// LoadMapper reads a Mapper's bindings from a YAML file.
func LoadMapper(path string) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input: read %s: %w", path, err)
	}
	var m Mapper
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("input: parse %s: %w", path, err)
	}
	m.index()
	return &m, nil
}

func (m *Mapper) index() {
	m.byKey = make(map[platform.Key]Action, len(m.Bindings))
	m.byButton = make(map[platform.Button]Action, len(m.Bindings))
	for _, b := range m.Bindings {
		if b.Key != nil {
			m.byKey[*b.Key] = b.Action
		}
		if b.Button != nil {
			m.byButton[*b.Button] = b.Action
		}
	}
}

// ResolveKey returns the Action bound to key, if any.
func (m *Mapper) ResolveKey(key platform.Key) (Action, bool) {
	a, ok := m.byKey[key]
	return a, ok
}

// ResolveButton returns the Action bound to btn, if any.
func (m *Mapper) ResolveButton(btn platform.Button) (Action, bool) {
	a, ok := m.byButton[btn]
	return a, ok
}

// Snapshot is the concrete payload carried by frame.InputSnapshot.Value
// for frames driven by System: the set of actions currently held down,
// the actions that newly triggered this frame, pointer position, and
// accumulated wheel delta.
type Snapshot struct {
	Held      map[Action]bool
	Triggered []Action
	PointerX  float64
	PointerY  float64
	WheelDX   float64
	WheelDY   float64
}

// IsHeld reports whether action is currently held down.
func (s Snapshot) IsHeld(a Action) bool { return s.Held[a] }
