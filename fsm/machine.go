// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package fsm

import (
	"fmt"
	"sync"

	"oxygen/telemetry/log"
)

// Machine drives one instance of a closed, statically-typed state
// chart (spec.md §4.7). Machines are single-threaded per instance:
// Handle takes an internal lock only to make concurrent callers safe,
// never to parallelize dispatch.
type Machine struct {
	mu      sync.Mutex
	states  map[string]State
	current State
	log     *log.Logger

	terminal    bool
	terminalErr error
}

// New constructs a Machine starting in initial, with states (including
// initial) addressable as TransitionTo targets.
func New(logger *log.Logger, initial State, states ...State) *Machine {
	if logger == nil {
		logger = log.Nop()
	}
	byName := make(map[string]State, len(states)+1)
	byName[initial.Name()] = initial
	for _, s := range states {
		byName[s.Name()] = s
	}
	return &Machine{states: byName, current: initial, log: logger}
}

// Current returns the name of the machine's current state.
func (m *Machine) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Name()
}

// Terminal reports whether the machine has reached an absorbing state.
func (m *Machine) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminal
}

// Err returns the error a TerminateWithError action carried, or nil.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminalErr
}

// Handle relays event to the current state's Handle and applies the
// resulting Action exactly once (spec.md §4.7 testable property),
// following TransitionTo/ReissueEvent chains to their resting point. A
// terminal machine ignores further events and returns DoNothing.
func (m *Machine) Handle(event Event) Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminal {
		return DoNothing()
	}
	return m.dispatch(event)
}

func (m *Machine) dispatch(event Event) Action {
	act := m.invoke(func() Action { return m.current.Handle(event) })
	return m.apply(event, act)
}

func (m *Machine) apply(event Event, act Action) Action {
	switch act.kind {
	case kindTransitionTo:
		return m.transition(event, act)
	case kindReissueEvent:
		return m.dispatch(event)
	case kindTerminate:
		m.terminal = true
	case kindTerminateWithError:
		m.terminal = true
		m.terminalErr = fmt.Errorf("fsm: %s", act.message)
	case kindReportError:
		m.log.Warn("fsm: non-fatal report",
			log.String("state", m.current.Name()), log.String("message", act.message))
	}
	return act
}

// transition performs leave/enter around act.target, honoring the
// cancellation and terminal-propagation rules spec.md §4.7 states for
// OnLeave/OnEnter.
func (m *Machine) transition(event Event, act Action) Action {
	target, ok := m.states[act.target]
	if !ok {
		panic(fmt.Sprintf("fsm: TransitionTo references unknown state %q", act.target))
	}

	leaveAct := m.invoke(func() Action { return m.current.OnLeave(event) })
	if leaveAct.isTerminal() {
		// Transition canceled; the machine terminates in the previous state.
		return m.apply(event, leaveAct)
	}

	m.current = target
	enterAct := m.invoke(func() Action { return target.OnEnter(event, act.data) })
	if enterAct.isTerminal() {
		// Transition completed, but the freshly entered state is terminal.
		return m.apply(event, enterAct)
	}
	if enterAct.kind == kindReissueEvent {
		return m.dispatch(event)
	}
	return act
}

// invoke runs fn, converting a panic into TerminateWithError without
// letting it escape (spec.md §4.7: "if a hook throws, the machine
// catches and converts to TerminateWithError").
func (m *Machine) invoke(fn func() Action) (act Action) {
	defer func() {
		if r := recover(); r != nil {
			act = TerminateWithError(fmt.Sprint(r))
		}
	}()
	return fn()
}
