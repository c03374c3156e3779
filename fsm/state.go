// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package fsm

import "fmt"

// Event is whatever payload a machine dispatches to its states. It is
// left as any so a single substrate serves every closed protocol- and
// lifecycle-state enumeration in the engine.
type Event any

// HandlerFunc computes the Action for one event.
type HandlerFunc func(Event) Action

// State is one named node of a Machine. OnEnter and OnLeave are
// lifecycle hooks; States embedding Base default both to returning
// Continue.
type State interface {
	Name() string
	Handle(event Event) Action
	OnEnter(event Event, data any) Action
	OnLeave(event Event) Action
}

// Handlers is a per-state dispatch table built with Will, On, and
// ByDefault (spec.md §4.7's composition helpers).
type Handlers struct {
	byType  map[string]HandlerFunc
	classOf func(Event) string
	def     HandlerFunc
}

// On declares the handler for events whose class matches eventType.
// Which events belong to a class is decided by classifyByType, the
// classifier Will installs: eventType is compared against the event's
// EventType() string when the event has that method, and against
// fmt.Sprintf("%T", event) otherwise.
func On(eventType string, fn HandlerFunc) func(*Handlers) {
	return func(h *Handlers) { h.byType[eventType] = fn }
}

// ByDefault declares the fallback handler for any event lacking a
// specific On overload.
func ByDefault(fn HandlerFunc) func(*Handlers) {
	return func(h *Handlers) { h.def = fn }
}

// Will composes a set of On/ByDefault declarations, classified by
// classifyByType, into one state's Handle function.
func Will(opts ...func(*Handlers)) *Handlers {
	h := &Handlers{byType: make(map[string]HandlerFunc), classOf: classifyByType}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle dispatches event to its class's handler, or the default if
// none matches, or DoNothing if neither is declared.
func (h *Handlers) Handle(event Event) Action {
	if fn, ok := h.byType[h.classOf(event)]; ok {
		return fn(event)
	}
	if h.def != nil {
		return h.def(event)
	}
	return DoNothing()
}

func classifyByType(event Event) string {
	if event == nil {
		return "<nil>"
	}
	type typed interface{ EventType() string }
	if t, ok := event.(typed); ok {
		return t.EventType()
	}
	return fmt.Sprintf("%T", event)
}

// Base implements State with no-op lifecycle hooks, so concrete states
// need only embed it and supply Name/Handle (usually via a *Handlers
// built by Will).
type Base struct {
	StateName string
	Handlers  *Handlers
}

func (b *Base) Name() string { return b.StateName }

func (b *Base) Handle(event Event) Action {
	if b.Handlers == nil {
		return DoNothing()
	}
	return b.Handlers.Handle(event)
}

func (b *Base) OnEnter(Event, any) Action { return Continue() }
func (b *Base) OnLeave(Event) Action      { return Continue() }
