// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package fsm provides the small, statically-typed state machine
// substrate used by protocol- and lifecycle-bearing components inside
// the engine (spec.md §4.7). Each state's Handle returns one Action
// drawn from a closed set; Machine relays events to the current
// state's handler and applies the returned Action exactly once.
package fsm

import "fmt"

type actionKind int

const (
	kindContinue actionKind = iota
	kindDoNothing
	kindTransitionTo
	kindTerminate
	kindTerminateWithError
	kindReissueEvent
	kindReportError
)

// Action is the closed set of outcomes a state Handle, OnEnter, or
// OnLeave may return. Construct one with Continue, DoNothing,
// TransitionTo, Terminate, TerminateWithError, ReissueEvent, or
// ReportError; Action has no other constructors.
type Action struct {
	kind    actionKind
	target  string
	data    any
	message string
}

// Continue signals no state change and no side effect.
func Continue() Action { return Action{kind: kindContinue} }

// DoNothing is an explicit no-op, useful as a default handler.
func DoNothing() Action { return Action{kind: kindDoNothing} }

// TransitionTo leaves the current state (invoking its OnLeave) and
// enters target (invoking its OnEnter), optionally carrying data.
func TransitionTo(target string, data ...any) Action {
	var d any
	if len(data) > 0 {
		d = data[0]
	}
	return Action{kind: kindTransitionTo, target: target, data: d}
}

// Terminate puts the machine into an absorbing terminal state.
func Terminate() Action { return Action{kind: kindTerminate} }

// TerminateWithError puts the machine into an absorbing terminal state
// carrying message as its error.
func TerminateWithError(message string) Action {
	return Action{kind: kindTerminateWithError, message: message}
}

// ReissueEvent asks the machine to re-invoke Handle with the same
// event, against the state current after this Action is applied.
func ReissueEvent() Action { return Action{kind: kindReissueEvent} }

// ReportError is a non-fatal report; the machine logs it and continues
// in the current state.
func ReportError(message string) Action {
	return Action{kind: kindReportError, message: message}
}

func (a Action) String() string {
	switch a.kind {
	case kindContinue:
		return "Continue"
	case kindDoNothing:
		return "DoNothing"
	case kindTransitionTo:
		return fmt.Sprintf("TransitionTo(%s)", a.target)
	case kindTerminate:
		return "Terminate"
	case kindTerminateWithError:
		return fmt.Sprintf("TerminateWithError(%s)", a.message)
	case kindReissueEvent:
		return "ReissueEvent"
	case kindReportError:
		return fmt.Sprintf("ReportError(%s)", a.message)
	default:
		return "Action(invalid)"
	}
}

func (a Action) isTerminal() bool {
	return a.kind == kindTerminate || a.kind == kindTerminateWithError
}

// Case pairs a condition with the Action to return when it holds, for
// use with OneOf.
type Case struct {
	cond   bool
	action Action
}

// If builds a Case: when cond is true, OneOf may return action.
func If(cond bool, action Action) Case { return Case{cond: cond, action: action} }

// OneOf returns the action of the first Case whose condition is true,
// or DoNothing if none match. It is the Go rendition of the variant-
// like "alternate path" action spec.md §4.7 calls OneOf<A, B, ...>:
// Go has no sum return type to restrict Handle's result to a subset of
// Action, so OneOf instead picks among a caller-supplied set of
// candidate actions at the call site.
func OneOf(cases ...Case) Action {
	for _, c := range cases {
		if c.cond {
			return c.action
		}
	}
	return DoNothing()
}

// Maybe returns action if cond holds, otherwise DoNothing. It is
// OneOf<A, DoNothing> specialized to a single condition.
func Maybe(cond bool, action Action) Action {
	return OneOf(If(cond, action))
}
