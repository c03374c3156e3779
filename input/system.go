package input

import (
	"context"
	"sync"

	"oxygen/frame"
	"oxygen/module"
	"oxygen/phase"
	"oxygen/platform"
)

// SystemTypeId is the stable EngineModule type id System registers
// under. Applications pass this to engine.SetInputSystemModule so the
// coordinator knows which module's InputSnapshot to publish after the
// Input phase's barrier (spec.md §4.2).
const SystemTypeId uint64 = 0x6f78_696e_7075_7401 // "oxinput\x01"

// System is the built-in InputSystem module: it pumps platform.Event
// values during the Input phase, maps them through a Mapper into
// Snapshot, and exposes the result via InputSnapshot (module.
// InputProducer). Applications may use System directly or treat it as
// the reference implementation for their own InputSystem module.
type System struct {
	module.Base

	plat   platform.Platform
	mapper *Mapper

	mu        sync.Mutex
	held      map[Action]bool
	triggered []Action
	pointerX  float64
	pointerY  float64
	wheelDX   float64
	wheelDY   float64
	seq       uint64
}

// NewSystem constructs a System. plat supplies the platform event
// queue; mapper resolves raw keys/buttons into Actions.
func NewSystem(plat platform.Platform, mapper *Mapper) *System {
	return &System{
		Base: module.Base{
			Id:      SystemTypeId,
			NameStr: "InputSystem",
			Prio:    0,
			Crit:    true,
			Phases:  phase.MaskOf(phase.Input),
		},
		plat:   plat,
		mapper: mapper,
		held:   make(map[Action]bool),
	}
}

// OnInput drains queued platform events, updates held/triggered action
// state and pointer/wheel deltas, and advances the published sequence
// number. It never suspends: draining a non-blocking event queue is
// the whole of the work (spec.md §5 "Synchronous-ordered phases must
// not suspend" does not apply here since Input is barriered-
// concurrency, but OnInput still returns promptly either way).
func (s *System) OnInput(ctx context.Context, fc *frame.Context) error {
	if s.plat == nil {
		return nil
	}
	events := s.plat.PumpEvents()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.triggered = s.triggered[:0]
	s.wheelDX, s.wheelDY = 0, 0

	for _, e := range events {
		switch e.Kind {
		case platform.KeyEvent:
			data, ok := e.Data.(platform.KeyEventData)
			if !ok {
				continue
			}
			s.applyKey(data)
		case platform.MouseButtonEvent:
			data, ok := e.Data.(platform.MouseButtonEventData)
			if !ok {
				continue
			}
			s.pointerX, s.pointerY = data.X, data.Y
			s.applyButton(data)
		case platform.MouseMotionEvent:
			data, ok := e.Data.(platform.MouseMotionEventData)
			if !ok {
				continue
			}
			s.pointerX, s.pointerY = data.X, data.Y
		case platform.MouseWheelEvent:
			data, ok := e.Data.(platform.MouseWheelEventData)
			if !ok {
				continue
			}
			s.wheelDX += data.DX
			s.wheelDY += data.DY
		}
	}
	s.seq++
	return nil
}

func (s *System) applyKey(data platform.KeyEventData) {
	if s.mapper == nil {
		return
	}
	action, ok := s.mapper.ResolveKey(data.Key)
	if !ok {
		return
	}
	s.setAction(action, data.Pressed)
}

func (s *System) applyButton(data platform.MouseButtonEventData) {
	if s.mapper == nil {
		return
	}
	action, ok := s.mapper.ResolveButton(data.Button)
	if !ok {
		return
	}
	s.setAction(action, data.Pressed)
}

func (s *System) setAction(a Action, pressed bool) {
	wasHeld := s.held[a]
	if pressed {
		s.held[a] = true
		if !wasHeld {
			s.triggered = append(s.triggered, a)
		}
	} else {
		delete(s.held, a)
	}
}

// InputSnapshot implements module.InputProducer.
func (s *System) InputSnapshot() frame.InputSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := make(map[Action]bool, len(s.held))
	for a, v := range s.held {
		held[a] = v
	}
	return frame.InputSnapshot{
		Seq: s.seq,
		Value: Snapshot{
			Held:      held,
			Triggered: append([]Action(nil), s.triggered...),
			PointerX:  s.pointerX,
			PointerY:  s.pointerY,
			WheelDX:   s.wheelDX,
			WheelDY:   s.wheelDY,
		},
	}
}
