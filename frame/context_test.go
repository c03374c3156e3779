package frame

import (
	"testing"
	"time"

	"oxygen/phase"
)

func TestPhaseGatedMutation(t *testing.T) {
	tag := NewEngineTag()
	v := &Versioner{}
	c := New(tag, v, 1, 0, time.Now())

	c.SetPhase(tag, phase.Input)
	c.SetInputSnapshot(tag, InputSnapshot{Seq: 1})
	if got := c.InputSnapshot(); got.Seq != 1 {
		t.Fatalf("InputSnapshot = %+v", got)
	}

	c.SetPhase(tag, phase.Gameplay)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("SetInputSnapshot outside Input phase did not panic")
			}
		}()
		c.SetInputSnapshot(tag, InputSnapshot{Seq: 2})
	}()
}

func TestAddViewRequiresFrameStateMutation(t *testing.T) {
	tag := NewEngineTag()
	v := &Versioner{}
	c := New(tag, v, 1, 0, time.Now())

	c.SetPhase(tag, phase.NetworkReconciliation) // GameState|FrameState: allowed
	c.AddView(View{Name: "main"})
	if len(c.Views()) != 1 {
		t.Fatalf("expected 1 view, got %d", len(c.Views()))
	}

	c.SetPhase(tag, phase.PreRender) // FrameState allowed too
	c.AddView(View{Name: "shadow"})
	if len(c.Views()) != 2 {
		t.Fatalf("expected 2 views, got %d", len(c.Views()))
	}

	c.SetPhase(tag, phase.Present) // None: not allowed
	defer func() {
		if recover() == nil {
			t.Fatal("AddView during a None-mutation phase did not panic")
		}
	}()
	c.AddView(View{Name: "forbidden"})
}

func TestPublishSnapshotOnceAndMonotonicVersion(t *testing.T) {
	v := &Versioner{}
	tag1 := NewEngineTag()
	c1 := New(tag1, v, 1, 0, time.Now())
	c1.SetPhase(tag1, phase.Snapshot)
	s1 := c1.PublishSnapshot(tag1, true)

	tag2 := NewEngineTag()
	c2 := New(tag2, v, 2, 1, time.Now())
	c2.SetPhase(tag2, phase.Snapshot)
	s2 := c2.PublishSnapshot(tag2, true)

	if s2.Version <= s1.Version {
		t.Fatalf("snapshot versions not strictly increasing: %d then %d", s1.Version, s2.Version)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("second PublishSnapshot on the same frame did not panic")
		}
	}()
	c1.PublishSnapshot(tag1, true)
}

func TestErrorClearByTypeAndKey(t *testing.T) {
	tag := NewEngineTag()
	v := &Versioner{}
	c := New(tag, v, 1, 0, time.Now())

	c.ReportError(ErrorReport{SourceTypeId: 1, Message: "a", SourceKey: "x"})
	c.ReportError(ErrorReport{SourceTypeId: 1, Message: "b", SourceKey: "y"})
	c.ReportError(ErrorReport{SourceTypeId: 2, Message: "c"})

	c.ClearErrors(1, "x")
	errs := c.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 remaining errors, got %d: %+v", len(errs), errs)
	}

	c.ClearErrors(1, "")
	errs = c.Errors()
	if len(errs) != 1 || errs[0].SourceTypeId != 2 {
		t.Fatalf("expected only type-2 error left, got %+v", errs)
	}
}
