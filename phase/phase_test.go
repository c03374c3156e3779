// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package phase

import "testing"

func TestRegistryIndices(t *testing.T) {
	for i := 0; i < Count; i++ {
		if Registry[i].Id != Id(i) {
			t.Fatalf("Registry[%d].Id = %v, want %v", i, Registry[i].Id, Id(i))
		}
	}
}

func TestCountNeverValid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("DescOf(count) did not panic")
		}
	}()
	DescOf(count)
}

func TestPredicatesMatchRegistry(t *testing.T) {
	for i := 0; i < Count; i++ {
		id := Id(i)
		d := DescOf(id)
		if got := CanMutateGameState(id); got != d.AllowedMutations.Has(GameState) {
			t.Errorf("%v: CanMutateGameState = %v", id, got)
		}
		if got := CanMutateFrameState(id); got != d.AllowedMutations.Has(FrameState) {
			t.Errorf("%v: CanMutateFrameState = %v", id, got)
		}
		if got := CanMutateEngineState(id); got != d.AllowedMutations.Has(EngineState) {
			t.Errorf("%v: CanMutateEngineState = %v", id, got)
		}
	}
}

func TestSynchronousPhasesNeverUseCoroutines(t *testing.T) {
	for i := 0; i < Count; i++ {
		id := Id(i)
		m := DescOf(id).Model
		if m == SynchronousOrdered || m == EngineInternal {
			if UsesCoroutines(id) {
				t.Errorf("%v: synchronous/engine-internal phase reports UsesCoroutines", id)
			}
		}
	}
}

func TestMask(t *testing.T) {
	m := MaskOf(Input, Render)
	if !m.Has(Input) || !m.Has(Render) {
		t.Fatal("mask missing expected members")
	}
	if m.Has(Gameplay) {
		t.Fatal("mask has unexpected member")
	}
	if All.Has(count) {
		t.Fatal("All must not contain the terminator")
	}
}

func TestBarrierRegistryOnePerPhase(t *testing.T) {
	seen := map[Id]bool{}
	for _, b := range BarrierRegistry {
		if seen[b.AfterPhase] {
			t.Fatalf("duplicate barrier for phase %v", b.AfterPhase)
		}
		seen[b.AfterPhase] = true
	}
}
