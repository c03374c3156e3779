package frame

import "time"

// ModuleTiming is the timing data published for modules each frame
// (spec.md §3).
type ModuleTiming struct {
	// Delta is the wall-clock time since the previous frame.
	Delta time.Duration
	// Scale multiplies Delta before it is treated as game time
	// (0 == paused).
	Scale float64
	// Paused is true when Scale == 0.
	Paused bool
	// FixedDelta is the nominal fixed-simulation step.
	FixedDelta time.Duration
	// SubstepCount is how many FixedSimulation dispatches ran this
	// frame.
	SubstepCount int
	// Alpha is the fixed-simulation interpolation factor in [0,1]:
	// accumulator / FixedDelta after the substep loop.
	Alpha float64
	// FPS is the frames-per-second implied by Delta (one second divided
	// by this frame's Delta, 0 when Delta is 0); it is not smoothed.
	FPS float64
}
