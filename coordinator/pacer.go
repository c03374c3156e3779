package coordinator

import (
	"runtime"
	"time"
)

// pacer implements spec.md §4.2's pacing algorithm: maintain a
// monotonically advancing deadline, resynchronize after a large stall,
// sleep until shortly before the deadline, then cooperatively
// yield-poll the remainder. It is a separate type so coordinator tests
// can exercise the pacing math without real sleeps.
type pacer struct {
	safetyMargin time.Duration
	nextDeadline time.Time

	nowFunc   func() time.Time
	sleepFunc func(time.Duration)
}

func newPacer(safetyMargin time.Duration) pacer {
	return pacer{
		safetyMargin: safetyMargin,
		nowFunc:      time.Now,
		sleepFunc:    time.Sleep,
	}
}

// waitNext blocks until the next frame's deadline and returns the
// measured slip: how far past the deadline the wait actually returned
// (zero or positive; a negative value never results because the
// yield-poll loop only exits once now >= deadline).
func (p *pacer) waitNext(period time.Duration) time.Duration {
	now := p.nowFunc()

	if p.nextDeadline.IsZero() {
		p.nextDeadline = now.Add(period)
	} else if now.After(p.nextDeadline.Add(period)) {
		// Stalled badly enough that catching up would mean bursting
		// frames; resynchronize instead of accumulating debt.
		p.nextDeadline = now.Add(period)
	} else {
		p.nextDeadline = p.nextDeadline.Add(period)
	}

	sleepUntil := p.nextDeadline.Add(-p.safetyMargin)
	if d := sleepUntil.Sub(now); d > 0 {
		p.sleepFunc(d)
	}

	for {
		now = p.nowFunc()
		if !now.Before(p.nextDeadline) {
			return now.Sub(p.nextDeadline)
		}
		runtime.Gosched()
	}
}
