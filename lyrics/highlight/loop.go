package highlight

import (
	"context"
	"time"
)

// Clock reports the live playback position. playing is false while paused or
// when no media is attached; such samples are skipped.
type Clock interface {
	Position() (seconds float64, playing bool)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() (float64, bool)

// Position implements Clock.
func (f ClockFunc) Position() (float64, bool) {
	return f()
}

// Run samples clock every interval until ctx is done and hands each changed
// state to sink. The ticker drops ticks when sink is slow, so irregular
// intervals are tolerated.
func Run(ctx context.Context, clock Clock, interval time.Duration, h *Highlighter, sink func(State)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pos, playing := clock.Position()
			if !playing {
				continue
			}
			if st, changed := h.Update(pos); changed && sink != nil {
				sink(st)
			}
		}
	}
}
