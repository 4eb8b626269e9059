package study

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ElapsedSeconds is the whole seconds since the attempt started.
func ElapsedSeconds(startedAt, now time.Time) int {
	return int(now.Sub(startedAt) / time.Second)
}

// RemainingSeconds may go negative; negative means overtime and must be shown
// as such, never clamped to zero.
func RemainingSeconds(startedAt time.Time, durationMinutes int, now time.Time) int {
	return durationMinutes*60 - ElapsedSeconds(startedAt, now)
}

// FormatClock renders seconds as [-]H:MM:SS or [-]MM:SS. The sign prefix is
// how overtime is made visually distinct.
func FormatClock(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%02d:%02d", sign, m, s)
}

// TimerSnapshot is one reading of the attempt clock.
type TimerSnapshot struct {
	Elapsed   int // seconds
	Remaining int // seconds; meaningful only when Timed
	Timed     bool
	Overtime  bool
	Frozen    bool
}

// Timer computes elapsed/remaining time for an attempt. It is presentation
// only: the backend enforces any real limit. Once completed the timer
// freezes and keeps returning the last reading.
type Timer struct {
	startedAt       time.Time
	durationMinutes int
	clock           Clock

	mu     sync.Mutex
	frozen *TimerSnapshot
}

// NewTimer builds a timer for an attempt; durationMinutes 0 means untimed
// (elapsed only). clock may be nil for wall time.
func NewTimer(startedAt time.Time, durationMinutes int, clock Clock) *Timer {
	if clock == nil {
		clock = time.Now
	}
	return &Timer{startedAt: startedAt, durationMinutes: durationMinutes, clock: clock}
}

// Snapshot returns the current reading, or the frozen one after Freeze.
func (t *Timer) Snapshot() TimerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen != nil {
		return *t.frozen
	}
	return t.read()
}

func (t *Timer) read() TimerSnapshot {
	now := t.clock()
	snap := TimerSnapshot{
		Elapsed: ElapsedSeconds(t.startedAt, now),
		Timed:   t.durationMinutes > 0,
	}
	if snap.Timed {
		snap.Remaining = RemainingSeconds(t.startedAt, t.durationMinutes, now)
		snap.Overtime = snap.Remaining < 0
	}
	return snap
}

// Freeze stops the clock at its current value, for when the attempt
// completes. Subsequent Snapshot calls return the frozen reading.
func (t *Timer) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen != nil {
		return
	}
	snap := t.read()
	snap.Frozen = true
	t.frozen = &snap
}

// Run recomputes once per second and delivers each reading to onTick until
// the context is canceled or the timer is frozen. The interval ticker is
// released on exit.
func (t *Timer) Run(ctx context.Context, onTick func(TimerSnapshot)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := t.Snapshot()
			onTick(snap)
			if snap.Frozen {
				return
			}
		}
	}
}
