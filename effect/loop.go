package effect

import (
	"context"
	"sort"
	"time"
)

// Handle identifies a scheduled frame callback or timer. The zero Handle is
// never issued.
type Handle uint64

type frameRequest struct {
	handle Handle
	fn     func()
}

type timer struct {
	handle Handle
	due    time.Time
	fn     func()
}

// Loop is a single-threaded cooperative scheduler standing in for the
// display refresh. Callbacks only run inside Step, on the caller's goroutine.
type Loop struct {
	clock  Clock
	next   Handle
	frames []frameRequest
	timers []timer
	live   map[Handle]struct{}
}

// NewLoop creates a loop reading time from clock.
func NewLoop(clock Clock) *Loop {
	if clock == nil {
		clock = RealClock{}
	}
	return &Loop{
		clock: clock,
		live:  make(map[Handle]struct{}),
	}
}

// Clock returns the loop's time source.
func (l *Loop) Clock() Clock { return l.clock }

func (l *Loop) issue() Handle {
	l.next++
	l.live[l.next] = struct{}{}
	return l.next
}

// RequestFrame runs fn on the next Step.
func (l *Loop) RequestFrame(fn func()) Handle {
	h := l.issue()
	l.frames = append(l.frames, frameRequest{handle: h, fn: fn})
	return h
}

// AfterFunc runs fn on the first Step at or after d from now.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	h := l.issue()
	l.timers = append(l.timers, timer{handle: h, due: l.clock.Now().Add(d), fn: fn})
	return h
}

// Cancel drops a pending callback. Cancelling a handle that already ran or
// was already cancelled is a no-op.
func (l *Loop) Cancel(h Handle) {
	delete(l.live, h)
}

// Step runs due timers in due order, then the frame callbacks requested
// before this call. Frames requested during the step, by timers or by other
// frames, run on the next one.
func (l *Loop) Step() {
	now := l.clock.Now()
	frames := l.frames
	l.frames = nil

	var due []timer
	kept := l.timers[:0]
	for _, t := range l.timers {
		if _, ok := l.live[t.handle]; !ok {
			continue
		}
		if now.Before(t.due) {
			kept = append(kept, t)
			continue
		}
		due = append(due, t)
	}
	l.timers = kept
	sort.SliceStable(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	for _, t := range due {
		// An earlier timer may have cancelled this one
		if _, ok := l.live[t.handle]; !ok {
			continue
		}
		delete(l.live, t.handle)
		t.fn()
	}

	for _, f := range frames {
		if _, ok := l.live[f.handle]; !ok {
			continue
		}
		delete(l.live, f.handle)
		f.fn()
	}
}

// Scheduled returns the number of pending frame callbacks.
func (l *Loop) Scheduled() int {
	n := 0
	for _, f := range l.frames {
		if _, ok := l.live[f.handle]; ok {
			n++
		}
	}
	return n
}

// Timers returns the number of pending timers.
func (l *Loop) Timers() int {
	n := 0
	for _, t := range l.timers {
		if _, ok := l.live[t.handle]; ok {
			n++
		}
	}
	return n
}

// Run steps the loop every interval until ctx is done or after returns false.
// after runs once per step, after the step's callbacks.
func (l *Loop) Run(ctx context.Context, interval time.Duration, after func() bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step()
			if after != nil && !after() {
				return nil
			}
		}
	}
}
