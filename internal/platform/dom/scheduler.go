package dom

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs delayed UI callbacks (fades, deferred removals, auto-hide).
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler runs callbacks on wall-clock timers in their own goroutines.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// VirtualScheduler keeps its own clock. Callbacks run only inside Advance,
// on the goroutine that calls it, in due-time order.
type VirtualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*virtualTimer
}

type virtualTimer struct {
	s       *VirtualScheduler
	due     time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func NewVirtualScheduler(start time.Time) *VirtualScheduler {
	return &VirtualScheduler{now: start}
}

func (s *VirtualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &virtualTimer{s: s, due: s.now.Add(d), seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Now returns the virtual clock.
func (s *VirtualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending counts timers that have neither fired nor been stopped.
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every callback that falls due,
// including callbacks scheduled by earlier callbacks within the same window.
func (s *VirtualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	for {
		next := s.nextDueLocked(target)
		if next == nil {
			break
		}
		next.fired = true
		s.now = next.due
		s.mu.Unlock()
		next.f()
		s.mu.Lock()
	}
	s.now = target
	s.compactLocked()
	s.mu.Unlock()
}

func (s *VirtualScheduler) nextDueLocked(target time.Time) *virtualTimer {
	var best *virtualTimer
	for _, t := range s.timers {
		if t.stopped || t.fired || t.due.After(target) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (s *VirtualScheduler) compactLocked() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].seq < live[j].seq })
	s.timers = live
}

func (t *virtualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
