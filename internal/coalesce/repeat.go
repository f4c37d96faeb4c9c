package coalesce

import (
	"sync"
	"time"
)

type repeatState struct {
	windowStart time.Time
	count       int
	suppressed  bool
	timer       *time.Timer
}

// RepeatSuppressor collapses identical repeated events for one subject, the
// known respawn-loop symptom. Past the threshold within a window the
// narrative feed goes quiet for that subject; when the window elapses one
// loop-detected summary fires with the total count. Statistics are not
// routed through here and always record every occurrence.
type RepeatSuppressor struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	subjects  map[string]*repeatState
	notify    func(subject string, count int)
	stopped   bool
}

func NewRepeatSuppressor(window time.Duration, threshold int, notify func(subject string, count int)) *RepeatSuppressor {
	return &RepeatSuppressor{
		window:    window,
		threshold: threshold,
		subjects:  make(map[string]*repeatState),
		notify:    notify,
	}
}

// Allow reports whether this occurrence may go to the narrative feed.
func (s *RepeatSuppressor) Allow(subject string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return true
	}

	st, ok := s.subjects[subject]
	if !ok || now.Sub(st.windowStart) > s.window {
		if ok && st.timer != nil {
			st.timer.Stop()
		}
		s.subjects[subject] = &repeatState{windowStart: now, count: 1}
		return true
	}

	st.count++
	if !st.suppressed {
		if st.count > s.threshold {
			st.suppressed = true
			remaining := s.window - now.Sub(st.windowStart)
			st.timer = time.AfterFunc(remaining, func() { s.expire(subject) })
			return false
		}
		return true
	}
	return false
}

func (s *RepeatSuppressor) expire(subject string) {
	s.mu.Lock()
	st, ok := s.subjects[subject]
	if ok {
		delete(s.subjects, subject)
	}
	s.mu.Unlock()

	if ok && st.suppressed {
		s.notify(subject, st.count)
	}
}

// Stop cancels pending window timers and emits summaries for every subject
// currently in a suppressed state.
func (s *RepeatSuppressor) Stop() {
	s.mu.Lock()
	s.stopped = true
	pending := make(map[string]*repeatState)
	for subject, st := range s.subjects {
		if st.timer != nil {
			st.timer.Stop()
		}
		if st.suppressed {
			pending[subject] = st
		}
	}
	s.subjects = make(map[string]*repeatState)
	s.mu.Unlock()

	for subject, st := range pending {
		s.notify(subject, st.count)
	}
}
