// Package clock provides the monotonic clock source and single-shot alarm
// service behind the ranging-error streak and background-app timers
// (spec.md §4.9, §2 item 10). The teacher has no direct analog (its
// per-rule timers are driven by the external gtp5g netlink periodic
// reporter, which is out of scope here); this is written in the same
// dependency-light style the teacher uses for its own small leaf types.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts time.Now/time.AfterFunc so tests can inject a fake one
// instead of sleeping real wall-clock durations.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Alarm
}

// Alarm is a single-shot, cancelable timer handle.
type Alarm interface {
	Stop() bool
}

// Real is the production Clock, backed by the standard library.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Alarm {
	return realAlarm{time.AfterFunc(d, f)}
}

type realAlarm struct{ t *time.Timer }

func (a realAlarm) Stop() bool { return a.t.Stop() }

// Service arms and cancels the single-shot alarms spec.md §4.9 describes:
// ranging-error-streak and background-app deadlines, one per session per
// kind, each rearmed (not accumulated) on the next triggering event.
type Service struct {
	clock Clock

	mu     sync.Mutex
	alarms map[alarmKey]Alarm
}

type alarmKey struct {
	handle uint64
	kind   string
}

// NewService constructs an alarm service over the given Clock. Passing
// Real{} gives production behavior.
func NewService(clock Clock) *Service {
	return &Service{clock: clock, alarms: make(map[alarmKey]Alarm)}
}

// Arm (re)arms the named alarm for handle, canceling any previous alarm of
// the same kind first so timers never accumulate (spec.md §4.9: "single-
// shot and rearmed on the next triggering event").
func (s *Service) Arm(handle uint64, kind string, after time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := alarmKey{handle, kind}
	if existing, ok := s.alarms[key]; ok {
		existing.Stop()
	}
	s.alarms[key] = s.clock.AfterFunc(after, fire)
}

// Cancel stops the named alarm for handle, if armed.
func (s *Service) Cancel(handle uint64, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := alarmKey{handle, kind}
	if existing, ok := s.alarms[key]; ok {
		existing.Stop()
		delete(s.alarms, key)
	}
}

// CancelAll stops every alarm for handle, called on session close
// (spec.md §4.9: "Both are canceled on session close").
func (s *Service) CancelAll(handle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, alarm := range s.alarms {
		if key.handle == handle {
			alarm.Stop()
			delete(s.alarms, key)
		}
	}
}

// Alarm kind constants used across the codebase so callers don't
// duplicate string literals.
const (
	KindRangingErrorStreak = "ranging_error_streak"
	KindBackgroundApp      = "background_app"
)
