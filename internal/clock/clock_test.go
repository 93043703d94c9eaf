package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a deterministic Clock: AfterFunc never actually schedules
// anything on a wall-clock timer. Tests fire pending callbacks explicitly
// via fire(), and stopped/fired alarms can't be fired again.
type fakeClock struct {
	mu      sync.Mutex
	pending map[*fakeAlarm]func()
}

func newFakeClock() *fakeClock { return &fakeClock{pending: make(map[*fakeAlarm]func())} }

func (f *fakeClock) Now() time.Time { return time.Time{} }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Alarm {
	a := &fakeAlarm{clock: f}
	f.mu.Lock()
	f.pending[a] = fn
	f.mu.Unlock()
	return a
}

// fire invokes every still-pending alarm's callback, simulating every
// armed deadline expiring at once.
func (f *fakeClock) fire() {
	f.mu.Lock()
	pending := f.pending
	f.pending = make(map[*fakeAlarm]func())
	f.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (f *fakeClock) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

type fakeAlarm struct {
	clock *fakeClock
}

func (a *fakeAlarm) Stop() bool {
	a.clock.mu.Lock()
	defer a.clock.mu.Unlock()
	if _, ok := a.clock.pending[a]; !ok {
		return false
	}
	delete(a.clock.pending, a)
	return true
}

func TestArm_FiresAfterDeadline(t *testing.T) {
	fc := newFakeClock()
	svc := NewService(fc)

	fired := false
	svc.Arm(1, KindRangingErrorStreak, 5*time.Second, func() { fired = true })
	assert.Equal(t, 1, fc.pendingCount())

	fc.fire()
	assert.True(t, fired)
}

func TestArm_RearmReplacesPreviousAlarm(t *testing.T) {
	fc := newFakeClock()
	svc := NewService(fc)

	var calls int
	svc.Arm(1, KindRangingErrorStreak, time.Second, func() { calls++ })
	svc.Arm(1, KindRangingErrorStreak, time.Second, func() { calls++ })

	require.Equal(t, 1, fc.pendingCount(), "rearm must cancel the previous alarm, not accumulate")
	fc.fire()
	assert.Equal(t, 1, calls)
}

func TestCancel_StopsArmedAlarmBeforeFiring(t *testing.T) {
	fc := newFakeClock()
	svc := NewService(fc)

	fired := false
	svc.Arm(1, KindBackgroundApp, time.Second, func() { fired = true })
	svc.Cancel(1, KindBackgroundApp)

	fc.fire()
	assert.False(t, fired)
}

func TestCancel_OfUnarmedIsSafe(t *testing.T) {
	fc := newFakeClock()
	svc := NewService(fc)
	svc.Cancel(99, KindBackgroundApp) // must not panic
}

func TestCancelAll_StopsEveryKindForHandleOnly(t *testing.T) {
	fc := newFakeClock()
	svc := NewService(fc)

	var aFired, bFired, otherFired bool
	svc.Arm(1, KindRangingErrorStreak, time.Second, func() { aFired = true })
	svc.Arm(1, KindBackgroundApp, time.Second, func() { bFired = true })
	svc.Arm(2, KindRangingErrorStreak, time.Second, func() { otherFired = true })

	svc.CancelAll(1)
	assert.Equal(t, 1, fc.pendingCount())

	fc.fire()
	assert.False(t, aFired)
	assert.False(t, bFired)
	assert.True(t, otherFired)
}

func TestArm_IndependentKindsDoNotInterfere(t *testing.T) {
	fc := newFakeClock()
	svc := NewService(fc)

	var streakFired, bgFired bool
	svc.Arm(1, KindRangingErrorStreak, time.Second, func() { streakFired = true })
	svc.Arm(1, KindBackgroundApp, time.Second, func() { bgFired = true })
	svc.Cancel(1, KindRangingErrorStreak)

	fc.fire()
	assert.False(t, streakFired)
	assert.True(t, bgFired)
}
