package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestArmReplacesPrevious(t *testing.T) {
	timers := NewTimers()
	var first, second atomic.Int32

	timers.Arm("cp-1", KindStart, time.Now().Add(30*time.Millisecond), func() { first.Add(1) })
	timers.Arm("cp-1", KindStart, time.Now().Add(30*time.Millisecond), func() { second.Add(1) })

	waitFor(t, time.Second, func() bool { return second.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatalf("replaced timer fired anyway")
	}
}

func TestKindsAreIndependent(t *testing.T) {
	timers := NewTimers()
	var fired atomic.Int32

	timers.Arm("cp-1", KindStart, time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })
	timers.Arm("cp-1", KindStop, time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })

	waitFor(t, time.Second, func() bool { return fired.Load() == 2 })
}

func TestSlotClearedBeforeAction(t *testing.T) {
	timers := NewTimers()
	cleared := make(chan bool, 1)

	timers.Arm("cp-1", KindStart, time.Now().Add(10*time.Millisecond), func() {
		_, ok := timers.Deadline("cp-1", KindStart)
		cleared <- !ok
	})

	select {
	case ok := <-cleared:
		if !ok {
			t.Fatalf("slot still armed inside its own action")
		}
	case <-time.After(time.Second):
		t.Fatalf("timer never fired")
	}
}

func TestCancel(t *testing.T) {
	timers := NewTimers()
	var fired atomic.Int32

	timers.Arm("cp-1", KindStop, time.Now().Add(30*time.Millisecond), func() { fired.Add(1) })
	if !timers.Cancel("cp-1", KindStop) {
		t.Fatalf("expected a pending timer to cancel")
	}
	if timers.Cancel("cp-1", KindStop) {
		t.Fatalf("second cancel should find nothing")
	}

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("cancelled timer fired")
	}
}

func TestDeadline(t *testing.T) {
	timers := NewTimers()
	at := time.Now().Add(time.Hour)

	timers.Arm("cp-1", KindStart, at, func() {})
	got, ok := timers.Deadline("cp-1", KindStart)
	if !ok || !got.Equal(at) {
		t.Fatalf("expected deadline %v, got %v (ok=%v)", at, got, ok)
	}

	if _, ok := timers.Deadline("cp-2", KindStart); ok {
		t.Fatalf("unexpected deadline for unknown identity")
	}
}

func TestCancelAll(t *testing.T) {
	timers := NewTimers()
	var fired atomic.Int32

	timers.Arm("cp-1", KindStart, time.Now().Add(30*time.Millisecond), func() { fired.Add(1) })
	timers.Arm("cp-1", KindStop, time.Now().Add(30*time.Millisecond), func() { fired.Add(1) })
	timers.CancelAll("cp-1")

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("cancelled timers fired")
	}
}
