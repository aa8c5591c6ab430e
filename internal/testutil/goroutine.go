package testutil

import (
	"runtime"
	"testing"
	"time"
)

const (
	leakWaitDeadline = 10 * time.Second
	leakPollInterval = 50 * time.Millisecond
)

// AssertNoGoroutineLeaks fails the test when the goroutine count does not
// settle back to baseline (plus margin, for runtime helpers and the test
// framework itself) before the deadline. Session and subscriber teardown
// are asynchronous, so the count is polled rather than read once.
func AssertNoGoroutineLeaks(t *testing.T, baseline, margin int) {
	t.Helper()
	deadline := time.Now().Add(leakWaitDeadline)
	for {
		current := runtime.NumGoroutine()
		if current <= baseline+margin {
			return
		}
		if time.Now().After(deadline) {
			t.Errorf("goroutine leak: %d running, baseline %d (margin %d)",
				current, baseline, margin)
			return
		}
		time.Sleep(leakPollInterval)
	}
}
