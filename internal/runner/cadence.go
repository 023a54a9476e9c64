package runner

import "time"

// ShouldRunNow reports whether a job with the given cadence is due at now,
// given when it last ran. It is a pure function deliberately decoupled from
// any platform timer, so cadence logic is testable without waiting on the
// wall clock. A zero lastRun means the job has never run and is due.
func ShouldRunNow(lastRun time.Time, cadence time.Duration, now time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun) >= cadence
}
