package stage

import "time"

// MillisSince returns the elapsed wall clock milliseconds since start,
// used for the per-phase duration metrics.
func MillisSince(start time.Time) int64 {
	elapsed := time.Since(start)
	if elapsed < 0 {
		return 0
	}
	return elapsed.Milliseconds()
}
