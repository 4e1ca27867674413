package appointment

import "time"

// FreeStarts returns the start times within [windowStart, windowEnd) where an
// appointment of durationMins could be booked without conflicting with busy.
// Candidates are generated every step and the ones before now are skipped.
func FreeStarts(windowStart, windowEnd time.Time, durationMins int, step time.Duration, busy []Slot, now time.Time) []time.Time {
	if durationMins < 0 || step <= 0 || !windowEnd.After(windowStart) {
		return nil
	}
	length := time.Duration(durationMins) * time.Minute

	var starts []time.Time
	for t := windowStart; !t.Add(length).After(windowEnd) && t.Before(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !HasConflict(busy, t, durationMins, nil) {
			starts = append(starts, t)
		}
	}
	return starts
}
