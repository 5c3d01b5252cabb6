package schedule

import "time"

// SafetyMargin is the minimum delay enforced before issuing a remote start
// after a plug-in notification; the charge point refuses commands that arrive
// sooner. Consumers add it to both the reference instant and the computed
// start before arming timers.
const SafetyMargin = 10 * time.Second

// Cheap-rate window boundaries (local time).
const (
	weekdayStartHour = 6
	weekendStartHour = 14
)

func isWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

// NextStart computes the next instant charging is allowed to begin, given a
// reference instant. Within the allowed window (weekends before 14:00,
// weekdays before 06:00) it returns now; past the window it defers to the next
// midnight.
func NextStart(now time.Time) time.Time {
	limit := weekdayStartHour
	if isWeekend(now) {
		limit = weekendStartHour
	}

	if now.Hour() < limit {
		return now
	}

	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, 1)
}

// StopTime computes the end of the allowed charging window on the same
// calendar day as now: 14:00 on weekends, 06:00 on weekdays.
func StopTime(now time.Time) time.Time {
	hour := weekdayStartHour
	if isWeekend(now) {
		hour = weekendStartHour
	}

	year, month, day := now.Date()
	return time.Date(year, month, day, hour, 0, 0, 0, now.Location())
}
