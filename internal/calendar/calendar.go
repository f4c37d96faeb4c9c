package calendar

import "time"

// DateKey formats t as YYYY-MM-DD in loc. All bucket and week decisions go
// through the configured timezone, never the host's local midnight.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// WeekBoundary returns the most recent midnight in loc falling on resetDay
// at or before now.
func WeekBoundary(now time.Time, resetDay time.Weekday, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	daysBack := (int(local.Weekday()) - int(resetDay) + 7) % 7
	return midnight.AddDate(0, 0, -daysBack)
}

// WeekStale reports whether a baseline started at weekStart belongs to a
// week before the one containing now.
func WeekStale(weekStart, now time.Time, resetDay time.Weekday, loc *time.Location) bool {
	return weekStart.Before(WeekBoundary(now, resetDay, loc))
}
