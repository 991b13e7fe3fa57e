package models

import "time"

// Frequency is how often a recurring or scheduled transaction repeats
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Occurrence returns the n-th date of a series anchored at start (n=0 is start).
// Monthly and yearly steps clamp to the last day of shorter months while keeping
// the anchor day, so Jan 31 yields Feb 28 then Mar 31.
func (f Frequency) Occurrence(start time.Time, n int) time.Time {
	switch f {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case FrequencyYearly:
		return AddMonthsClamped(start, 12*n)
	default:
		return AddMonthsClamped(start, n)
	}
}

// Next returns the occurrence after prev for a series anchored on anchorDay.
// prev may itself be clamped (Feb 28 of a series on the 31st); the anchor day
// is restored whenever the next month is long enough. anchorDay < 1 means prev's day.
func (f Frequency) Next(prev time.Time, anchorDay int) time.Time {
	if anchorDay < 1 {
		anchorDay = prev.Day()
	}
	switch f {
	case FrequencyWeekly:
		return prev.AddDate(0, 0, 7)
	case FrequencyYearly:
		return addMonthsOnDay(prev, 12, anchorDay)
	default:
		return addMonthsOnDay(prev, 1, anchorDay)
	}
}

// AddMonthsClamped moves t by months, clamping the day to the end of the target month
func AddMonthsClamped(t time.Time, months int) time.Time {
	return addMonthsOnDay(t, months, t.Day())
}

func addMonthsOnDay(t time.Time, months, day int) time.Time {
	y, m, _ := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}
