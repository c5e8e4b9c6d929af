package competitionscheduler

import "time"

// Schedule returns the next run time after a given time. It matches
// river.PeriodicSchedule so the same value drives both backends.
type Schedule interface {
	Next(current time.Time) time.Time
}

type interval struct {
	d time.Duration
}

// Every runs at a fixed interval.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		d = time.Hour
	}
	return interval{d: d}
}

func (i interval) Next(current time.Time) time.Time {
	return current.Add(i.d)
}

type monthly struct {
	offset time.Duration
}

// Monthly runs once a month, offset from midnight UTC on the first day.
func Monthly(offset time.Duration) Schedule {
	return monthly{offset: offset}
}

func (m monthly) Next(current time.Time) time.Time {
	current = current.UTC()
	this := time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC).Add(m.offset)
	if this.After(current) {
		return this
	}
	return time.Date(current.Year(), current.Month()+1, 1, 0, 0, 0, 0, time.UTC).Add(m.offset)
}
