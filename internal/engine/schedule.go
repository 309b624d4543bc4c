package engine

import (
	"tools.zach/dev/fishcoin/internal/settings"
)

// ///////////////////////////////////////////////
// Time Classification
// ///////////////////////////////////////////////

// Status is the schedule classification of a wall-clock instant.
type Status int

const (
	// BeforeWork is any time before the working day begins.
	BeforeWork Status = iota
	// Lunch is the lunch window [lunch_start, lunch_end).
	Lunch
	// WorkingHours is paid time: work start to work end, minus lunch.
	WorkingHours
	// OffWork is any time at or after the working day ends.
	OffWork
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case BeforeWork:
		return "before_work"
	case Lunch:
		return "lunch"
	case WorkingHours:
		return "working_hours"
	default:
		return "off_work"
	}
}

// Classify maps a time of day onto a [Status] under the given schedule.
// Rules are evaluated in order and the first match wins; the function is
// pure and total.
func Classify(now settings.ClockTime, sched settings.ScheduleConfig) Status {
	switch {
	case now < sched.WorkStart:
		return BeforeWork
	case now >= sched.LunchStart && now < sched.LunchEnd:
		return Lunch
	case now >= sched.WorkEnd:
		return OffWork
	default:
		return WorkingHours
	}
}
