package engine

import (
	"testing"

	"tools.zach/dev/fishcoin/internal/settings"
)

// ///////////////////////////////////////////////
// Classify Tests
// ///////////////////////////////////////////////

func TestClassify(t *testing.T) {
	sched := settings.Default().Schedule

	tests := []struct {
		name string
		now  settings.ClockTime
		want Status
	}{
		{"midnight", settings.NewClockTime(0, 0), BeforeWork},
		{"just_before_work", settings.NewClockTime(8, 59), BeforeWork},
		{"work_start", settings.NewClockTime(9, 0), WorkingHours},
		{"mid_morning", settings.NewClockTime(10, 30), WorkingHours},
		{"just_before_lunch", settings.NewClockTime(11, 59), WorkingHours},
		{"lunch_start", settings.NewClockTime(12, 0), Lunch},
		{"mid_lunch", settings.NewClockTime(13, 0), Lunch},
		{"last_lunch_minute", settings.NewClockTime(13, 59), Lunch},
		{"lunch_end", settings.NewClockTime(14, 0), WorkingHours},
		{"afternoon", settings.NewClockTime(16, 45), WorkingHours},
		{"just_before_work_end", settings.NewClockTime(17, 59), WorkingHours},
		{"work_end", settings.NewClockTime(18, 0), OffWork},
		{"evening", settings.NewClockTime(21, 0), OffWork},
		{"last_minute_of_day", settings.NewClockTime(23, 59), OffWork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.now, sched); got != tt.want {
				t.Errorf("Classify(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomSchedule(t *testing.T) {
	// A late shift with a short lunch.
	sched := settings.ScheduleConfig{
		WorkStart:  settings.NewClockTime(14, 0),
		LunchStart: settings.NewClockTime(18, 0),
		LunchEnd:   settings.NewClockTime(18, 30),
		WorkEnd:    settings.NewClockTime(22, 0),
	}

	if got := Classify(settings.NewClockTime(13, 59), sched); got != BeforeWork {
		t.Errorf("13:59 = %s, want before_work", got)
	}
	if got := Classify(settings.NewClockTime(18, 15), sched); got != Lunch {
		t.Errorf("18:15 = %s, want lunch", got)
	}
	if got := Classify(settings.NewClockTime(21, 0), sched); got != WorkingHours {
		t.Errorf("21:00 = %s, want working_hours", got)
	}
	if got := Classify(settings.NewClockTime(22, 0), sched); got != OffWork {
		t.Errorf("22:00 = %s, want off_work", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{BeforeWork, "before_work"},
		{Lunch, "lunch"},
		{WorkingHours, "working_hours"},
		{OffWork, "off_work"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
