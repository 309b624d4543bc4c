package store

import "time"

// DateLayout is the calendar-date key format used throughout the data file.
const DateLayout = "2006-01-02"

// ///////////////////////////////////////////////
// AccrualState
// ///////////////////////////////////////////////

// AccrualState is the persisted unit of truth: the running total for the
// current date plus the settled per-day history.
type AccrualState struct {
	// Date is the calendar date the running total belongs to.
	Date string
	// Money is the non-negative accumulated amount for Date.
	Money float64
	// SettledDate is the last date for which a history entry was
	// committed. It guards settlement idempotence: a date equal to
	// SettledDate is never settled again.
	SettledDate string
	// History maps settled dates to their final amounts.
	History map[string]float64
	// LastAfterWorkUsage maps dates to the latest "HH:MM" the machine was
	// actively used after work hours. Reporting only; never feeds accrual.
	LastAfterWorkUsage map[string]string
}

// NewAccrualState returns an empty state for the given day.
func NewAccrualState(today time.Time) *AccrualState {
	return &AccrualState{
		Date:               today.Format(DateLayout),
		History:            map[string]float64{},
		LastAfterWorkUsage: map[string]string{},
	}
}

// Settle records the running total for date into history exactly once.
// Returns false without touching anything when date is already settled.
func (s *AccrualState) Settle(date string, money float64) bool {
	if s.SettledDate == date {
		return false
	}
	if _, exists := s.History[date]; exists {
		// A duplicate append for an already-settled date is rejected even
		// if SettledDate was lost to an older data file.
		s.SettledDate = date
		return false
	}
	s.History[date] = money
	s.SettledDate = date
	return true
}

// Prune drops history and after-work-usage entries older than the retention
// window ending at now. Keys that do not parse as dates are kept; an odd key
// in a hand-edited file is not a reason to discard the user's data.
func (s *AccrualState) Prune(now time.Time, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -(retentionDays - 1)).Format(DateLayout)
	pruneDateMap(s.History, cutoff)
	pruneDateMap(s.LastAfterWorkUsage, cutoff)
}

func pruneDateMap[V any](m map[string]V, cutoff string) {
	for key := range m {
		if _, err := time.Parse(DateLayout, key); err != nil {
			continue
		}
		if key < cutoff {
			delete(m, key)
		}
	}
}
