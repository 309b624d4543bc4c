package engine

import (
	"log/slog"
	"time"

	"tools.zach/dev/fishcoin/internal/settings"
	"tools.zach/dev/fishcoin/internal/store"
)

// ///////////////////////////////////////////////
// Rollover and Settlement
// ///////////////////////////////////////////////

// maybeRollover runs the two settlement triggers at the top of every tick.
//
// Date change: the first tick on a new calendar date settles the previous
// date's running total into history and zeroes the counter. This covers
// both a daemon running across midnight and a daemon restarted days later,
// since the comparison is against the persisted date, not yesterday.
//
// Post-work checkpoint: once the work day has ended, today's total is
// committed into history without resetting the counter, so a crash during
// the evening cannot lose the day. The [store.AccrualState.Settle]
// idempotence guard makes the checkpoint fire exactly once per date.
//
// Both triggers are boundary events and force a save.
func (e *Engine) maybeRollover(nowWall time.Time) {
	today := nowWall.Format(store.DateLayout)

	if e.state.Date != today {
		if e.state.Settle(e.state.Date, e.state.Money) {
			slog.Info("day rolled over",
				"settled_date", e.state.Date,
				"amount", e.state.Money,
				"new_date", today)
		}
		e.state.Date = today
		e.state.Money = 0
		e.clearLockStart()
		e.policy.MarkForced()
		return
	}

	if settings.ClockTimeOf(nowWall) >= e.cfg.Schedule.WorkEnd && e.state.SettledDate != today {
		if e.state.Settle(today, e.state.Money) {
			slog.Info("work day settled", "date", today, "amount", e.state.Money)
			e.policy.MarkForced()
		}
	}
}
