// Package engine implements the accrual state machine: on each tick it
// combines the schedule classification, the system probe sample, and the
// elapsed monotonic delta into a money increment, a lock-grace state
// transition, and a display intent.
//
// The engine holds no timer and spawns nothing. The embedding application
// drives [Engine.Tick] on a fixed cadence with a wall-clock instant, a
// monotonic instant, and a probe sample, which makes the whole state
// machine drivable with synthetic clocks in tests. Monotonic time is used
// exclusively for delta computation so suspended laptops and wall-clock
// adjustments cannot inflate a tick; wall time is used exclusively for
// date and time-of-day classification.
package engine

import (
	"time"

	"tools.zach/dev/fishcoin/internal/probe"
	"tools.zach/dev/fishcoin/internal/settings"
	"tools.zach/dev/fishcoin/internal/store"
)

// MaxDelta bounds the monotonic elapsed time credited to a single tick.
// A resume from suspend or a debugger pause yields at most this much pay.
const MaxDelta = time.Second

// ///////////////////////////////////////////////
// Engine
// ///////////////////////////////////////////////

// Engine is the central accrual state machine. All mutation happens on the
// caller's single tick goroutine; the engine itself takes no locks.
type Engine struct {
	// cfg is the immutable settings snapshot. Replaced wholesale by
	// [Engine.ApplySettings], never mutated.
	cfg *settings.Settings
	// state is the persisted accrual state the engine mutates.
	state *store.AccrualState
	// policy tracks how urgently state needs to reach disk.
	policy *store.SavePolicy

	// lockStart marks the monotonic instant a lock episode began.
	// Cleared whenever the engine leaves WorkingHours or the workstation
	// leaves the Locked state, so a stale grace timer never leaks across
	// periods.
	lockStart    time.Duration
	hasLockStart bool

	paused       bool
	visible      bool
	lastTickMono time.Duration
}

// New constructs an engine over loaded state. startMono anchors the first
// tick's delta so startup time is never credited as elapsed work.
func New(cfg *settings.Settings, state *store.AccrualState, policy *store.SavePolicy, startMono time.Duration) *Engine {
	return &Engine{
		cfg:          cfg,
		state:        state,
		policy:       policy,
		visible:      true,
		lastTickMono: startMono,
	}
}

// ///////////////////////////////////////////////
// Operations
// ///////////////////////////////////////////////

// Pause stops accrual until [Engine.Resume]. The running total holds.
func (e *Engine) Pause() { e.paused = true }

// Resume re-enables accrual.
func (e *Engine) Resume() { e.paused = false }

// TogglePause flips the paused state and reports the new value.
func (e *Engine) TogglePause() bool {
	e.paused = !e.paused
	return e.paused
}

// Paused reports whether accrual is paused.
func (e *Engine) Paused() bool { return e.paused }

// ToggleVisible flips the boss-key visibility state and reports the new
// value. Hidden ticks advance the monotonic cursor without accruing.
func (e *Engine) ToggleVisible() bool {
	e.visible = !e.visible
	return e.visible
}

// Visible reports whether the widget is shown.
func (e *Engine) Visible() bool { return e.visible }

// ResetToday zeroes the running total on explicit user request. The reset
// is a boundary event and forces a save.
func (e *Engine) ResetToday() {
	e.state.Money = 0
	e.clearLockStart()
	e.policy.MarkForced()
}

// ApplySettings swaps in a new validated settings snapshot. Any in-progress
// lock-grace timer is cleared so a changed grace period never applies to a
// half-elapsed episode, and the save interval follows the new settings.
func (e *Engine) ApplySettings(cfg *settings.Settings) {
	e.cfg = cfg
	e.clearLockStart()
	e.policy.SetInterval(cfg.SaveInterval())
}

// Settings returns the current settings snapshot.
func (e *Engine) Settings() *settings.Settings { return e.cfg }

// State returns the accrual state for reporting. Callers outside the tick
// goroutine must go through the command channel, not this accessor.
func (e *Engine) State() *store.AccrualState { return e.state }

// ///////////////////////////////////////////////
// Tick
// ///////////////////////////////////////////////

// Tick advances the state machine by one observation. It returns the
// display intent for the rendering layer and the money actually added this
// tick. It never blocks.
func (e *Engine) Tick(nowWall time.Time, nowMono time.Duration, sample probe.Sample) (DisplayIntent, float64) {
	e.maybeRollover(nowWall)

	delta := nowMono - e.lastTickMono
	e.lastTickMono = nowMono
	if delta < 0 {
		delta = 0
	}
	if delta > MaxDelta {
		delta = MaxDelta
	}

	if !e.visible {
		// Hidden: no accrual, and the cursor above already advanced so the
		// hidden span can never be credited later in one giant delta.
		return intent("--", e.state.Money, colorHidden, 0, e.classify(nowWall), sample.Lock), 0
	}

	if e.paused {
		e.clearLockStart()
		return intent("||", e.state.Money, colorPaused, 0.75, e.classify(nowWall), sample.Lock), 0
	}

	rate := e.cfg.BaseRatePerSecond() * e.weekendMultiplier(nowWall)
	status := e.classify(nowWall)

	switch status {
	case BeforeWork:
		// Informational only: track a pre-work lock episode so a lock that
		// straddles work start carries its start time, but pay nothing.
		if sample.Lock == probe.Locked {
			e.startLockIfUnset(nowMono)
		} else {
			e.clearLockStart()
		}
		return intent("..", e.state.Money, colorIdle, 0.7, status, sample.Lock), 0

	case Lunch:
		e.clearLockStart()
		return intent("::", e.state.Money, colorLunch, 0.85, status, sample.Lock), 0

	case OffWork:
		e.clearLockStart()
		e.recordAfterWorkUsage(nowWall, sample)
		return intent("~~", e.state.Money, colorOffWork, 0.85, status, sample.Lock), 0

	default:
		return e.tickWorkingHours(nowMono, sample, rate, delta)
	}
}

// tickWorkingHours runs the three-way lock-state split that decides pay
// during working hours.
func (e *Engine) tickWorkingHours(nowMono time.Duration, sample probe.Sample, rate float64, delta time.Duration) (DisplayIntent, float64) {
	switch sample.Lock {
	case probe.Locked:
		e.startLockIfUnset(nowMono)
		lockedFor := nowMono - e.lockStart
		if lockedFor <= e.cfg.LockGracePeriod() {
			added := e.accrue(rate, delta)
			return intent("%%", e.state.Money, colorGrace, 1.0, WorkingHours, sample.Lock), added
		}
		return intent("!!", e.state.Money, colorGraceOver, 0.85, WorkingHours, sample.Lock), 0

	case probe.LockUnknown:
		// Conservative branch: an unconfirmed lock never feeds the grace
		// mechanism. Sustained input inactivity is the only accepted
		// evidence of being away, and even that can be switched off.
		e.clearLockStart()
		if e.cfg.Accrual.AccrueWhenLockUnknown && sample.IdleSeconds >= e.cfg.Accrual.IdleThresholdSeconds {
			added := e.accrue(rate, delta)
			return intent("??", e.state.Money, colorUnknown, 0.95, WorkingHours, sample.Lock), added
		}
		return intent("zz", e.state.Money, colorIdle, 0.55, WorkingHours, sample.Lock), 0

	default: // Unlocked
		e.clearLockStart()
		if sample.IdleSeconds >= e.cfg.Accrual.IdleThresholdSeconds {
			added := e.accrue(rate, delta)
			return intent("$$", e.state.Money, colorEarning, 1.0, WorkingHours, sample.Lock), added
		}
		return intent("zz", e.state.Money, colorIdle, 0.55, WorkingHours, sample.Lock), 0
	}
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// accrue adds rate x delta to the running total and marks state dirty.
func (e *Engine) accrue(rate float64, delta time.Duration) float64 {
	added := rate * delta.Seconds()
	if added == 0 {
		return 0
	}
	e.state.Money += added
	e.policy.MarkDirty()
	return added
}

// classify maps nowWall onto the schedule.
func (e *Engine) classify(nowWall time.Time) Status {
	return Classify(settings.ClockTimeOf(nowWall), e.cfg.Schedule)
}

// weekendMultiplier returns the configured multiplier on Saturdays and
// Sundays, 1 otherwise.
func (e *Engine) weekendMultiplier(nowWall time.Time) float64 {
	switch nowWall.Weekday() {
	case time.Saturday, time.Sunday:
		return e.cfg.Salary.WeekendMultiplier
	default:
		return 1.0
	}
}

func (e *Engine) startLockIfUnset(nowMono time.Duration) {
	if !e.hasLockStart {
		e.lockStart = nowMono
		e.hasLockStart = true
	}
}

func (e *Engine) clearLockStart() {
	e.hasLockStart = false
	e.lockStart = 0
}

// recordAfterWorkUsage notes the latest time of day the machine was in
// active, unlocked use after work hours. Reporting data only.
func (e *Engine) recordAfterWorkUsage(nowWall time.Time, sample probe.Sample) {
	if sample.Lock == probe.Locked {
		return
	}
	if sample.IdleSeconds >= e.cfg.Accrual.IdleThresholdSeconds {
		return
	}
	today := nowWall.Format(store.DateLayout)
	stamp := settings.ClockTimeOf(nowWall).String()
	if e.state.LastAfterWorkUsage[today] != stamp {
		e.state.LastAfterWorkUsage[today] = stamp
		e.policy.MarkDirty()
	}
}
