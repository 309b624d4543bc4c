// Package engine tests drive [Engine.Tick] with synthetic clocks and probe
// samples, checking accrual amounts, the lock-grace transitions, and the
// pause/hide behaviors against hand-computed expectations.
package engine

import (
	"math"
	"testing"
	"time"

	"tools.zach/dev/fishcoin/internal/probe"
	"tools.zach/dev/fishcoin/internal/settings"
	"tools.zach/dev/fishcoin/internal/store"
)

// ///////////////////////////////////////////////
// Fixtures
// ///////////////////////////////////////////////

// Reference instants. 2026-03-02 is a Monday, 2026-03-07 a Saturday.
var (
	monday   = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	saturday = time.Date(2026, 3, 7, 10, 30, 0, 0, time.UTC)
)

// Probe samples for the interesting engine branches.
var (
	away    = probe.Sample{IdleSeconds: 5.0, Lock: probe.Unlocked}
	typing  = probe.Sample{IdleSeconds: 0.2, Lock: probe.Unlocked}
	locked  = probe.Sample{Lock: probe.Locked}
	unknown = probe.Sample{IdleSeconds: 5.0, Lock: probe.LockUnknown}
)

func newTestEngine(t *testing.T, cfg *settings.Settings, day time.Time) (*Engine, *store.AccrualState, *store.SavePolicy) {
	t.Helper()
	state := store.NewAccrualState(day)
	policy := store.NewSavePolicy(cfg.SaveInterval())
	return New(cfg, state, policy, 0), state, policy
}

func approx(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s: got %v, want %v", msg, got, want)
	}
}

// ///////////////////////////////////////////////
// Basic Accrual
// ///////////////////////////////////////////////

func TestTickAccruesWhenAwayDuringWork(t *testing.T) {
	cfg := settings.Default()
	eng, state, policy := newTestEngine(t, cfg, monday)

	di, added := eng.Tick(monday, time.Second, away)

	approx(t, added, cfg.BaseRatePerSecond(), "one second away")
	approx(t, state.Money, cfg.BaseRatePerSecond(), "running total")
	if di.Color != colorEarning {
		t.Errorf("color = %q, want earning", di.Color)
	}
	if policy.State() != store.Dirty {
		t.Errorf("policy state = %v, want Dirty", policy.State())
	}
}

func TestTickNoAccrualWhileTyping(t *testing.T) {
	cfg := settings.Default()
	eng, state, policy := newTestEngine(t, cfg, monday)

	di, added := eng.Tick(monday, time.Second, typing)

	if added != 0 || state.Money != 0 {
		t.Fatalf("added=%v money=%v, want both 0", added, state.Money)
	}
	if di.Color != colorIdle {
		t.Errorf("color = %q, want idle", di.Color)
	}
	if policy.State() != store.Clean {
		t.Errorf("policy state = %v, want Clean", policy.State())
	}
}

func TestTickAccrualSumsOverTicks(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	for i := 1; i <= 10; i++ {
		eng.Tick(monday, time.Duration(i)*time.Second, away)
	}

	approx(t, state.Money, 10*cfg.BaseRatePerSecond(), "ten seconds away")
}

func TestTickWeekendMultiplier(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, saturday)

	eng.Tick(saturday, time.Second, away)

	want := cfg.BaseRatePerSecond() * cfg.Salary.WeekendMultiplier
	approx(t, state.Money, want, "weekend second")
}

func TestTickIdleThresholdBoundary(t *testing.T) {
	cfg := settings.Default()
	eng, _, _ := newTestEngine(t, cfg, monday)

	atThreshold := probe.Sample{IdleSeconds: cfg.Accrual.IdleThresholdSeconds, Lock: probe.Unlocked}
	_, added := eng.Tick(monday, time.Second, atThreshold)
	if added == 0 {
		t.Error("idle exactly at threshold should accrue")
	}

	justUnder := probe.Sample{IdleSeconds: cfg.Accrual.IdleThresholdSeconds - 0.001, Lock: probe.Unlocked}
	_, added = eng.Tick(monday, 2*time.Second, justUnder)
	if added != 0 {
		t.Error("idle just under threshold should not accrue")
	}
}

// ///////////////////////////////////////////////
// Delta Clamping
// ///////////////////////////////////////////////

func TestTickClampsLargeDelta(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	// A 10 second gap (suspend, debugger) pays at most one second.
	eng.Tick(monday, 10*time.Second, away)

	approx(t, state.Money, cfg.BaseRatePerSecond(), "clamped gap")
}

func TestTickIgnoresBackwardDelta(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	eng.Tick(monday, 5*time.Second, away)
	before := state.Money
	eng.Tick(monday, 3*time.Second, away)

	approx(t, state.Money, before, "backward monotonic reading pays nothing")
}

// ///////////////////////////////////////////////
// Schedule Periods
// ///////////////////////////////////////////////

func TestTickNoAccrualOutsideWork(t *testing.T) {
	cfg := settings.Default()
	tests := []struct {
		name string
		hour int
	}{
		{"before_work", 8},
		{"lunch", 13},
		{"off_work", 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, state, _ := newTestEngine(t, cfg, monday)
			now := time.Date(2026, 3, 2, tt.hour, 0, 0, 0, time.UTC)
			_, added := eng.Tick(now, time.Second, away)
			if added != 0 || state.Money != 0 {
				t.Fatalf("accrued %v outside working hours", state.Money)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Lock Grace
// ///////////////////////////////////////////////

func TestTickLockGraceAccrues(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	di, added := eng.Tick(monday, time.Second, locked)

	approx(t, added, cfg.BaseRatePerSecond(), "locked within grace")
	approx(t, state.Money, added, "running total")
	if di.Color != colorGrace {
		t.Errorf("color = %q, want grace", di.Color)
	}
}

func TestTickLockGraceExpires(t *testing.T) {
	cfg := settings.Default()
	eng, _, _ := newTestEngine(t, cfg, monday)
	grace := cfg.LockGracePeriod()

	// Lock episode starts at mono 1s.
	eng.Tick(monday, time.Second, locked)

	// Exactly at the grace boundary still pays.
	di, added := eng.Tick(monday, time.Second+grace, locked)
	if added == 0 {
		t.Error("tick at grace boundary should accrue")
	}
	if di.Color != colorGrace {
		t.Errorf("color = %q, want grace", di.Color)
	}

	// One second past the boundary does not.
	di, added = eng.Tick(monday, 2*time.Second+grace, locked)
	if added != 0 {
		t.Error("tick past grace boundary should not accrue")
	}
	if di.Color != colorGraceOver {
		t.Errorf("color = %q, want grace over", di.Color)
	}
}

func TestTickUnlockResetsGraceTimer(t *testing.T) {
	cfg := settings.Default()
	eng, _, _ := newTestEngine(t, cfg, monday)
	grace := cfg.LockGracePeriod()

	// Burn the whole grace period, unlock, then lock again: the second
	// episode gets a fresh timer.
	eng.Tick(monday, time.Second, locked)
	eng.Tick(monday, 2*time.Second+grace, locked)
	eng.Tick(monday, 3*time.Second+grace, typing)

	_, added := eng.Tick(monday, 4*time.Second+grace, locked)
	if added == 0 {
		t.Error("new lock episode should start a fresh grace timer")
	}
}

func TestTickLunchClearsGraceTimer(t *testing.T) {
	cfg := settings.Default()
	eng, _, _ := newTestEngine(t, cfg, monday)
	grace := cfg.LockGracePeriod()
	lunch := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

	eng.Tick(monday, time.Second, locked)
	// Leaving working hours drops the episode even though the lock held.
	eng.Tick(lunch, 2*time.Second+grace, locked)

	afterLunch := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	_, added := eng.Tick(afterLunch, 3*time.Second+grace, locked)
	if added == 0 {
		t.Error("lock episode resumed after lunch should have a fresh grace timer")
	}
}

// ///////////////////////////////////////////////
// Unknown Lock State
// ///////////////////////////////////////////////

func TestTickUnknownLockAccruesOnIdle(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	di, added := eng.Tick(monday, time.Second, unknown)

	approx(t, added, cfg.BaseRatePerSecond(), "unknown lock, idle past threshold")
	approx(t, state.Money, added, "running total")
	if di.Color != colorUnknown {
		t.Errorf("color = %q, want unknown", di.Color)
	}
}

func TestTickUnknownLockStrictMode(t *testing.T) {
	cfg := settings.Default()
	cfg.Accrual.AccrueWhenLockUnknown = false
	eng, state, _ := newTestEngine(t, cfg, monday)

	_, added := eng.Tick(monday, time.Second, unknown)

	if added != 0 || state.Money != 0 {
		t.Fatalf("strict mode accrued %v on unknown lock", state.Money)
	}
}

func TestTickUnknownLockNeverFeedsGrace(t *testing.T) {
	cfg := settings.Default()
	eng, _, _ := newTestEngine(t, cfg, monday)
	grace := cfg.LockGracePeriod()

	// An unknown reading between two locked readings clears the episode.
	eng.Tick(monday, time.Second, locked)
	eng.Tick(monday, 2*time.Second+grace, unknown)

	_, added := eng.Tick(monday, 3*time.Second+grace, locked)
	if added == 0 {
		t.Error("lock episode after an unknown reading should restart the grace timer")
	}
}

// ///////////////////////////////////////////////
// Pause and Visibility
// ///////////////////////////////////////////////

func TestTickPausedNoAccrual(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	eng.Pause()
	di, added := eng.Tick(monday, time.Second, away)

	if added != 0 || state.Money != 0 {
		t.Fatalf("paused engine accrued %v", state.Money)
	}
	if di.Color != colorPaused {
		t.Errorf("color = %q, want paused", di.Color)
	}

	eng.Resume()
	_, added = eng.Tick(monday, 2*time.Second, away)
	if added == 0 {
		t.Error("resumed engine should accrue again")
	}
}

func TestTogglePause(t *testing.T) {
	cfg := settings.Default()
	eng, _, _ := newTestEngine(t, cfg, monday)

	if !eng.TogglePause() {
		t.Fatal("first toggle should pause")
	}
	if eng.TogglePause() {
		t.Fatal("second toggle should resume")
	}
}

func TestTickHiddenAdvancesCursorWithoutAccrual(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	if eng.ToggleVisible() {
		t.Fatal("toggle from visible should hide")
	}
	// A long hidden stretch advances the cursor tick by tick.
	for i := 1; i <= 30; i++ {
		_, added := eng.Tick(monday, time.Duration(i)*time.Second, away)
		if added != 0 {
			t.Fatal("hidden tick accrued")
		}
	}
	if state.Money != 0 {
		t.Fatalf("hidden stretch accrued %v", state.Money)
	}

	// Coming back pays one clamped second, not the whole stretch.
	eng.ToggleVisible()
	eng.Tick(monday, 31*time.Second, away)
	approx(t, state.Money, cfg.BaseRatePerSecond(), "first visible tick after hide")
}

// ///////////////////////////////////////////////
// After-Work Usage
// ///////////////////////////////////////////////

func TestTickRecordsAfterWorkUsage(t *testing.T) {
	cfg := settings.Default()
	evening := time.Date(2026, 3, 2, 21, 47, 0, 0, time.UTC)
	eng, state, _ := newTestEngine(t, cfg, evening)

	eng.Tick(evening, time.Second, typing)

	got := state.LastAfterWorkUsage["2026-03-02"]
	if got != "21:47" {
		t.Fatalf("after-work usage = %q, want 21:47", got)
	}

	// A later active tick moves the stamp forward.
	later := evening.Add(40 * time.Minute)
	eng.Tick(later, 2*time.Second, typing)
	if got := state.LastAfterWorkUsage["2026-03-02"]; got != "22:27" {
		t.Fatalf("after-work usage = %q, want 22:27", got)
	}
}

func TestTickNoAfterWorkUsageWhenLockedOrIdle(t *testing.T) {
	cfg := settings.Default()
	evening := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	eng, state, _ := newTestEngine(t, cfg, evening)
	eng.Tick(evening, time.Second, locked)
	if len(state.LastAfterWorkUsage) != 0 {
		t.Error("locked evening tick should not record usage")
	}

	eng, state, _ = newTestEngine(t, cfg, evening)
	eng.Tick(evening, time.Second, away)
	if len(state.LastAfterWorkUsage) != 0 {
		t.Error("idle evening tick should not record usage")
	}
}

// ///////////////////////////////////////////////
// Reset and Reconfiguration
// ///////////////////////////////////////////////

func TestResetToday(t *testing.T) {
	cfg := settings.Default()
	eng, state, policy := newTestEngine(t, cfg, monday)

	eng.Tick(monday, time.Second, away)
	eng.ResetToday()

	if state.Money != 0 {
		t.Fatalf("money = %v after reset, want 0", state.Money)
	}
	if policy.State() != store.DirtyForced {
		t.Errorf("policy state = %v, want DirtyForced", policy.State())
	}
}

func TestApplySettingsSwapsRate(t *testing.T) {
	cfg := settings.Default()
	eng, state, _ := newTestEngine(t, cfg, monday)

	next := settings.Default()
	next.Salary.MonthlySalary = cfg.Salary.MonthlySalary * 2
	eng.ApplySettings(next)

	eng.Tick(monday, time.Second, away)
	approx(t, state.Money, next.BaseRatePerSecond(), "doubled salary rate")
}

func TestApplySettingsClearsGraceTimer(t *testing.T) {
	cfg := settings.Default()
	eng, _, _ := newTestEngine(t, cfg, monday)
	grace := cfg.LockGracePeriod()

	eng.Tick(monday, time.Second, locked)
	eng.ApplySettings(settings.Default())

	// The episode restarts at the next locked tick, so a tick past the old
	// boundary still pays.
	_, added := eng.Tick(monday, 2*time.Second+grace, locked)
	if added == 0 {
		t.Error("reconfiguration should restart the lock episode")
	}
}
