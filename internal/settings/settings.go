// Package settings provides configuration loading, validation, and defaults
// for the fishcoin daemon.
//
// Settings are loaded from a TOML file in the user's data directory. A loaded
// [Settings] value is an immutable snapshot: the engine receives it at
// construction and gets a whole new snapshot on reconfiguration, never a
// mutation of the one it holds. Validation happens here, at the
// configuration boundary, so the engine only ever sees validated values.
package settings

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/fishcoin/internal/atomicfile"
	"tools.zach/dev/fishcoin/internal/migrate"
	"tools.zach/dev/fishcoin/internal/paths"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Settings represents the full daemon configuration.
type Settings struct {
	// Version is the settings schema version used for migrations.
	Version int `toml:"version"`
	// Salary holds the pay figures the per-second rate derives from.
	Salary SalaryConfig `toml:"salary"`
	// Schedule holds the daily working-hours boundaries.
	Schedule ScheduleConfig `toml:"schedule"`
	// Accrual holds idle and lock-screen accrual thresholds.
	Accrual AccrualConfig `toml:"accrual"`
	// Daemon holds tick, save, and retention behavior.
	Daemon DaemonConfig `toml:"daemon"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// SalaryConfig holds the pay figures the per-second rate derives from.
type SalaryConfig struct {
	// MonthlySalary is the gross monthly salary in local currency.
	MonthlySalary float64 `toml:"monthly_salary"`
	// WorkDaysPerMonth is the average number of paid working days per month.
	WorkDaysPerMonth float64 `toml:"work_days_per_month"`
	// WorkHoursPerDay is the contracted working hours per day.
	WorkHoursPerDay float64 `toml:"work_hours_per_day"`
	// WeekendMultiplier scales the rate on Saturdays and Sundays.
	WeekendMultiplier float64 `toml:"weekend_multiplier"`
}

// ScheduleConfig holds the daily working-hours boundaries as local
// wall-clock times.
type ScheduleConfig struct {
	// WorkStart is when the working day begins.
	WorkStart ClockTime `toml:"work_start"`
	// LunchStart is when the lunch break begins.
	LunchStart ClockTime `toml:"lunch_start"`
	// LunchEnd is when the lunch break ends (exclusive).
	LunchEnd ClockTime `toml:"lunch_end"`
	// WorkEnd is when the working day ends.
	WorkEnd ClockTime `toml:"work_end"`
}

// AccrualConfig holds idle and lock-screen accrual thresholds.
type AccrualConfig struct {
	// IdleThresholdSeconds is the minimum input inactivity before the user
	// counts as away from the desk.
	IdleThresholdSeconds float64 `toml:"idle_threshold_seconds"`
	// LockGracePeriodMinutes is how long a locked workstation keeps
	// accruing before the grace runs out.
	LockGracePeriodMinutes float64 `toml:"lock_grace_period_minutes"`
	// AccrueWhenLockUnknown keeps the idle-based accrual active when the
	// lock state cannot be determined. The original behavior is true;
	// false gives stricter semantics.
	AccrueWhenLockUnknown bool `toml:"accrue_when_lock_unknown"`
}

// DaemonConfig holds tick, save, and retention behavior.
type DaemonConfig struct {
	// TickIntervalMS is the engine tick cadence in milliseconds.
	TickIntervalMS int `toml:"tick_interval_ms"`
	// SaveIntervalSeconds is the minimum spacing between periodic saves of
	// dirty state.
	SaveIntervalSeconds float64 `toml:"save_interval_seconds"`
	// HistoryRetentionDays is how many days of per-day history the data
	// file keeps.
	HistoryRetentionDays int `toml:"history_retention_days"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Defaults
// ///////////////////////////////////////////////

// Default returns a Settings populated with the built-in defaults, matching
// the embedded settings.default.toml template.
func Default() *Settings {
	return &Settings{
		Version: migrate.Settings.CurrentVersion,
		Salary: SalaryConfig{
			MonthlySalary:     20000.0,
			WorkDaysPerMonth:  21.75,
			WorkHoursPerDay:   8.0,
			WeekendMultiplier: 2.0,
		},
		Schedule: ScheduleConfig{
			WorkStart:  NewClockTime(9, 0),
			LunchStart: NewClockTime(12, 0),
			LunchEnd:   NewClockTime(14, 0),
			WorkEnd:    NewClockTime(18, 0),
		},
		Accrual: AccrualConfig{
			IdleThresholdSeconds:   3.0,
			LockGracePeriodMinutes: 30,
			AccrueWhenLockUnknown:  true,
		},
		Daemon: DaemonConfig{
			TickIntervalMS:       100,
			SaveIntervalSeconds:  10.0,
			HistoryRetentionDays: 365,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

// BaseRatePerSecond returns the derived earning rate:
// (monthly salary / work days per month) / (work hours per day * 3600).
func (s *Settings) BaseRatePerSecond() float64 {
	daily := s.Salary.MonthlySalary / s.Salary.WorkDaysPerMonth
	return daily / (s.Salary.WorkHoursPerDay * 3600)
}

// LockGracePeriod returns the lock grace period as a duration.
func (s *Settings) LockGracePeriod() time.Duration {
	return time.Duration(s.Accrual.LockGracePeriodMinutes * float64(time.Minute))
}

// TickInterval returns the engine tick cadence.
func (s *Settings) TickInterval() time.Duration {
	return time.Duration(s.Daemon.TickIntervalMS) * time.Millisecond
}

// SaveInterval returns the minimum spacing between periodic saves.
func (s *Settings) SaveInterval() time.Duration {
	return time.Duration(s.Daemon.SaveIntervalSeconds * float64(time.Second))
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks the numeric and temporal sanity of the settings. It
// mirrors the checks the first-run dialog applied in earlier releases:
// positive pay figures, non-negative thresholds, and an ordered schedule
// (work start < lunch window < work end).
func (s *Settings) Validate() error {
	if s.Salary.MonthlySalary <= 0 {
		return fmt.Errorf("monthly_salary must be > 0, got %v", s.Salary.MonthlySalary)
	}
	if s.Salary.WorkDaysPerMonth <= 0 {
		return fmt.Errorf("work_days_per_month must be > 0, got %v", s.Salary.WorkDaysPerMonth)
	}
	if s.Salary.WorkHoursPerDay <= 0 {
		return fmt.Errorf("work_hours_per_day must be > 0, got %v", s.Salary.WorkHoursPerDay)
	}
	if s.Salary.WeekendMultiplier <= 0 {
		return fmt.Errorf("weekend_multiplier must be > 0, got %v", s.Salary.WeekendMultiplier)
	}
	if s.Accrual.IdleThresholdSeconds < 0 {
		return fmt.Errorf("idle_threshold_seconds must not be negative, got %v", s.Accrual.IdleThresholdSeconds)
	}
	if s.Accrual.LockGracePeriodMinutes < 0 {
		return fmt.Errorf("lock_grace_period_minutes must not be negative, got %v", s.Accrual.LockGracePeriodMinutes)
	}
	sched := s.Schedule
	if sched.LunchStart >= sched.LunchEnd {
		return fmt.Errorf("lunch_start %s must be before lunch_end %s", sched.LunchStart, sched.LunchEnd)
	}
	if sched.WorkStart >= sched.WorkEnd {
		return fmt.Errorf("work_start %s must be before work_end %s", sched.WorkStart, sched.WorkEnd)
	}
	if sched.LunchStart < sched.WorkStart {
		return fmt.Errorf("lunch_start %s must not be before work_start %s", sched.LunchStart, sched.WorkStart)
	}
	if sched.LunchEnd > sched.WorkEnd {
		return fmt.Errorf("lunch_end %s must not be after work_end %s", sched.LunchEnd, sched.WorkEnd)
	}
	if s.Daemon.TickIntervalMS <= 0 {
		return fmt.Errorf("tick_interval_ms must be > 0, got %d", s.Daemon.TickIntervalMS)
	}
	if s.Daemon.SaveIntervalSeconds <= 0 {
		return fmt.Errorf("save_interval_seconds must be > 0, got %v", s.Daemon.SaveIntervalSeconds)
	}
	if s.Daemon.HistoryRetentionDays <= 0 {
		return fmt.Errorf("history_retention_days must be > 0, got %d", s.Daemon.HistoryRetentionDays)
	}
	return nil
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads the settings file from the data directory. The sequence is:
//
//  1. If no settings file exists, import the newest legacy JSON settings
//     file if one is found, otherwise seed the file from embeddedDefault.
//  2. Run schema migrations (with a .bak backup) when the version differs.
//  3. Parse over the defaults so missing keys keep their default values.
//  4. Validate; an invalid file is quarantined and replaced with defaults,
//     because refusing to start over a hand-edited typo would be worse than
//     running on the documented defaults.
//
// An unparsable file is likewise quarantined with a timestamp suffix rather
// than failing startup.
func Load(dir paths.DataDir, embeddedDefault []byte) (*Settings, error) {
	path := dir.Settings()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if imported, impErr := importLegacy(dir); impErr != nil {
			slog.Warn("legacy settings import failed", "error", impErr)
		} else if imported != nil {
			return imported, nil
		}
		if writeErr := atomicfile.Write(path, embeddedDefault, 0o644); writeErr != nil {
			slog.Warn("failed to seed default settings file", "error", writeErr)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	version := PeekVersion(data)
	if version != migrate.Settings.CurrentVersion {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write settings backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Settings.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate settings: %w", migrateErr)
		}
	}

	s := Default()
	if err := toml.Unmarshal(data, s); err != nil {
		quarantine(path, "settings file is not valid TOML", err)
		return Default(), nil
	}
	s.Version = migrate.Settings.CurrentVersion

	if err := s.Validate(); err != nil {
		quarantine(path, "settings file failed validation", err)
		return Default(), nil
	}
	return s, nil
}

// Parse decodes and validates raw TOML without touching the filesystem.
// The settings watcher uses it to vet external edits before applying them.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save validates s and writes it atomically to the settings file. A write
// failure is returned to the caller: failing to persist an explicit
// reconfiguration must be surfaced, not swallowed.
func Save(dir paths.DataDir, s *Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid settings: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return atomicfile.Write(dir.Settings(), buf.Bytes(), 0o644)
}

// quarantine renames a bad settings file aside with a timestamp suffix so
// the next load starts from defaults while the user's file is preserved
// for inspection.
func quarantine(path, msg string, cause error) {
	slog.Warn(msg+", quarantining", "path", path, "error", cause)
	ts := time.Now().Format("20060102_150405")
	if err := os.Rename(path, fmt.Sprintf("%s.corrupt.%s", path, ts)); err != nil {
		slog.Warn("failed to quarantine settings file", "error", err)
	}
}
