package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"tools.zach/dev/fishcoin/internal/paths"
)

// ///////////////////////////////////////////////
// Legacy Import
// ///////////////////////////////////////////////

// legacySettings is the JSON shape written by the pre-TOML releases. Numeric
// fields may arrive as numbers or numeric strings depending on which release
// wrote the file, so everything decodes through json.Number.
type legacySettings struct {
	MonthlySalary       json.Number `json:"MONTHLY_SALARY"`
	WorkDaysPerMonth    json.Number `json:"WORK_DAYS_PER_MONTH"`
	WorkHoursPerDay     json.Number `json:"WORK_HOURS_PER_DAY"`
	IdleThreshold       json.Number `json:"IDLE_THRESHOLD"`
	LockGracePeriodMin  json.Number `json:"LOCK_GRACE_PERIOD_MIN"`
	WeekendMultiplier   json.Number `json:"WEEKEND_MULTIPLIER"`
	LunchStart          string      `json:"LUNCH_START"`
	LunchEnd            string      `json:"LUNCH_END"`
	WorkEnd             string      `json:"WORK_END"`
}

// importLegacy looks for a legacy JSON settings file in each historical
// location, converts the first readable one into the current schema, saves
// it as settings.toml, and renames the legacy file aside so the import runs
// only once. Returns (nil, nil) when no legacy file exists.
func importLegacy(dir paths.DataDir) (*Settings, error) {
	for _, legacyPath := range dir.LegacySettings() {
		data, err := os.ReadFile(legacyPath)
		if err != nil {
			continue
		}
		s, convErr := convertLegacy(data)
		if convErr != nil {
			slog.Warn("skipping unreadable legacy settings", "path", legacyPath, "error", convErr)
			continue
		}
		if saveErr := Save(dir, s); saveErr != nil {
			return nil, fmt.Errorf("save imported settings: %w", saveErr)
		}
		if renameErr := os.Rename(legacyPath, legacyPath+".imported"); renameErr != nil {
			slog.Warn("failed to retire legacy settings file", "path", legacyPath, "error", renameErr)
		}
		slog.Info("imported legacy settings", "from", legacyPath)
		return s, nil
	}
	return nil, nil
}

// convertLegacy maps the legacy JSON document onto the current schema,
// falling back to defaults for anything the old format never stored
// (work start, daemon behavior, logging).
func convertLegacy(data []byte) (*Settings, error) {
	var legacy legacySettings
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse legacy settings: %w", err)
	}

	s := Default()
	var err error
	if s.Salary.MonthlySalary, err = legacyFloat(legacy.MonthlySalary, s.Salary.MonthlySalary); err != nil {
		return nil, err
	}
	if s.Salary.WorkDaysPerMonth, err = legacyFloat(legacy.WorkDaysPerMonth, s.Salary.WorkDaysPerMonth); err != nil {
		return nil, err
	}
	if s.Salary.WorkHoursPerDay, err = legacyFloat(legacy.WorkHoursPerDay, s.Salary.WorkHoursPerDay); err != nil {
		return nil, err
	}
	if s.Salary.WeekendMultiplier, err = legacyFloat(legacy.WeekendMultiplier, s.Salary.WeekendMultiplier); err != nil {
		return nil, err
	}
	if s.Accrual.IdleThresholdSeconds, err = legacyFloat(legacy.IdleThreshold, s.Accrual.IdleThresholdSeconds); err != nil {
		return nil, err
	}
	if s.Accrual.LockGracePeriodMinutes, err = legacyFloat(legacy.LockGracePeriodMin, s.Accrual.LockGracePeriodMinutes); err != nil {
		return nil, err
	}
	if legacy.LunchStart != "" {
		if s.Schedule.LunchStart, err = ParseClockTime(legacy.LunchStart); err != nil {
			return nil, err
		}
	}
	if legacy.LunchEnd != "" {
		if s.Schedule.LunchEnd, err = ParseClockTime(legacy.LunchEnd); err != nil {
			return nil, err
		}
	}
	if legacy.WorkEnd != "" {
		if s.Schedule.WorkEnd, err = ParseClockTime(legacy.WorkEnd); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("legacy settings invalid: %w", err)
	}
	return s, nil
}

// legacyFloat converts a json.Number field, keeping fallback when the field
// was absent from the document.
func legacyFloat(n json.Number, fallback float64) (float64, error) {
	if n == "" {
		return fallback, nil
	}
	v, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("legacy numeric field %q: %w", n, err)
	}
	return v, nil
}
