// Package store persists accrual state to the data directory with atomic
// writes, schema versioning, corruption quarantine, legacy-file migration,
// and retention pruning.
//
// Reads recover locally: a missing or corrupt data file yields a fresh
// default state, never an error, because the daemon must start no matter
// what is on disk. Writes propagate their error to the caller, which holds
// the dirty flag and retries on a later tick.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/fishcoin/internal/atomicfile"
	"tools.zach/dev/fishcoin/internal/migrate"
	"tools.zach/dev/fishcoin/internal/paths"
)

// ///////////////////////////////////////////////
// Document
// ///////////////////////////////////////////////

// document is the on-disk JSON shape of the accrual data file.
type document struct {
	// SchemaVersion tags the document for migration.
	SchemaVersion int `json:"schema_version"`
	// Date is the calendar date the running total belongs to.
	Date string `json:"date"`
	// Money is the running total for Date.
	Money float64 `json:"money"`
	// SettledDate is the last settled date.
	SettledDate string `json:"settled_date"`
	// History maps settled dates to amounts.
	History map[string]float64 `json:"history"`
	// LastAfterWorkUsage maps dates to "HH:MM" last-use times.
	LastAfterWorkUsage map[string]string `json:"last_after_work_usage"`
}

// ///////////////////////////////////////////////
// Store
// ///////////////////////////////////////////////

// Store loads and saves [AccrualState] under a data directory.
type Store struct {
	dir paths.DataDir
	// retentionDays bounds the history window applied on both load and save.
	retentionDays int
	// now is the wall clock, swappable in tests.
	now func() time.Time
}

// New creates a Store rooted at dir with the given history retention.
func New(dir paths.DataDir, retentionDays int) *Store {
	return &Store{dir: dir, retentionDays: retentionDays, now: time.Now}
}

// SetRetention updates the retention window after a settings change.
func (st *Store) SetRetention(days int) { st.retentionDays = days }

// ///////////////////////////////////////////////
// Load
// ///////////////////////////////////////////////

// Load reads the accrual data file. A legacy-named file is migrated into
// place first if the canonical file does not exist. A missing file yields a
// fresh state for today; an unparsable one is quarantined with a timestamp
// suffix and likewise replaced by a fresh state. Retention pruning is
// applied before the state is returned.
func (st *Store) Load() *AccrualState {
	now := st.now()
	path := st.dir.Data()
	st.migrateLegacy(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("data file unreadable, starting fresh", "path", path, "error", err)
		}
		return NewAccrualState(now)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		st.quarantine(path, err)
		return NewAccrualState(now)
	}

	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = 1
	}
	if migrate.Data.NeedsMigration(doc.SchemaVersion) {
		migrated, _, migrateErr := migrate.Data.Run(data, doc.SchemaVersion)
		if migrateErr != nil {
			st.quarantine(path, migrateErr)
			return NewAccrualState(now)
		}
		if err := json.Unmarshal(migrated, &doc); err != nil {
			st.quarantine(path, err)
			return NewAccrualState(now)
		}
	}

	state := &AccrualState{
		Date:               doc.Date,
		Money:              doc.Money,
		SettledDate:        doc.SettledDate,
		History:            doc.History,
		LastAfterWorkUsage: doc.LastAfterWorkUsage,
	}
	if state.Date == "" {
		state.Date = now.Format(DateLayout)
	}
	if state.History == nil {
		state.History = map[string]float64{}
	}
	if state.LastAfterWorkUsage == nil {
		state.LastAfterWorkUsage = map[string]string{}
	}
	state.Prune(now, st.retentionDays)
	return state
}

// migrateLegacy renames the first legacy-named data file it finds over the
// canonical path, provided the canonical file does not already exist.
func (st *Store) migrateLegacy(target string) {
	if _, err := os.Stat(target); err == nil {
		return
	}
	for _, legacy := range st.dir.LegacyData() {
		if _, err := os.Stat(legacy); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			slog.Warn("cannot create data directory for migration", "error", err)
			return
		}
		if err := os.Rename(legacy, target); err != nil {
			slog.Warn("legacy data migration failed", "from", legacy, "error", err)
			continue
		}
		slog.Info("migrated legacy data file", "from", legacy, "to", target)
		return
	}
}

// quarantine renames a corrupt data file aside with a timestamp suffix so
// the bytes survive for inspection while startup proceeds on a fresh state.
func (st *Store) quarantine(path string, cause error) {
	slog.Warn("corrupt data file, quarantining", "path", path, "error", cause)
	ts := st.now().Format("20060102_150405")
	if err := os.Rename(path, fmt.Sprintf("%s.corrupt.%s", path, ts)); err != nil {
		slog.Warn("failed to quarantine data file", "error", err)
	}
}

// ///////////////////////////////////////////////
// Save
// ///////////////////////////////////////////////

// Save prunes the retention window and atomically writes state with the
// current schema version tag. The write error propagates: the caller keeps
// its dirty flag set and retries on the next eligible tick.
func (st *Store) Save(state *AccrualState) error {
	state.Prune(st.now(), st.retentionDays)
	doc := document{
		SchemaVersion:      paths.DataSchemaVersion,
		Date:               state.Date,
		Money:              state.Money,
		SettledDate:        state.SettledDate,
		History:            state.History,
		LastAfterWorkUsage: state.LastAfterWorkUsage,
	}
	if err := atomicfile.WriteJSON(st.dir.Data(), doc, 0o600); err != nil {
		return fmt.Errorf("save accrual data: %w", err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Quarantine Cleanup
// ///////////////////////////////////////////////

// quarantinePattern matches the timestamped backups produced by both this
// package and the settings loader.
const quarantinePattern = "*.corrupt.*"

// CleanupQuarantine removes quarantined backups older than maxAge. Called
// from the rate-limited housekeeping path; missing directories and unmatched
// entries are silently skipped.
func (st *Store) CleanupQuarantine(maxAge time.Duration) {
	entries, err := os.ReadDir(st.dir.Root)
	if err != nil {
		return
	}
	cutoff := st.now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matched, err := doublestar.Match(quarantinePattern, e.Name())
		if err != nil || !matched {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			fp := filepath.Join(st.dir.Root, e.Name())
			if rmErr := os.Remove(fp); rmErr == nil {
				slog.Debug("removed old quarantine backup", "file", e.Name())
			}
		}
	}
}
