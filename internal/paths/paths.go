// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// DataSchemaVersion is the current accrual data file schema version.
// The data file name carries the version so a downgrade never parses a
// newer schema by accident.
const DataSchemaVersion = 1

// SettingsSchemaVersion is the current settings file schema version.
const SettingsSchemaVersion = 1

// Data directory file names.
const (
	DataFile     = "data_schema_v1.json"
	SettingsFile = "settings.toml"
	LockFile     = "daemon.lock"
	LogFile      = "daemon.log"
	ControlName  = "control.sock"
)

// AppDirName is the per-user application data directory name.
const AppDirName = "FishTouchingCoin"

// Legacy file names from earlier releases, searched in both the current
// working directory and the data directory and migrated on first access.
var (
	LegacyDataFiles     = []string{"fish_data_v1.5.json"}
	LegacySettingsFiles = []string{"fish_settings_v1.json", "settings_schema_v1.json"}
)

// ///////////////////////////////////////////////
// Resolution
// ///////////////////////////////////////////////

// DefaultRoot resolves the per-user data directory. It prefers %APPDATA%
// (Windows), then $XDG_DATA_HOME, then ~/.local/share, joining the
// application directory name. Falls back to a dot directory under the
// current working directory if no home can be determined.
func DefaultRoot() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, AppDirName)
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppDirName)
	}
	return filepath.Join(home, ".local", "share", AppDirName)
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Data returns the full path to the accrual data file.
func (d DataDir) Data() string { return filepath.Join(d.Root, DataFile) }

// Settings returns the full path to the settings file.
func (d DataDir) Settings() string { return filepath.Join(d.Root, SettingsFile) }

// Lock returns the full path to the single-instance lock file.
func (d DataDir) Lock() string { return filepath.Join(d.Root, LockFile) }

// Log returns the full path to the daemon log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Control returns the control channel endpoint. On POSIX systems this is a
// unix socket path inside the data directory; the Windows listener derives
// a named pipe name from the same base name.
func (d DataDir) Control() string { return filepath.Join(d.Root, ControlName) }

// LegacyData returns every historical location of the accrual data file, in
// migration priority order: current working directory first, then the data
// directory, for each legacy name.
func (d DataDir) LegacyData() []string { return d.legacy(LegacyDataFiles) }

// LegacySettings returns every historical location of the settings file.
func (d DataDir) LegacySettings() []string { return d.legacy(LegacySettingsFiles) }

func (d DataDir) legacy(names []string) []string {
	out := make([]string, 0, 2*len(names))
	for _, name := range names {
		if abs, err := filepath.Abs(name); err == nil {
			out = append(out, abs)
		}
		out = append(out, filepath.Join(d.Root, name))
	}
	return out
}
