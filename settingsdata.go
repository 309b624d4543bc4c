// Package fishcoin provides embedded assets for the fishcoin daemon.
//
// The root package exists solely to embed [settings.default.toml] via
// [DefaultSettingsTOML]. The settings package copies this file to the data
// directory on first run so users always start from a documented template.
package fishcoin

import _ "embed"

// DefaultSettingsTOML holds the raw bytes of settings.default.toml, embedded
// at build time. The [internal/settings] package writes this file to the data
// directory when no settings file exists yet.
//
//go:embed settings.default.toml
var DefaultSettingsTOML []byte
