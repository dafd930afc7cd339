package config

import "reflect"

// ConfigDiff describes what changed between two configs. Session and logging
// changes can be hot-reloaded; provider changes need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SessionChanged is true when any session tuning field changed
	// (wake word, follow-up timeout, thresholds, debug, feedback).
	SessionChanged bool
	NewSession     SessionConfig

	// ProvidersChanged is true when the provider selection or settings
	// changed. Applying it requires rebuilding the pipeline.
	ProvidersChanged bool
}

// Empty reports whether the diff carries no changes.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.SessionChanged && !d.ProvidersChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !reflect.DeepEqual(old.Session, new.Session) {
		d.SessionChanged = true
		d.NewSession = new.Session
	}

	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.ProvidersChanged = true
	}

	return d
}
