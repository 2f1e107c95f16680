package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// server changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	MinAudioBytesChanged bool
	NewMinAudioBytes     int

	SessionTTLChanged bool
}

// Any reports whether the diff carries at least one applicable change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.MinAudioBytesChanged || d.SessionTTLChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Analysis.MinAudioBytes != new.Analysis.MinAudioBytes {
		d.MinAudioBytesChanged = true
		d.NewMinAudioBytes = new.Analysis.MinAudioBytes
	}

	if old.Chat.SessionTTL != new.Chat.SessionTTL {
		d.SessionTTLChanged = true
	}

	return d
}
