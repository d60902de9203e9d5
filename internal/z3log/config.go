package z3log

// Config controls how strictly a log is read.
type Config struct {
	// SkipVersionCheck accepts logs from solvers older than MinVersion.
	SkipVersionCheck bool `toml:"skip_version_check"`
	// IgnoreInvalidLines turns malformed lines into warnings instead of aborting.
	IgnoreInvalidLines bool `toml:"ignore_invalid_lines"`
	// MaxDiagnostics caps the diagnostics kept in Result.Diagnostics. Zero or
	// less means the default of 100.
	MaxDiagnostics int `toml:"max_diagnostics"`
	// ProgressEvery is the number of lines between progress events and
	// cancellation checks.
	ProgressEvery int `toml:"progress_every"`
	// LogTermEqualities counts [eq-expl] lines into Stats.Equalities.
	LogTermEqualities bool `toml:"log_term_equalities"`
}

// MinVersion is the oldest Z3 release whose trace format is understood.
var MinVersion = [3]int{4, 8, 5}

// DefaultConfig is lenient: most real-world logs contain a few lines the
// reader does not model.
func DefaultConfig() Config {
	return Config{
		SkipVersionCheck:   true,
		IgnoreInvalidLines: true,
		MaxDiagnostics:     100,
		ProgressEvery:      1 << 14,
	}
}

func (c Config) normalized() Config {
	if c.MaxDiagnostics <= 0 {
		c.MaxDiagnostics = 100
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 1 << 14
	}
	return c
}
