package synchrony

import "sync/atomic"

// GlobalConfig holds the process-wide tuning knobs: debug logging, the
// slurp size threshold, and auto-slurp. It is read-mostly: Configure sets
// it once at startup, before any File operation runs.
type GlobalConfig struct {
	// Debug enables the package's debug-level logging (see log.go). Off
	// by default.
	Debug bool

	// SizeLimit is the byte-size threshold below which File.Slurped will
	// read an OnDisk file fully into memory rather than keeping it as a
	// re-openable path.
	SizeLimit int64

	// AutoSlurp, when true, makes Slurped ignore SizeLimit and always
	// slurp an OnDisk file into memory.
	AutoSlurp bool
}

// defaultGlobalConfig is debug off, a conservative 64MiB slurp
// threshold, and no forced auto-slurp.
func defaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Debug:     false,
		SizeLimit: 64 << 20,
		AutoSlurp: false,
	}
}

var (
	globalConfig atomic.Value // GlobalConfig
	configSealed atomic.Bool
)

func init() {
	globalConfig.Store(defaultGlobalConfig())
}

// Configure installs cfg as the process-wide GlobalConfig. It must be
// called, if at all, before any File operation in this process — once
// sealed by MarkConfigInUse, Configure returns ErrAlreadyConfigured
// instead of silently racing with in-flight operations.
func Configure(cfg GlobalConfig) error {
	if configSealed.Load() {
		return ErrAlreadyConfigured
	}
	globalConfig.Store(cfg)
	configureLogger(cfg.Debug)
	return nil
}

// Config returns the current process-wide GlobalConfig.
func Config() GlobalConfig {
	return globalConfig.Load().(GlobalConfig)
}

// MarkConfigInUse seals the global configuration against further
// Configure calls. Every File-producing constructor in package efile
// calls this on first use; it is idempotent.
func MarkConfigInUse() {
	if configSealed.CompareAndSwap(false, true) {
		configureLogger(Config().Debug)
	}
}
