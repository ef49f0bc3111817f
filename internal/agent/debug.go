package agent

import "sync/atomic"

// debugLoggingEnabled controls per-tick debug logging of the control loops.
// Combat ticks every 50ms, checking the handler level on each call adds up.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging enables or disables debug logging for the agent.
// Must be called during initialization (from main after parsing config).
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled returns true if debug logging is enabled.
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
