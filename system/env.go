// Package system provides the host-level primitives the runtime core is
// built on: hardware topology discovery, environment configuration, and the
// small synchronization primitives (monitor, rendezvous) used above the Go
// runtime's own scheduler.
package system

import (
	"os"
	"strings"
)

const (
	envCompilerOptions  = "OPENCRUN_COMPILER_OPTIONS"
	envInternalDiag     = "OPENCRUN_INTERNAL_DIAGNOSTIC"
	envProfiledCounters = "OPENCRUN_PROFILED_COUNTERS"
)

// CompilerOptions returns the extra compiler options that OPENCRUN_COMPILER_OPTIONS
// prepends to every program build, split on whitespace.
func CompilerOptions() []string {
	v := os.Getenv(envCompilerOptions)
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

// InternalDiagnosticEnabled reports whether OPENCRUN_INTERNAL_DIAGNOSTIC is set,
// which mirrors internal diagnostics to stderr in addition to the context's
// error callback.
func InternalDiagnosticEnabled() bool {
	_, ok := os.LookupEnv(envInternalDiag)
	return ok
}

// ProfiledCounters parses OPENCRUN_PROFILED_COUNTERS, a colon-separated list.
// The only counter currently defined is "time".
func ProfiledCounters() map[string]bool {
	v := os.Getenv(envProfiledCounters)
	counters := make(map[string]bool)
	for _, c := range strings.Split(v, ":") {
		c = strings.TrimSpace(c)
		if c != "" {
			counters[c] = true
		}
	}
	return counters
}

// TimeProfilingRequested reports whether the "time" counter was requested via
// OPENCRUN_PROFILED_COUNTERS. Queues created with profiling enabled collect
// timestamps regardless, and profiler.NewMetrics registers its prometheus
// collectors without consulting it.
func TimeProfilingRequested() bool {
	return ProfiledCounters()["time"]
}
