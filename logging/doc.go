// Package logging provides a minimal logging interface and adapters for agentweave.
//
// The Logger interface defines the standard leveled methods (Debug, Info,
// Warn, Error) with slog-style key/value arguments that orchestrators and the
// engine use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - WeaveLogger with run/component context and turn/run helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	wf, err := orchestration.NewSequential(participants, func(o *orchestration.SequentialOptions) {
//	    o.Logger = logger
//	})
package logging
