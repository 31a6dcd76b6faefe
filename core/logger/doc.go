// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) with console or JSON encoding.
//
// # Run Correlation
//
// Every sync invocation gets a run id. The WithRun helper attaches it to the
// log entry, ensuring that all logs related to a specific run can be
// correlated even when output from a scheduler interleaves runs.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Sync started")
//
//	// Inside a run:
//	l := logger.WithRun(log, runID)
//	l.Error("Sync failed", zap.Error(err))
package logger
