// Package errors provides the classified error primitives used across coverpack.
//
// Key features:
//   - ErrorCategory: broad classification (config, filesystem, compile, merge, ...)
//   - ErrorSeverity: impact level (fatal, error, warning), mapped to a log level by LogLevel
//   - ClassifiedError: structured error with category, severity, cause and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing messages
//
// Example usage:
//
//	err := errors.CompileError("pdflatex failed").
//		WithContext("source", src).
//		WithCause(runErr).
//		Build()
package errors
