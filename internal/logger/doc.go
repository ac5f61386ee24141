// Package logger wraps zap to give every installer component:
//   - a process-wide sugared logger writing console lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing with an environment override,
//   - leveled helpers (Infof, WarnKV, ErrorKV, etc.) that take a context.
//
// Stdout is left to the CLI for user-facing output such as caveats and status.
package logger
