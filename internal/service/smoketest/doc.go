// Package smoketest starts a freshly installed server in an isolated session,
// probes it, asserts it initialised its storage and always terminates it.
//
// A session moves through Launching, Probing, Asserting and Terminating. Once
// the child is spawned, termination and reaping happen on every exit path.
// Termination sends SIGTERM, waits a bounded time and escalates to SIGKILL when
// configured to. A child that cannot be confirmed gone is reported as
// release.ErrCleanupFailed.
package smoketest
