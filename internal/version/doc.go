// Package version exposes build metadata for the installer binaries.
//
// Version, Commit and BuildTime are injected through ldflags. Version doubles as
// the default Streamline release the installer targets.
package version
