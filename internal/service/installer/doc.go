// Package installer places verified or freshly built binaries into the bin
// directory and prepares the runtime directories.
//
// Placement goes through go-update, which writes the new file next to the
// target, checks its checksum and swaps it in. Re-running an install with the
// same inputs overwrites in place.
package installer
