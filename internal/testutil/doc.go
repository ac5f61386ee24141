// Package testutil provides shared test helpers: release archives built in
// memory, fake server executables and free-port reservation.
package testutil
