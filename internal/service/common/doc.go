// Package common holds helpers shared by several services.
//
// It detects the current actor (hostname/username) for install receipts and
// wraps the standard gRPC health client used by the smoke-test probe.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
