// Package receipt persists the install receipt.
//
// FileRepository stores the receipt as indented JSON next to the runtime
// directories and exposes a Repository interface the provisioner depends on.
package receipt
