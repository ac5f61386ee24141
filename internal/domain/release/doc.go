// Package release models the installable Streamline release: the host platform key,
// per-platform artifact descriptors, the integrity record of expected hashes,
// the binary sets produced by an install and the error taxonomy shared by
// every installer component.
package release
