// Package packager computes the integrity record of a release.
//
// For every supported platform it downloads the release archive (or reads it
// from a local directory), hashes it with SHA-256 and writes the YAML record the
// installer consumes through release.checksums_file. Platforms whose archive is
// not available keep their placeholder, which blocks installs on them.
package packager
