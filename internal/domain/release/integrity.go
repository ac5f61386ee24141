package release

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlaceholderPrefix starts every "not yet computed" hash in an integrity record.
const PlaceholderPrefix = "PLACEHOLDER_SHA256"

// sha256HexLength is the length of a hex-encoded SHA-256 digest.
const sha256HexLength = 64

// recordFileMode is used when writing integrity records.
const recordFileMode = 0o644

// IntegrityRecord maps each target triple to the hex SHA-256 of its artifact.
type IntegrityRecord struct {
	// Version is the release the hashes belong to.
	Version string `yaml:"version"`
	// SHA256 maps target triples to hex digests or placeholders.
	SHA256 map[string]string `yaml:"sha256"`
}

// NewIntegrityRecord returns a record where every supported platform holds its placeholder.
func NewIntegrityRecord(version string) *IntegrityRecord {
	record := &IntegrityRecord{
		Version: strings.TrimPrefix(version, "v"),
		SHA256:  make(map[string]string, len(SupportedPlatforms())),
	}

	for _, key := range SupportedPlatforms() {
		record.SHA256[key.Triple()] = key.placeholder()
	}

	return record
}

// IsPlaceholder reports whether hash marks a digest that was never computed.
// An empty hash counts as a placeholder.
func IsPlaceholder(hash string) bool {
	hash = strings.TrimSpace(hash)

	return hash == "" || strings.HasPrefix(strings.ToUpper(hash), PlaceholderPrefix)
}

// Hash returns the recorded digest for a platform, or "" when absent.
func (r *IntegrityRecord) Hash(key PlatformKey) string {
	if r == nil {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(r.SHA256[key.Triple()]))
}

// Set stores a digest for a platform after checking it is a well-formed SHA-256 hex string.
func (r *IntegrityRecord) Set(key PlatformKey, digest string) error {
	digest = strings.ToLower(strings.TrimSpace(digest))
	if err := ValidateDigest(digest); err != nil {
		return fmt.Errorf("%s: %w", key.Triple(), err)
	}

	if r.SHA256 == nil {
		r.SHA256 = make(map[string]string, len(SupportedPlatforms()))
	}

	r.SHA256[key.Triple()] = digest

	return nil
}

// Pending lists the supported platforms whose hash is still a placeholder.
func (r *IntegrityRecord) Pending() []PlatformKey {
	var pending []PlatformKey

	for _, key := range SupportedPlatforms() {
		if IsPlaceholder(r.Hash(key)) {
			pending = append(pending, key)
		}
	}

	return pending
}

// ValidateDigest checks that digest is a 64-character hex SHA-256 value.
func ValidateDigest(digest string) error {
	if len(digest) != sha256HexLength {
		return fmt.Errorf("digest %q is %d characters, want %d", digest, len(digest), sha256HexLength)
	}

	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("digest %q: %w", digest, err)
	}

	return nil
}

// LoadIntegrityRecord reads a YAML integrity record from path.
func LoadIntegrityRecord(path string) (*IntegrityRecord, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read integrity record: %w", err)
	}

	var record IntegrityRecord
	if err = yaml.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("unmarshal integrity record: %w", err)
	}

	if record.SHA256 == nil {
		record.SHA256 = make(map[string]string)
	}

	return &record, nil
}

// SaveIntegrityRecord writes the record to path as YAML.
func SaveIntegrityRecord(path string, record *IntegrityRecord) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal integrity record: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, recordFileMode); err != nil {
		return fmt.Errorf("write integrity record: %w", err)
	}

	return nil
}
