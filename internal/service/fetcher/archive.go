package fetcher

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
)

const (
	extractedFileMode = 0o755
	extractedDirMode  = 0o755
)

var errUnverified = errors.New("artifact is not verified")

// ExtractBinaries unpacks the server and CLI binaries from a verified .tar.gz into
// destDir. Entries are matched by base name wherever they sit in the archive, and
// nothing else is written. A missing binary is reported as *release.PartialBinarySetError.
func ExtractBinaries(artifact *VerifiedArtifact, destDir string) (release.BinarySet, error) {
	if artifact == nil || artifact.SHA256 == "" {
		return release.BinarySet{}, errUnverified
	}

	if err := os.MkdirAll(destDir, extractedDirMode); err != nil {
		return release.BinarySet{}, fmt.Errorf("create %s: %w", destDir, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(artifact.Data))
	if err != nil {
		return release.BinarySet{}, fmt.Errorf("open gzip stream: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	var (
		set    release.BinarySet
		reader = tar.NewReader(gz)
	)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return release.BinarySet{}, fmt.Errorf("read archive: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Base(header.Name)
		if name != release.ServerBinary && name != release.CLIBinary {
			continue
		}

		target := filepath.Join(destDir, name)
		if err = writeEntry(target, reader, header.Size); err != nil {
			return release.BinarySet{}, err
		}

		if name == release.ServerBinary {
			set.Server = target
		} else {
			set.CLI = target
		}
	}

	return set, checkExtracted(set)
}

func writeEntry(target string, r io.Reader, size int64) error {
	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, extractedFileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err = io.CopyN(out, r, size); err != nil {
		_ = out.Close()

		return fmt.Errorf("extract %s: %w", target, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}

	return nil
}

func checkExtracted(set release.BinarySet) error {
	var partial release.PartialBinarySetError

	if set.Server == "" {
		partial.Missing = append(partial.Missing, release.ServerBinary)
	} else {
		partial.Placed = append(partial.Placed, release.ServerBinary)
	}

	if set.CLI == "" {
		partial.Missing = append(partial.Missing, release.CLIBinary)
	} else {
		partial.Placed = append(partial.Placed, release.CLIBinary)
	}

	if len(partial.Missing) > 0 {
		partial.Err = fmt.Errorf("not found in archive: %w", os.ErrNotExist)

		return &partial
	}

	return nil
}
