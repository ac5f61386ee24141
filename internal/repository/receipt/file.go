package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
)

// Repository defines persistence operations for the install receipt.
type Repository interface {
	Load(ctx context.Context) (*release.Receipt, error)
	Save(ctx context.Context, receipt *release.Receipt) error
}

// FileRepository persists the receipt to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the receipt.
	path string
	// mu serialises access to the receipt file.
	mu sync.Mutex
}

const (
	receiptFileMode = 0o644
	receiptDirMode  = 0o755
)

// ErrNotFound is returned when nothing has been installed yet.
var ErrNotFound = errors.New("receipt not found")

// NewFileRepository creates a repository that reads and writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the receipt location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the receipt from disk.
func (r *FileRepository) Load(_ context.Context) (*release.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var rec release.Receipt
	if err = json.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	return &rec, nil
}

// Save writes the receipt through a temporary file and a rename so readers never
// observe a half-written receipt.
func (r *FileRepository) Save(_ context.Context, rec *release.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), receiptDirMode); err != nil {
		return fmt.Errorf("create receipt directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, receiptFileMode); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("replace receipt: %w", err)
	}

	return nil
}
