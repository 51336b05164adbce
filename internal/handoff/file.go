package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	appErrors "talentloop/internal/errors"
)

// FileStore keeps the handoff as a JSON file. Writes go through a temp file
// and a rename so readers never see a partial record.
type FileStore struct {
	path   string
	logger *appErrors.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store at path, creating its directory if needed
func NewFileStore(path string, logger *appErrors.Logger) (*FileStore, error) {
	if path == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig, "Handoff file path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to create handoff directory", err).
			WithContext("path", path)
	}
	if logger == nil {
		logger = appErrors.NewNopLogger()
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path returns the file the store writes
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(ctx context.Context) (Handoff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStore) Save(ctx context.Context, h Handoff) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(h)
}

func (f *FileStore) Update(ctx context.Context, fn func(*Handoff) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := f.read()
	if err != nil {
		// a corrupt record is replaced rather than blocking every later write
		if !isCorrupt(err) {
			return err
		}
		f.logger.Warn("Replacing corrupt handoff file", "path", f.path)
		h = Handoff{}
	}
	if err := fn(&h); err != nil {
		return err
	}
	return f.write(h)
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to remove handoff file", err).
			WithContext("path", f.path)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) read() (Handoff, error) {
	var h Handoff

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return h, appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "Failed to read handoff file", err).
			WithContext("path", f.path)
	}
	if len(data) == 0 {
		return h, nil
	}

	if err := json.Unmarshal(data, &h); err != nil {
		return Handoff{}, appErrors.NewIOError(appErrors.ErrCodeInvalidFormat, "Failed to decode handoff file",
			fmt.Errorf("%w: %v", ErrCorrupt, err)).
			WithContext("path", f.path)
	}
	return h, nil
}

func (f *FileStore) write(h Handoff) error {
	h.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return appErrors.NewInternalError(appErrors.ErrCodeHandoffStore, "Failed to encode handoff", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to create temp handoff file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to write handoff file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to write handoff file", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to replace handoff file", err).
			WithContext("path", f.path)
	}
	return nil
}

func isCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
