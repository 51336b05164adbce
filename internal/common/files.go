package common

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"talentloop/internal/errors"
)

// maxResumeBytes bounds resume files served by the rehearsal server
const maxResumeBytes = 5 << 20

var textExtensions = []string{".txt", ".text", ".md", ".markdown"}

// CheckResumeFile reports whether path names a readable resume file of a
// servable size. Files without a text extension only produce a warning.
func CheckResumeFile(path string, logger *errors.Logger) error {
	if path == "" {
		return errors.NewValidationError(errors.ErrCodeFileNotFound, "Resume path is empty", nil)
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return errors.NewValidationError(errors.ErrCodeFileNotFound, "Resume file not found", err).
			WithContext("path", path)
	case err != nil:
		return errors.NewValidationError(errors.ErrCodeFileNotReadable, "Resume file cannot be inspected", err).
			WithContext("path", path)
	case info.IsDir():
		return errors.NewValidationError(errors.ErrCodeFileNotReadable, "Resume path is a directory", nil).
			WithContext("path", path)
	case info.Size() > maxResumeBytes:
		return errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Resume file is larger than %d bytes", maxResumeBytes), nil).
			WithContext("path", path).WithContext("size", info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeFileNotReadable, "Resume file cannot be opened", err).
			WithContext("path", path)
	}
	_ = f.Close()

	if !IsTextFile(path) && logger != nil {
		logger.Warn("Resume file may not be plain text", "path", path)
	}
	return nil
}

// IsTextFile reports whether the extension marks a plain-text document
func IsTextFile(path string) bool {
	return slices.Contains(textExtensions, strings.ToLower(filepath.Ext(path)))
}

// WriteFileAtomic creates any missing parent directories, writes data to a
// temporary sibling and renames it over path. Readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED", "Cannot create output directory", err).
			WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot create temporary output file", err).
			WithContext("path", path)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write output file", err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write output file", err).WithContext("path", path)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot set output file mode", err).WithContext("path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot move output file into place", err).WithContext("path", path)
	}
	return nil
}
