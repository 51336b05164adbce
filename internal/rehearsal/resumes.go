package rehearsal

import (
	"os"
	"path/filepath"
	"sync"

	appErrors "talentloop/internal/errors"
	"talentloop/internal/types"
)

// ResumeRegistry serves stored resumes by id
type ResumeRegistry struct {
	mu      sync.RWMutex
	resumes map[string]types.ResumeRecord
}

// NewResumeRegistry creates an empty registry
func NewResumeRegistry() *ResumeRegistry {
	return &ResumeRegistry{resumes: make(map[string]types.ResumeRecord)}
}

// Put stores rec under id
func (r *ResumeRegistry) Put(id string, rec types.ResumeRecord) {
	r.mu.Lock()
	r.resumes[id] = rec
	r.mu.Unlock()
}

// Get returns the resume stored under id
func (r *ResumeRegistry) Get(id string) (types.ResumeRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.resumes[id]
	return rec, ok
}

// RegisterFile reads a plain-text resume from path and stores it under id
func (r *ResumeRegistry) RegisterFile(id, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return appErrors.NewIOError(appErrors.ErrCodeFileNotFound, "Resume file not found", err).
				WithContext("path", path)
		}
		return appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "Resume file could not be read", err).
			WithContext("path", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.Put(id, types.ResumeRecord{
		FileURL:    "file://" + filepath.ToSlash(abs),
		ResumeText: string(data),
		FileName:   filepath.Base(path),
	})
	return nil
}

// Len returns the number of registered resumes
func (r *ResumeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resumes)
}
