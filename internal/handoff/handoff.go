package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"
	"talentloop/internal/types"

	"github.com/redis/go-redis/v9"
)

// ErrCorrupt is returned by Load when stored data cannot be decoded
var ErrCorrupt = errors.New("handoff data is corrupt")

// Handoff carries data between the job, system-check, interview and result flows
type Handoff struct {
	ResumeID             string                 `json:"resumeId,omitempty"`
	ResumeFileName       string                 `json:"resumeFileName,omitempty"`
	AppliedJobID         string                 `json:"appliedJobId,omitempty"`
	AppliedJobTitle      string                 `json:"appliedJobTitle,omitempty"`
	AppliedJobCompany    string                 `json:"appliedJobCompany,omitempty"`
	ApplicationForm      *types.ApplicationForm `json:"applicationFormData,omitempty"`
	SystemCheckCompleted bool                   `json:"systemCheckCompleted,omitempty"`
	InterviewResult      *types.Scorecard       `json:"interviewResult,omitempty"`
	AuthToken            string                 `json:"token,omitempty"`
	User                 *types.Profile         `json:"user,omitempty"`
	UpdatedAt            time.Time              `json:"updatedAt,omitzero"`
}

// ApplicationData returns the application payload for the start call, or
// the zero value when no application was recorded
func (h Handoff) ApplicationData() types.ApplicationData {
	var data types.ApplicationData
	if h.ApplicationForm != nil {
		data.ApplicationForm = *h.ApplicationForm
		data.JobID = h.AppliedJobID
	}
	return data
}

// Store persists a single Handoff record
type Store interface {
	Load(ctx context.Context) (Handoff, error)
	Save(ctx context.Context, h Handoff) error
	Update(ctx context.Context, fn func(*Handoff) error) error
	Clear(ctx context.Context) error
	Close() error
}

// Open selects the backend named in cfg
func Open(ctx context.Context, cfg config.HandoffConfig, logger *appErrors.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.FilePath, logger)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, appErrors.NewIOError(appErrors.ErrCodeHandoffStore,
				"Failed to connect to Redis handoff store", err).
				WithContext("addr", cfg.Redis.Addr)
		}
		return NewRedisStore(rdb, cfg.KeyPrefix, cfg.TTL), nil
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported handoff backend: %s", cfg.Backend), nil)
	}
}

// PutScorecard stores the interview result
func PutScorecard(ctx context.Context, s Store, sc types.Scorecard) error {
	return s.Update(ctx, func(h *Handoff) error {
		h.InterviewResult = &sc
		return nil
	})
}

// Scorecard returns the stored interview result and whether one exists
func Scorecard(ctx context.Context, s Store) (types.Scorecard, bool, error) {
	h, err := s.Load(ctx)
	if err != nil {
		return types.Scorecard{}, false, err
	}
	if h.InterviewResult == nil {
		return types.Scorecard{}, false, nil
	}
	return *h.InterviewResult, true, nil
}

// JobDescription formats the description sent with an application
func JobDescription(job types.Job) string {
	return fmt.Sprintf("%s at %s. Required skills: %s", job.Title, job.Company, strings.Join(job.Tags, ", "))
}

// BeginApplication records the job and resume an interview will be held for.
// Any previous result is dropped.
func BeginApplication(ctx context.Context, s Store, job types.Job, candidateID, resumeID, fileName string) error {
	if resumeID == "" {
		return appErrors.NewValidationError(appErrors.ErrCodeMissingResume, "A resume ID is required to start an application", nil)
	}

	return s.Update(ctx, func(h *Handoff) error {
		h.ResumeID = resumeID
		h.ResumeFileName = fileName
		h.AppliedJobID = job.ID
		h.AppliedJobTitle = job.Title
		h.AppliedJobCompany = job.Company
		h.ApplicationForm = &types.ApplicationForm{
			TemplateID:     job.ID,
			CandidateID:    candidateID,
			JobDescription: JobDescription(job),
		}
		h.InterviewResult = nil
		return nil
	})
}

// MarkSystemCheckCompleted records a passed system check
func MarkSystemCheckCompleted(ctx context.Context, s Store) error {
	return s.Update(ctx, func(h *Handoff) error {
		h.SystemCheckCompleted = true
		return nil
	})
}

// SaveAuth records the signed-in user and token
func SaveAuth(ctx context.Context, s Store, token string, user *types.Profile) error {
	return s.Update(ctx, func(h *Handoff) error {
		h.AuthToken = token
		h.User = user
		return nil
	})
}

// ClearAuth forgets the signed-in user and token
func ClearAuth(ctx context.Context, s Store) error {
	return SaveAuth(ctx, s, "", nil)
}
