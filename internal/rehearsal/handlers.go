package rehearsal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"talentloop/internal/ai"
	appErrors "talentloop/internal/errors"
	"talentloop/internal/types"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

// startHandler opens a rehearsal session and asks the first question
func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "rehearsal.start")
	defer span.End()

	var req types.StartRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Invalid request body", err.Error(), appErrors.ErrCodeInvalidRequest, http.StatusBadRequest)
		return
	}

	resumeText := req.ResumeText
	if strings.TrimSpace(resumeText) == "" {
		resumeText = s.lookupResumeText(req.Resume)
	}

	session := s.Sessions.Create(ai.SessionContext{
		CandidateID:    req.ApplicationData.CandidateID,
		JobDescription: req.ApplicationData.JobDescription,
		ResumeText:     resumeText,
		MaxQuestions:   s.MaxQuestions,
	})
	span.SetAttributes(
		attribute.String("session.id", session.ID),
		attribute.Int("request.resume_length", len(resumeText)),
		attribute.Int("request.job_length", len(req.ApplicationData.JobDescription)),
	)

	session.mu.Lock()
	question, err := s.Interviewer.NextQuestion(ctx, session.context)
	if err == nil {
		session.pending = question
	}
	session.mu.Unlock()

	if err != nil {
		s.Sessions.Delete(session.ID)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "ai_processing"))
		s.Logger.LogError(err, "Failed to generate the opening question", "session_id", session.ID)
		writeErrorResponse(w, "Failed to start interview", err.Error(), appErrors.ErrCodeAIServiceFailed, http.StatusBadGateway)
		return
	}

	s.Logger.Info("Rehearsal session started",
		"session_id", session.ID,
		"candidate_id", req.ApplicationData.CandidateID,
		"interviewer", s.Interviewer.Name())

	writeJSON(w, http.StatusOK, types.StartResponse{SessionID: session.ID, Question: question})
}

// answerHandler records an answer and returns the next question, or the
// summary once the question limit is reached
func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "rehearsal.answer")
	defer span.End()

	var req types.AnswerRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid request body", err.Error(), appErrors.ErrCodeInvalidRequest, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		writeErrorResponse(w, "Missing answer", "answer field is required", appErrors.ErrCodeInvalidRequest, http.StatusBadRequest)
		return
	}

	session, ok := s.session(w, req.SessionID)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.completed {
		writeJSON(w, http.StatusOK, stopReply(session.summary))
		return
	}

	session.context.Exchanges = append(session.context.Exchanges, ai.Exchange{Question: session.pending, Answer: req.Answer})
	answered := len(session.context.Exchanges)
	span.SetAttributes(attribute.Int("session.answers", answered))

	if answered >= s.MaxQuestions {
		summary, err := s.Interviewer.Summarize(ctx, session.context)
		if err != nil {
			session.context.Exchanges = session.context.Exchanges[:answered-1]
			span.RecordError(err)
			s.Logger.LogError(err, "Failed to summarize rehearsal", "session_id", session.ID)
			writeErrorResponse(w, "Failed to evaluate interview", err.Error(), appErrors.ErrCodeAIServiceFailed, http.StatusBadGateway)
			return
		}
		session.completed = true
		session.summary = &summary
		s.Logger.Info("Rehearsal session completed", "session_id", session.ID, "answers", answered)
		writeJSON(w, http.StatusOK, stopReply(session.summary))
		return
	}

	question, err := s.Interviewer.NextQuestion(ctx, session.context)
	if err != nil {
		session.context.Exchanges = session.context.Exchanges[:answered-1]
		span.RecordError(err)
		s.Logger.LogError(err, "Failed to generate the next question", "session_id", session.ID)
		writeErrorResponse(w, "Failed to generate question", err.Error(), appErrors.ErrCodeAIServiceFailed, http.StatusBadGateway)
		return
	}
	session.pending = question

	writeJSON(w, http.StatusOK, types.AnswerResponse{Question: question})
}

// stopHandler ends a session early and summarizes whatever was answered
func (s *Server) stopHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "rehearsal.stop")
	defer span.End()

	var req types.StopRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid request body", err.Error(), appErrors.ErrCodeInvalidRequest, http.StatusBadRequest)
		return
	}

	session, ok := s.session(w, req.SessionID)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	session.mu.Lock()
	defer session.mu.Unlock()

	if !session.completed {
		summary, err := s.Interviewer.Summarize(ctx, session.context)
		if err != nil {
			span.RecordError(err)
			s.Logger.LogError(err, "Failed to summarize rehearsal", "session_id", session.ID)
			writeErrorResponse(w, "Failed to evaluate interview", err.Error(), appErrors.ErrCodeAIServiceFailed, http.StatusBadGateway)
			return
		}
		session.completed = true
		session.summary = &summary
		s.Logger.Info("Rehearsal session stopped", "session_id", session.ID, "answers", len(session.context.Exchanges))
	}

	writeJSON(w, http.StatusOK, types.StopResponse{Status: types.StatusCompleted, Summary: session.summary})
}

// resumeHandler serves a registered resume wrapped in a data envelope
func (s *Server) resumeHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.Resumes.Get(id)
	if !ok {
		writeErrorResponse(w, "Resume not found", fmt.Sprintf("no resume with id %q", id), appErrors.ErrCodeFileNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (s *Server) session(w http.ResponseWriter, id string) (*Session, bool) {
	if id == "" {
		writeErrorResponse(w, "Missing session id", "session_id field is required", appErrors.ErrCodeInvalidRequest, http.StatusBadRequest)
		return nil, false
	}
	session, ok := s.Sessions.Get(id)
	if !ok {
		writeErrorResponse(w, "Session not found", fmt.Sprintf("no session with id %q", id), appErrors.ErrCodeSessionNotFound, http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// lookupResumeText finds a registered resume whose file URL matches fileURL
func (s *Server) lookupResumeText(fileURL string) string {
	if fileURL == "" {
		return ""
	}
	s.Resumes.mu.RLock()
	defer s.Resumes.mu.RUnlock()
	for _, rec := range s.Resumes.resumes {
		if rec.FileURL == fileURL {
			return rec.ResumeText
		}
	}
	return ""
}

func stopReply(summary *types.Summary) types.AnswerResponse {
	return types.AnswerResponse{StopInterview: true, Status: types.StatusCompleted, Summary: summary}
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message, code string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message, Code: code})
}
