package transport

import (
	"context"
	"net/http"
	"net/url"

	"talentloop/internal/types"
)

// StartInterview opens a session. It is not retried.
func (c *Client) StartInterview(ctx context.Context, req types.StartRequest) (*types.StartResponse, error) {
	if req.Action == "" {
		req.Action = "start"
	}

	var out types.StartResponse
	err := c.do(ctx, call{
		operation: "interview.start",
		method:    http.MethodPost,
		path:      "/api/v1/interview/start",
		body:      req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAnswer sends one answer and returns the next question or a stop signal
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, answer string) (*types.AnswerResponse, error) {
	var out types.AnswerResponse
	err := c.do(ctx, call{
		operation: "interview.answer",
		method:    http.MethodPost,
		path:      "/api/v1/interview/answer",
		body:      types.AnswerRequest{SessionID: sessionID, Answer: answer},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StopInterview ends a session early and returns its summary, if any
func (c *Client) StopInterview(ctx context.Context, sessionID string) (*types.StopResponse, error) {
	var out types.StopResponse
	err := c.do(ctx, call{
		operation: "interview.stop",
		method:    http.MethodPost,
		path:      "/api/v1/interview/stop",
		body:      types.StopRequest{SessionID: sessionID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchResume loads a stored resume
func (c *Client) FetchResume(ctx context.Context, id string) (*types.ResumeRecord, error) {
	var out types.ResumeRecord
	err := c.do(ctx, call{
		operation: "resumes.get",
		method:    http.MethodGet,
		path:      "/api/v1/resumes/" + url.PathEscape(id),
		envelope:  true,
		retry:     true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs returns all open jobs
func (c *Client) ListJobs(ctx context.Context) ([]types.Job, error) {
	var out []types.Job
	err := c.do(ctx, call{
		operation: "jobs.list",
		method:    http.MethodGet,
		path:      "/api/v1/jobs",
		envelope:  true,
		retry:     true,
	}, &out)
	return out, err
}

// ListSavedJobs returns the jobs the user saved
func (c *Client) ListSavedJobs(ctx context.Context) ([]types.Job, error) {
	var out []types.Job
	err := c.do(ctx, call{
		operation: "jobs.saved",
		method:    http.MethodGet,
		path:      "/api/v1/jobs/saved",
		envelope:  true,
		retry:     true,
	}, &out)
	return out, err
}

// ToggleSavedJob saves or unsaves a job and reports the new state
func (c *Client) ToggleSavedJob(ctx context.Context, jobID string) (bool, error) {
	var out struct {
		Saved bool `json:"saved"`
	}
	err := c.do(ctx, call{
		operation: "jobs.toggle_saved",
		method:    http.MethodPost,
		path:      "/api/v1/jobs/saved/" + url.PathEscape(jobID),
		envelope:  true,
	}, &out)
	return out.Saved, err
}

// ListApplications returns the user's applications
func (c *Client) ListApplications(ctx context.Context) ([]types.Application, error) {
	var out []types.Application
	err := c.do(ctx, call{
		operation: "applications.list",
		method:    http.MethodGet,
		path:      "/api/v1/applications",
		envelope:  true,
		retry:     true,
	}, &out)
	return out, err
}

// Apply submits an application for jobID
func (c *Client) Apply(ctx context.Context, jobID string) (*types.Application, error) {
	var out types.Application
	err := c.do(ctx, call{
		operation: "applications.create",
		method:    http.MethodPost,
		path:      "/api/v1/applications",
		body:      map[string]string{"jobId": jobID},
		envelope:  true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProfile returns the signed-in user's profile
func (c *Client) GetProfile(ctx context.Context) (*types.Profile, error) {
	var out types.Profile
	err := c.do(ctx, call{
		operation: "profile.get",
		method:    http.MethodGet,
		path:      "/api/v1/users/me",
		envelope:  true,
		retry:     true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile saves editable profile fields and returns the stored profile
func (c *Client) UpdateProfile(ctx context.Context, profile types.Profile) (*types.Profile, error) {
	var out types.Profile
	err := c.do(ctx, call{
		operation: "profile.update",
		method:    http.MethodPut,
		path:      "/api/v1/users/me",
		body:      profile,
		envelope:  true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a user. The returned token, if any, is kept for later calls.
func (c *Client) Signup(ctx context.Context, creds types.Credentials) (*types.AuthResult, error) {
	return c.authenticate(ctx, "auth.signup", "/api/auth/signup", creds)
}

// Login signs a user in and keeps the returned token
func (c *Client) Login(ctx context.Context, creds types.Credentials) (*types.AuthResult, error) {
	return c.authenticate(ctx, "auth.login", "/api/auth/login", types.Credentials{
		Email:    creds.Email,
		Password: creds.Password,
	})
}

func (c *Client) authenticate(ctx context.Context, operation, path string, creds types.Credentials) (*types.AuthResult, error) {
	var out types.AuthResult
	err := c.do(ctx, call{
		operation: operation,
		method:    http.MethodPost,
		path:      path,
		body:      creds,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return &out, nil
}

// Logout notifies the platform and drops the local token even if the call fails
func (c *Client) Logout(ctx context.Context) error {
	defer c.ClearToken()
	return c.do(ctx, call{
		operation: "auth.logout",
		method:    http.MethodPost,
		path:      "/api/auth/logout",
	}, nil)
}
