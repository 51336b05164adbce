package types

import "time"

// Role identifies who produced a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleAI        Role = "ai"
	RoleCandidate Role = "candidate"
)

// ConversationTurn is one entry of the interview log. Turns are never mutated
// after they are appended.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the server-issued interview session held by the client
type Session struct {
	ID                string        `json:"id"`
	StartedAt         time.Time     `json:"startedAt"`
	EstimatedDuration time.Duration `json:"estimatedDuration"`
}

// Scorecard is the terminal evaluation handed to the results view
type Scorecard struct {
	OverallScore         int      `json:"overallScore" yaml:"overallScore"`
	CommunicationScore   float64  `json:"communicationScore" yaml:"communicationScore"`
	TechnicalScore       float64  `json:"technicalScore" yaml:"technicalScore"`
	ConfidenceScore      float64  `json:"confidenceScore" yaml:"confidenceScore"`
	Strengths            []string `json:"strengths" yaml:"strengths"`
	Improvements         []string `json:"improvements" yaml:"improvements"`
	HRStatus             string   `json:"hrStatus" yaml:"hrStatus"`
	ExpectedResponseTime string   `json:"expectedResponseTime" yaml:"expectedResponseTime"`
}

// SkillScores are the per-skill scores of a server summary, on a 0-10 scale
type SkillScores struct {
	Communication         float64 `json:"communication"`
	RoleSpecificKnowledge float64 `json:"role_specific_knowledge"`
	Confidence            float64 `json:"confidence"`
}

// Summary is the server's end-of-interview evaluation
type Summary struct {
	OverallScore         float64     `json:"overall_score"`
	SkillWiseScores      SkillScores `json:"skill_wise_scores"`
	Strengths            []string    `json:"strengths"`
	ImprovementAreas     []string    `json:"improvement_areas"`
	FinalRecommendation  string      `json:"final_recommendation,omitempty"`
	ExpectedResponseTime string      `json:"expected_response_time,omitempty"`
}

// ApplicationForm is the application data written by the job flow
type ApplicationForm struct {
	TemplateID     string `json:"templateId"`
	CandidateID    string `json:"candidateId"`
	JobDescription string `json:"jobDescription"`
}

// ApplicationData is sent with the start call
type ApplicationData struct {
	ApplicationForm
	JobID string `json:"jobId,omitempty"`
}

// ResumeRecord is the resume payload returned by the resumes endpoint
type ResumeRecord struct {
	FileURL    string `json:"file_url"`
	ResumeText string `json:"resume_text"`
	FileName   string `json:"file_name"`
}

// StartRequest is the body of POST /api/v1/interview/start
type StartRequest struct {
	Action          string          `json:"action"`
	Resume          string          `json:"resume"` // file URL of the stored resume
	ResumeText      string          `json:"resumeText"`
	ResumeFileName  string          `json:"resumeFileName"`
	ApplicationData ApplicationData `json:"applicationData"`
}

// StartResponse is the reply of the start call
type StartResponse struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
}

// AnswerRequest is the body of POST /api/v1/interview/answer
type AnswerRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// AnswerResponse carries either the next question or a termination signal
type AnswerResponse struct {
	Question      string   `json:"question,omitempty"`
	StopInterview bool     `json:"stop_interview,omitempty"`
	Status        string   `json:"status,omitempty"`
	Summary       *Summary `json:"summary,omitempty"`
}

// StopRequest is the body of POST /api/v1/interview/stop
type StopRequest struct {
	SessionID string `json:"session_id"`
}

// StopResponse is the reply of the stop call
type StopResponse struct {
	Status  string   `json:"status,omitempty"`
	Summary *Summary `json:"summary,omitempty"`
}

// StatusCompleted is the status the server reports for a scored session
const StatusCompleted = "completed"

// Job is a job posting
type Job struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location,omitempty"`
	Type        string   `json:"type,omitempty"`
	Salary      string   `json:"salary,omitempty"`
	Description string   `json:"description,omitempty"`
	Experience  string   `json:"experience,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Saved       bool     `json:"saved,omitempty"`
}

// Application is a candidate's application to a job
type Application struct {
	ID        string    `json:"id"`
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	Job       *Job      `json:"job,omitempty"`
}

// Profile is the signed-in user's profile
type Profile struct {
	ID                string `json:"id,omitempty"`
	Email             string `json:"email,omitempty"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	Phone             string `json:"phone,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
	Timezone          string `json:"timezone,omitempty"`
}

// Credentials are used for login and signup
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// AuthResult is returned by login and signup
type AuthResult struct {
	Success bool    `json:"success"`
	Token   string  `json:"token"`
	User    Profile `json:"user"`
}

// CheckStep is the result of one system check step
type CheckStep struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// SystemCheckReport summarises a pre-interview system check
type SystemCheckReport struct {
	Steps          []CheckStep   `json:"steps" yaml:"steps"`
	Passed         bool          `json:"passed" yaml:"passed"`
	NetworkLatency time.Duration `json:"networkLatency" yaml:"networkLatency"`
	NetworkSpeed   float64       `json:"networkSpeedMbps" yaml:"networkSpeedMbps"`
	MicLevel       float64       `json:"micLevel" yaml:"micLevel"`
}
