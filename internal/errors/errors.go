package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeMedia      ErrorType = "media"
	ErrorTypeSpeech     ErrorType = "speech"
	ErrorTypeSession    ErrorType = "session"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

func NewMediaError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeMedia, code, message, cause)
}

func NewSpeechError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeSpeech, code, message, cause)
}

func NewSessionError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeSession, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Common error codes
const (
	ErrCodeFileNotFound    = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat   = "INVALID_FORMAT"
	ErrCodeAIServiceFailed = "AI_SERVICE_FAILED"
	ErrCodeAITimeout       = "AI_TIMEOUT"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeMissingAPIKey   = "MISSING_API_KEY"
	ErrCodeNetworkTimeout  = "NETWORK_TIMEOUT"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"

	ErrCodeHTTPStatus      = "HTTP_STATUS"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeCircuitOpen     = "CIRCUIT_OPEN"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeDecodeResponse  = "DECODE_RESPONSE"
	ErrCodeRequestFailed   = "REQUEST_FAILED"
	ErrCodeEncodeRequest   = "ENCODE_REQUEST"
	ErrCodePermission      = "MEDIA_PERMISSION_DENIED"
	ErrCodeDeviceNotFound  = "MEDIA_DEVICE_NOT_FOUND"
	ErrCodeSpeechFailed    = "SPEECH_FAILED"
	ErrCodeSpeechOff       = "SPEECH_UNAVAILABLE"
	ErrCodeNoSession       = "SESSION_NOT_STARTED"
	ErrCodeResultMissing   = "RESULT_MISSING"
	ErrCodeMissingResume   = "HANDOFF_MISSING_RESUME"
	ErrCodeHandoffStore    = "HANDOFF_STORE_FAILED"
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeVaultSecret     = "VAULT_SECRET"
)
