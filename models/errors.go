package models

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the error shape every operation surfaces to callers.
// Category and Action let the UI pick between a sign-in prompt and a retry message.
type APIError struct {
	Code     string `json:"code"`
	Message  string `json:"error"`
	Category string `json:"category"` // auth, validation, game, system
	Action   string `json:"action,omitempty"`
	Err      error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus maps the error code to the status handlers respond with.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeAuthRequired:
		return http.StatusUnauthorized
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeUserNotFound, ErrCodeSessionNotFound, ErrCodeNoActiveRound:
		return http.StatusNotFound
	case ErrCodeSessionAlreadyCompleted:
		return http.StatusConflict
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeNoQuestions, ErrCodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

const (
	ErrCodeAuthRequired            = "AUTH_REQUIRED"
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeSessionNotFound         = "SESSION_NOT_FOUND"
	ErrCodeSessionAlreadyCompleted = "SESSION_ALREADY_COMPLETED"
	ErrCodeValidation              = "VALIDATION_FAILED"
	ErrCodeNoActiveRound           = "NO_ACTIVE_ROUND"
	ErrCodeNoQuestions             = "NO_QUESTIONS"
	ErrCodeRateLimited             = "RATE_LIMITED"
	ErrCodeTransient               = "TRANSIENT"
)

func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "authentication required",
		Category: "auth",
		Action:   "Sign in to continue.",
	}
}

func NewUnauthorizedError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  fmt.Sprintf("not allowed to modify %s", what),
		Category: "auth",
	}
}

func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "user not found",
		Category: "auth",
		Action:   "Sign in again to create your profile.",
	}
}

func NewSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("game session not found: %s", sessionID),
		Category: "game",
	}
}

func NewSessionAlreadyCompletedError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionAlreadyCompleted,
		Message:  fmt.Sprintf("game session already completed: %s", sessionID),
		Category: "game",
	}
}

func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "Check the request and try again.",
	}
}

func NewNoActiveRoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNoActiveRound,
		Message:  "no round in progress",
		Category: "game",
		Action:   "Start a new round.",
	}
}

func NewNoQuestionsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoQuestions,
		Message:  "question bank is empty",
		Category: "system",
		Action:   "Try again later.",
	}
}

func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "too many answers, slow down",
		Category: "game",
		Action:   "Wait a moment and try again.",
	}
}

// NewTransientError wraps an infrastructure failure.
func NewTransientError(op string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeTransient,
		Message:  fmt.Sprintf("%s failed", op),
		Category: "system",
		Action:   "Try again.",
		Err:      err,
	}
}

// HasCode reports whether err is an *APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
