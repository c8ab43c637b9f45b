package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout      = "FETCH_TIMEOUT"
	ErrCodeFetch        = "FETCH_FAILED"
	ErrCodeFetchStatus  = "FETCH_STATUS"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeParse        = "PARSE_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeWrite        = "WRITE_FAILED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HarvestError is the internal error type carrying an error code and, for
// fetch failures, the remote HTTP status. It supports error wrapping via Unwrap.
type HarvestError struct {
	Code       string
	Message    string
	StatusCode int   // remote status, 0 when no response was received
	Err        error // wrapped original error
}

func (e *HarvestError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *HarvestError) Unwrap() error {
	return e.Err
}

// NewHarvestError creates a new HarvestError.
func NewHarvestError(code, message string, err error) *HarvestError {
	return &HarvestError{Code: code, Message: message, Err: err}
}

// NewStatusError creates a fetch error for a non-success HTTP status.
// 429 is reported as ErrCodeRateLimited so callers can tell throttling apart
// from other rejections.
func NewStatusError(statusCode int, targetURL string) *HarvestError {
	code := ErrCodeFetchStatus
	if statusCode == 429 {
		code = ErrCodeRateLimited
	}
	return &HarvestError{
		Code:       code,
		Message:    "unexpected response for " + targetURL,
		StatusCode: statusCode,
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *HarvestError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// AsHarvestError returns err as a *HarvestError, wrapping foreign errors
// under ErrCodeInternal.
func AsHarvestError(err error) *HarvestError {
	var he *HarvestError
	if errors.As(err, &he) {
		return he
	}
	return NewHarvestError(ErrCodeInternal, err.Error(), err)
}
