package common

import "errors"

// Error codes classifying pricing failures for logging and metrics.
const (
	// CodeConfiguration marks a malformed or out-of-range rate/threshold.
	CodeConfiguration = "configuration"
	// CodeResolution marks an unavailable or unusable customer profile.
	CodeResolution = "resolution"
	// CodeStage marks an unexpected failure inside a pricing stage.
	CodeStage = "stage"
	// CodeReentrancy marks a pipeline run rejected by the re-entrancy guard.
	CodeReentrancy = "reentrancy"
)

// AppError represents an error with an attached classification code.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the classification code from err, or CodeStage when the
// error carries no AppError in its chain.
func CodeOf(err error) string {
	var target *AppError
	if errors.As(err, &target) && target.Code != "" {
		return target.Code
	}
	return CodeStage
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
