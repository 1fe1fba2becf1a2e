package errors

import (
	"errors"
)

// UserError represents an error with both technical and user-friendly messages
type UserError struct {
	Err       error
	UserMsg   string
	Retryable bool
}

func (e *UserError) Error() string {
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// Predefined errors
var (
	ErrNoActiveRequest = &UserError{
		Err:       errors.New("no active payment request"),
		UserMsg:   "No pending payment found. Use /pay to create one first.",
		Retryable: false,
	}

	ErrAlreadyVerifying = &UserError{
		Err:       errors.New("receipt already being verified"),
		UserMsg:   "Your receipt is already being verified. Please wait for the result.",
		Retryable: false,
	}

	ErrRequestExpired = &UserError{
		Err:       errors.New("payment request expired"),
		UserMsg:   "Your payment request expired. Use /pay to create a new one.",
		Retryable: false,
	}

	ErrRequestExists = &UserError{
		Err:       errors.New("payment request already pending"),
		UserMsg:   "You already have a pending payment. Use /check to view it or wait for it to expire.",
		Retryable: false,
	}

	ErrUnknownUser = &UserError{
		Err:       errors.New("unknown user"),
		UserMsg:   "No payment record found for that user.",
		Retryable: false,
	}

	ErrOCRUnavailable = &UserError{
		Err:       errors.New("ocr service unavailable"),
		UserMsg:   "The receipt reader is currently unavailable. Please try again later.",
		Retryable: true,
	}

	ErrTransportFailure = &UserError{
		Err:       errors.New("join approval call failed"),
		UserMsg:   "Your payment was verified but the group approval could not be completed. An admin has been notified.",
		Retryable: true,
	}

	ErrUnauthorized = &UserError{
		Err:       errors.New("unauthorized user"),
		UserMsg:   "Sorry, this command is for admins only.",
		Retryable: false,
	}

	ErrVerificationInProgress = &UserError{
		Err:       errors.New("verification already in progress"),
		UserMsg:   "You already have a verification in progress. Please wait for it to complete.",
		Retryable: false,
	}
)

// Wrap wraps a technical error with a user message
func Wrap(err error, userMsg string, retryable bool) *UserError {
	return &UserError{
		Err:       err,
		UserMsg:   userMsg,
		Retryable: retryable,
	}
}

// GetUserMessage extracts user-friendly message from error
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMsg
	}
	// Default message for unexpected errors
	return "An unexpected error occurred. Please try again later."
}

// IsRetryable checks if an error can be retried
func IsRetryable(err error) bool {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Retryable
	}
	return false
}
