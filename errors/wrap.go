package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a TaskError, its code, category, and identifiers carry over.
// Otherwise, a new Internal error wraps the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var taskErr *Error
	if errors.As(err, &taskErr) {
		wrapped := &Error{
			code:      taskErr.code,
			category:  taskErr.category,
			message:   message,
			cause:     err,
			retryable: taskErr.retryable,
			agentID:   taskErr.agentID,
			taskID:    taskErr.taskID,
			step:      taskErr.step,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Context errors map to their own codes so callers can classify them.
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsTaskError attempts to extract a TaskError from an error chain.
// Returns nil if no TaskError is found.
func AsTaskError(err error) TaskError {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
// Non-TaskErrors default to not retryable.
func IsRetryable(err error) bool {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.Retryable()
	}
	return false
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a TaskError.
func Code(err error) ErrorCode {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
// Returns empty string if err is not a TaskError.
func Category(err error) ErrorCategory {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.category
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}
