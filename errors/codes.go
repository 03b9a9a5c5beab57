package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: network timeouts, a toolchain worker at capacity.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unknown handler, invalid input, missing prompt variables.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors or system failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for failure scenarios the orchestrator records in task state.
const (
	// Dispatch errors
	ErrCodeAgentNotFound  ErrorCode = "AGENT_NOT_FOUND" // target agent has no registered handler
	ErrCodeAgentExecution ErrorCode = "AGENT_EXECUTION" // handler raised during Process
	ErrCodeAgentBusy      ErrorCode = "AGENT_BUSY"      // handler cannot accept work right now

	// Engine bookkeeping errors
	ErrCodeTaskNotFound ErrorCode = "TASK_NOT_FOUND" // task was never initialized
	ErrCodeTaskExists   ErrorCode = "TASK_EXISTS"    // task id already has a live pipeline

	// Prompt errors
	ErrCodePromptNotFound ErrorCode = "PROMPT_NOT_FOUND" // prompt key not registered
	ErrCodePromptExists   ErrorCode = "PROMPT_EXISTS"    // prompt key already registered
	ErrCodeMissingVars    ErrorCode = "MISSING_VARS"     // required template variables absent

	// Toolchain errors
	ErrCodeBridgeUnsupported ErrorCode = "BRIDGE_UNSUPPORTED" // bridge does not handle this request type
	ErrCodeBridgeClosed      ErrorCode = "BRIDGE_CLOSED"      // bridge was shut down

	// General errors
	ErrCodeTimeout      ErrorCode = "TIMEOUT"       // operation timed out
	ErrCodeCanceled     ErrorCode = "CANCELED"      // operation canceled
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // malformed or invalid input
	ErrCodeInternal     ErrorCode = "INTERNAL"      // unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeAgentBusy:
		return CategoryTransient

	case ErrCodeAgentNotFound, ErrCodeAgentExecution, ErrCodeTaskNotFound,
		ErrCodeTaskExists, ErrCodePromptNotFound, ErrCodePromptExists,
		ErrCodeMissingVars, ErrCodeBridgeUnsupported, ErrCodeBridgeClosed,
		ErrCodeCanceled, ErrCodeInvalidInput:
		return CategoryPermanent

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeAgentNotFound:     "agent not found in registry",
	ErrCodeAgentExecution:    "agent failed while processing task",
	ErrCodeAgentBusy:         "agent is busy",
	ErrCodeTaskNotFound:      "task not found",
	ErrCodeTaskExists:        "task already exists",
	ErrCodePromptNotFound:    "prompt not registered",
	ErrCodePromptExists:      "prompt already registered",
	ErrCodeMissingVars:       "required prompt variables missing",
	ErrCodeBridgeUnsupported: "request type not supported by bridge",
	ErrCodeBridgeClosed:      "toolchain bridge closed",
	ErrCodeTimeout:           "operation timed out",
	ErrCodeCanceled:          "operation canceled",
	ErrCodeInvalidInput:      "invalid input provided",
	ErrCodeInternal:          "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
