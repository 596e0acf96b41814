package domain

import (
	"errors"
	"fmt"
)

// Generic domain errors. Structured errors with a matching code satisfy
// errors.Is against these so callers can branch without knowing codes.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates a service was wired without its dependencies.
	ErrNotImplemented = errors.New("not implemented")
)

// ErrorCode is a stable, machine-readable error kind.
type ErrorCode string

// Error codes surfaced by the evidence, index, retrieval and drafting services.
const (
	CodeSourceInvalid     ErrorCode = "AI_EVIDENCE_SOURCE_INVALID"
	CodeEvidenceNotFound  ErrorCode = "AI_EVIDENCE_NOT_FOUND"
	CodeStoreFailed       ErrorCode = "AI_EVIDENCE_STORE_FAILED"
	CodeEvidenceEmpty     ErrorCode = "AI_EVIDENCE_EMPTY"
	CodeContextInvalid    ErrorCode = "AI_EVIDENCE_CONTEXT_INVALID"
	CodeCitationRequired  ErrorCode = "AI_CITATION_REQUIRED"
	CodeCitationInvalid   ErrorCode = "AI_CITATION_INVALID"
	CodeIndexNotReady     ErrorCode = "AI_INDEX_NOT_READY"
	CodeIndexBuildFailed  ErrorCode = "AI_INDEX_BUILD_FAILED"
	CodeEmbeddingsFailed  ErrorCode = "AI_EMBEDDINGS_FAILED"
	CodeRetrievalFailed   ErrorCode = "AI_RETRIEVAL_FAILED"
	CodeDraftFailed       ErrorCode = "AI_DRAFT_FAILED"
	CodeRemoteNotAllowed  ErrorCode = "AI_REMOTE_NOT_ALLOWED"
	CodeOllamaUnhealthy   ErrorCode = "AI_OLLAMA_UNHEALTHY"
	CodeDraftStoreFailed  ErrorCode = "DRAFT_STORE_FAILED"
	CodeDraftNotFound     ErrorCode = "DRAFT_NOT_FOUND"
	CodeDraftLineageError ErrorCode = "DRAFT_LINEAGE_INVALID"
	CodeConfigInvalid     ErrorCode = "CONFIG_INVALID"
)

// Error is a structured failure: a stable code, a human message, optional
// diagnostic details and whether the caller may retry the same call.
type Error struct {
	Code      ErrorCode
	Message   string
	Details   string
	Retryable bool
	Err       error
}

// NewError creates a terminal error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a terminal error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, and the generic sentinels by kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	switch target {
	case ErrNotFound:
		return e.Code == CodeEvidenceNotFound || e.Code == CodeDraftNotFound
	case ErrInvalidInput:
		return e.Code == CodeSourceInvalid || e.Code == CodeContextInvalid || e.Code == CodeConfigInvalid
	}
	return false
}

// WithDetails returns a copy of e carrying diagnostic details.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithDetailsf is WithDetails with formatting.
func (e *Error) WithDetailsf(format string, args ...any) *Error {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// AsRetryable returns a copy of e marked as safe to retry.
func (e *Error) AsRetryable() *Error {
	c := *e
	c.Retryable = true
	return &c
}

// Wrap returns a copy of e with cause attached. The cause's text becomes
// the details when none were set.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	if c.Details == "" && cause != nil {
		c.Details = cause.Error()
	}
	return &c
}

// Sentinel values for errors.Is checks. Compare by code only.
var (
	ErrSourceInvalid    = NewError(CodeSourceInvalid, "evidence source is invalid")
	ErrEvidenceNotFound = NewError(CodeEvidenceNotFound, "evidence not found")
	ErrStoreFailed      = NewError(CodeStoreFailed, "evidence store failed")
	ErrEvidenceEmpty    = NewError(CodeEvidenceEmpty, "no evidence sources")
	ErrContextInvalid   = NewError(CodeContextInvalid, "invalid context request")
	ErrCitationRequired = NewError(CodeCitationRequired, "citations are required")
	ErrCitationInvalid  = NewError(CodeCitationInvalid, "citation is invalid")
	ErrIndexNotReady    = NewError(CodeIndexNotReady, "index not ready")
	ErrIndexBuildFailed = NewError(CodeIndexBuildFailed, "index build failed")
	ErrEmbeddingsFailed = NewError(CodeEmbeddingsFailed, "embedding request failed")
	ErrRetrievalFailed  = NewError(CodeRetrievalFailed, "retrieval failed")
	ErrDraftFailed      = NewError(CodeDraftFailed, "draft generation failed")
	ErrRemoteNotAllowed = NewError(CodeRemoteNotAllowed, "remote endpoints are not allowed")
	ErrOllamaUnhealthy  = NewError(CodeOllamaUnhealthy, "ollama is unreachable")
	ErrDraftStoreFailed = NewError(CodeDraftStoreFailed, "draft store failed")
	ErrDraftNotFound    = NewError(CodeDraftNotFound, "draft not found")
	ErrDraftLineage     = NewError(CodeDraftLineageError, "draft lineage is invalid")
	ErrConfigInvalid    = NewError(CodeConfigInvalid, "configuration is invalid")
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether err is a structured error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
