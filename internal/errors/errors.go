package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a contigfilter error code.
type ErrorCode string

const (
	ErrInvalidParameter      ErrorCode = "INVALID_PARAMETER"       // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"               // 404
	ErrMalformedSequenceData ErrorCode = "MALFORMED_SEQUENCE_DATA" // 422
	ErrRemoteFetch           ErrorCode = "REMOTE_FETCH_ERROR"      // 502
	ErrRemoteSave            ErrorCode = "REMOTE_SAVE_ERROR"       // 502
	ErrRemoteReport          ErrorCode = "REMOTE_REPORT_ERROR"     // 502
	ErrInternal              ErrorCode = "INTERNAL"                // 500
)

// FilterError represents a structured error with code, status, failing stage, and details.
type FilterError struct {
	Code    ErrorCode
	Status  int
	Stage   string
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *FilterError) Unwrap() error {
	return e.Cause
}

// WithStage returns e with Stage set. Stage is left alone if already set.
func (e *FilterError) WithStage(stage string) *FilterError {
	if e.Stage == "" {
		e.Stage = stage
	}
	return e
}

// NewInvalidParameter creates a 400 error naming the offending request field.
func NewInvalidParameter(field, msg string) *FilterError {
	return &FilterError{
		Code:    ErrInvalidParameter,
		Status:  400,
		Message: msg,
		Details: map[string]any{"field": field},
	}
}

// NewNotFound creates a 404 error for a reference that does not resolve.
func NewNotFound(identifier string) *FilterError {
	return &FilterError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("object not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a local file that does not exist.
func NewFileNotFound(path string) *FilterError {
	return &FilterError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewMalformedSequenceData creates a 422 error for unparsable FASTA input.
// line is the 1-based input line where parsing failed.
func NewMalformedSequenceData(line int, msg string) *FilterError {
	return &FilterError{
		Code:    ErrMalformedSequenceData,
		Status:  422,
		Message: fmt.Sprintf("invalid fasta entry at line %d: %s", line, msg),
		Details: map[string]any{"line": line},
	}
}

// NewRemoteFetch creates a 502 error for a failed assembly download.
func NewRemoteFetch(ref string, cause error) *FilterError {
	return &FilterError{
		Code:    ErrRemoteFetch,
		Status:  502,
		Message: fmt.Sprintf("failed to fetch assembly %s: %v", ref, cause),
		Details: map[string]any{"assembly_ref": ref},
		Cause:   cause,
	}
}

// NewRemoteSave creates a 502 error for a failed assembly upload.
func NewRemoteSave(workspace, name string, cause error) *FilterError {
	return &FilterError{
		Code:    ErrRemoteSave,
		Status:  502,
		Message: fmt.Sprintf("failed to save assembly %q to workspace %q: %v", name, workspace, cause),
		Details: map[string]any{"workspace_name": workspace, "assembly_name": name},
		Cause:   cause,
	}
}

// NewRemoteReport creates a 502 error for a failed report publish.
func NewRemoteReport(workspace string, cause error) *FilterError {
	return &FilterError{
		Code:    ErrRemoteReport,
		Status:  502,
		Message: fmt.Sprintf("failed to create report in workspace %q: %v", workspace, cause),
		Details: map[string]any{"workspace_name": workspace},
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *FilterError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &FilterError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// As returns the FilterError in err's chain, if any.
func As(err error) (*FilterError, bool) {
	var fErr *FilterError
	if stderrors.As(err, &fErr) {
		return fErr, true
	}
	return nil, false
}

// Is checks if an error is (or wraps) a FilterError with the given code.
func Is(err error, code ErrorCode) bool {
	if fErr, ok := As(err); ok {
		return fErr.Code == code
	}
	return false
}
