package git

import "fmt"

// ErrorType represents the category of SCM error that occurred.
type ErrorType int

const (
	ErrTypeRevisionNotFound ErrorType = iota
	ErrTypeRepoUnavailable
	ErrTypeDiffFailed
	ErrTypeBinaryFile
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeRevisionNotFound:
		return "revision not found"
	case ErrTypeRepoUnavailable:
		return "repository unavailable"
	case ErrTypeDiffFailed:
		return "diff failed"
	case ErrTypeBinaryFile:
		return "binary file"
	default:
		return "unknown error"
	}
}

// Error represents an SCM error with additional context.
type Error struct {
	Type      ErrorType
	Message   string
	Repo      string
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Repo, e.Type.String(), e.Message)
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewRevisionNotFoundError creates an error for an unresolvable revision.
// Missing revisions are permanent for a given repository state, so the
// error is not retryable.
func NewRevisionNotFoundError(repo, message string) *Error {
	return &Error{
		Type:      ErrTypeRevisionNotFound,
		Message:   message,
		Repo:      repo,
		Retryable: false,
	}
}

// NewRepoUnavailableError creates an error for a repository that cannot be
// opened (inaccessible, clone in progress). Retryable.
func NewRepoUnavailableError(repo, message string) *Error {
	return &Error{
		Type:      ErrTypeRepoUnavailable,
		Message:   message,
		Repo:      repo,
		Retryable: true,
	}
}

// NewDiffFailedError creates an error for a diff that could not be
// computed or encoded.
func NewDiffFailedError(repo, message string) *Error {
	return &Error{
		Type:      ErrTypeDiffFailed,
		Message:   message,
		Repo:      repo,
		Retryable: false,
	}
}

// NewBinaryFileError creates an error for a file whose patch is binary and
// carries no line structure to remap against.
func NewBinaryFileError(repo, message string) *Error {
	return &Error{
		Type:      ErrTypeBinaryFile,
		Message:   message,
		Repo:      repo,
		Retryable: false,
	}
}
