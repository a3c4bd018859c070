package storehouse

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation is returned when a required request field is missing
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when the request signature does not match
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is returned when the target exists and overwrite is disabled
	ErrConflict = errors.New("conflict")
	// ErrIO is returned when a filesystem stage fails
	ErrIO = errors.New("io error")
	// ErrNetwork is returned when a remote fetch fails
	ErrNetwork = errors.New("network error")
	// ErrNotFound is returned when a ledger entry does not exist
	ErrNotFound = errors.New("not found")
	// ErrMissingSecret is returned when an Authenticator is built without a secret
	ErrMissingSecret = errors.New("secret is required")
)

// ErrorKind classifies a failed request. Clients branch on it.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindConflict   ErrorKind = "conflict"
	KindIO         ErrorKind = "io"
	KindNetwork    ErrorKind = "network"
)

// StatusCode returns the HTTP status class for the kind.
func (k ErrorKind) StatusCode() int {
	switch k {
	case KindValidation, KindAuth, KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuth:
		return ErrUnauthorized
	case KindConflict:
		return ErrConflict
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrIO
	}
}

// Error codes sent in the "error" field of a failed response.
const (
	CodeFileMissing      = "file missing"
	CodePathMissing      = "path missing"
	CodeURLMissing       = "url missing"
	CodeSignatureMissing = "signature missing"
	CodeInvalidSignature = "invalid signature"
	CodeFileExists       = "file exists"
	CodeCheckExists      = "error checking file"
	CodeCreateDirectory  = "error creating directory"
	CodeMoveFile         = "error moving file"
	CodeWriteFile        = "error writing file"
	CodeSetPermissions   = "error changing file permissions"
	CodeFetchFailed      = "fetch failed"
)

// Error is the failed side of a staging outcome.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

// Errorf builds an *Error wrapping err. err may be nil.
func Errorf(kind ErrorKind, code string, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Error returns the code and message. Message already carries the
// underlying error text where it is useful to the client.
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against the sentinel for its kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of err, defaulting to KindIO for errors that did
// not come from this package.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindIO
}
