// Package apperr defines the error taxonomy shared by the vault service and its bridges.
package apperr

import (
	"errors"
	"io/fs"
)

// Sentinels for errors.Is checks. Every *Error matches the sentinel of its Kind.
var (
	ErrNotFound      = errors.New("not found")
	ErrPermission    = errors.New("permission denied")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrProtected     = errors.New("protected folder")
	ErrRecursive     = errors.New("recursive move")
	ErrTransport     = errors.New("transport error")
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindPermission
	KindValidation
	KindProtected
	KindRecursive
	KindConflict
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindValidation:
		return "validation"
	case KindProtected:
		return "protected"
	case KindRecursive:
		return "recursive"
	case KindConflict:
		return "conflict"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// Error is a tagged error. Msg, when set, is the caller-facing text; otherwise the
// wrapped error's message is surfaced verbatim.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel that corresponds to e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrPermission:
		return e.Kind == KindPermission
	case ErrConflict, ErrAlreadyExists:
		return e.Kind == KindConflict
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrProtected:
		return e.Kind == KindProtected
	case ErrRecursive:
		return e.Kind == KindRecursive
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// New returns a service-raised error with a fixed message.
func New(kind Kind, op, path, msg string) error {
	return &Error{Kind: kind, Op: op, Path: path, Msg: msg}
}

// Wrap classifies an OS or library error. nil stays nil.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	kind := KindInternal
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermission
	case errors.Is(err, fs.ErrExist):
		kind = KindConflict
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf reports the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	}
	return KindInternal
}
