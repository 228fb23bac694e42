package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyTableName      = errors.New("table name is empty")
	ErrIdentifierTooLong   = errors.New("identifier exceeds 63 bytes")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// Kind classifies a failure by the stage of the upload pipeline that produced it.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindConnectivity Kind = "connectivity"
	KindWrite        Kind = "write"
	KindRead         Kind = "read"
	KindParse        Kind = "parse"
)

// Error is a failure tagged with its Kind, the operation that failed and the
// file or table it concerns.
type Error struct {
	Kind    Kind
	Op      string
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind. Returns nil if err is nil.
func New(kind Kind, op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

// Connectivity wraps err as a connectivity failure.
func Connectivity(op, subject string, err error) error {
	return New(KindConnectivity, op, subject, err)
}

// Write wraps err as a storage write failure.
func Write(op, subject string, err error) error {
	return New(KindWrite, op, subject, err)
}

// Read wraps err as a metadata read failure.
func Read(op, subject string, err error) error {
	return New(KindRead, op, subject, err)
}

// Parse wraps err as an upload parse failure.
func Parse(op, subject string, err error) error {
	return New(KindParse, op, subject, err)
}

// KindOf returns the Kind of the outermost *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}
