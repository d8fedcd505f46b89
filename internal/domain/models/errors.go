package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing component boundaries.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindUpstreamFailure
	KindEmptyData
	KindCacheMiss
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindEmptyData:
		return "empty_data"
	case KindCacheMiss:
		return "cache_miss"
	default:
		return "unknown"
	}
}

// Error is a tagged domain error.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinel values below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUpstreamFailure = &Error{Kind: KindUpstreamFailure}
	ErrEmptyData       = &Error{Kind: KindEmptyData}
	ErrCacheMiss       = &Error{Kind: KindCacheMiss}
)

// NewError builds a tagged error.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(op, format string, a ...interface{}) *Error {
	return NewError(KindNotFound, op, fmt.Sprintf(format, a...), nil)
}

// EmptyDataf builds a KindEmptyData error.
func EmptyDataf(op, format string, a ...interface{}) *Error {
	return NewError(KindEmptyData, op, fmt.Sprintf(format, a...), nil)
}

// Upstream wraps a provider failure.
func Upstream(op string, err error) *Error {
	return NewError(KindUpstreamFailure, op, "", err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k ErrorKind) bool {
	return err != nil && KindOf(err) == k
}
