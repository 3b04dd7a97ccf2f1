package services

import (
	"errors"
	"strings"
)

// Failure classes. Every *Error carries one of these as its Kind.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrCancelled     = errors.New("cancelled")
	ErrTransient     = errors.New("transient failure")
)

// Error is a classified failure raised by a pipeline component. errors.Is
// matches both Kind and the wrapped cause.
type Error struct {
	Kind  error
	Stage string
	Op    string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if where := joinNonBlank("/", e.Stage, e.Op); where != "" {
		b.WriteString(" in ")
		b.WriteString(where)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap classifies err as marker, a nil marker meaning ErrTransient. stage
// and operation locate the failure; message adds detail such as a path.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Kind:  marker,
		Stage: strings.TrimSpace(stage),
		Op:    strings.TrimSpace(operation),
		Msg:   strings.TrimSpace(message),
		Err:   err,
	}
}

func joinNonBlank(sep string, values ...string) string {
	kept := values[:0:0]
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, sep)
}
