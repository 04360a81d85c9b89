package model

import (
	"fmt"
	"sort"
	"strings"
)

type ErrorKind string

const (
	KindUnsupportedSchema  ErrorKind = "unsupported-schema"
	KindUnsupportedRunner  ErrorKind = "unsupported-runner"
	KindMissingField       ErrorKind = "missing-field"
	KindMissingAnnotations ErrorKind = "missing-annotations"
	KindCorrelation        ErrorKind = "correlation"
	KindInvariantViolation ErrorKind = "invariant-violation"
)

// Error is a fatal normalization failure. Tags carry diagnostic context such as
// the offending test id or command name.
type Error struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Tags    map[string]any `json:"tags,omitempty"`
}

func NewError(kind ErrorKind, message string, tags map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Tags: tags}
}

func (e *Error) Error() string {
	if len(e.Tags) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	keys := make([]string, 0, len(e.Tags))
	for k := range e.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := strings.Builder{}
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, e.Tags[k]))
	}

	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.TrimSpace(b.String()))
}

// Is matches errors of the same kind, which allows `errors.Is(err, model.ErrMissingField)`.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

var (
	ErrUnsupportedSchema  = &Error{Kind: KindUnsupportedSchema}
	ErrUnsupportedRunner  = &Error{Kind: KindUnsupportedRunner}
	ErrMissingField       = &Error{Kind: KindMissingField}
	ErrMissingAnnotations = &Error{Kind: KindMissingAnnotations}
	ErrCorrelation        = &Error{Kind: KindCorrelation}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
)

type NotFoundError struct{}

func (e NotFoundError) Error() string {
	return "not found"
}
