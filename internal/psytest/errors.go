package psytest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrTestNotFound    = errors.New("test not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptClosed is returned when an attempt is already completed or abandoned.
	ErrAttemptClosed = errors.New("attempt already closed")
	// ErrFactorScoresUnsupported means the store has no column for factor
	// scores (legacy schema). The attempt can still be saved without them.
	ErrFactorScoresUnsupported = errors.New("store does not support factor scores")
)

// ValidationError reports a malformed request or definition.
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s (%s)", e.Msg, strings.Join(parts, "; "))
}

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Kind classifies err for callers at the transport boundary.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

func KindOf(err error) Kind {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return KindInvalidInput
	case errors.Is(err, ErrTestNotFound), errors.Is(err, ErrAttemptNotFound):
		return KindNotFound
	case errors.Is(err, ErrAttemptClosed):
		return KindConflict
	default:
		return KindInternal
	}
}
