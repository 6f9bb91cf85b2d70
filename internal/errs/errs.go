// Package errs classifies failures so each layer can decide how to report
// them without inspecting driver or transport errors directly.
package errs

import (
	"errors"
	"strings"
)

// Kind is the class of a failure.
type Kind uint8

const (
	Other Kind = iota
	// Config means a dependency could not be set up (database, relay, bucket).
	Config
	// Logic means a statement failed or a row could not be mapped.
	Logic
	// NotFound means a keyed lookup matched nothing.
	NotFound
	// Validation means the request is well-formed but not acceptable.
	Validation
	Conflict
	Unauthorized
	Forbidden
	// Mail means a template, relay or delivery failure.
	Mail
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config error"
	case Logic:
		return "logic error"
	case NotFound:
		return "not found"
	case Validation:
		return "validation error"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case Mail:
		return "mail error"
	default:
		return "error"
	}
}

// Error is a classified failure raised by operation Op.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind and the operation that observed it.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds a classified error from a message.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(message)}
}

// KindOf returns the outermost non-Other kind in err's chain.
func KindOf(err error) Kind {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return Other
		}
		if e.Kind != Other {
			return e.Kind
		}
		err = e.Err
	}
	return Other
}

// Is reports whether err is classified as kind.
func Is(kind Kind, err error) bool {
	return KindOf(err) == kind
}
