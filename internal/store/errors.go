package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/quizhub/apiserver/internal/errs"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotReselected is returned when a freshly inserted row cannot be read back.
var ErrNotReselected = errors.New("inserted row could not be reselected")

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(op string) error {
	return errs.E(errs.NotFound, op, ErrNotFound)
}

// classify maps driver failures onto error kinds. Missing parents surface as
// not found and duplicate keys as conflicts; everything else is a logic error.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return errs.E(errs.NotFound, op, fmt.Errorf("%w: %s", ErrNotFound, pqErr.Detail))
		case pqUniqueViolation:
			return errs.E(errs.Conflict, op, errors.New(pqErr.Detail))
		}
	}
	return errs.E(errs.Logic, op, err)
}

func checkWindow(op string, offset, limit int) error {
	if offset < 0 {
		return errs.New(errs.Validation, op, "offset must not be negative")
	}
	if limit < 0 {
		return errs.New(errs.Validation, op, "limit must not be negative")
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps the lower-cased term in wildcards for a LIKE predicate.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}
