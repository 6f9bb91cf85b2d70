package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("missing")

func TestKindOfOutermostWins(t *testing.T) {
	inner := E(NotFound, "store.get", errMissing)
	outer := E(Mail, "mail.send", inner)

	assert.Equal(t, Mail, KindOf(outer))
	assert.Equal(t, NotFound, KindOf(inner))
	assert.True(t, errors.Is(outer, errMissing))
}

func TestKindOfSkipsOther(t *testing.T) {
	err := E(Other, "handler", fmt.Errorf("wrapped: %w", E(Logic, "store.list", errMissing)))
	assert.Equal(t, Logic, KindOf(err))
	assert.True(t, Is(Logic, err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Other, KindOf(errMissing))
	assert.Equal(t, Other, KindOf(nil))
}

func TestErrorString(t *testing.T) {
	err := New(Validation, "users.activate", "account is already active")
	assert.Equal(t, "users.activate: validation error: account is already active", err.Error())
	assert.Equal(t, "not found", (&Error{Kind: NotFound}).Error())
}
