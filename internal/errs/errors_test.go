package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(CodeDatabaseError, "failed to write", cause)

	assert.True(t, errors.Is(wrapped, cause))
}

func TestWithContext_Chains(t *testing.T) {
	err := New(CodeNotFound, "entry not found").
		WithContext("id", "abc").
		WithContext("scope", "proj")

	assert.Equal(t, "abc", err.Context["id"])
	assert.Equal(t, "proj", err.Context["scope"])
}

func TestCodeOf_NonTaxonomyErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))
}

func TestCodeOf_UnwrapsThroughFmtErrorf(t *testing.T) {
	base := New(CodeFileLocked, "locked")
	wrapped := fmt.Errorf("acquire: %w", base)
	assert.Equal(t, CodeFileLocked, CodeOf(wrapped))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(CodeNotFound, "x")))
	assert.True(t, IsNotFound(New(CodeVersionNotFound, "x")))
	assert.False(t, IsNotFound(New(CodeFileLocked, "x")))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(New(CodeDatabaseTransient, "x")))
	assert.True(t, IsTransient(New(CodeRateLimited, "x")))
	assert.False(t, IsTransient(New(CodeAlreadyExists, "x")))
}
