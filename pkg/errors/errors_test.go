package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("persist: %w", Clone(ErrConflict, "project p1 changed"))

	got := FromError(wrapped)
	assert.Equal(t, ErrConflict.Code, got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "project p1 changed", got.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	cause := errors.New("boom")

	got := FromError(cause)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "bad slot")
	assert.Equal(t, "bad slot", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, "bad slot: inner", Wrap(errors.New("inner"), clone.Code, clone.Status, clone.Message).Error())
}
