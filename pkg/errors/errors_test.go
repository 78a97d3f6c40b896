package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesPredefinedByCode(t *testing.T) {
	clone := Clone(ErrNotFound, "report job not found")

	assert.Equal(t, "report job not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.True(t, errors.Is(clone, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("load: %w", clone), ErrNotFound))
	assert.False(t, errors.Is(clone, ErrCacheMiss))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, ErrExportSink.Code, ErrExportSink.Status, "failed to store export")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrExportSink))
	assert.Equal(t, "failed to store export: disk full", err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))
	assert.Same(t, ErrOutOfStock, FromError(ErrOutOfStock))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(Clone(ErrValidation, "")))
	assert.True(t, IsClientError(fmt.Errorf("wrapped: %w", ErrUnsupportedReport)))
	assert.False(t, IsClientError(ErrExportSink))
	assert.False(t, IsClientError(errors.New("plain")))
}
