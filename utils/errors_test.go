package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByKey(t *testing.T) {
	wrapped := ErrInvalidImageData.Wrap(errors.New("illegal base64 data at input byte 4"))

	assert.True(t, errors.Is(wrapped, ErrInvalidImageData))
	assert.False(t, errors.Is(wrapped, ErrInvalidImageType))

	outer := fmt.Errorf("add colors: %w", wrapped)
	assert.True(t, errors.Is(outer, ErrInvalidImageData))
}

func TestAppError_WrapDoesNotMutateSentinel(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := ErrEmailNotSent.Wrap(cause).WithContext("to", "ana@example.com")

	assert.Nil(t, ErrEmailNotSent.Err)
	assert.Empty(t, ErrEmailNotSent.Context)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.Equal(t, "ana@example.com", wrapped.Context["to"])
	assert.Equal(t, "El Email no pudo ser enviado: disk full", wrapped.Error())
}

func TestAppError_AsExposesStatus(t *testing.T) {
	err := fmt.Errorf("remove: %w", ErrIndexNotFound)

	var appErr *AppError
	if assert.True(t, errors.As(err, &appErr)) {
		assert.Equal(t, 404, appErr.Code)
		assert.Equal(t, "index_not_found", appErr.Key)
	}
}

func TestAppError_UncodedErrorsNeverMatch(t *testing.T) {
	a := NewAppError(500, "a", nil)
	b := NewAppError(500, "b", nil)
	assert.False(t, errors.Is(a, b))
}
