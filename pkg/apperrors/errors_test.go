package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := New(CodeNotFound, "lead not found")
		require.Equal(t, "not_found: lead not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeStorage, "failed to list leads")
		require.Equal(t, "storage: failed to list leads: connection refused", err.Error())
	})

	t.Run("formatted message", func(t *testing.T) {
		err := Newf(CodeValidation, "unknown inquiry_type %q", "walk_in")
		require.Equal(t, `validation: unknown inquiry_type "walk_in"`, err.Message)
	})
}

func TestWrapPreservesChain(t *testing.T) {
	sentinelErr := errors.New("no rows")
	wrapped := Wrap(sentinelErr, CodeNotFound, "lead not found")

	require.ErrorIs(t, wrapped, sentinelErr)

	var domainErr *Error
	require.ErrorAs(t, wrapped, &domainErr)
	require.Equal(t, CodeNotFound, domainErr.Code)
}

func TestHasCode(t *testing.T) {
	err := New(CodeConflict, "primary applicant already exists")

	require.True(t, HasCode(err, CodeConflict))
	require.False(t, HasCode(err, CodeNotFound))
	require.False(t, HasCode(errors.New("plain"), CodeConflict))
	require.False(t, HasCode(nil, CodeConflict))
}

func TestCodeFrom(t *testing.T) {
	require.Equal(t, CodeValidation, CodeFrom(New(CodeValidation, "bad input")))
	require.Equal(t, CodeInternal, CodeFrom(errors.New("unclassified")))

	t.Run("nested wrap keeps outermost code", func(t *testing.T) {
		inner := New(CodeStorage, "insert failed")
		outer := Wrap(inner, CodeExternalService, "scoring unavailable")
		require.Equal(t, CodeExternalService, CodeFrom(outer))
	})
}
