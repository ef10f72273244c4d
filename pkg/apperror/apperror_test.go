package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = Conflict("SAMPLE", "sample conflict")

func TestError_IsMatchesByCode(t *testing.T) {
	detailed := errSample.With("remaining", 3)

	assert.True(t, errors.Is(detailed, errSample))
	assert.False(t, errors.Is(detailed, Conflict("OTHER", "other")))
	assert.Equal(t, 3, detailed.Details["remaining"])
	assert.Nil(t, errSample.Details, "With must not mutate the sentinel")
}

func TestError_StatusByKind(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, New(kind, "X", "x").Status())
	}
}

func TestFrom_WrapsUnknownErrorsAsInternal(t *testing.T) {
	cause := errors.New("pq: connection refused")

	got := From(fmt.Errorf("find event: %w", cause))

	require.NotNil(t, got)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "Internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
}

func TestFrom_KeepsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("purchase: %w", errSample)

	got := From(wrapped)

	assert.Equal(t, "SAMPLE", got.Code)
	assert.True(t, IsKind(wrapped, KindConflict))
	assert.Nil(t, From(nil))
}
