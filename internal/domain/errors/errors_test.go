package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappedSentinelStillMatches(t *testing.T) {
	err := Wrap(ErrTrialAlreadyExtended, "extend trial")

	assert.True(t, Is(err, ErrTrialAlreadyExtended))
	assert.Equal(t, CodeAlreadyExtended, CodeOf(err))
}

func TestExternalHidesCause(t *testing.T) {
	cause := New("connection refused to 10.0.0.5:5432")
	err := External("failed to load account", cause)

	assert.Equal(t, "failed to load account", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, Is(Unwrap(err), cause))
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrPlanNotFound, http.StatusNotFound},
		{ErrNoSubscription, http.StatusConflict},
		{ErrNotCancelPending, http.StatusConflict},
		{ErrTrialAlreadyExtended, http.StatusConflict},
		{ErrInvalidSignature, http.StatusBadRequest},
		{External("processor down", nil), http.StatusBadGateway},
		{New("plain error"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v", tc.err), func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.err))
		})
	}
}

func TestMessageOfPlainError(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(New("sql: connection reset")))
}
