package trade

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKindAndReason(t *testing.T) {
	err := ownerNotFound(7)

	assert.ErrorIs(t, err, ErrOwnerNotFound)
	assert.NotErrorIs(t, err, ErrPossessionNotFound)
	assert.NotErrorIs(t, err, ErrTraderNotInTrade)
	assert.Contains(t, err.Error(), "owner with id 7 not found")

	wrapped := fmt.Errorf("create: %w", err)
	assert.ErrorIs(t, wrapped, ErrOwnerNotFound)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, ReasonOwner, ReasonOf(wrapped))
}

func TestErrorHTTPMapping(t *testing.T) {
	cause := errors.New("disk I/O error")

	tests := []struct {
		err       error
		status    int
		code      string
		retryable bool
	}{
		{err: tradeNotFound(3), status: http.StatusNotFound, code: "NOT_FOUND"},
		{err: possessionNotFound(3), status: http.StatusNotFound, code: "NOT_FOUND"},
		{err: sameTraderTwice(1), status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{err: ownershipMismatch(3, 1), status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{err: notAccepted(3), status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{err: executionFailure(3, cause), status: http.StatusServiceUnavailable, code: "EXECUTION_FAILURE", retryable: true},
	}

	for _, tt := range tests {
		var tErr *Error
		if assert.ErrorAs(t, tt.err, &tErr) {
			assert.Equal(t, tt.status, tErr.StatusCode(), tt.err.Error())
			assert.Equal(t, tt.code, tErr.Code())
			assert.Equal(t, tt.retryable, tErr.Retryable())
		}
	}
}

func TestExecutionFailureUnwrapsCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := executionFailure(4, cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrExecutionFailure)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestKindOfForeignError(t *testing.T) {
	err := errors.New("plain")
	assert.Equal(t, Kind(""), KindOf(err))
	assert.Equal(t, Reason(""), ReasonOf(err))
}
