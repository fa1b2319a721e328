package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestStreamClientErrorFormatting(t *testing.T) {
	bare := &StreamClientError{Message: "something broke"}
	assert.Equal(t, "something broke", bare.Error())

	cause := errors.New("connection refused")
	wrapped := &StreamClientError{Message: "dial failed", Cause: cause}
	assert.Equal(t, "dial failed: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestTypedErrorsSupportErrorsAs(t *testing.T) {
	var err error = &TransportError{StreamClientError{Message: "stream gone"}}

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "stream gone", te.Message)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestErrTransportUninitialized(t *testing.T) {
	var te *TransportError
	require.True(t, errors.As(ErrTransportUninitialized, &te))
	assert.Equal(t, "stream transport is not initialized", ErrTransportUninitialized.Error())
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	res, err := RetryWithBackoff("test op", 3, time.Millisecond, func() (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("not yet")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	calls := 0
	last := errors.New("still broken")
	res, err := RetryWithBackoff("test op", 3, time.Millisecond, func() (interface{}, error) {
		calls++
		return nil, last
	})

	assert.Nil(t, res)
	assert.Equal(t, last, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffFirstTrySuccess(t *testing.T) {
	calls := 0
	res, err := RetryWithBackoff("test op", 5, time.Minute, func() (interface{}, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, 1, calls, "no retries and no sleeping on a clean first attempt")
}
