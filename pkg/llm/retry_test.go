package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type retryFlakyClient struct {
	failures int
	calls    int
}

func (f *retryFlakyClient) Invoke(_ context.Context, _ Request) (*Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, timeoutError{}
	}
	return &Response{Content: "recovered"}, nil
}

func (f *retryFlakyClient) Stream(_ context.Context, _ Request) (<-chan Chunk, error) {
	out := make(chan Chunk)
	close(out)
	return out, nil
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &retryFlakyClient{failures: 2}
	c := withRetry(inner)

	resp, err := c.Invoke(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	boom := errors.New("invalid request")
	inner := &fakeClient{err: boom}
	c := withRetry(inner)

	_, err := c.Invoke(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, inner.invokes)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(timeoutError{}))
	assert.True(t, isRetryable(errors.New("dial tcp: connection refused")))
	assert.False(t, isRetryable(errors.New("invalid api key")))
	assert.False(t, isRetryable(context.Canceled))
}
