package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// maxInvokeRetries caps retry attempts for a single Invoke call.
const maxInvokeRetries = 3

// retryClient wraps a backend with exponential backoff on transient failures.
// Only Invoke is retried; a stream that fails mid-flight has already delivered
// chunks, so the error is surfaced in-band instead.
type retryClient struct {
	inner Client
}

func withRetry(inner Client) Client {
	return &retryClient{inner: inner}
}

func (r *retryClient) Invoke(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	op := func() error {
		var err error
		resp, err = r.inner.Invoke(ctx, req)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxInvokeRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *retryClient) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	return r.inner.Stream(ctx, req)
}

// isRetryable classifies provider failures. Rate limits and server errors are
// transient; everything else fails fast.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return retryableStatus(oaiErr.StatusCode)
	}
	var antErr *sdk.Error
	if errors.As(err, &antErr) {
		return retryableStatus(antErr.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
