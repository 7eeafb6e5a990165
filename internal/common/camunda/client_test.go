package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medsearch-service/internal/common/config"
	apperrors "medsearch-service/internal/common/errors"
)

func newRetryClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		RequestTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 1500})
	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "gateway down"), true},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "backpressure"), true},
		{"grpc not found", status.Error(codes.NotFound, "no job with key 42"), false},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad variables"), false},
		{"context deadline", context.DeadlineExceeded, true},
		{"plain network", errors.New("write: broken pipe"), true},
		{"plain other", errors.New("permission denied"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryable(tt.err), tt.name)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode apperrors.ErrorCode
	}{
		{name: "deadline", err: context.DeadlineExceeded, wantCode: apperrors.ErrCodeUpstreamTimeout},
		{name: "grpc deadline", err: status.Error(codes.DeadlineExceeded, "slow"), wantCode: apperrors.ErrCodeUpstreamTimeout},
		{name: "unavailable", err: status.Error(codes.Unavailable, "connection refused"), wantCode: apperrors.ErrCodeUpstreamUnavailable},
		{name: "other", err: status.Error(codes.PermissionDenied, "nope"), wantCode: apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "complete-job", 2)

			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, stdErr.Details, "after 3 attempts")
		})
	}
}

func TestExecute(t *testing.T) {
	t.Run("retries transient errors until success", func(t *testing.T) {
		c := newRetryClient(3)
		calls := 0
		got, err := Execute(context.Background(), c, "topology", func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", status.Error(codes.Unavailable, "connection reset")
			}
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		c := newRetryClient(3)
		calls := 0
		_, err := Execute(context.Background(), c, "complete-job", func(ctx context.Context) (int, error) {
			calls++
			return 0, status.Error(codes.NotFound, "job not found")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		c := newRetryClient(2)
		calls := 0
		_, err := Execute(context.Background(), c, "topology", func(ctx context.Context) (int, error) {
			calls++
			return 0, status.Error(codes.Unavailable, "gateway down")
		})

		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, apperrors.ErrCodeUpstreamUnavailable, stdErr.Code)
		assert.Equal(t, 3, calls)
	})

	t.Run("each attempt gets a deadline", func(t *testing.T) {
		c := newRetryClient(0)
		_, err := Execute(context.Background(), c, "topology", func(ctx context.Context) (bool, error) {
			_, ok := ctx.Deadline()
			return ok, nil
		})
		require.NoError(t, err)
	})

	t.Run("stops when the caller cancels", func(t *testing.T) {
		c := newRetryClient(5)
		c.config.RetryConfig.BaseDelay = time.Second
		c.config.RetryConfig.MaxDelay = time.Second
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Execute(ctx, c, "topology", func(ctx context.Context) (int, error) {
			return 0, status.Error(codes.Unavailable, "gateway down")
		})
		assert.Error(t, err)
	})
}
