// internal/common/camunda/client.go
package camunda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medsearch-service/internal/common/config"
	apperrors "medsearch-service/internal/common/errors"
)

const source = "zeebe"

// Client owns the gateway connection shared by every job worker.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// ConfigFrom maps the camunda config section. The gateway is plaintext
// inside the cluster.
func ConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		RequestTimeout:         config.GetDuration(cfg.RequestTimeout),
	}
}

// NewClientWithConfig dials the gateway and requests the topology once, so a
// gateway that is not up yet fails here rather than in the first worker poll.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: cfg}
	if err := c.HealthCheck(context.Background()); err != nil {
		_ = zeebeClient.Close()
		return nil, fmt.Errorf("gateway %s: %w", cfg.GatewayAddress, err)
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck requests the broker topology within the connection timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// Execute runs command with a per-attempt deadline, retrying transient
// failures with capped exponential backoff. The final error is a
// StandardError.
func Execute[T any](ctx context.Context, c *Client, operation string, command func(context.Context) (T, error)) (T, error) {
	var zero T
	retry := c.config.RetryConfig

	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		result, err := command(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) || attempt >= retry.MaxRetries {
			return zero, classify(err, operation, attempt)
		}

		delay := retry.BaseDelay << attempt
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, classify(ctx.Err(), operation, attempt)
		}
	}
}

// isRetryable treats gateway back-pressure and connectivity as transient.
// Non-gRPC errors fall back to matching network error text.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "broken pipe", "timeout"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// classify converts a gateway error into a StandardError keeping the cause.
func classify(err error, operation string, attempt int) error {
	msg := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		msg += fmt.Sprintf(" after %d attempts", attempt+1)
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)

	code := codes.Unknown
	if st, ok := status.FromError(err); ok {
		code = st.Code()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || code == codes.DeadlineExceeded:
		return apperrors.NewUpstreamTimeoutError(source, wrapped)
	case code == codes.Unavailable || code == codes.ResourceExhausted || isRetryable(err):
		return apperrors.NewUpstreamUnavailableError(source, wrapped)
	default:
		stdErr := apperrors.AsStandardError(wrapped)
		stdErr.Metadata = map[string]interface{}{"source": source, "operation": operation, "grpcCode": code.String()}
		return stdErr
	}
}
