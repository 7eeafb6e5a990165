// internal/alerts/notifier.go
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"golang.org/x/time/rate"

	"medsearch-service/internal/common/aws"
	"medsearch-service/internal/common/config"
)

// Notifier is told when a live source degraded to synthetic data because of
// a failure. Empty upstream results are not reported.
type Notifier interface {
	SourceDegraded(ctx context.Context, source, reason string)
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Publisher is satisfied by *aws.SNSClient.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type noop struct{}

func (noop) SourceDegraded(context.Context, string, string) {}

// NewNoop returns a Notifier that drops every event.
func NewNoop() Notifier { return noop{} }

// SNSNotifier publishes degradation events to a topic. Publishing happens off
// the request path and is throttled; events over the limit are dropped.
type SNSNotifier struct {
	publisher Publisher
	topicARN  string
	service   string
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    Logger
	wg        sync.WaitGroup
}

func NewSNSNotifier(publisher Publisher, topicARN, service string, perMinute float64, burst int, logger Logger) *SNSNotifier {
	if perMinute <= 0 {
		perMinute = 6
	}
	if burst <= 0 {
		burst = 1
	}
	return &SNSNotifier{
		publisher: publisher,
		topicARN:  topicARN,
		service:   service,
		limiter:   rate.NewLimiter(rate.Limit(perMinute/60), burst),
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

func (n *SNSNotifier) SourceDegraded(ctx context.Context, source, reason string) {
	if !n.limiter.Allow() {
		n.logger.Warn("degradation alert throttled", map[string]interface{}{
			"source": source,
			"reason": reason,
		})
		return
	}

	input := aws.TopicMessage(
		n.topicARN,
		fmt.Sprintf("[%s] %s degraded", n.service, source),
		fmt.Sprintf("Source %s fell back to synthetic data (reason: %s) at %s",
			source, reason, time.Now().UTC().Format(time.RFC3339)),
	)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if _, err := n.publisher.Publish(pubCtx, input); err != nil {
			n.logger.Error("failed to publish degradation alert", map[string]interface{}{
				"source": source,
				"error":  err.Error(),
			})
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (n *SNSNotifier) Wait() {
	n.wg.Wait()
}

// New picks the SNS notifier when a topic is configured, the no-op otherwise.
func New(ctx context.Context, cfg config.AlertsConfig, service string, logger Logger) (Notifier, error) {
	if cfg.SNSTopicARN == "" {
		return NewNoop(), nil
	}
	client, err := aws.NewSNSClient(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create sns client: %w", err)
	}
	return NewSNSNotifier(client, cfg.SNSTopicARN, service, cfg.RatePerMin, cfg.Burst, logger), nil
}
