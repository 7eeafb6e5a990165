// internal/search/catalog/client.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medsearch-service/internal/alerts"
	httpclient "medsearch-service/internal/common/http"
	"medsearch-service/internal/common/metrics"
	"medsearch-service/internal/models"
)

const SourceName = "pbs"

var (
	ErrNoSchedule = errors.New("catalog reported no schedules")
	ErrNoMatches  = errors.New("catalog returned no matching items")
)

type Config struct {
	BaseURL    string
	PageLimit  int
	MaxResults int
	Timeout    time.Duration
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Client searches the PBS catalog. Search never fails: any upstream problem
// yields the synthetic records from Fallback instead.
type Client struct {
	cfg      Config
	http     *httpclient.Client
	notifier alerts.Notifier
	logger   Logger
}

func NewClient(cfg Config, http *httpclient.Client, notifier alerts.Notifier, logger Logger) *Client {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 50
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if notifier == nil {
		notifier = alerts.NewNoop()
	}
	return &Client{cfg: cfg, http: http, notifier: notifier, logger: logger}
}

// Available is false while the upstream circuit breaker is open.
func (c *Client) Available() bool {
	if b := c.http.Breaker(); b != nil {
		return b.Available()
	}
	return true
}

// Search returns at most MaxResults live records, or the fallback set. The
// caller's cancellation is ignored; only the configured timeout bounds the call.
func (c *Client) Search(ctx context.Context, query string) []models.CatalogRecord {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		metrics.SearchFallbacks.WithLabelValues(SourceName, "empty_query").Inc()
		return Fallback(query)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	records, err := c.searchLive(callCtx, lower)
	metrics.UpstreamDuration.WithLabelValues(SourceName).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := "no_results"
		if !errors.Is(err, ErrNoMatches) {
			reason = httpclient.FailureReason(err)
			if errors.Is(err, ErrNoSchedule) {
				reason = "no_schedule"
			}
			c.notifier.SourceDegraded(ctx, SourceName, reason)
		}
		c.logger.Warn("catalog search fell back to synthetic data", map[string]interface{}{
			"query":  query,
			"reason": reason,
			"error":  err.Error(),
		})
		metrics.SearchFallbacks.WithLabelValues(SourceName, reason).Inc()
		return Fallback(query)
	}

	fields := map[string]interface{}{
		"query":   query,
		"results": len(records),
	}
	if len(records) > 0 {
		fields["first_code"] = models.StringValue(records[0].Code)
	}
	c.logger.Debug("catalog search completed", fields)
	return records
}

func (c *Client) searchLive(ctx context.Context, lower string) ([]models.CatalogRecord, error) {
	scheduleCode, err := c.currentSchedule(ctx)
	if err != nil {
		return nil, err
	}

	var items itemsResponse
	params := url.Values{
		"schedule_code": {scheduleCode},
		"limit":         {strconv.Itoa(c.cfg.PageLimit)},
		"search":        {lower},
	}
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/amt-items", params, &items); err != nil {
		return nil, fmt.Errorf("amt-items: %w", err)
	}

	records := make([]models.CatalogRecord, 0, c.cfg.MaxResults)
	for _, item := range items.Results {
		if !item.matches(lower) {
			continue
		}
		rec, ok := item.toRecord()
		if !ok {
			continue
		}
		records = append(records, rec)
		if len(records) == c.cfg.MaxResults {
			break
		}
	}

	if len(records) == 0 {
		return nil, ErrNoMatches
	}
	return records, nil
}

func (c *Client) currentSchedule(ctx context.Context) (string, error) {
	var schedules schedulesResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/schedules", url.Values{"limit": {"1"}}, &schedules); err != nil {
		return "", fmt.Errorf("schedules: %w", err)
	}
	if len(schedules.Results) == 0 || !schedules.Results[0].ScheduleCode.valid || schedules.Results[0].ScheduleCode.value == "" {
		return "", ErrNoSchedule
	}
	return schedules.Results[0].ScheduleCode.value, nil
}
