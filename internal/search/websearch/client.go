// internal/search/websearch/client.go
package websearch

import (
	"context"
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

const SourceName = "web"

type Config struct {
	BaseURL          string
	APIKey           string
	EngineID         string
	ResultsPerDomain int
	Domains          []string
	Timeout          time.Duration
}

// Configured reports whether live calls are possible.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.EngineID != ""
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Info describes the search engine setup without exposing credentials.
type Info struct {
	EngineID       string   `json:"cse_id"`
	Configured     bool     `json:"configured"`
	CoveredSites   []string `json:"covered_sites"`
	ResultsPerSite int      `json:"results_per_site"`
}

type cseResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Client queries the Custom Search JSON API once per trusted domain.
type Client struct {
	cfg      Config
	http     *httpclient.Client
	notifier alerts.Notifier
	logger   Logger
}

func NewClient(cfg Config, http *httpclient.Client, notifier alerts.Notifier, logger Logger) *Client {
	if cfg.ResultsPerDomain <= 0 {
		cfg.ResultsPerDomain = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Domains) == 0 {
		cfg.Domains = []string{"tga.gov.au", "nps.org.au", "pbs.gov.au", "health.gov.au", "medicinesafety.gov.au"}
	}
	if notifier == nil {
		notifier = alerts.NewNoop()
	}
	return &Client{cfg: cfg, http: http, notifier: notifier, logger: logger}
}

func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

func (c *Client) Info() Info {
	return Info{
		EngineID:       c.cfg.EngineID,
		Configured:     c.cfg.Configured(),
		CoveredSites:   append([]string(nil), c.cfg.Domains...),
		ResultsPerSite: c.cfg.ResultsPerDomain,
	}
}

// Search never fails. Without credentials it returns the synthetic set. With
// credentials, domains that fail are skipped and an all-empty outcome is an
// empty slice, unlike the catalog which always falls back.
func (c *Client) Search(ctx context.Context, query string) []models.WebResult {
	if !c.cfg.Configured() {
		c.logger.Debug("web search not configured, serving synthetic results", map[string]interface{}{
			"query":         query,
			"has_api_key":   c.cfg.APIKey != "",
			"has_engine_id": c.cfg.EngineID != "",
		})
		metrics.SearchFallbacks.WithLabelValues(SourceName, "not_configured").Inc()
		return Fallback(query)
	}

	results := make([]models.WebResult, 0, len(c.cfg.Domains)*c.cfg.ResultsPerDomain)
	if strings.TrimSpace(query) == "" {
		return results
	}

	start := time.Now()
	failures := 0
	var lastErr error
	for _, domain := range c.cfg.Domains {
		items, err := c.searchDomain(ctx, query, domain)
		if err != nil {
			failures++
			lastErr = err
			c.logger.Warn("web search failed for domain", map[string]interface{}{
				"domain": domain,
				"reason": httpclient.FailureReason(err),
				"error":  err.Error(),
			})
			continue
		}
		results = append(results, items...)
	}
	metrics.UpstreamDuration.WithLabelValues(SourceName).Observe(time.Since(start).Seconds())

	if failures == len(c.cfg.Domains) {
		reason := httpclient.FailureReason(lastErr)
		metrics.SearchFallbacks.WithLabelValues(SourceName, reason).Inc()
		c.notifier.SourceDegraded(ctx, SourceName, reason)
	}

	c.logger.Debug("web search completed", map[string]interface{}{
		"query":          query,
		"results":        len(results),
		"failed_domains": failures,
	})
	return results
}

// searchDomain gets its own deadline so a slow domain cannot starve the
// ones after it.
func (c *Client) searchDomain(ctx context.Context, query, domain string) ([]models.WebResult, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	params := url.Values{
		"key": {c.cfg.APIKey},
		"cx":  {c.cfg.EngineID},
		"q":   {fmt.Sprintf("%s site:%s", query, domain)},
		"num": {strconv.Itoa(c.cfg.ResultsPerDomain)},
	}

	var resp cseResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL, params, &resp); err != nil {
		return nil, err
	}

	tag := TagForDomain(domain)
	out := make([]models.WebResult, 0, len(resp.Items))
	for i, item := range resp.Items {
		if i == c.cfg.ResultsPerDomain {
			break
		}
		out = append(out, models.WebResult{
			Title:     item.Title,
			URL:       item.Link,
			Snippet:   item.Snippet,
			SourceTag: tag,
		})
	}
	return out, nil
}
