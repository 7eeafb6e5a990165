// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"

	"medsearch-service/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client used for the history index.
type ElasticsearchClient struct {
	Client    *elasticsearch.Client
	transport *http.Transport
}

// NewElasticsearch builds a client that retries overloaded nodes and pings
// the cluster once.
func NewElasticsearch(ctx context.Context, cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch: no address configured")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     addresses,
		Transport:     transport,
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		MaxRetries:    2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	c := &ElasticsearchClient{Client: es, transport: transport}
	if err := verify(ctx, "elasticsearch", c.Ping, c.Close); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ping returned %s", res.Status())
	}
	return nil
}

// Close drops the idle connections held by the client's transport.
func (c *ElasticsearchClient) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
