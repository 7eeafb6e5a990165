// internal/history/elasticsearch.go
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"medsearch-service/internal/models"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "query":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "search_type": {"type": "keyword"},
      "timestamp":   {"type": "date"}
    }
  }
}`

type ElasticsearchStore struct {
	es    *elasticsearch.Client
	index string
}

func NewElasticsearchStore(es *elasticsearch.Client, index string) *ElasticsearchStore {
	if index == "" {
		index = "medication_searches"
	}
	return &ElasticsearchStore{es: es, index: index}
}

// EnsureIndex creates the index with an explicit date mapping if missing.
func (s *ElasticsearchStore) EnsureIndex(ctx context.Context) error {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.es.Indices.Create(
		s.index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	// a concurrent creator wins with resource_already_exists_exception
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("create index: %s", res.Status())
	}
	return nil
}

func (s *ElasticsearchStore) Insert(ctx context.Context, q models.Query) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: q.ID,
		Body:       bytes.NewReader(data),
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("index history entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index history entry: %s", res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Query `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchStore) FindSorted(ctx context.Context, limit int) ([]models.Query, error) {
	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithSort("timestamp:desc"),
		s.es.Search.WithSize(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer res.Body.Close()

	// nothing has been recorded yet
	if res.StatusCode == http.StatusNotFound {
		return []models.Query{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search history: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode history search: %w", err)
	}

	out := make([]models.Query, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}

func (s *ElasticsearchStore) Ping(ctx context.Context) error {
	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}

func (s *ElasticsearchStore) Name() string { return "elasticsearch" }
