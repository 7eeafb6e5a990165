package aggregator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsearch-service/internal/models"
)

type slowCatalog struct {
	delay   time.Duration
	records []models.CatalogRecord
}

func (s slowCatalog) Search(ctx context.Context, query string) []models.CatalogRecord {
	time.Sleep(s.delay)
	return s.records
}

type slowWeb struct {
	delay   time.Duration
	results []models.WebResult
}

func (s slowWeb) Search(ctx context.Context, query string) []models.WebResult {
	time.Sleep(s.delay)
	return s.results
}

func TestUnifiedSearch_LatencyIsMaxNotSum(t *testing.T) {
	agg := New(
		slowCatalog{delay: 300 * time.Millisecond, records: []models.CatalogRecord{{Name: "A"}}},
		slowWeb{delay: 200 * time.Millisecond, results: []models.WebResult{{Title: "B"}}},
	)

	start := time.Now()
	result := agg.UnifiedSearch(context.Background(), "aspirin")
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 450*time.Millisecond, "sources must run concurrently")
	assert.Len(t, result.CatalogRecords, 1)
	assert.Len(t, result.WebResults, 1)
}

func TestUnifiedSearch_PreservesOrderAndQuery(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("AEST", 10*3600))
	agg := New(
		slowCatalog{records: []models.CatalogRecord{{Name: "first"}, {Name: "second"}}},
		slowWeb{results: []models.WebResult{{Title: "x"}, {Title: "y"}, {Title: "z"}}},
	)
	agg.now = func() time.Time { return fixed }

	result := agg.UnifiedSearch(context.Background(), "aspirin")

	assert.Equal(t, "aspirin", result.QueryText)
	assert.Equal(t, "first", result.CatalogRecords[0].Name)
	assert.Equal(t, "second", result.CatalogRecords[1].Name)
	assert.Equal(t, []string{"x", "y", "z"}, []string{result.WebResults[0].Title, result.WebResults[1].Title, result.WebResults[2].Title})
	assert.Equal(t, fixed.UTC(), result.ProducedAt)
	assert.Equal(t, time.UTC, result.ProducedAt.Location())
}

func TestUnifiedSearch_NilSourcesSerializeAsEmptyArrays(t *testing.T) {
	agg := New(slowCatalog{}, slowWeb{})

	result := agg.UnifiedSearch(context.Background(), "")
	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []interface{}{}, decoded["pbs_results"])
	assert.Equal(t, []interface{}{}, decoded["web_results"])
	assert.Contains(t, decoded, "query")
	assert.Contains(t, decoded, "search_timestamp")
}

func TestSingleSourcePaths(t *testing.T) {
	agg := New(
		slowCatalog{records: []models.CatalogRecord{{Name: "Paracetamol 500mg Tablets"}}},
		slowWeb{},
	)

	assert.Len(t, agg.SearchCatalog(context.Background(), "paracetamol"), 1)
	web := agg.SearchWeb(context.Background(), "paracetamol")
	assert.NotNil(t, web)
	assert.Empty(t, web)
}
