// internal/search/aggregator/aggregator.go
package aggregator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"medsearch-service/internal/models"
)

var tracer = otel.Tracer("medsearch/aggregator")

type CatalogSearcher interface {
	Search(ctx context.Context, query string) []models.CatalogRecord
}

type WebSearcher interface {
	Search(ctx context.Context, query string) []models.WebResult
}

// Aggregator fans a query out to both sources and joins the results.
type Aggregator struct {
	catalog CatalogSearcher
	web     WebSearcher
	now     func() time.Time
}

func New(catalog CatalogSearcher, web WebSearcher) *Aggregator {
	return &Aggregator{catalog: catalog, web: web, now: time.Now}
}

// SearchCatalog is the single-source catalog path.
func (a *Aggregator) SearchCatalog(ctx context.Context, query string) []models.CatalogRecord {
	ctx, span := tracer.Start(ctx, "catalog.search")
	defer span.End()

	records := a.catalog.Search(ctx, query)
	if records == nil {
		records = []models.CatalogRecord{}
	}
	span.SetAttributes(attribute.Int("search.results", len(records)))
	return records
}

// SearchWeb is the single-source web path.
func (a *Aggregator) SearchWeb(ctx context.Context, query string) []models.WebResult {
	ctx, span := tracer.Start(ctx, "web.search")
	defer span.End()

	results := a.web.Search(ctx, query)
	if results == nil {
		results = []models.WebResult{}
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results
}

// UnifiedSearch runs both sources concurrently and waits for both. Neither
// branch can fail the aggregate; each client bounds its own latency.
func (a *Aggregator) UnifiedSearch(ctx context.Context, query string) models.UnifiedResult {
	ctx, span := tracer.Start(ctx, "unified.search")
	defer span.End()

	var (
		records []models.CatalogRecord
		web     []models.WebResult
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		records = a.SearchCatalog(groupCtx, query)
		return nil
	})
	group.Go(func() error {
		web = a.SearchWeb(groupCtx, query)
		return nil
	})
	_ = group.Wait()

	span.SetAttributes(
		attribute.Int("search.catalog_results", len(records)),
		attribute.Int("search.web_results", len(web)),
	)

	return models.UnifiedResult{
		QueryText:      query,
		CatalogRecords: records,
		WebResults:     web,
		ProducedAt:     a.now().UTC(),
	}
}
