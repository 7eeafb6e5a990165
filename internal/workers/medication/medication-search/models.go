// internal/workers/medication/medication-search/models.go
package medicationsearch

import (
	"encoding/json"
	"time"

	"medsearch-service/internal/models"
)

type Input struct {
	Query      string `json:"query"`
	SearchType string `json:"searchType,omitempty"`
}

// Output carries only the result lists the requested category produced, so
// a catalog job never writes an empty webResults variable into the process.
type Output struct {
	Category        models.Category
	PBSResults      []models.CatalogRecord
	WebResults      []models.WebResult
	SearchTimestamp time.Time
}

func (o Output) MarshalJSON() ([]byte, error) {
	vars := map[string]interface{}{
		"searchTimestamp": o.SearchTimestamp,
	}
	if o.Category == models.CategoryCatalog || o.Category == models.CategoryUnified {
		vars["pbsResults"] = nonNilRecords(o.PBSResults)
	}
	if o.Category == models.CategoryWeb || o.Category == models.CategoryUnified {
		vars["webResults"] = nonNilResults(o.WebResults)
	}
	return json.Marshal(vars)
}

func nonNilRecords(r []models.CatalogRecord) []models.CatalogRecord {
	if r == nil {
		return []models.CatalogRecord{}
	}
	return r
}

func nonNilResults(r []models.WebResult) []models.WebResult {
	if r == nil {
		return []models.WebResult{}
	}
	return r
}
