// internal/search/websearch/fallback.go
package websearch

import (
	"fmt"
	"net/url"

	"medsearch-service/internal/models"
)

// Fallback is the synthetic result set served when no credentials are configured.
func Fallback(query string) []models.WebResult {
	q := url.QueryEscape(query)
	return []models.WebResult{
		{
			Title:     fmt.Sprintf("NPS Medicine Finder - %s Information", query),
			URL:       "https://www.nps.org.au/medicine-finder?q=" + q,
			Snippet:   fmt.Sprintf("Find comprehensive information about %s including uses, side effects, interactions and safety information from NPS MedicineWise.", query),
			SourceTag: models.SourceNPS,
		},
		{
			Title:     fmt.Sprintf("TGA - Therapeutic Goods Administration - %s", query),
			URL:       "https://www.tga.gov.au/search?q=" + q,
			Snippet:   fmt.Sprintf("Australian government information about %s regulation, safety alerts and product information from the Therapeutic Goods Administration.", query),
			SourceTag: models.SourceTGA,
		},
		{
			Title:     fmt.Sprintf("Australian Government Department of Health - %s", query),
			URL:       "https://www.health.gov.au/search?q=" + q,
			Snippet:   fmt.Sprintf("Official government health information about %s including guidelines, policy and health professional resources.", query),
			SourceTag: models.SourceHealthGov,
		},
	}
}
