// internal/search/catalog/fallback.go
package catalog

import (
	"strings"

	"medsearch-service/internal/models"
)

type seed struct {
	key    string
	record func() models.CatalogRecord
}

// seeds are checked in order; the first match wins. Records are built fresh
// per call so callers can never mutate shared data.
var seeds = []seed{
	{key: "paracetamol", record: func() models.CatalogRecord {
		return models.CatalogRecord{
			Code:               models.StringPtr("1234A"),
			Name:               "Paracetamol 500mg Tablets",
			ActiveIngredient:   models.StringPtr("Paracetamol"),
			Manufacturer:       models.StringPtr("Various"),
			ClassificationCode: models.StringPtr("N02BE01"),
			StrengthForm:       models.StringPtr("500mg tablet"),
			PrescriberClass:    models.StringPtr("General Practitioner"),
		}
	}},
	{key: "aspirin", record: func() models.CatalogRecord {
		return models.CatalogRecord{
			Code:               models.StringPtr("5678B"),
			Name:               "Aspirin 100mg Tablets",
			ActiveIngredient:   models.StringPtr("Acetylsalicylic acid"),
			Manufacturer:       models.StringPtr("Various"),
			ClassificationCode: models.StringPtr("B01AC06"),
			StrengthForm:       models.StringPtr("100mg tablet"),
			PrescriberClass:    models.StringPtr("General Practitioner"),
		}
	}},
	{key: "insulin", record: func() models.CatalogRecord {
		return models.CatalogRecord{
			Code:               models.StringPtr("9012C"),
			Name:               "Insulin Human Injection",
			ActiveIngredient:   models.StringPtr("Human insulin"),
			Manufacturer:       models.StringPtr("Novo Nordisk"),
			ClassificationCode: models.StringPtr("A10AB01"),
			StrengthForm:       models.StringPtr("100 units/mL injection"),
			PrescriberClass:    models.StringPtr("Endocrinologist"),
		}
	}},
}

// Fallback returns the deterministic synthetic records for query. The result
// always holds at least one record with a non-empty name.
func Fallback(query string) []models.CatalogRecord {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower != "" {
		for _, s := range seeds {
			if strings.Contains(s.key, lower) || strings.Contains(lower, s.key) {
				return []models.CatalogRecord{s.record()}
			}
		}
	}
	return []models.CatalogRecord{genericRecord(query)}
}

func genericRecord(query string) models.CatalogRecord {
	return models.CatalogRecord{
		Code:               models.StringPtr("DEMO"),
		Name:               query + " (Demo Result)",
		ActiveIngredient:   models.StringPtr("Active ingredient information unavailable"),
		Manufacturer:       models.StringPtr("Contact healthcare provider"),
		ClassificationCode: models.StringPtr("N/A"),
		StrengthForm:       models.StringPtr("Various strengths available"),
		PrescriberClass:    models.StringPtr("Consult healthcare professional"),
	}
}
