// internal/models/medication.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Category selects which source(s) a query is dispatched to.
type Category string

const (
	CategoryCatalog Category = "catalog"
	CategoryWeb     Category = "web"
	CategoryUnified Category = "unified"
)

// ParseCategory accepts the canonical names plus the wire aliases used by
// older clients ("pbs", "google_search", "google"). An empty string maps to
// the unified path.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "catalog", "pbs":
		return CategoryCatalog, nil
	case "web", "google_search", "google":
		return CategoryWeb, nil
	case "unified", "":
		return CategoryUnified, nil
	default:
		return "", fmt.Errorf("unknown search category %q", s)
	}
}

// SourceTag labels which trusted domain a web result came from.
type SourceTag string

const (
	SourceTGA              SourceTag = "TGA"
	SourceNPS              SourceTag = "NPS"
	SourcePBS              SourceTag = "PBS"
	SourceHealthGov        SourceTag = "Health.gov.au"
	SourceMedicineSafety   SourceTag = "Medicine Safety"
	SourceAustralianHealth SourceTag = "Australian Health"
)

// Query is one inbound search request as written to the history ledger.
type Query struct {
	ID        string    `json:"id"`
	Text      string    `json:"query"`
	Category  Category  `json:"search_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CatalogRecord is a normalized PBS catalog entry. Optional fields are nil
// when the upstream did not report them.
type CatalogRecord struct {
	Code               *string  `json:"pbs_code,omitempty"`
	Name               string   `json:"drug_name"`
	ActiveIngredient   *string  `json:"active_ingredient,omitempty"`
	Manufacturer       *string  `json:"manufacturer,omitempty"`
	ClassificationCode *string  `json:"atc_code,omitempty"`
	DDDAmount          *string  `json:"ddd_amount,omitempty"`
	StrengthForm       *string  `json:"form_strength,omitempty"`
	Restrictions       []string `json:"restrictions,omitempty"`
	PrescriberClass    *string  `json:"prescriber_type,omitempty"`
}

// WebResult is a single page returned by the restricted web search.
type WebResult struct {
	Title     string    `json:"title"`
	URL       string    `json:"link"`
	Snippet   string    `json:"snippet"`
	SourceTag SourceTag `json:"source"`
}

// UnifiedResult combines both sources for one query.
type UnifiedResult struct {
	QueryText      string          `json:"query"`
	CatalogRecords []CatalogRecord `json:"pbs_results"`
	WebResults     []WebResult     `json:"web_results"`
	ProducedAt     time.Time       `json:"search_timestamp"`
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
