// internal/search/websearch/domains.go
package websearch

import (
	"net/url"
	"strings"

	"medsearch-service/internal/models"
)

// domainTags is the fixed domain -> tag table.
var domainTags = []struct {
	domain string
	tag    models.SourceTag
}{
	{"tga.gov.au", models.SourceTGA},
	{"nps.org.au", models.SourceNPS},
	{"pbs.gov.au", models.SourcePBS},
	{"health.gov.au", models.SourceHealthGov},
	{"medicinesafety.gov.au", models.SourceMedicineSafety},
}

// TagForDomain returns the tag for a trusted domain, or the generic tag.
func TagForDomain(domain string) models.SourceTag {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "www."))
	for _, d := range domainTags {
		if domain == d.domain {
			return d.tag
		}
	}
	return models.SourceAustralianHealth
}

// DetermineSource maps an arbitrary link to a tag by host suffix.
func DetermineSource(link string) models.SourceTag {
	host := link
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(host)

	for _, d := range domainTags {
		if host == d.domain || strings.HasSuffix(host, "."+d.domain) {
			return d.tag
		}
	}
	return models.SourceAustralianHealth
}
