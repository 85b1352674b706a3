package service

import (
	"fmt"
	"strings"

	"dqa/internal/cache"
	"dqa/internal/search"
	"dqa/pkg/platform/sentinel"
	dstrings "dqa/pkg/platform/strings"
)

const cacheKeyPrefix = "dqa"

// Request is one organisation assessment.
type Request struct {
	Organisation                 string
	Filters                      search.Filters
	RequireFundingAndAccountable bool
	IncludeExemptions            bool
}

// Normalize trims the organisation and dedupes the filter codes.
func (r *Request) Normalize() {
	if r == nil {
		return
	}
	r.Organisation = strings.TrimSpace(r.Organisation)
	r.Filters.Countries = nilIfEmpty(dstrings.DedupeAndTrimUpper(r.Filters.Countries))
	r.Filters.Regions = nilIfEmpty(dstrings.DedupeAndTrim(r.Filters.Regions))
	r.Filters.Sectors = nilIfEmpty(dstrings.DedupeAndTrim(r.Filters.Sectors))
}

// nilIfEmpty makes an empty filter and an absent one share a cache key.
func nilIfEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}

// Validate rejects requests that cannot be turned into a search.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("request is required: %w", sentinel.ErrInvalidInput)
	}
	if r.Organisation == "" {
		return fmt.Errorf("organisation is required: %w", sentinel.ErrInvalidInput)
	}
	for _, code := range r.Filters.Sectors {
		if !search.IsSectorGroup(code) && !search.IsSectorCode(code) {
			return fmt.Errorf("sector code '%s' must be 3 or 5 digits: %w", code, sentinel.ErrInvalidInput)
		}
	}
	return nil
}

// CacheKey identifies the report produced for r.
func (r Request) CacheKey() string {
	return cache.Key(cacheKeyPrefix, []string{r.Organisation},
		cache.Field{Name: "countries", Value: r.Filters.Countries},
		cache.Field{Name: "regions", Value: r.Filters.Regions},
		cache.Field{Name: "sectors", Value: r.Filters.Sectors},
		cache.Field{Name: "require_funding_and_accountable", Value: r.RequireFundingAndAccountable},
		cache.Field{Name: "include_exemptions", Value: r.IncludeExemptions},
	)
}

func (r Request) search(hierarchy int) search.Request {
	return search.Request{
		Organisation:          r.Organisation,
		Hierarchy:             hierarchy,
		Filters:               r.Filters,
		FundingAndAccountable: r.RequireFundingAndAccountable,
	}
}
