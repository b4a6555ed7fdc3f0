package models

import (
	"regexp"
	"strings"
)

// Filters is what a caller asks for. Backends turn it into one or more
// source-specific Queries.
type Filters struct {
	Item            string `json:"item" validate:"required"`
	MinPrice        int    `json:"min_price" validate:"gte=0"`
	MaxPrice        int    `json:"max_price" validate:"omitempty,gte=0,gtefield=MinPrice"`
	Condition       string `json:"condition"`
	DaysSinceListed int    `json:"days_since_listed" validate:"gte=0"`
	Location        string `json:"location"`
	Sort            string `json:"sort"`
}

// Query is a fully built, source-specific request. It is a value type; use
// WithURL to derive a variant instead of mutating one in place.
type Query struct {
	Source         string
	ItemText       string
	PriceMin       int
	PriceMax       int
	ConditionCode  string
	TimeWindowDays int
	Location       string
	Sort           string
	URL            string
}

// WithURL returns a copy of q pointing at a different URL (mirrors, proxies).
func (q Query) WithURL(u string) Query {
	q.URL = u
	return q
}

// Source describes one marketplace: where its pages live and how listings
// look inside them.
type Source struct {
	Name               string
	BaseURL            string
	SupportsTimeWindow bool

	// ItemLinkPattern matches hrefs of individual listing pages.
	ItemLinkPattern *regexp.Regexp
	// PricePatterns are tried in order; the first match is the price text.
	PricePatterns []*regexp.Regexp
	// ContainerSelectors are best-guess CSS selectors for listing cards.
	ContainerSelectors []string
	// TitleSelectors, when set, locate the title inside a matched card.
	TitleSelectors []string
	// SkipMarkers drop cards whose text contains any of them (ads, promos).
	// Matching ignores case.
	SkipMarkers []string
}

// Skips reports whether a card with the given text should be ignored.
func (s Source) Skips(cardText string) bool {
	if len(s.SkipMarkers) == 0 {
		return false
	}
	upper := strings.ToUpper(cardText)
	for _, m := range s.SkipMarkers {
		if strings.Contains(upper, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}
