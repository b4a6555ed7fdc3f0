// Package sources describes the marketplaces the scraper knows about and
// builds source-specific queries from caller filters.
package sources

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"marketplace-scraper/models"
)

// Builder turns caller filters into a query for one source.
type Builder interface {
	Source() models.Source
	Build(f models.Filters, windowDays int) (models.Query, error)
}

var validate = validator.New()

// ValidateFilters checks the struct tags on models.Filters.
func ValidateFilters(f models.Filters) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid filters: %w", err)
	}
	return nil
}

var (
	sgdPrice    = regexp.MustCompile(`SGD\s?[\d,]+(?:\.\d{1,2})?`)
	sDollar     = regexp.MustCompile(`S\$\s?\d[\d,]*(?:\.\d{1,2})?`)
	plainDollar = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{1,2})?`)
)

// Facebook is Facebook Marketplace. It is the only source that accepts a
// days-since-listed filter, which the interpolation engine relies on.
var Facebook = models.Source{
	Name:               "facebook",
	BaseURL:            "https://www.facebook.com",
	SupportsTimeWindow: true,
	ItemLinkPattern:    regexp.MustCompile(`/marketplace/item/\d+`),
	PricePatterns:      []*regexp.Regexp{sgdPrice, sDollar, plainDollar},
	ContainerSelectors: []string{
		`[data-testid="marketplace-item"]`,
		`[data-testid*="marketplace"]`,
		`div[role="article"]`,
	},
}

// Carousell is carousell.sg. Its item links live under /p/.
var Carousell = models.Source{
	Name:               "carousell",
	BaseURL:            "https://www.carousell.sg",
	SupportsTimeWindow: false,
	ItemLinkPattern:    regexp.MustCompile(`(^|carousell\.sg)/p/[^/?#]+`),
	PricePatterns:      []*regexp.Regexp{sDollar, sgdPrice, plainDollar},
	ContainerSelectors: []string{
		`[data-testid^="listing-card"]`,
		`div[data-testid*="listing"]`,
		`main div[id^="listing"]`,
	},
}

// ForName returns the builder for a source name. mobile selects the
// lightweight mirror where one exists.
func ForName(name string, mobile bool) (Builder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Facebook.Name:
		return FacebookBuilder{Mobile: mobile}, nil
	case Carousell.Name:
		return CarousellBuilder{}, nil
	case Ebay.Name:
		return EbayBuilder{}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}
