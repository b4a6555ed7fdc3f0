package sources

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"marketplace-scraper/models"
)

// Ebay is ebay.com.sg. Results come as li.s-item cards; the first card on
// most result pages is a "Shop on eBay" promo.
var Ebay = models.Source{
	Name:               "ebay",
	BaseURL:            "https://www.ebay.com.sg",
	SupportsTimeWindow: false,
	ItemLinkPattern:    regexp.MustCompile(`ebay\.[a-z.]+/itm/|^/itm/`),
	PricePatterns:      []*regexp.Regexp{sDollar, sgdPrice, plainDollar},
	ContainerSelectors: []string{
		`ul.srp-results li.s-item`,
		`ul#srp-river-results li.s-item`,
		`li.s-item`,
		`div.s-item`,
	},
	TitleSelectors: []string{
		`div.s-item__title`,
		`h3.s-item__title`,
		`span[role="heading"]`,
	},
	SkipMarkers: []string{"Shop on eBay", "SPONSORED", "ADCHOICES"},
}

var ebayConditions = map[string]int{
	"new":           1000,
	"brand new":     1000,
	"like new":      3,
	"used_like_new": 3,
	"lightly used":  3,
	"used_good":     3,
	"well used":     3,
	"used_fair":     3,
	"heavily used":  3,
	"used":          3,
	"for parts":     7,
	"parts":         7,
	"any":           0,
}

var ebaySorts = map[string]int{
	"best":        12,
	"best_match":  12,
	"recent":      10,
	"date_desc":   10,
	"price_asc":   15,
	"low_to_high": 15,
	"price_desc":  16,
	"high_to_low": 16,
}

var ebayLocations = map[string]int{
	"singapore": 1,
	"sg":        1,
	"local":     1,
	"worldwide": 2,
	"any":       2,
}

// MapEbayCondition returns the LH_ItemCondition code. Numeric input passes
// through, 0 means no condition filter and unknown labels mean used.
func MapEbayCondition(val string) int {
	return lookupCode(val, ebayConditions, 3)
}

// EbayBuilder builds ebay.com.sg search URLs. eBay has no days-since-listed
// filter, so the window argument is ignored.
type EbayBuilder struct{}

func (EbayBuilder) Source() models.Source { return Ebay }

func (EbayBuilder) Build(f models.Filters, _ int) (models.Query, error) {
	if err := ValidateFilters(f); err != nil {
		return models.Query{}, err
	}

	q := models.Query{
		Source:   Ebay.Name,
		ItemText: strings.TrimSpace(f.Item),
		PriceMin: f.MinPrice,
		PriceMax: f.MaxPrice,
		Location: strings.TrimSpace(f.Location),
	}

	params := url.Values{}
	params.Set("_nkw", q.ItemText)
	params.Set("_sacat", "0")
	params.Set("rt", "nc")
	if q.PriceMin > 0 {
		params.Set("_udlo", strconv.Itoa(q.PriceMin))
	}
	if q.PriceMax > 0 {
		params.Set("_udhi", strconv.Itoa(q.PriceMax))
	}
	if loc := lookupCode(q.Location, ebayLocations, 1); loc > 0 {
		params.Set("LH_PrefLoc", strconv.Itoa(loc))
	}
	if strings.TrimSpace(f.Condition) != "" {
		if code := MapEbayCondition(f.Condition); code > 0 {
			q.ConditionCode = strconv.Itoa(code)
			params.Set("LH_ItemCondition", q.ConditionCode)
		}
	}
	if strings.TrimSpace(f.Sort) != "" {
		q.Sort = strconv.Itoa(lookupCode(f.Sort, ebaySorts, 12))
		params.Set("_sop", q.Sort)
	}

	u := url.URL{
		Scheme:   "https",
		Host:     "www.ebay.com.sg",
		Path:     "/sch/i.html",
		RawQuery: params.Encode(),
	}
	q.URL = u.String()
	return q, nil
}
