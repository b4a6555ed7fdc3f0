package sources

import (
	"net/url"
	"strconv"
	"strings"

	"marketplace-scraper/models"
)

var carousellConditions = map[string]int{
	"brand new":    3,
	"like new":     4,
	"lightly used": 7,
	"well used":    5,
	"heavily used": 6,
	"new":          3,
	"used":         7,
}

var carousellSorts = map[string]int{
	"best":        1,
	"best_match":  1,
	"recent":      3,
	"date_desc":   3,
	"price_desc":  5,
	"high_to_low": 5,
	"price_asc":   4,
	"low_to_high": 4,
	"nearby":      6,
}

// MapCarousellCondition returns the layered_condition code. Numeric input
// passes through; unknown labels mean brand new.
func MapCarousellCondition(val string) int {
	return lookupCode(val, carousellConditions, 3)
}

// MapCarousellSort returns the sort_by code, defaulting to most recent.
func MapCarousellSort(val string) int {
	return lookupCode(val, carousellSorts, 3)
}

func lookupCode(val string, table map[string]int, fallback int) int {
	v := strings.ToLower(strings.TrimSpace(val))
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if n, ok := table[v]; ok {
		return n
	}
	return fallback
}

// CarousellBuilder builds carousell.sg search URLs. Carousell has no
// days-since-listed filter, so the window argument is ignored.
type CarousellBuilder struct{}

func (CarousellBuilder) Source() models.Source { return Carousell }

func (CarousellBuilder) Build(f models.Filters, _ int) (models.Query, error) {
	if err := ValidateFilters(f); err != nil {
		return models.Query{}, err
	}

	q := models.Query{
		Source:        Carousell.Name,
		ItemText:      strings.TrimSpace(f.Item),
		PriceMin:      f.MinPrice,
		PriceMax:      f.MaxPrice,
		ConditionCode: strconv.Itoa(MapCarousellCondition(f.Condition)),
		Location:      strings.TrimSpace(f.Location),
		Sort:          strconv.Itoa(MapCarousellSort(f.Sort)),
	}

	params := url.Values{}
	params.Set("addRecent", "true")
	params.Set("canChangeKeyword", "true")
	params.Set("includeSuggestions", "true")
	params.Set("layered_condition", q.ConditionCode)
	if q.PriceMax > 0 {
		params.Set("price_end", strconv.Itoa(q.PriceMax))
	} else {
		params.Set("price_end", "")
	}
	params.Set("price_start", strconv.Itoa(q.PriceMin))
	params.Set("sort_by", q.Sort)
	params.Set("t-search_query_source", "direct_search")

	u := url.URL{
		Scheme:   "https",
		Host:     "www.carousell.sg",
		Path:     "/search/" + q.ItemText,
		RawQuery: params.Encode(),
	}
	q.URL = u.String()
	return q, nil
}
