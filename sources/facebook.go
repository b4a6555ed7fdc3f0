package sources

import (
	"net/url"
	"strconv"
	"strings"

	"marketplace-scraper/models"
)

const defaultLocation = "singapore"

var facebookNumericConditions = map[string]string{
	"3": "new",
	"4": "used_like_new",
	"7": "used_good",
	"5": "used_good",
	"6": "used_fair",
}

var facebookTextConditions = map[string]string{
	"new":           "new",
	"brand new":     "new",
	"like new":      "used_like_new",
	"used_like_new": "used_like_new",
	"lightly used":  "used_good",
	"used_good":     "used_good",
	"well used":     "used_good",
	"heavily used":  "used_fair",
	"used_fair":     "used_fair",
	"used":          "used_like_new,used_good,used_fair",
}

// MapFacebookCondition accepts either a Carousell-style numeric code or a
// human label and returns Facebook's itemCondition value.
func MapFacebookCondition(val string) string {
	v := strings.ToLower(strings.TrimSpace(val))
	if c, ok := facebookNumericConditions[v]; ok {
		return c
	}
	if c, ok := facebookTextConditions[v]; ok {
		return c
	}
	return "new"
}

// FacebookBuilder builds Facebook Marketplace search URLs.
type FacebookBuilder struct {
	Mobile bool
}

func (b FacebookBuilder) Source() models.Source { return Facebook }

func (b FacebookBuilder) Build(f models.Filters, windowDays int) (models.Query, error) {
	if err := ValidateFilters(f); err != nil {
		return models.Query{}, err
	}

	location := strings.ToLower(strings.TrimSpace(f.Location))
	if location == "" {
		location = defaultLocation
	}
	if windowDays < 0 {
		windowDays = 0
	}

	q := models.Query{
		Source:         Facebook.Name,
		ItemText:       strings.TrimSpace(f.Item),
		PriceMin:       f.MinPrice,
		PriceMax:       f.MaxPrice,
		ConditionCode:  MapFacebookCondition(f.Condition),
		TimeWindowDays: windowDays,
		Location:       location,
	}

	params := url.Values{}
	if q.PriceMin > 0 {
		params.Set("minPrice", strconv.Itoa(q.PriceMin))
	}
	if q.PriceMax > 0 {
		params.Set("maxPrice", strconv.Itoa(q.PriceMax))
	}
	params.Set("itemCondition", q.ConditionCode)
	params.Set("query", q.ItemText)
	params.Set("exact", "false")
	if windowDays > 0 {
		params.Set("daysSinceListed", strconv.Itoa(windowDays))
	}

	host := "www.facebook.com"
	if b.Mobile {
		host = "m.facebook.com"
	}
	u := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     "/marketplace/" + location + "/search",
		RawQuery: params.Encode(),
	}
	q.URL = u.String()
	return q, nil
}
