package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"marketplace-scraper/models"
)

var (
	// currencyRegexp matches the currency markers seen on supported sources.
	currencyRegexp = regexp.MustCompile(`(?i)(US\$|S\$|SGD|USD|RM|[$£€฿¥])`)
	// numberRegexp captures the first numeric value once separators are gone.
	numberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// barePriceRegexp matches text that is nothing but a price.
	barePriceRegexp = regexp.MustCompile(`^[\$\d,.\s]+$`)
)

const maxTitleRunes = 200

// CleanPriceText strips currency symbols from a raw price, keeping the rest
// of the text (thousands separators included) as the canonical price text.
func CleanPriceText(raw string) string {
	return models.NormaliseText(currencyRegexp.ReplaceAllString(raw, " "))
}

// ParsePrice returns the numeric value of a raw price, or nil when nothing
// numeric can be recovered.
//
//	"S$1,200"   → 1200
//	"SGD 45.50" → 45.5
//	"Free"      → nil
func ParsePrice(raw string) *float64 {
	cleaned := strings.ReplaceAll(CleanPriceText(raw), ",", "")
	match := numberRegexp.FindString(cleaned)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

// CleanTitle collapses whitespace and removes any price text that leaked
// into the title.
func CleanTitle(raw string, pricePatterns []*regexp.Regexp) string {
	title := models.NormaliseText(raw)
	for _, p := range pricePatterns {
		title = models.NormaliseText(p.ReplaceAllString(title, " "))
	}
	return truncateRunes(title, maxTitleRunes)
}

func isBarePrice(s string) bool {
	return barePriceRegexp.MatchString(s)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}

// firstPrice returns the first match of the source's price patterns in text.
func firstPrice(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}
