package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	absoluteDateRegexp = regexp.MustCompile(`(20\d{2})[-/](\d{1,2})[-/](\d{1,2})`)
	firstNumberRegexp  = regexp.MustCompile(`\d+`)
	// relativeDateRegexp finds posting-age text inside a listing card.
	relativeDateRegexp = regexp.MustCompile(`(?i)(\d+|an?)\s+(minute|hour|day|week|month|year)s?\s+ago|\byesterday\b|\btoday\b|20\d{2}[-/]\d{1,2}[-/]\d{1,2}`)
)

// findDateText returns the first posting-age phrase in text, if any.
func findDateText(text string) string {
	return strings.TrimSpace(relativeDateRegexp.FindString(text))
}

// ParseRelativeDate converts card text such as "3 days ago", "yesterday" or
// "2025-09-01" into YYYY-MM-DD relative to now. Text it cannot interpret is
// returned trimmed but otherwise unchanged.
func ParseRelativeDate(text string, now time.Time) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)

	if m := absoluteDateRegexp.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return s
		}
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location()).Format(dateLayout)
	}

	n := 1
	if m := firstNumberRegexp.FindString(low); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			n = v
		}
	}

	switch {
	case strings.Contains(low, "minute"):
		return now.Add(-time.Duration(n) * time.Minute).Format(dateLayout)
	case strings.Contains(low, "hour"):
		return now.Add(-time.Duration(n) * time.Hour).Format(dateLayout)
	case strings.Contains(low, "yesterday"):
		return now.AddDate(0, 0, -1).Format(dateLayout)
	case strings.Contains(low, "today"):
		return now.Format(dateLayout)
	case strings.Contains(low, "week"):
		return now.AddDate(0, 0, -7*n).Format(dateLayout)
	case strings.Contains(low, "month"):
		return now.AddDate(0, 0, -30*n).Format(dateLayout)
	case strings.Contains(low, "year"):
		return now.AddDate(0, 0, -365*n).Format(dateLayout)
	case strings.Contains(low, "day"):
		return now.AddDate(0, 0, -n).Format(dateLayout)
	}
	return s
}
