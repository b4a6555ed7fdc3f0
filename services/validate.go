package services

import (
	"errors"
	"strings"

	"marketplace-scraper/models"
)

// CorruptedSentinel is the title older writers emitted after an encoding
// failure.
const CorruptedSentinel = "No data - file was corrupted"

var (
	// ErrNoRecords means a backend finished cleanly but found nothing.
	ErrNoRecords = errors.New("backend returned no records")
	// ErrCorruptedOutput means a backend returned only placeholder records.
	ErrCorruptedOutput = errors.New("backend output contains only placeholder records")
	// ErrAllBackendsFailed is reported when no backend produced valid output.
	ErrAllBackendsFailed = errors.New("all backends failed")
)

// IsPlaceholder reports whether a record is a sentinel rather than a listing.
func IsPlaceholder(r models.ListingRecord) bool {
	title := strings.TrimSpace(r.Title)
	switch {
	case title == "", title == CorruptedSentinel, strings.EqualFold(title, "unknown"):
		return true
	case strings.ContainsRune(title, '\uFFFD'):
		return true
	}
	return false
}

// ValidateResult applies the acceptance rule to a backend result and returns
// the records worth keeping.
func ValidateResult(res *models.ExtractionResult) ([]models.ListingRecord, error) {
	if res == nil || len(res.Records) == 0 {
		return nil, ErrNoRecords
	}
	kept := make([]models.ListingRecord, 0, len(res.Records))
	for _, r := range res.Records {
		if !IsPlaceholder(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil, ErrCorruptedOutput
	}
	return kept, nil
}
