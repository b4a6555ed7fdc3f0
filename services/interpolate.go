package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

// Profile selects how many time windows are sampled around the requested age.
type Profile string

const (
	ProfileSingle   Profile = "single"
	ProfileFast     Profile = "fast"
	ProfileThorough Profile = "thorough"
)

var profileMultipliers = map[Profile][]float64{
	ProfileSingle:   {1.0},
	ProfileFast:     {0.5, 1.0, 1.5},
	ProfileThorough: {0.4, 0.8, 1.0, 1.4, 1.8},
}

// ParseProfile maps a config value to a Profile. "normal" is accepted as an
// alias for thorough.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ProfileFast):
		return ProfileFast, nil
	case string(ProfileThorough), "normal":
		return ProfileThorough, nil
	case string(ProfileSingle):
		return ProfileSingle, nil
	default:
		return "", fmt.Errorf("unknown interpolation profile %q", s)
	}
}

// Windows returns the day windows sampled for baseDays, ascending, without
// duplicates, none smaller than one day.
func Windows(baseDays int, p Profile) []int {
	mults, ok := profileMultipliers[p]
	if !ok {
		mults = profileMultipliers[ProfileFast]
	}
	seen := make(map[int]struct{}, len(mults))
	out := make([]int, 0, len(mults))
	for _, m := range mults {
		w := int(float64(baseDays) * m)
		if w < 1 {
			w = 1
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}

// EstimateAge returns the estimated age in days of an item observed in the
// given windows, out of the windows that were successfully sampled. Both
// slices must be ascending.
//
//	observed once            → that window
//	observed in the smallest → the smallest window
//	otherwise                → midpoint of the first observed window and the
//	                           sampled window just below it
func EstimateAge(observed, sampled []int) float64 {
	if len(observed) == 0 {
		return 0
	}
	first := observed[0]
	if len(observed) == 1 || len(sampled) == 0 || first <= sampled[0] {
		return float64(first)
	}
	prev := sampled[0]
	for _, w := range sampled {
		if w >= first {
			break
		}
		prev = w
	}
	return float64(first+prev) / 2
}

// AgeToDate converts an age in (possibly fractional) days into a calendar
// date relative to now.
func AgeToDate(now time.Time, ageDays float64) string {
	d := time.Duration(math.Round(ageDays * float64(24*time.Hour)))
	return now.Add(-d).Format("2006-01-02")
}

// Sampler performs one full fetch+extract cycle for a window. windowDays of
// zero means no time filter.
type Sampler func(ctx context.Context, windowDays int) (models.ExtractionResult, error)

// Interpolator estimates posting dates from membership in coarse
// days-since-listed windows.
type Interpolator struct {
	profile Profile
	pause   *utils.Backoff
	now     func() time.Time
	logger  *utils.Logger
}

// NewInterpolator creates an Interpolator. pause spaces consecutive window
// samples; nil never waits.
func NewInterpolator(p Profile, pause *utils.Backoff, logger *utils.Logger) *Interpolator {
	return &Interpolator{profile: p, pause: pause, now: time.Now, logger: logger}
}

// WithClock replaces the clock used for date stamping.
func (in *Interpolator) WithClock(now func() time.Time) *Interpolator {
	in.now = now
	return in
}

// Profile returns the configured sampling profile.
func (in *Interpolator) Profile() Profile { return in.profile }

// Run samples every window for baseDays and stamps each observed record with
// its estimated date. Windows whose sample fails are skipped; if all fail the
// last error is returned.
func (in *Interpolator) Run(ctx context.Context, baseDays int, sample Sampler) (models.ExtractionResult, error) {
	if baseDays <= 0 {
		return sample(ctx, 0)
	}
	now := in.now()

	if in.profile == ProfileSingle {
		res, err := sample(ctx, baseDays)
		if err != nil {
			return models.ExtractionResult{}, err
		}
		date := AgeToDate(now, float64(baseDays))
		return stamp(res.Records, func(string) string { return date }, res.StrategyID), nil
	}

	windows := Windows(baseDays, in.profile)
	in.logger.Info("[interpolate] Sampling %d windows for %d days: %v", len(windows), baseDays, windows)

	var (
		sampled      []int
		lastErr      error
		strategyID   string
		observations []models.WindowObservation
	)
	items := utils.NewKeySet()
	first := make(map[string]models.ListingRecord)

	for i, w := range windows {
		if i > 0 {
			if err := in.pause.Pause(ctx); err != nil {
				return models.ExtractionResult{}, fmt.Errorf("window sampling interrupted: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return models.ExtractionResult{}, err
		}

		res, err := sample(ctx, w)
		if err != nil {
			in.logger.Warn("[interpolate] Window %dd failed: %v", w, err)
			lastErr = err
			continue
		}
		sampled = append(sampled, w)
		if strategyID == "" {
			strategyID = res.StrategyID
		}
		inWindow := utils.NewKeySet()
		for _, rec := range res.Records {
			key := rec.IdentityKey
			if !inWindow.Add(key) {
				continue
			}
			if items.Add(key) {
				first[key] = rec
			}
			observations = append(observations, models.WindowObservation{WindowDays: w, IdentityKey: key})
		}
		in.logger.Info("[interpolate] Window %dd: %d records, %d distinct", w, len(res.Records), inWindow.Size())
	}

	if len(sampled) == 0 {
		return models.ExtractionResult{}, fmt.Errorf("all %d windows failed: %w", len(windows), lastErr)
	}

	observed := windowsByKey(observations)
	records := make([]models.ListingRecord, 0, items.Size())
	dates := make(map[string]string, items.Size())
	for _, key := range items.Keys() {
		records = append(records, first[key])
		dates[key] = AgeToDate(now, EstimateAge(observed[key], sampled))
	}
	return stamp(records, func(key string) string { return dates[key] }, strategyID), nil
}

// windowsByKey groups observations per item, each list ascending.
func windowsByKey(observations []models.WindowObservation) map[string][]int {
	out := make(map[string][]int)
	for _, o := range observations {
		out[o.IdentityKey] = append(out[o.IdentityKey], o.WindowDays)
	}
	for _, ws := range out {
		sort.Ints(ws)
	}
	return out
}

// stamp sets DateEstimate from dateFor(original key), rekeys and drops any
// records that collapse onto the same key.
func stamp(records []models.ListingRecord, dateFor func(key string) string, strategyID string) models.ExtractionResult {
	seen := utils.NewKeySet()
	out := make([]models.ListingRecord, 0, len(records))
	for _, rec := range records {
		rec.DateEstimate = dateFor(rec.IdentityKey)
		rec.Rekey()
		if !seen.Add(rec.IdentityKey) {
			continue
		}
		out = append(out, rec)
	}
	return models.ExtractionResult{Records: out, StrategyID: strategyID, Succeeded: len(out) > 0}
}
