package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func rec(title, link string) models.ListingRecord {
	r := models.ListingRecord{Title: title, PriceText: "100", ItemLink: link, SourceTag: "facebook"}
	r.Rekey()
	return r
}

func newTestInterpolator(p Profile) *Interpolator {
	return NewInterpolator(p, utils.NoDelay(0), utils.Discard()).WithClock(func() time.Time { return fixedNow })
}

// windowSampler serves a fixed record set per window and records the calls.
type windowSampler struct {
	byWindow map[int][]models.ListingRecord
	fail     map[int]bool
	calls    []int
}

func (s *windowSampler) sample(_ context.Context, w int) (models.ExtractionResult, error) {
	s.calls = append(s.calls, w)
	if s.fail[w] {
		return models.ExtractionResult{}, errors.New("timeout")
	}
	recs := s.byWindow[w]
	return models.ExtractionResult{Records: recs, StrategyID: "item-link", Succeeded: len(recs) > 0}, nil
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name string
		base int
		p    Profile
		want []int
	}{
		{"fast 30", 30, ProfileFast, []int{15, 30, 45}},
		{"thorough 30", 30, ProfileThorough, []int{12, 24, 30, 42, 54}},
		{"single", 7, ProfileSingle, []int{7}},
		{"fast 1 collapses", 1, ProfileFast, []int{1}},
		{"thorough 2 dedups", 2, ProfileThorough, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Windows(tt.base, tt.p))
		})
	}
}

func TestEstimateAge(t *testing.T) {
	sampled := []int{15, 30, 45}
	tests := []struct {
		name     string
		observed []int
		sampled  []int
		want     float64
	}{
		{"only smallest", []int{15}, sampled, 15},
		{"all windows", []int{15, 30, 45}, sampled, 15},
		{"from 30 not 15", []int{30, 45}, sampled, 22.5},
		{"only largest", []int{45}, sampled, 45},
		{"only middle window", []int{30}, []int{15, 30, 45}, 30},
		{"gap after first observation", []int{30, 60}, []int{15, 30, 45, 60}, 22.5},
		{"gap after smallest", []int{15, 45}, sampled, 15},
		{"smallest sample failed", []int{30, 45}, []int{30, 45}, 30},
		{"gap in samples", []int{45}, []int{15, 45}, 45},
		{"gap then two", []int{45, 60}, []int{15, 45, 60}, 30},
		{"never observed", nil, sampled, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateAge(tt.observed, tt.sampled))
		})
	}
}

func TestAgeToDate(t *testing.T) {
	assert.Equal(t, "2025-05-31", AgeToDate(fixedNow, 15))
	assert.Equal(t, "2025-05-24", AgeToDate(fixedNow, 22.5))
	assert.Equal(t, "2025-06-15", AgeToDate(fixedNow, 0))
}

func TestInterpolator_Run(t *testing.T) {
	a := rec("Sony WH-1000XM4 headphones", "https://www.facebook.com/marketplace/item/1")
	b := rec("Nintendo Switch OLED bundle", "https://www.facebook.com/marketplace/item/2")
	c := rec("IKEA Poang armchair", "")
	s := &windowSampler{byWindow: map[int][]models.ListingRecord{
		15: {a},
		30: {b, a},
		45: {a, b, c},
	}}

	res, err := newTestInterpolator(ProfileFast).Run(context.Background(), 30, s.sample)

	require.NoError(t, err)
	assert.Equal(t, []int{15, 30, 45}, s.calls)
	require.Len(t, res.Records, 3)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "item-link", res.StrategyID)

	assert.Equal(t, a.Title, res.Records[0].Title)
	assert.Equal(t, "2025-05-31", res.Records[0].DateEstimate)
	assert.Equal(t, b.Title, res.Records[1].Title)
	assert.Equal(t, "2025-05-24", res.Records[1].DateEstimate)
	assert.Equal(t, c.Title, res.Records[2].Title)
	assert.Equal(t, "2025-05-01", res.Records[2].DateEstimate)

	assert.Equal(t, "row:2025-05-01|IKEA Poang armchair|100", res.Records[2].IdentityKey, "keys follow the stamped date")
}

func TestInterpolator_ObservationGap(t *testing.T) {
	a := rec("Sony WH-1000XM4 headphones", "https://www.facebook.com/marketplace/item/1")
	b := rec("Nintendo Switch OLED bundle", "https://www.facebook.com/marketplace/item/2")
	s := &windowSampler{byWindow: map[int][]models.ListingRecord{
		15: {a},
		30: {b, b},
		45: {a},
	}}

	res, err := newTestInterpolator(ProfileFast).Run(context.Background(), 30, s.sample)

	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "2025-05-31", res.Records[0].DateEstimate, "missing from 30 after appearing in 15")
	assert.Equal(t, "2025-05-16", res.Records[1].DateEstimate, "seen once, in 30 only")
}

func TestWindowsByKey(t *testing.T) {
	got := windowsByKey([]models.WindowObservation{
		{WindowDays: 45, IdentityKey: "a"},
		{WindowDays: 15, IdentityKey: "a"},
		{WindowDays: 30, IdentityKey: "b"},
	})
	assert.Equal(t, map[string][]int{"a": {15, 45}, "b": {30}}, got)
}

func TestInterpolator_SkipsFailedWindows(t *testing.T) {
	b := rec("Nintendo Switch OLED bundle", "https://www.facebook.com/marketplace/item/2")
	s := &windowSampler{
		byWindow: map[int][]models.ListingRecord{30: {b}, 45: {b}},
		fail:     map[int]bool{15: true},
	}

	res, err := newTestInterpolator(ProfileFast).Run(context.Background(), 30, s.sample)

	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2025-05-16", res.Records[0].DateEstimate, "smallest successful window bounds the estimate")
}

func TestInterpolator_AllWindowsFail(t *testing.T) {
	s := &windowSampler{fail: map[int]bool{15: true, 30: true, 45: true}}

	_, err := newTestInterpolator(ProfileFast).Run(context.Background(), 30, s.sample)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 windows failed")
}

func TestInterpolator_SingleWindow(t *testing.T) {
	a := rec("Sony WH-1000XM4 headphones", "")
	s := &windowSampler{byWindow: map[int][]models.ListingRecord{15: {a}}}

	res, err := newTestInterpolator(ProfileSingle).Run(context.Background(), 15, s.sample)

	require.NoError(t, err)
	assert.Equal(t, []int{15}, s.calls)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2025-05-31", res.Records[0].DateEstimate)
	assert.Equal(t, "row:2025-05-31|Sony WH-1000XM4 headphones|100", res.Records[0].IdentityKey)
}

func TestInterpolator_NoWindow(t *testing.T) {
	a := rec("Sony WH-1000XM4 headphones", "")
	a.DateEstimate = "2025-06-10"
	s := &windowSampler{byWindow: map[int][]models.ListingRecord{0: {a}}}

	res, err := newTestInterpolator(ProfileFast).Run(context.Background(), 0, s.sample)

	require.NoError(t, err)
	assert.Equal(t, []int{0}, s.calls)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2025-06-10", res.Records[0].DateEstimate)
}

func TestInterpolator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &windowSampler{}

	_, err := newTestInterpolator(ProfileFast).Run(ctx, 30, s.sample)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.calls)
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("normal")
	require.NoError(t, err)
	assert.Equal(t, ProfileThorough, p)

	p, err = ParseProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileFast, p)

	_, err = ParseProfile("exhaustive")
	assert.Error(t, err)
}
