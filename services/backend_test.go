package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-scraper/extract"
	"marketplace-scraper/models"
	"marketplace-scraper/scraper"
	"marketplace-scraper/sources"
	"marketplace-scraper/utils"
)

// pageFetcher serves a canned page per time window.
type pageFetcher struct {
	pages   map[int]string
	blocked map[int]bool
	queries []models.Query
}

func (f *pageFetcher) Fetch(_ context.Context, q models.Query) *models.RawDocument {
	f.queries = append(f.queries, q)
	if f.blocked[q.TimeWindowDays] {
		return &models.RawDocument{
			Query:  q,
			Status: models.FetchBlocked,
			Err:    &scraper.FetchError{URL: q.URL, Status: models.FetchBlocked},
		}
	}
	return &models.RawDocument{Query: q, Status: models.FetchOK, FinalURL: q.URL, Content: []byte(f.pages[q.TimeWindowDays])}
}

func card(id int, title, price string) string {
	return fmt.Sprintf(`<div><a href="/marketplace/item/%d/"><span>%s</span><span>%s</span><span>Singapore</span><span>x</span></a></div>`, id, price, title)
}

func page(cards ...string) string {
	out := "<html><body>"
	for _, c := range cards {
		out += c
	}
	return out + "</body></html>"
}

func newBackend(name string, b sources.Builder, f scraper.Fetcher, in *Interpolator) *PipelineBackend {
	chain := extract.NewChain(b.Source(), utils.Discard())
	return NewPipelineBackend(name, b, f, chain, in, utils.Discard())
}

func TestPipelineBackend_SingleQuery(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{7: page(card(1, "Acoustic guitar Yamaha F310", "S$150"))}}
	b := newBackend("requests", sources.FacebookBuilder{}, f, nil)

	res, err := b.Run(context.Background(), models.Filters{Item: "guitar", DaysSinceListed: 7})

	require.NoError(t, err)
	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0].URL, "daysSinceListed=7")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Acoustic guitar Yamaha F310", res.Records[0].Title)
	assert.Equal(t, "150", res.Records[0].PriceText)
	assert.Equal(t, "facebook/requests", res.Records[0].SourceTag)
	assert.NotEmpty(t, res.Records[0].DateEstimate, "a queried window always yields a date")
}

func TestPipelineBackend_SingleWindowStampsDates(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{7: page(
		card(1, "Acoustic guitar Yamaha F310", "S$150"),
		card(2, "Fender Frontman 10G amplifier", "S$60"),
	)}}
	b := newBackend("requests", sources.FacebookBuilder{}, f, newTestInterpolator(ProfileSingle))

	res, err := b.Run(context.Background(), models.Filters{Item: "guitar", DaysSinceListed: 7})

	require.NoError(t, err)
	require.Len(t, f.queries, 1)
	require.Len(t, res.Records, 2)
	for _, r := range res.Records {
		assert.Equal(t, "2025-06-08", r.DateEstimate)
		assert.Contains(t, r.IdentityKey, "link:")
	}
}

func TestPipelineBackend_NoWindowKeepsPageDates(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{0: page(card(1, "Acoustic guitar Yamaha F310", "S$150"))}}
	b := newBackend("requests", sources.FacebookBuilder{}, f, newTestInterpolator(ProfileSingle))

	res, err := b.Run(context.Background(), models.Filters{Item: "guitar"})

	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Records[0].DateEstimate)
}

func TestPipelineBackend_Interpolates(t *testing.T) {
	guitar := card(1, "Acoustic guitar Yamaha F310", "S$150")
	amp := card(2, "Fender Frontman 10G amplifier", "S$60")
	f := &pageFetcher{pages: map[int]string{
		15: page(guitar),
		30: page(guitar, amp),
		45: page(guitar, amp),
	}}
	b := newBackend("browser", sources.FacebookBuilder{}, f, newTestInterpolator(ProfileFast))

	res, err := b.Run(context.Background(), models.Filters{Item: "guitar", DaysSinceListed: 30})

	require.NoError(t, err)
	assert.Len(t, f.queries, 3)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "2025-05-31", res.Records[0].DateEstimate)
	assert.Equal(t, "2025-05-24", res.Records[1].DateEstimate)
}

func TestPipelineBackend_FetchFailure(t *testing.T) {
	f := &pageFetcher{blocked: map[int]bool{0: true}}
	b := newBackend("mobile", sources.FacebookBuilder{Mobile: true}, f, nil)

	_, err := b.Run(context.Background(), models.Filters{Item: "guitar"})

	require.Error(t, err)
	var fe *scraper.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, models.FetchBlocked, fe.Status)
	assert.Contains(t, f.queries[0].URL, "m.facebook.com")
}

func TestPipelineBackend_EmptyPageIsNotAnError(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{0: "<html><body><p>No results</p></body></html>"}}
	b := newBackend("requests", sources.FacebookBuilder{}, f, nil)

	res, err := b.Run(context.Background(), models.Filters{Item: "guitar"})

	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestPipelineBackend_InvalidFilters(t *testing.T) {
	f := &pageFetcher{}
	b := newBackend("requests", sources.FacebookBuilder{}, f, nil)

	_, err := b.Run(context.Background(), models.Filters{Item: "guitar", MinPrice: 500, MaxPrice: 100})

	assert.Error(t, err)
	assert.Empty(t, f.queries)
}

func TestPipelineBackend_SourceWithoutWindows(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{0: "<html><body></body></html>"}}
	b := newBackend("requests", sources.CarousellBuilder{}, f, newTestInterpolator(ProfileFast))

	_, err := b.Run(context.Background(), models.Filters{Item: "guitar", DaysSinceListed: 30})

	require.NoError(t, err)
	require.Len(t, f.queries, 1)
	assert.Equal(t, 0, f.queries[0].TimeWindowDays)
}
