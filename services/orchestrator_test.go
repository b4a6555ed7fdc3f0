package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

type fakeBackend struct {
	name   string
	res    *models.ExtractionResult
	err    error
	panics bool
	onRun  func()
	calls  int
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Run(context.Context, models.Filters) (*models.ExtractionResult, error) {
	b.calls++
	if b.onRun != nil {
		b.onRun()
	}
	if b.panics {
		panic("driver crashed")
	}
	return b.res, b.err
}

func records(n int) *models.ExtractionResult {
	out := make([]models.ListingRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rec(fmt.Sprintf("Listing number %d", i), fmt.Sprintf("https://www.facebook.com/marketplace/item/%d", i)))
	}
	return &models.ExtractionResult{Records: out, Succeeded: n > 0}
}

func corrupted() *models.ExtractionResult {
	return &models.ExtractionResult{Records: []models.ListingRecord{{Title: CorruptedSentinel}}, Succeeded: true}
}

var testFilters = models.Filters{Item: "sofa"}

func run(t *testing.T, policy *utils.Backoff, backends ...Backend) *models.RunResult {
	t.Helper()
	return NewOrchestrator(backends, policy, utils.Discard()).Run(context.Background(), testFilters)
}

func TestOrchestrator_FallsBackToSecondBackend(t *testing.T) {
	b1 := &fakeBackend{name: "backend_1", res: records(0)}
	b2 := &fakeBackend{name: "backend_2", res: records(5)}
	b3 := &fakeBackend{name: "backend_3", res: records(2)}

	res := run(t, utils.NoDelay(0), b1, b2, b3)

	assert.True(t, res.OK)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, "backend_2", res.BackendUsed)
	assert.Equal(t, 5, res.Count)
	assert.Len(t, res.Records, 5)
	assert.Nil(t, res.Error)
	assert.NotEqual(t, uuid.Nil, res.RunID)
	assert.Equal(t, 0, b3.calls, "later backends are not tried after success")

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, models.OutcomeEmpty, res.Attempts[0].Outcome)
	assert.Equal(t, models.OutcomeAccepted, res.Attempts[1].Outcome)
}

func TestOrchestrator_RejectsCorruptedResult(t *testing.T) {
	b1 := &fakeBackend{name: "requests", res: corrupted()}
	b2 := &fakeBackend{name: "browser", res: records(1)}

	res := run(t, utils.NoDelay(0), b1, b2)

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, "browser", res.BackendUsed)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, models.OutcomeCorrupted, res.Attempts[0].Outcome)
	assert.Equal(t, 1, res.Attempts[0].Records)
}

func TestOrchestrator_DropsPlaceholdersFromAcceptedResult(t *testing.T) {
	mixed := records(2)
	mixed.Records = append(mixed.Records, models.ListingRecord{Title: "Unknown"}, models.ListingRecord{Title: "Broken \uFFFD title"})
	b1 := &fakeBackend{name: "requests", res: mixed}

	res := run(t, utils.NoDelay(0), b1)

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Count)
}

func TestOrchestrator_AllFailed(t *testing.T) {
	b1 := &fakeBackend{name: "requests", err: errors.New("blocked")}
	b2 := &fakeBackend{name: "browser", res: corrupted()}
	b3 := &fakeBackend{name: "proxy", res: records(0)}

	res := run(t, utils.NoDelay(0), b1, b2, b3)

	assert.False(t, res.OK)
	assert.Equal(t, models.StatusAllFailed, res.Status)
	assert.Equal(t, 0, res.Count)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.BackendUsed)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, ErrAllBackendsFailed.Error())
	assert.Contains(t, *res.Error, "requests: blocked")
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, models.OutcomeFailed, res.Attempts[0].Outcome)
}

func TestOrchestrator_NoData(t *testing.T) {
	res := run(t, utils.NoDelay(0),
		&fakeBackend{name: "requests", res: records(0)},
		&fakeBackend{name: "browser", res: nil},
	)

	assert.False(t, res.OK)
	assert.Equal(t, models.StatusNoData, res.Status)
	assert.Nil(t, res.Error)
}

func TestOrchestrator_RecoversFromPanic(t *testing.T) {
	b1 := &fakeBackend{name: "browser", panics: true}
	b2 := &fakeBackend{name: "proxy", res: records(3)}

	var res *models.RunResult
	require.NotPanics(t, func() { res = run(t, utils.NoDelay(0), b1, b2) })

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, "proxy", res.BackendUsed)
	assert.Contains(t, res.Attempts[0].Error, "panicked")
}

func TestOrchestrator_MaxAttempts(t *testing.T) {
	b1 := &fakeBackend{name: "requests", res: records(0)}
	b2 := &fakeBackend{name: "browser", res: records(4)}

	res := run(t, utils.NoDelay(1), b1, b2)

	assert.Equal(t, models.StatusNoData, res.Status)
	assert.Equal(t, 0, b2.calls)
}

func TestOrchestrator_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b1 := &fakeBackend{name: "requests", res: records(3)}

	res := NewOrchestrator([]Backend{b1}, utils.NoDelay(0), utils.Discard()).Run(ctx, testFilters)

	assert.Equal(t, models.StatusCancelled, res.Status)
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, 0, b1.calls)
}

func TestOrchestrator_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b1 := &fakeBackend{name: "requests", res: records(0), onRun: cancel}
	b2 := &fakeBackend{name: "browser", res: records(3)}

	res := NewOrchestrator([]Backend{b1, b2}, utils.NoDelay(0), utils.Discard()).Run(ctx, testFilters)

	assert.Equal(t, models.StatusCancelled, res.Status)
	assert.Equal(t, 1, b1.calls, "an attempt in flight runs to completion")
	assert.Equal(t, 0, b2.calls)
	assert.Len(t, res.Attempts, 1)
}

func TestOrchestrator_InvalidFiltersSkipBackends(t *testing.T) {
	b1 := &fakeBackend{name: "requests", res: records(3)}
	b2 := &fakeBackend{name: "browser", res: records(3)}

	res := NewOrchestrator([]Backend{b1, b2}, utils.NoDelay(0), utils.Discard()).
		Run(context.Background(), models.Filters{Item: "sofa", MinPrice: 500, MaxPrice: 100})

	assert.Equal(t, models.StatusAllFailed, res.Status)
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "invalid filters")
	assert.Zero(t, b1.calls)
	assert.Zero(t, b2.calls)
	assert.Empty(t, res.Attempts)
}
