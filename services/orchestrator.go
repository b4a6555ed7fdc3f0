package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"marketplace-scraper/models"
	"marketplace-scraper/sources"
	"marketplace-scraper/utils"
)

// Orchestrator tries backends in priority order until one produces a valid
// result. It never returns an error or panics; every outcome is a RunResult.
type Orchestrator struct {
	backends []Backend
	policy   *utils.Backoff
	logger   *utils.Logger
}

// NewOrchestrator creates an Orchestrator. policy bounds the number of
// backends tried (MaxAttempts, 0 = all) and the pause between them.
func NewOrchestrator(backends []Backend, policy *utils.Backoff, logger *utils.Logger) *Orchestrator {
	return &Orchestrator{backends: backends, policy: policy, logger: logger}
}

// Run executes the fallback loop for one set of filters.
func (o *Orchestrator) Run(ctx context.Context, f models.Filters) *models.RunResult {
	result := &models.RunResult{RunID: uuid.New(), Records: []models.ListingRecord{}}

	if err := sources.ValidateFilters(f); err != nil {
		msg := err.Error()
		result.Status = models.StatusAllFailed
		result.Error = &msg
		o.logger.Error("[orchestrator] Run %s rejected: %v", result.RunID, err)
		return result
	}

	limit := len(o.backends)
	if o.policy != nil && o.policy.MaxAttempts > 0 && o.policy.MaxAttempts < limit {
		limit = o.policy.MaxAttempts
	}
	o.logger.Info("[orchestrator] Run %s: %q with %d backends", result.RunID, f.Item, limit)

	var failures []string
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return o.cancelled(result, err)
		}

		b := o.backends[i]
		o.logger.Info("[orchestrator] Attempt %d/%d: backend %s", i+1, limit, b.Name())
		report := models.AttemptReport{Backend: b.Name()}

		res, err := o.invoke(ctx, b, f)
		if err == nil {
			var records []models.ListingRecord
			records, err = ValidateResult(res)
			if err == nil {
				report.Outcome = models.OutcomeAccepted
				report.Records = len(records)
				result.Attempts = append(result.Attempts, report)
				result.OK = true
				result.Status = models.StatusSuccess
				result.BackendUsed = b.Name()
				result.Records = records
				result.Count = len(records)
				o.logger.Info("[orchestrator] Backend %s succeeded with %d records", b.Name(), len(records))
				return result
			}
			if res != nil {
				report.Records = len(res.Records)
			}
		}

		switch {
		case errors.Is(err, ErrNoRecords):
			report.Outcome = models.OutcomeEmpty
			o.logger.Warn("[orchestrator] Backend %s returned no records", b.Name())
		case errors.Is(err, ErrCorruptedOutput):
			report.Outcome = models.OutcomeCorrupted
			failures = append(failures, fmt.Sprintf("%s: %v", b.Name(), err))
			o.logger.Warn("[orchestrator] Backend %s rejected: %v", b.Name(), err)
		default:
			report.Outcome = models.OutcomeFailed
			failures = append(failures, fmt.Sprintf("%s: %v", b.Name(), err))
			o.logger.Error("[orchestrator] Backend %s failed: %v", b.Name(), err)
		}
		report.Error = err.Error()
		result.Attempts = append(result.Attempts, report)

		if i < limit-1 {
			if err := o.policy.Pause(ctx); err != nil {
				return o.cancelled(result, err)
			}
		}
	}

	if len(failures) == 0 {
		result.Status = models.StatusNoData
		o.logger.Warn("[orchestrator] No listings found by any backend")
		return result
	}
	msg := fmt.Errorf("%w: %s", ErrAllBackendsFailed, strings.Join(failures, "; ")).Error()
	result.Status = models.StatusAllFailed
	result.Error = &msg
	o.logger.Error("[orchestrator] %s", msg)
	return result
}

// invoke runs one backend, converting a panic into an error.
func (o *Orchestrator) invoke(ctx context.Context, b Backend, f models.Filters) (res *models.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("backend %s panicked: %v", b.Name(), r)
		}
	}()
	return b.Run(ctx, f)
}

func (o *Orchestrator) cancelled(result *models.RunResult, err error) *models.RunResult {
	msg := err.Error()
	result.OK = false
	result.Status = models.StatusCancelled
	result.Error = &msg
	result.Records = []models.ListingRecord{}
	result.Count = 0
	o.logger.Warn("[orchestrator] Run %s cancelled: %v", result.RunID, err)
	return result
}
