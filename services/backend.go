package services

import (
	"context"
	"fmt"

	"marketplace-scraper/extract"
	"marketplace-scraper/models"
	"marketplace-scraper/scraper"
	"marketplace-scraper/sources"
	"marketplace-scraper/utils"
)

// Backend is one complete scraping pipeline the orchestrator can try.
type Backend interface {
	Name() string
	Run(ctx context.Context, f models.Filters) (*models.ExtractionResult, error)
}

// PipelineBackend wires query building, fetching and extraction together.
// When a time window is requested every record is stamped with a date from
// the interpolator, which samples one or several windows depending on its
// profile.
type PipelineBackend struct {
	name         string
	builder      sources.Builder
	fetcher      scraper.Fetcher
	chain        *extract.Chain
	interpolator *Interpolator
	logger       *utils.Logger
}

// NewPipelineBackend creates a backend. A nil interpolator means a single
// window stamped with its own age.
func NewPipelineBackend(name string, builder sources.Builder, fetcher scraper.Fetcher, chain *extract.Chain, interpolator *Interpolator, logger *utils.Logger) *PipelineBackend {
	if interpolator == nil {
		interpolator = NewInterpolator(ProfileSingle, nil, logger)
	}
	return &PipelineBackend{
		name:         name,
		builder:      builder,
		fetcher:      fetcher,
		chain:        chain,
		interpolator: interpolator,
		logger:       logger,
	}
}

func (b *PipelineBackend) Name() string { return b.name }

// Run executes the pipeline. Fetch failures are returned as errors; a page
// with no listings is a successful, empty result.
func (b *PipelineBackend) Run(ctx context.Context, f models.Filters) (*models.ExtractionResult, error) {
	if err := sources.ValidateFilters(f); err != nil {
		return nil, err
	}
	src := b.builder.Source()

	days := f.DaysSinceListed
	if !src.SupportsTimeWindow {
		days = 0
	}

	res, err := b.interpolator.Run(ctx, days, b.sampler(f))
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", b.name, err)
	}
	return &res, nil
}

func (b *PipelineBackend) sampler(f models.Filters) Sampler {
	tag := b.builder.Source().Name + "/" + b.name
	return func(ctx context.Context, windowDays int) (models.ExtractionResult, error) {
		q, err := b.builder.Build(f, windowDays)
		if err != nil {
			return models.ExtractionResult{}, err
		}
		b.logger.Debug("[%s] Query %s", b.name, q.URL)
		doc := b.fetcher.Fetch(ctx, q)
		if !doc.OK() {
			if doc.Err != nil {
				return models.ExtractionResult{}, doc.Err
			}
			return models.ExtractionResult{}, &scraper.FetchError{URL: q.URL, Status: doc.Status, StatusCode: doc.StatusCode}
		}
		res := b.chain.Extract(doc)
		for i := range res.Records {
			res.Records[i].SourceTag = tag
		}
		b.logger.Info("[%s] Extracted %d records with %q", b.name, len(res.Records), res.StrategyID)
		return res, nil
	}
}
