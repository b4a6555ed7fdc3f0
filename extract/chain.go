// Package extract turns raw marketplace pages into canonical listing records
// by running an ordered chain of goquery strategies.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

// Chain runs strategies against a document. In first-match mode it stops at
// the first strategy that yields records; in accumulate mode it runs them all
// and de-duplicates by identity key.
type Chain struct {
	source     models.Source
	strategies []Strategy
	accumulate bool
	now        func() time.Time
	logger     *utils.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithStrategies replaces the default strategies.
func WithStrategies(s ...Strategy) Option {
	return func(c *Chain) { c.strategies = s }
}

// WithAccumulate switches the chain to accumulate mode.
func WithAccumulate(on bool) Option {
	return func(c *Chain) { c.accumulate = on }
}

// WithClock sets the clock used to resolve relative posting dates.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// NewChain creates a Chain for src using DefaultStrategies unless overridden.
func NewChain(src models.Source, logger *utils.Logger, opts ...Option) *Chain {
	c := &Chain{
		source:     src,
		strategies: DefaultStrategies(src),
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the source the chain was built for.
func (c *Chain) Source() models.Source { return c.source }

// Extract runs the chain over raw. It never panics and never returns an
// error: an unusable document or a failing strategy yields fewer (possibly
// zero) records.
func (c *Chain) Extract(raw *models.RawDocument) models.ExtractionResult {
	if !raw.OK() {
		return models.ExtractionResult{}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		c.logger.Warn("[extract] Could not parse document from %s: %v", raw.FinalURL, err)
		return models.ExtractionResult{}
	}

	seen := utils.NewKeySet()
	var records []models.ListingRecord
	var used []string

	for _, s := range c.strategies {
		candidates := c.attempt(s, doc)
		added := 0
		for _, cand := range candidates {
			rec, ok := c.toRecord(cand)
			if !ok || !seen.Add(rec.IdentityKey) {
				continue
			}
			records = append(records, rec)
			added++
		}
		c.logger.Debug("[extract] Strategy %s produced %d records (%d new)", s.ID(), len(candidates), added)
		if added > 0 {
			used = append(used, s.ID())
			if !c.accumulate {
				break
			}
		}
	}

	return models.ExtractionResult{
		Records:    records,
		StrategyID: strings.Join(used, "+"),
		Succeeded:  len(records) > 0,
	}
}

// attempt runs one strategy, turning a panic into an empty result.
func (c *Chain) attempt(s Strategy, doc *goquery.Document) (out []models.CandidateRecord) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("[extract] Strategy %s panicked: %v", s.ID(), fmt.Sprint(r))
			out = nil
		}
	}()
	return s.Attempt(doc)
}

// toRecord cleans a candidate. Candidates without a usable title are dropped.
func (c *Chain) toRecord(cand models.CandidateRecord) (models.ListingRecord, bool) {
	title := CleanTitle(cand.Title, c.source.PricePatterns)
	if title == "" || isBarePrice(title) {
		return models.ListingRecord{}, false
	}
	price := cand.ParsedPrice
	if price == nil {
		price = ParsePrice(cand.RawPriceText)
	}
	rec := models.ListingRecord{
		Title:        title,
		PriceText:    CleanPriceText(cand.RawPriceText),
		PriceNumeric: price,
		DateEstimate: ParseRelativeDate(cand.RawDateText, c.now()),
		SourceTag:    c.source.Name,
		ItemLink:     models.NormaliseLink(cand.ItemLink),
	}
	rec.Rekey()
	return rec, true
}
