package scraper

import (
	"context"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

// DocumentFetcher fetches pages over plain HTTP with colly.
type DocumentFetcher struct {
	collector *colly.Collector
	userAgent string
	logger    *utils.Logger
}

// CollectorOptions tunes a DocumentFetcher.
type CollectorOptions struct {
	Timeout     time.Duration
	RandomDelay time.Duration
	// UserAgent pins one agent; empty rotates real browser agents per request.
	UserAgent string
}

// NewDocumentFetcher builds the parent collector. Every Fetch runs on a
// clone so handlers never leak between queries.
func NewDocumentFetcher(opts CollectorOptions, logger *utils.Logger) *DocumentFetcher {
	c := colly.NewCollector(colly.AllowURLRevisit())
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		RandomDelay: opts.RandomDelay,
	}); err != nil {
		logger.Warn("[fetch] Could not set limit rule: %v", err)
	}
	return &DocumentFetcher{collector: c, userAgent: opts.UserAgent, logger: logger}
}

// Fetch visits q.URL and returns the response body as a RawDocument.
func (f *DocumentFetcher) Fetch(ctx context.Context, q models.Query) *models.RawDocument {
	if ctx.Err() != nil {
		return cancelled(ctx, q)
	}

	c := f.collector.Clone()
	if f.userAgent != "" {
		c.UserAgent = f.userAgent
	} else {
		extensions.RandomUserAgent(c)
	}
	extensions.Referer(c)

	doc := &models.RawDocument{Query: q, FinalURL: q.URL}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		f.logger.Debug("[fetch] GET %s", r.URL.String())
	})
	c.OnResponse(func(r *colly.Response) {
		doc.Content = r.Body
		doc.StatusCode = r.StatusCode
		doc.FinalURL = r.Request.URL.String()
	})
	var respErr error
	c.OnError(func(r *colly.Response, err error) {
		respErr = err
		if r != nil {
			doc.StatusCode = r.StatusCode
			if r.Request != nil {
				doc.FinalURL = r.Request.URL.String()
			}
		}
	})

	done := make(chan error, 1)
	go func() {
		err := c.Visit(q.URL)
		if err == nil {
			err = respErr
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return cancelled(ctx, q)
	case err := <-done:
		doc = finish(ctx, doc, err)
		if doc.Status != models.FetchOK {
			f.logger.Warn("[fetch] %s: %v", q.URL, doc.Err)
		}
		return doc
	}
}
