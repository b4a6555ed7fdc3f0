// Package scraper fetches raw marketplace pages. It knows nothing about
// listings; turning pages into records is the extract package's job.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"marketplace-scraper/models"
)

// Fetcher retrieves the page behind a query. Failures are reported through
// the document's Status and Err, never by panicking.
type Fetcher interface {
	Fetch(ctx context.Context, q models.Query) *models.RawDocument
}

// FetchError describes why a fetch did not produce a usable page.
type FetchError struct {
	URL        string
	Status     models.FetchStatus
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Status, e.Cause)
	}
	return fmt.Sprintf("fetch %s (%s)", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// blockSniffLen is how much of the page is inspected for a login wall.
const blockSniffLen = 1000

// IsBlocked reports whether the response is a login wall or checkpoint
// rather than search results.
func IsBlocked(finalURL string, body []byte) bool {
	u := strings.ToLower(finalURL)
	if strings.Contains(u, "login") || strings.Contains(u, "checkpoint") {
		return true
	}
	head := body
	if len(head) > blockSniffLen {
		head = head[:blockSniffLen]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("login"))
}

// classify turns a transport error and HTTP status into a FetchStatus.
func classify(ctx context.Context, statusCode int, err error) models.FetchStatus {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return models.FetchBlocked
	}
	if err == nil {
		if statusCode >= 400 {
			return models.FetchError
		}
		return models.FetchOK
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return models.FetchTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return models.FetchTimeout
	}
	return models.FetchError
}

// finish fills in Status and Err on doc, checking for a login wall when the
// transport itself succeeded.
func finish(ctx context.Context, doc *models.RawDocument, err error) *models.RawDocument {
	doc.Status = classify(ctx, doc.StatusCode, err)
	if doc.Status == models.FetchOK && IsBlocked(doc.FinalURL, doc.Content) {
		doc.Status = models.FetchBlocked
	}
	if doc.Status == models.FetchOK && len(doc.Content) == 0 {
		doc.Status = models.FetchError
		err = errors.New("empty response body")
	}
	if doc.Status != models.FetchOK {
		if err == nil && doc.Status == models.FetchBlocked {
			err = errors.New("login wall")
		}
		doc.Err = &FetchError{URL: doc.Query.URL, Status: doc.Status, StatusCode: doc.StatusCode, Cause: err}
	}
	return doc
}

// cancelled builds the document returned when ctx ends before a fetch.
func cancelled(ctx context.Context, q models.Query) *models.RawDocument {
	return &models.RawDocument{
		Query:  q,
		Status: models.FetchError,
		Err:    &FetchError{URL: q.URL, Status: models.FetchError, Cause: ctx.Err()},
	}
}
