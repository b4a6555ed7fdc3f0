package models

// FetchStatus classifies the outcome of a single fetch.
type FetchStatus string

const (
	FetchOK      FetchStatus = "ok"
	FetchTimeout FetchStatus = "timeout"
	FetchBlocked FetchStatus = "blocked"
	FetchError   FetchStatus = "error"
)

// RawDocument is the opaque page content returned by a fetcher.
type RawDocument struct {
	Content    []byte
	Query      Query
	Status     FetchStatus
	FinalURL   string
	StatusCode int
	Err        error
}

// OK reports whether the document can be handed to the extraction chain.
func (d *RawDocument) OK() bool {
	return d != nil && d.Status == FetchOK && len(d.Content) > 0
}
