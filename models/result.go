package models

import "github.com/google/uuid"

// WindowObservation records that an item showed up when querying with a
// given days-since-listed window.
type WindowObservation struct {
	WindowDays  int
	IdentityKey string
}

// ExtractionResult is the output of one extraction (or one backend run).
type ExtractionResult struct {
	Records    []ListingRecord
	StrategyID string
	Succeeded  bool
}

// Status is the terminal state of an orchestration call.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusNoData    Status = "no_data"
	StatusAllFailed Status = "all_failed"
	StatusCancelled Status = "cancelled"
)

// AttemptOutcome describes what happened to one backend attempt.
type AttemptOutcome string

const (
	OutcomeAccepted  AttemptOutcome = "accepted"
	OutcomeEmpty     AttemptOutcome = "empty"
	OutcomeCorrupted AttemptOutcome = "corrupted"
	OutcomeFailed    AttemptOutcome = "failed"
)

// AttemptReport is kept for every backend the orchestrator tried.
type AttemptReport struct {
	Backend string         `json:"backend"`
	Outcome AttemptOutcome `json:"outcome"`
	Records int            `json:"records"`
	Error   string         `json:"error,omitempty"`
}

// RunResult is what callers of the orchestrator always receive, even when
// every backend failed.
type RunResult struct {
	RunID       uuid.UUID       `json:"run_id"`
	OK          bool            `json:"ok"`
	Count       int             `json:"count"`
	BackendUsed string          `json:"backend_used"`
	Status      Status          `json:"status"`
	Error       *string         `json:"error"`
	Attempts    []AttemptReport `json:"attempts,omitempty"`
	Records     []ListingRecord `json:"-"`
}

// DatasetSummary holds simple analytics over a canonical dataset.
type DatasetSummary struct {
	TotalListings  int
	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *ListingRecord
	ListingsByDate map[string]int
}
