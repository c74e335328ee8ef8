package models

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// RunSummary aggregates outcomes while a run is in progress.
// It is safe for concurrent use by the workers.
type RunSummary struct {
	Total int

	submitted    atomic.Int64
	completed    atomic.Int64
	sent         atomic.Int64
	skipped      atomic.Int64
	failed       atomic.Int64
	unauthorized atomic.Int64

	mu          sync.Mutex
	statusCodes map[int]int
	errors      []string
	started     time.Time
	finished    time.Time
}

// maxSampleErrors bounds how many distinct error messages the summary keeps
const maxSampleErrors = 5

// NewRunSummary creates an empty summary for a run of total operations
func NewRunSummary(total int) *RunSummary {
	return &RunSummary{
		Total:       total,
		statusCodes: make(map[int]int),
		started:     time.Now(),
	}
}

// MarkSubmitted counts one submission and returns the running submission counter
func (s *RunSummary) MarkSubmitted() int {
	return int(s.submitted.Inc())
}

// Submitted returns how many operations have been handed to the pool
func (s *RunSummary) Submitted() int {
	return int(s.submitted.Load())
}

// Completed returns how many operations have finished executing
func (s *RunSummary) Completed() int {
	return int(s.completed.Load())
}

// AddOutcome records a finished operation
func (s *RunSummary) AddOutcome(o Outcome) {
	s.completed.Inc()
	switch o.Kind {
	case OutcomeSent:
		s.sent.Inc()
		if o.Unauthorized() {
			s.unauthorized.Inc()
		}
	case OutcomeSkipped:
		s.skipped.Inc()
	case OutcomeFailed:
		s.failed.Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if o.StatusCode > 0 {
		s.statusCodes[o.StatusCode]++
	}
	if o.Error != "" && len(s.errors) < maxSampleErrors {
		for _, e := range s.errors {
			if e == o.Error {
				return
			}
		}
		s.errors = append(s.errors, o.Error)
	}
}

// Finish stamps the end of the run
func (s *RunSummary) Finish() {
	s.mu.Lock()
	s.finished = time.Now()
	s.mu.Unlock()
}

// StatusCount is one bucket of the status code histogram
type StatusCount struct {
	Code  int `json:"code"`
	Count int `json:"count"`
}

// SummarySnapshot is a point-in-time, plain-value copy of a RunSummary
type SummarySnapshot struct {
	Total        int           `json:"total"`
	Submitted    int           `json:"submitted"`
	Completed    int           `json:"completed"`
	Sent         int           `json:"sent"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Unauthorized int           `json:"unauthorized"`
	StatusCodes  []StatusCount `json:"status_codes"`
	SampleErrors []string      `json:"sample_errors,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// Snapshot copies the current counters
func (s *RunSummary) Snapshot() SummarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]StatusCount, 0, len(s.statusCodes))
	for code, count := range s.statusCodes {
		codes = append(codes, StatusCount{Code: code, Count: count})
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i].Code < codes[j].Code
	})

	end := s.finished
	if end.IsZero() {
		end = time.Now()
	}

	return SummarySnapshot{
		Total:        s.Total,
		Submitted:    s.Submitted(),
		Completed:    s.Completed(),
		Sent:         int(s.sent.Load()),
		Skipped:      int(s.skipped.Load()),
		Failed:       int(s.failed.Load()),
		Unauthorized: int(s.unauthorized.Load()),
		StatusCodes:  codes,
		SampleErrors: append([]string(nil), s.errors...),
		Duration:     end.Sub(s.started),
	}
}
