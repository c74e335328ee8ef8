package models

import (
	"net/http"
	"time"
)

// OutcomeKind classifies how a single request ended
type OutcomeKind int

const (
	// OutcomeSent means a response was received, whatever its status
	OutcomeSent OutcomeKind = iota
	// OutcomeSkipped means no request was sent, e.g. for an unsupported method
	OutcomeSkipped
	// OutcomeFailed means the transport gave up: timeout, refused connection, TLS error
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSent:
		return "sent"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome represents the result of executing one RequestPlan
type Outcome struct {
	Method string
	URL    string
	Kind   OutcomeKind

	// Response details, zero unless Kind is OutcomeSent
	StatusCode      int
	ResponseTime    time.Duration
	WWWAuthenticate string

	// Error describes why the request was skipped or failed
	Error string
}

// Unauthorized reports whether the server answered 401
func (o Outcome) Unauthorized() bool {
	return o.Kind == OutcomeSent && o.StatusCode == http.StatusUnauthorized
}
