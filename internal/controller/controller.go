// Package controller holds the state machines behind the TinyLink views.
//
// Each controller owns its state behind a mutex and performs network calls
// outside the lock. Asynchronous callers (the TUI) split a request in two:
// Begin moves the controller into its loading state synchronously and returns
// a Ticket, then Fetch runs the call and applies the result only if the ticket
// is still the most recent one. Synchronous callers use the one-shot helpers
// (Load, Check, Submit).
package controller

import (
	"time"

	"github.com/fonsecaaso/tinylink/internal/metrics"
	"github.com/fonsecaaso/tinylink/internal/model"
)

// NeverClicked is shown for links that have no recorded click
const NeverClicked = "Never"

const timestampLayout = "2006-01-02 15:04:05"

// Ticket identifies one request issued by a controller
type Ticket struct {
	generation uint64
	code       string
}

// Code is the link code the ticket was issued for, if any
func (t Ticket) Code() string {
	return t.code
}

// FormatTimestamp renders an optional timestamp in local time, or fallback when absent
func FormatTimestamp(ts *time.Time, fallback string) string {
	if ts == nil || ts.IsZero() {
		return fallback
	}
	return ts.Local().Format(timestampLayout)
}

// LastClicked renders the last click time of link, or "Never"
func LastClicked(link model.Link) string {
	return FormatTimestamp(link.LastClicked, NeverClicked)
}

func recordStale(controller string) {
	metrics.StaleResponsesTotal.WithLabelValues(controller).Inc()
}
