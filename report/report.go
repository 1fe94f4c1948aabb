// Package report delivers audit results to output backends.
package report

import (
	"context"
	"time"

	"github.com/hazyhaar/taptarget/tapaudit"
)

// Report is one audit of one page.
type Report struct {
	ID        string          `json:"id"`
	PageURL   string          `json:"page_url"`
	AuditID   string          `json:"audit_id"`
	Timestamp time.Time       `json:"timestamp"`
	Result    tapaudit.Result `json:"result"`
}

// Sink is an output backend for reports.
type Sink interface {
	Send(ctx context.Context, r Report) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const envelopeType = "tap_targets_report"
