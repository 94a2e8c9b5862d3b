// Package policy maps the configured auto-check action to the effect it has
// on the originating abuse report.
package policy

import "modcheck/backend/internal/models"

// Outcome is what a decision does to the report and to the ledger entry.
type Outcome struct {
	// SuppressFromQueue hides the ledger entry from the default moderator view.
	SuppressFromQueue bool
	AuditStatus       models.ReportStatus
}

var outcomes = map[string]Outcome{
	models.ActionRecord: {SuppressFromQueue: false, AuditStatus: models.ReportOpen},
	models.ActionIgnore: {SuppressFromQueue: true, AuditStatus: models.ReportIgnored},
	models.ActionDelete: {SuppressFromQueue: false, AuditStatus: models.ReportActioned},
}

// NotFlagged is the outcome recorded for content that scored at or above the threshold.
var NotFlagged = Outcome{SuppressFromQueue: false, AuditStatus: models.ReportOpen}

// Resolve returns the outcome for an action name. Unknown names behave like
// "record": a misconfigured policy never drops or deletes anything.
func Resolve(action string) Outcome {
	if o, ok := outcomes[action]; ok {
		return o
	}
	return outcomes[models.ActionRecord]
}

// Known reports whether action is one of the configured action names.
func Known(action string) bool {
	_, ok := outcomes[action]
	return ok
}

// Table is the default Resolver backed by Resolve.
type Table struct{}

func (Table) Resolve(action string) Outcome { return Resolve(action) }
