package autocheck

import "errors"

var (
	// ErrContentNotFound aborts a run: the reported content no longer exists.
	ErrContentNotFound = errors.New("reported content not found")
	// ErrReportNotFound aborts a run: the trigger names an unknown report.
	ErrReportNotFound = errors.New("abuse report not found")
	// ErrDisabled aborts a run because the operator turned auto-check off.
	ErrDisabled = errors.New("auto-check disabled")
	// ErrPersistence means the ledger or the report status could not be written.
	// The audit trail is incomplete and an operator should look at it.
	ErrPersistence = errors.New("auto-check persistence failed")
	// ErrDeletionFailed is logged when flagged content could not be deleted.
	ErrDeletionFailed = errors.New("auto-check deletion failed")
)
