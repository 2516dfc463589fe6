// Package jobs holds the background task definitions and the Asynq
// worker/client plumbing. Two tasks exist today: a nightly integrity scan
// that reconstructs every location's paddy ledger looking for negative
// balances, and a targeted recompute enqueued after movement approvals.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan reconstructs all paddy ledgers and reports
	// negative balances.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskLedgerRecompute re-reconstructs one location's paddy ledger after
	// its movement set changed.
	TaskLedgerRecompute = "ledger:recompute"
)

// LedgerRecomputePayload scopes a recompute to one location from a date.
type LedgerRecomputePayload struct {
	LocationID int64  `json:"location_id"`
	From       string `json:"from"`
}

// NewLedgerRecomputeTask constructs a recompute task.
func NewLedgerRecomputeTask(locationID int64, from time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerRecomputePayload{
		LocationID: locationID,
		From:       from.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRecompute, data), nil
}

// NewLedgerIntegrityScanTask constructs an integrity scan task. The payload
// is empty; the scan covers every location.
func NewLedgerIntegrityScanTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrityScan, nil)
}
