// Package jobs contains the background task definitions and the Asynq worker
// that runs them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrityScan walks posted vouchers and flags unbalanced ones.
	TaskGLIntegrityScan = "ledger:integrity_scan"
	// TaskOutstandingRefresh recomputes outstanding amounts for open invoices.
	TaskOutstandingRefresh = "invoice:outstanding_refresh"
	// TaskReportCacheBump invalidates cached report payloads.
	TaskReportCacheBump = "reports:cache_bump"
)

// GLIntegrityPayload scopes the integrity scan to one company, or all
// companies when empty.
type GLIntegrityPayload struct {
	Company string `json:"company,omitempty"`
}

// NewGLIntegrityTask constructs the integrity scan task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrityScan, data), nil
}

// OutstandingRefreshPayload scopes the refresh to one invoice, or to every
// unpaid invoice when empty.
type OutstandingRefreshPayload struct {
	Invoice string `json:"invoice,omitempty"`
}

// NewOutstandingRefreshTask constructs the outstanding refresh task.
func NewOutstandingRefreshTask(payload OutstandingRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutstandingRefresh, data), nil
}

// NewReportCacheBumpTask constructs the cache invalidation task.
func NewReportCacheBumpTask() *asynq.Task {
	return asynq.NewTask(TaskReportCacheBump, nil)
}
