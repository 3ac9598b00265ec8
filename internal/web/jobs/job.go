package jobs

import (
	"time"

	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/pkg/types"
)

// JobStatus represents the current state of a scan job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Finished reports whether the job will not change any more.
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job represents an async scan job. Values handed out by the Manager are
// snapshots; they are never updated after being returned.
type Job struct {
	ID          string                   `json:"id"`
	Target      string                   `json:"target"`
	Config      scanner.ScanConfig       `json:"-"`
	Status      JobStatus                `json:"status"`
	State       string                   `json:"state"`
	History     []string                 `json:"history"`
	Result      *types.ScanResult        `json:"result,omitempty"`
	Suggestions []remediation.Suggestion `json:"-"`
	Error       string                   `json:"error,omitempty"`
	ErrorKind   string                   `json:"error_kind,omitempty"`
	FailedPhase string                   `json:"failed_phase,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	StartedAt   time.Time                `json:"started_at,omitempty"`
	CompletedAt time.Time                `json:"completed_at,omitempty"`
}

// AlertCount returns the number of alerts collected so far.
func (j *Job) AlertCount() int {
	if j.Result == nil {
		return 0
	}
	return j.Result.TotalAlerts()
}

func (j *Job) snapshot() Job {
	out := *j
	out.History = append([]string(nil), j.History...)
	out.Suggestions = append([]remediation.Suggestion(nil), j.Suggestions...)
	return out
}
