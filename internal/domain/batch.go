package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the processing state of a bulk-import batch job.
type JobStatus string

const (
	JobStatusInProgress          JobStatus = "IN_PROGRESS"
	JobStatusCompleted           JobStatus = "COMPLETED"
	JobStatusCompletedWithErrors JobStatus = "COMPLETED_WITH_ERRORS"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusInProgress, JobStatusCompleted, JobStatusCompletedWithErrors:
		return true
	}
	return false
}

// IsTerminal reports whether the worker has finished the batch. A terminal
// status is never reverted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCompletedWithErrors
}

func ParseJobStatusFromString(s string) (JobStatus, error) {
	st := JobStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid job status %q", ErrValidation, s)
	}
	return st, nil
}

// RowResult records the outcome of a single CSV row. Exactly one of
// HospitalID (success) or Error (failure) is set.
type RowResult struct {
	HospitalID *int64  `json:"hospital_id,omitempty"`
	Error      *string `json:"error,omitempty"`
}

func RowSuccess(hospitalID int64) RowResult {
	return RowResult{HospitalID: &hospitalID}
}

func RowFailure(reason string) RowResult {
	return RowResult{Error: &reason}
}

// BatchOutcome is the per-row ledger attached to a batch job, plus the
// one-time activation flag.
type BatchOutcome struct {
	Activated bool                 `json:"batch_activated,omitempty"`
	Rows      map[string]RowResult `json:"hospitals,omitempty"`
}

// SetRow records the outcome for a row key, allocating the map on first use.
func (o *BatchOutcome) SetRow(key string, result RowResult) {
	if o.Rows == nil {
		o.Rows = make(map[string]RowResult)
	}
	o.Rows[key] = result
}

// BatchJob tracks one bulk CSV import. TotalHospitals is fixed at submission;
// the counters and status are mutated only by the processing worker.
type BatchJob struct {
	ID                    int64
	BatchID               string
	TotalHospitals        int
	ProcessedHospitals    int
	FailedHospitals       int
	Status                JobStatus
	ProcessingTimeSeconds *float64
	Outcome               BatchOutcome
	CreatedAt             time.Time
}
