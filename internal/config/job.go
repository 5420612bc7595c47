// Path: internal/config/job.go
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/anmicius0/euvat-checker/internal/vat"
)

// JobStatus represents the current state of a background batch check
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents one batch VAT check run in the background.
type Job struct {
	// ID is the unique identifier for this job
	ID string
	// Status is the current state of the job (pending, processing, completed, or failed)
	Status JobStatus
	// Outcome is how the batch terminated: completed, empty, blocked, down or cancelled
	Outcome string
	// CreatedAt is the time when the job was created
	CreatedAt time.Time
	// UpdatedAt is the time when the job was last updated
	UpdatedAt time.Time
	// TotalVATNumbers is the count of identifiers submitted
	TotalVATNumbers int
	// Position is the 1-based index of the identifier being checked
	Position int
	// CurrentVATNumber is the identifier being checked
	CurrentVATNumber string
	// Attempt is the retry attempt of the current identifier, 0 on the first try
	Attempt int
	// Results are the rows accumulated so far, in processing order
	Results []vat.VerificationResult
	// MalformedCount counts identifiers rejected before reaching the registry
	MalformedCount int
	// InvalidCountryCodes counts malformed identifiers with a bad country prefix
	InvalidCountryCodes int
	// ErrorToken is the raw registry failure token of an aborted batch
	ErrorToken string
	// Message is a human-readable status message
	Message string
}

// JobStore manages in-memory job tracking
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates a new job store instance
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
	}
}

// CreateJob creates a new job with pending status
func (js *JobStore) CreateJob(id string, total int) *Job {
	js.mu.Lock()
	defer js.mu.Unlock()

	now := time.Now()
	job := &Job{
		ID:              id,
		Status:          JobStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		TotalVATNumbers: total,
		Results:         make([]vat.VerificationResult, 0, total),
		Message:         "Job queued",
	}
	js.jobs[id] = job
	return job.snapshot()
}

// GetJob returns a copy of the job so callers can read it while the batch keeps running.
func (js *JobStore) GetJob(id string) (*Job, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()
	job, exists := js.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// UpdateJob updates a job's status and data
func (js *JobStore) UpdateJob(id string, updateFn func(*Job)) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, exists := js.jobs[id]
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}
	updateFn(job)
	job.UpdatedAt = time.Now()
	return nil
}

func (j *Job) snapshot() *Job {
	out := *j
	out.Results = append(make([]vat.VerificationResult, 0, len(j.Results)), j.Results...)
	return &out
}
