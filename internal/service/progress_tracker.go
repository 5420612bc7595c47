// internal/service/progress_tracker.go
package service

import (
	"fmt"
	"strings"

	"github.com/anmicius0/euvat-checker/internal/config"
	"github.com/anmicius0/euvat-checker/internal/utils"
	"github.com/anmicius0/euvat-checker/internal/vat"
	"go.uber.org/zap"
)

const viesAdminContact = "TAXUD-VIESWEB@ec.europa.eu"

// JobProgressTracker mirrors scheduler notifications onto a job record.
type JobProgressTracker struct {
	jobStore *config.JobStore
	jobID    string
}

// NewJobProgressTracker creates a new job progress tracker.
func NewJobProgressTracker(jobStore *config.JobStore, jobID string) *JobProgressTracker {
	return &JobProgressTracker{
		jobStore: jobStore,
		jobID:    jobID,
	}
}

// SetProcessing marks the job as processing.
func (jpt *JobProgressTracker) SetProcessing() {
	_ = jpt.jobStore.UpdateJob(jpt.jobID, func(job *config.Job) {
		job.Status = config.JobStatusProcessing
		job.Message = "Processing VAT numbers"
	})
}

// OnProgress records the identifier being checked.
func (jpt *JobProgressTracker) OnProgress(p Progress) {
	_ = jpt.jobStore.UpdateJob(jpt.jobID, func(job *config.Job) {
		job.Status = config.JobStatusProcessing
		job.Position = p.Position
		job.CurrentVATNumber = p.Identifier
		job.Attempt = p.Attempt
		job.Message = progressMessage(p)
	})
}

// OnComplete stores the report and marks the job completed or failed.
func (jpt *JobProgressTracker) OnComplete(r Report) {
	_ = jpt.jobStore.UpdateJob(jpt.jobID, func(job *config.Job) {
		job.Outcome = string(r.Outcome)
		job.Results = r.Results
		job.MalformedCount = r.MalformedCount
		job.InvalidCountryCodes = r.InvalidCountryCodes
		job.ErrorToken = r.Token
		job.Message = completionMessage(r)
		if r.Outcome == OutcomeCompleted {
			job.Status = config.JobStatusCompleted
			job.CurrentVATNumber = ""
			job.Attempt = 0
		} else {
			job.Status = config.JobStatusFailed
		}
	})

	utils.Logger.Info("Job finalized",
		zap.String(utils.FieldJobID, jpt.jobID),
		zap.String(utils.FieldOutcome, string(r.Outcome)),
		zap.Int("results", len(r.Results)),
		zap.Int(utils.FieldTotal, r.Total))
}

func progressMessage(p Progress) string {
	switch p.Status {
	case StatusRetrying:
		return fmt.Sprintf("There is a problem communicating with VIES. Retry attempt %d. Be patient!", p.Attempt)
	case StatusBlocked:
		return blockedMessage()
	case StatusDown:
		return downMessage(p.Token)
	default:
		return fmt.Sprintf("Checking %s (%d of %d)", p.Identifier, p.Position, p.Total)
	}
}

func completionMessage(r Report) string {
	switch r.Outcome {
	case OutcomeEmpty:
		return "You didn't provide any VAT numbers to check!"
	case OutcomeBlocked:
		return blockedMessage()
	case OutcomeDown:
		return downMessage(r.Token)
	case OutcomeCancelled:
		return fmt.Sprintf("Batch cancelled after %d of %d VAT numbers", len(r.Results), r.Total)
	}

	msg := fmt.Sprintf("Checked %d VAT numbers", len(r.Results))
	if r.InvalidCountryCodes > 0 {
		msg += fmt.Sprintf(". The country code is invalid on %d of the VAT numbers. Valid country codes are: %s",
			r.InvalidCountryCodes, strings.Join(vat.CountryCodes(), ", "))
	}
	return msg
}

func blockedMessage() string {
	return "Sorry, but access to VIES is currently blocked. Contact admins at: " + viesAdminContact
}

func downMessage(token string) string {
	return fmt.Sprintf("Sorry, but VIES appears to be down. (The error code is '%s'.)", token)
}
