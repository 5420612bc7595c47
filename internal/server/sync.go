// internal/server/sync.go
// Package server exposes the batch VAT checker over HTTP.
package server

import (
	"context"
	"errors"
	"sync"

	"github.com/anmicius0/euvat-checker/internal/config"
	"github.com/anmicius0/euvat-checker/internal/service"
	"github.com/anmicius0/euvat-checker/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBatchInProgress is returned when a batch is submitted while another one runs.
var ErrBatchInProgress = errors.New("a batch is already in progress")

// BatchRunner runs one batch to completion. *service.Scheduler satisfies it.
type BatchRunner interface {
	RunBatch(ctx context.Context, identifiers []string, listener service.Listener) service.Report
}

// BatchManager encapsulates async job execution for VAT batches.
type BatchManager struct {
	ctx       context.Context
	jobStore  *config.JobStore
	scheduler BatchRunner
	lock      *service.BatchLock
	wg        sync.WaitGroup
}

// NewBatchManager constructs a BatchManager. Cancelling ctx aborts the running batch.
func NewBatchManager(ctx context.Context, jobStore *config.JobStore, scheduler BatchRunner, lock *service.BatchLock) *BatchManager {
	return &BatchManager{
		ctx:       ctx,
		jobStore:  jobStore,
		scheduler: scheduler,
		lock:      lock,
	}
}

// Busy reports whether a batch is running.
func (bm *BatchManager) Busy() bool {
	return bm.lock.Held()
}

// ProcessBatchAsync creates a job and runs the batch in the background.
// The lock is released from the scheduler's completion report.
func (bm *BatchManager) ProcessBatchAsync(identifiers []string) (string, error) {
	if !bm.lock.TryAcquire() {
		return "", ErrBatchInProgress
	}

	jobID := uuid.New().String()
	bm.jobStore.CreateJob(jobID, len(identifiers))

	utils.Logger.Debug("Queued job",
		zap.String(utils.FieldJobID, jobID),
		zap.Int(utils.FieldTotal, len(identifiers)))

	tracker := service.NewJobProgressTracker(bm.jobStore, jobID)
	listener := service.ListenerFuncs{
		Progress: tracker.OnProgress,
		Complete: func(r service.Report) {
			tracker.OnComplete(r)
			if r.ReleaseLock {
				bm.lock.Release()
			}
		},
	}

	bm.wg.Add(1)
	go func() {
		defer bm.wg.Done()
		tracker.SetProcessing()

		report := bm.scheduler.RunBatch(bm.ctx, identifiers, listener)
		utils.Logger.Debug("Finished batch processing",
			zap.String(utils.FieldJobID, jobID),
			zap.String(utils.FieldOutcome, string(report.Outcome)),
			zap.Int("results", len(report.Results)))
	}()

	return jobID, nil
}

// Wait blocks until every background batch has returned.
func (bm *BatchManager) Wait() {
	bm.wg.Wait()
}
