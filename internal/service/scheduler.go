// internal/service/scheduler.go
// Package service runs batch VAT checks against the registry.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/anmicius0/euvat-checker/internal/client"
	"github.com/anmicius0/euvat-checker/internal/metrics"
	"github.com/anmicius0/euvat-checker/internal/utils"
	"github.com/anmicius0/euvat-checker/internal/vat"
	"go.uber.org/zap"
)

// Outcome is how a batch terminated.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeEmpty     Outcome = "empty"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeDown      Outcome = "down"
	// OutcomeCancelled only happens when the run context ends, e.g. on shutdown.
	OutcomeCancelled Outcome = "cancelled"
)

// ProgressStatus categorizes a progress notification.
type ProgressStatus string

const (
	StatusChecking ProgressStatus = "checking"
	StatusRetrying ProgressStatus = "retrying"
	StatusBlocked  ProgressStatus = "blocked"
	StatusDown     ProgressStatus = "down"
)

// Progress is emitted before every registry call and on every retry or abort.
type Progress struct {
	// Position is the 1-based input index of Identifier
	Position   int
	Total      int
	Identifier string
	// Attempt is 0 for the first call and n for the n-th retry
	Attempt int
	Status  ProgressStatus
	// Token is the raw failure token for retrying, blocked and down
	Token string
}

// Report is the terminal result of a batch. Exactly one is produced per run.
type Report struct {
	Outcome Outcome
	Total   int
	// Results are in processing order; aborted batches hold the rows resolved so far
	Results             []vat.VerificationResult
	MalformedCount      int
	InvalidCountryCodes int
	// Token is the raw failure token for blocked and down outcomes
	Token string
	// ReleaseLock tells the caller to release its batch lock
	ReleaseLock bool
}

// Listener receives batch notifications. OnComplete is called exactly once.
type Listener interface {
	OnProgress(Progress)
	OnComplete(Report)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Progress func(Progress)
	Complete func(Report)
}

func (f ListenerFuncs) OnProgress(p Progress) {
	if f.Progress != nil {
		f.Progress(p)
	}
}

func (f ListenerFuncs) OnComplete(r Report) {
	if f.Complete != nil {
		f.Complete(r)
	}
}

// SchedulerConfig sets pacing and retry behavior.
type SchedulerConfig struct {
	// TimeUnit is the base wait; pacing and backoff are multiples of it
	TimeUnit time.Duration
	// PacingUnits is the wait after a successful call
	PacingUnits int
	// MaxRetries is the number of retries after the first failed call
	MaxRetries int
}

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Scheduler drives one identifier at a time through the registry.
type Scheduler struct {
	registry client.RegistryClient
	cfg      SchedulerConfig
	sleep    Sleeper
	metrics  *metrics.Metrics
}

// NewScheduler creates a Scheduler. m may be nil.
func NewScheduler(registry client.RegistryClient, cfg SchedulerConfig, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		registry: registry,
		cfg:      cfg,
		sleep:    sleepContext,
		metrics:  m,
	}
}

// WithSleeper replaces the waiting primitive; tests use it to avoid real delays.
func (s *Scheduler) WithSleeper(sleep Sleeper) *Scheduler {
	s.sleep = sleep
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type step int

const (
	stepDequeue step = iota
	stepInFlight
)

type pendingItem struct {
	identifier   string
	position     int
	malformation vat.Malformation
}

// batchState is owned by a single RunBatch call.
type batchState struct {
	pending        []string
	total          int
	current        pendingItem
	retry          int
	results        []vat.VerificationResult
	malformed      int
	invalidCountry int
}

func newBatchState(identifiers []string) *batchState {
	pending := make([]string, len(identifiers))
	copy(pending, identifiers)
	return &batchState{
		pending: pending,
		total:   len(identifiers),
		results: make([]vat.VerificationResult, 0, len(identifiers)),
	}
}

// next dequeues and classifies the next identifier.
func (st *batchState) next() (pendingItem, bool) {
	if len(st.pending) == 0 {
		return pendingItem{}, false
	}
	identifier := st.pending[0]
	st.pending = st.pending[1:]
	return pendingItem{
		identifier:   identifier,
		position:     st.total - len(st.pending),
		malformation: vat.Classify(identifier),
	}, true
}

func (st *batchState) appendMalformed(item pendingItem) {
	st.results = append(st.results, vat.MalformedResult(item.identifier))
	st.malformed++
	if item.malformation == vat.MalformedCountry {
		st.invalidCountry++
	}
}

func (st *batchState) progress(status ProgressStatus, token string) Progress {
	return Progress{
		Position:   st.current.position,
		Total:      st.total,
		Identifier: st.current.identifier,
		Attempt:    st.retry,
		Status:     status,
		Token:      token,
	}
}

// RunBatch checks identifiers sequentially and blocks until the batch terminates.
// Malformed identifiers are folded into the results without a registry call. A blocked
// registry aborts the batch at once; other failures are retried with growing backoff
// until MaxRetries is exhausted, which also aborts the batch. listener may be nil.
func (s *Scheduler) RunBatch(ctx context.Context, identifiers []string, listener Listener) Report {
	if listener == nil {
		listener = ListenerFuncs{}
	}
	log := utils.WithComponent("scheduler")

	if len(identifiers) == 0 {
		return s.finish(listener, &batchState{}, OutcomeEmpty, "")
	}

	st := newBatchState(identifiers)
	log.Info("Batch started", zap.Int(utils.FieldTotal, st.total))

	current := stepDequeue
	for {
		switch current {
		case stepDequeue:
			if ctx.Err() != nil {
				return s.finish(listener, st, OutcomeCancelled, client.TokenAbort)
			}
			item, ok := st.next()
			if !ok {
				return s.finish(listener, st, OutcomeCompleted, "")
			}
			if item.malformation != vat.WellFormed {
				log.Debug("Skipping malformed VAT number",
					zap.String(utils.FieldVATNumber, item.identifier),
					zap.String("reason", string(item.malformation)))
				st.appendMalformed(item)
				continue
			}
			st.current = item
			st.retry = 0
			current = stepInFlight

		case stepInFlight:
			listener.OnProgress(st.progress(StatusChecking, ""))
			result, err := s.registry.Verify(ctx, st.current.identifier)
			if err == nil {
				st.results = append(st.results, *result)
				st.retry = 0
				current = stepDequeue
				if len(st.pending) > 0 {
					if err := s.sleep(ctx, s.pacingDelay()); err != nil {
						return s.finish(listener, st, OutcomeCancelled, client.TokenAbort)
					}
				}
				continue
			}

			if ctx.Err() != nil {
				return s.finish(listener, st, OutcomeCancelled, client.TokenAbort)
			}

			token := client.TokenOf(err)
			var regErr *client.RegistryError
			if errors.As(err, &regErr) && !regErr.Retryable() {
				log.Warn("Registry blocked this client, aborting batch",
					zap.String(utils.FieldVATNumber, st.current.identifier),
					zap.Int(utils.FieldPosition, st.current.position))
				listener.OnProgress(st.progress(StatusBlocked, token))
				return s.finish(listener, st, OutcomeBlocked, token)
			}

			if st.retry < s.cfg.MaxRetries {
				st.retry++
				delay := s.backoffDelay(st.retry)
				log.Warn("Registry call failed, retrying",
					zap.String(utils.FieldVATNumber, st.current.identifier),
					zap.Int(utils.FieldAttempt, st.retry),
					zap.String(utils.FieldKind, string(client.KindOf(err))),
					zap.String(utils.FieldToken, token),
					zap.Duration("backoff", delay))
				s.metrics.IncrementRetries()
				listener.OnProgress(st.progress(StatusRetrying, token))
				if err := s.sleep(ctx, delay); err != nil {
					return s.finish(listener, st, OutcomeCancelled, client.TokenAbort)
				}
				continue
			}

			log.Error("Registry appears down, aborting batch",
				zap.String(utils.FieldVATNumber, st.current.identifier),
				zap.Int(utils.FieldAttempt, st.retry),
				zap.String(utils.FieldToken, token),
				zap.Error(err))
			listener.OnProgress(st.progress(StatusDown, token))
			return s.finish(listener, st, OutcomeDown, token)
		}
	}
}

func (s *Scheduler) pacingDelay() time.Duration {
	return time.Duration(s.cfg.PacingUnits) * s.cfg.TimeUnit
}

// backoffDelay waits (retry + 1) units before the retry-th retry.
func (s *Scheduler) backoffDelay(retry int) time.Duration {
	return time.Duration(retry+1) * s.cfg.TimeUnit
}

func (s *Scheduler) finish(listener Listener, st *batchState, outcome Outcome, token string) Report {
	results := make([]vat.VerificationResult, len(st.results))
	copy(results, st.results)
	report := Report{
		Outcome:             outcome,
		Total:               st.total,
		Results:             results,
		MalformedCount:      st.malformed,
		InvalidCountryCodes: st.invalidCountry,
		Token:               token,
		ReleaseLock:         true,
	}

	s.metrics.IncrementBatchOutcome(string(outcome))
	utils.WithComponent("scheduler").Info("Batch finished",
		zap.String(utils.FieldOutcome, string(outcome)),
		zap.Int(utils.FieldTotal, st.total),
		zap.Int("results", len(results)),
		zap.Int("malformed", st.malformed),
		zap.String(utils.FieldToken, token))

	listener.OnComplete(report)
	return report
}
