// Package scheduler runs the periodic reconciliation sweep that enforces
// grievance deadlines without human action.
package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"gramseva/backend/internal/grievance"
	"gramseva/backend/internal/models"
	"gramseva/backend/internal/storage"
)

// Fixed reasons supplied on auto-escalation; the human minimum-length rule
// does not apply to these.
const (
	reasonAcceptExpired = "Auto-escalated: officer did not accept within the acceptance window"
	reasonDueDatePassed = "Auto-escalated: due date passed without resolution"
)

var systemActor = grievance.Actor{System: true}

// Scheduler sweeps elapsed deadlines on a fixed interval: one sweep at a
// time, fired once immediately on start and then on every tick.
type Scheduler struct {
	Grievances *grievance.Service
	Storage    storage.Storage
	Interval   time.Duration

	running atomic.Bool
}

// New creates a scheduler over the lifecycle service.
func New(svc *grievance.Service, st storage.Storage, interval time.Duration) *Scheduler {
	return &Scheduler{Grievances: svc, Storage: st, Interval: interval}
}

// Run blocks until the context is cancelled, sweeping immediately and then
// on every interval tick.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Starting scheduler with interval %s", s.Interval)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped.")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs the three reconciliation passes once. A tick arriving while the
// previous sweep is still running is skipped, and a Redis lease keeps other
// replicas out for the duration of the interval.
func (s *Scheduler) Sweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("Scheduler: previous sweep still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	acquired, err := s.Storage.AcquireSweepLease(s.Interval)
	if err != nil {
		log.Printf("ERROR: Scheduler failed to acquire sweep lease: %v", err)
		return
	}
	if !acquired {
		log.Println("Scheduler: another instance holds the sweep lease, skipping")
		return
	}
	defer func() {
		if err := s.Storage.ReleaseSweepLease(); err != nil {
			log.Printf("ERROR: Scheduler failed to release sweep lease: %v", err)
		}
	}()

	now := time.Now()
	s.sweepAcceptDeadlines(ctx, now)
	s.sweepDueDates(ctx, now)
	s.sweepVerificationDeadlines(ctx, now)
}

// Pass 1: pending grievances whose acceptance window elapsed are marked
// overdue and auto-escalated.
func (s *Scheduler) sweepAcceptDeadlines(ctx context.Context, now time.Time) {
	candidates, err := s.Storage.FindPendingPastAcceptBy(now)
	if err != nil {
		log.Printf("ERROR: Scheduler failed to query elapsed acceptance windows: %v", err)
		return
	}
	for _, g := range candidates {
		log.Printf("Scheduler: marking grievance %s as overdue (acceptBy passed)", g.ID)
		if _, err := s.Grievances.UpdateStatus(ctx, g.ID, models.StatusOverdue, systemActor, nil); err != nil {
			log.Printf("ERROR: Scheduler failed to mark grievance %s overdue: %v", g.ID, err)
			continue
		}
		if _, err := s.Grievances.AutoEscalate(ctx, g.ID, reasonAcceptExpired); err != nil {
			log.Printf("ERROR: Scheduler failed to auto-escalate grievance %s: %v", g.ID, err)
		}
	}
}

// Pass 2: pending or in-progress grievances past their due date are marked
// overdue and auto-escalated.
func (s *Scheduler) sweepDueDates(ctx context.Context, now time.Time) {
	candidates, err := s.Storage.FindActivePastDue(now)
	if err != nil {
		log.Printf("ERROR: Scheduler failed to query elapsed due dates: %v", err)
		return
	}
	for _, g := range candidates {
		log.Printf("Scheduler: marking grievance %s as overdue (dueDate passed)", g.ID)
		if _, err := s.Grievances.UpdateStatus(ctx, g.ID, models.StatusOverdue, systemActor, nil); err != nil {
			log.Printf("ERROR: Scheduler failed to mark grievance %s overdue: %v", g.ID, err)
			continue
		}
		if _, err := s.Grievances.AutoEscalate(ctx, g.ID, reasonDueDatePassed); err != nil {
			log.Printf("ERROR: Scheduler failed to auto-escalate grievance %s: %v", g.ID, err)
		}
	}
}

// Pass 3: grievances stuck in pending_verification past the deadline are
// finalized, ledger first. A ledger failure leaves the grievance untouched
// for the next run.
func (s *Scheduler) sweepVerificationDeadlines(ctx context.Context, now time.Time) {
	candidates, err := s.Storage.FindVerificationExpired(now)
	if err != nil {
		log.Printf("ERROR: Scheduler failed to query elapsed verification deadlines: %v", err)
		return
	}
	for _, g := range candidates {
		updated, err := s.Grievances.FinalizeVerification(ctx, g.ID)
		if err != nil {
			log.Printf("ERROR: Scheduler failed to finalize grievance %s, will retry next run: %v", g.ID, err)
			continue
		}
		if updated.BlockchainTxHash != nil {
			log.Printf("Scheduler: finalized grievance %s as verified. TxHash: %s", g.ID, *updated.BlockchainTxHash)
		}
	}
}
