package grievance

import (
	"context"
	"fmt"
	"time"

	"gramseva/backend/internal/config"
	"gramseva/backend/internal/models"
)

// legalTransitions is the status state machine. The main path is
// pending → in_progress → pending_verification → verified; overdue branches
// off pending/in_progress and re-enters the flow, admin_review is entered
// only through the dispute lock and exits only through admin verification.
var legalTransitions = map[string][]string{
	models.StatusPending:             {models.StatusInProgress, models.StatusOverdue, models.StatusAdminReview},
	models.StatusInProgress:          {models.StatusPendingVerification, models.StatusOverdue, models.StatusVerified, models.StatusAdminReview},
	models.StatusPendingVerification: {models.StatusVerified, models.StatusInProgress, models.StatusAdminReview},
	models.StatusOverdue:             {models.StatusInProgress, models.StatusPendingVerification, models.StatusVerified, models.StatusAdminReview},
	models.StatusAdminReview:         {models.StatusVerified},
	models.StatusVerified:            {},
}

// CanTransition reports whether the state machine allows moving from one
// status to another.
func CanTransition(from, to string) bool {
	for _, t := range legalTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Actor identifies who is driving a transition. System is used by the
// reconciliation scheduler; it bypasses the admin lock the same way an
// administrator does because the grievances it touches are never in
// admin_review.
type Actor struct {
	ID     string
	Role   string
	System bool
}

func (a Actor) privileged() bool {
	return a.System || a.Role == models.RoleAdmin
}

// UpdateStatus validates and applies one status transition atomically with
// its side-effect fields, then mirrors a STATUS_UPDATED event to the ledger.
// The ledger mirror is eventually consistent: a recorder failure is logged
// and absorbed, never rolled back.
func (s *Service) UpdateStatus(ctx context.Context, id, target string, actor Actor, updates map[string]interface{}) (*models.Grievance, error) {
	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.AdminOnly && !actor.privileged() {
		return nil, ErrLocked
	}
	if !CanTransition(g.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, target)
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = target
	if g.Status == models.StatusAdminReview {
		// Any legal exit from admin review releases the lock.
		updates["admin_only"] = false
	}
	if target == models.StatusPendingVerification {
		// Entering community verification starts the auto-finalize clock.
		now := time.Now()
		updates["resolved_at"] = now
		if g.VerificationDeadline == nil {
			updates["verification_deadline"] = now.AddDate(0, 0, config.VerificationWindowDays)
		}
	}

	updated, err := s.Storage.UpdateGrievance(id, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.recordEventAbsorbed(ctx, updated, models.EventStatusUpdated, map[string]interface{}{
		"newStatus": target,
	})

	return updated, nil
}
