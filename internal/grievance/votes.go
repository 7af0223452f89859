package grievance

import (
	"context"
	"fmt"
	"time"

	"gramseva/backend/internal/config"
	"gramseva/backend/internal/models"
)

// CastVote applies one user's verify/dispute vote to a grievance.
//
// Semantics:
//   - one vote per (grievance, user): a duplicate submission returns the
//     current grievance unchanged, even under a concurrent double-submit;
//   - owner fast path: the submitter's own "verify" finalizes immediately
//     and fails as a unit if the ledger confirmation fails;
//   - a dispute reopens work and feeds the global dispute counter, which
//     locks the grievance for admin review at the configured threshold;
//   - the third community "verify" finalizes the grievance; ledger failures
//     on that path are absorbed and retried by the scheduler.
func (s *Service) CastVote(ctx context.Context, id, userID, voteType string, comment *string) (*models.Grievance, error) {
	if voteType != models.VoteVerify && voteType != models.VoteDispute {
		return nil, ErrInvalidVoteType
	}

	// Serialize counting per grievance so two simultaneous votes cannot lose
	// an increment and a double-submit collapses cleanly.
	unlock := s.locks.lock(id)
	defer unlock()

	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}

	if existing, err := s.Storage.GetVerification(id, userID); err != nil {
		return nil, err
	} else if existing != nil {
		// Already voted. The existing vote stands; no counters move.
		return g, nil
	}

	isOwnerVerify := userID == g.UserID && voteType == models.VoteVerify && g.UserSatisfaction == nil && !g.AdminOnly

	// Owner fast path records on the ledger before anything is stored so a
	// failed confirmation leaves no partial state behind.
	var ownerTxHash string
	if isOwnerVerify {
		receipt, err := s.recordEvent(ctx, g, models.EventOwnerVerification, map[string]interface{}{
			"verifiedBy": userID,
			"isOwner":    true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedger, err)
		}
		ownerTxHash = receipt.TxHash
	}

	vote := &models.Verification{
		GrievanceID:      id,
		UserID:           userID,
		VerificationType: voteType,
		Status:           models.VoteStatusDisputed,
		Comments:         comment,
	}
	if voteType == models.VoteVerify {
		vote.Status = models.VoteStatusVerified
	}
	created, err := s.Storage.InsertVerification(vote)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a double-submit race: the earlier insert already counted.
		return s.Storage.GetGrievance(id)
	}

	// A vote after the submitter already closed the case, or while the
	// grievance is locked for admin review, is stored for the record but is a
	// no-op on status and counters. Only an administrator moves a locked
	// grievance.
	if g.UserSatisfaction != nil || g.AdminOnly {
		return g, nil
	}

	updates := map[string]interface{}{}
	newStatus := g.Status
	verifyCount := g.CommunityVerifyCount
	disputeCount := g.DisputeCount

	switch {
	case voteType == models.VoteDispute:
		disputeCount++
		updates["community_dispute_count"] = g.CommunityDisputeCount + 1
		updates["dispute_count"] = disputeCount
		if disputeCount >= config.AdminLockThreshold() {
			// Global dispute threshold reached: lock for admin review.
			newStatus = models.StatusAdminReview
			updates["admin_only"] = true
		} else {
			// A dispute always reopens work.
			newStatus = models.StatusInProgress
		}

	case isOwnerVerify:
		verifyCount++
		updates["community_verify_count"] = verifyCount
		newStatus = models.StatusVerified
		updates["resolved_at"] = time.Now()
		updates["blockchain_tx_hash"] = ownerTxHash

	default: // community verify
		verifyCount++
		updates["community_verify_count"] = verifyCount
		if verifyCount >= config.CommunityVerifyThreshold {
			newStatus = models.StatusVerified
			updates["resolved_at"] = time.Now()
		}
	}
	updates["status"] = newStatus

	updated, err := s.Storage.UpdateGrievance(id, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	switch {
	case newStatus == models.StatusAdminReview:
		s.recordEventAbsorbed(ctx, updated, models.EventLockedForAdmin, map[string]interface{}{
			"reason": "dispute threshold reached",
		})
	case newStatus == models.StatusVerified && !isOwnerVerify:
		// Community finalization: the vote is durable regardless; the ledger
		// mirror may arrive later via the scheduler if this fails.
		if receipt, err := s.recordEvent(ctx, updated, models.EventGrievanceVerified, map[string]interface{}{
			"verifiedBy": userID,
		}); err == nil {
			updated, err = s.Storage.UpdateGrievance(id, map[string]interface{}{
				"blockchain_tx_hash": receipt.TxHash,
			})
			if err != nil {
				return nil, err
			}
		} else {
			s.logAbsorbedLedgerFailure(id, err)
		}
	case !isOwnerVerify:
		s.recordEventAbsorbed(ctx, updated, models.EventCommunityVerification, map[string]interface{}{
			"verificationType": voteType,
			"status":           vote.Status,
		})
	}

	return updated, nil
}
