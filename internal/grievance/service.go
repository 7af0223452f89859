// Package grievance holds the core lifecycle logic for citizen grievances:
// the status state machine, vote and dispute aggregation with the admin
// lock, the escalation ladder, and the operations the HTTP layer calls.
package grievance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"gramseva/backend/internal/config"
	"gramseva/backend/internal/ledger"
	"gramseva/backend/internal/models"
	"gramseva/backend/internal/storage"

	"github.com/lib/pq"
)

// Service drives the grievance lifecycle. It is explicitly constructed with
// its collaborators so tests can substitute an in-memory storage and a fake
// ledger recorder.
type Service struct {
	Storage storage.Storage
	Ledger  ledger.Recorder

	// locks serializes vote counting per grievance id. Together with the
	// unique vote index this keeps duplicate submissions idempotent and
	// counter increments exactly-once.
	locks keyedMutex
}

// NewService creates a new grievance lifecycle service.
func NewService(s storage.Storage, r ledger.Recorder) *Service {
	return &Service{Storage: s, Ledger: r}
}

// keyedMutex hands out one mutex per grievance id. Entries are never
// reclaimed; the set of contended grievances is small.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// SubmitInput carries the citizen-entered fields of a new grievance.
type SubmitInput struct {
	Title         string
	Description   string
	Category      string
	VillageName   string
	Priority      string
	EvidenceFiles []string
}

// Submit creates a grievance in pending status, generates the human-readable
// grievance number and starts the 24-hour acceptance window.
func (s *Service) Submit(ctx context.Context, in SubmitInput, submitterID string) (*models.Grievance, error) {
	user, err := s.Storage.GetUserByID(submitterID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	priority := in.Priority
	if priority == "" {
		priority = config.DefaultPriorities[in.Category]
	}
	if priority == "" {
		priority = "medium"
	}

	acceptBy := time.Now().Add(config.AcceptWindow)
	g := &models.Grievance{
		GrievanceNumber:       newGrievanceNumber(),
		Title:                 in.Title,
		Description:           in.Description,
		Category:              in.Category,
		VillageName:           in.VillageName,
		Priority:              priority,
		Status:                models.StatusPending,
		UserID:                user.ID,
		EvidenceFiles:         in.EvidenceFiles,
		AcceptBy:              &acceptBy,
		CurrentAuthorityLevel: config.AuthorityLevels[0],
		CanResolve:            true,
	}
	if err := s.Storage.CreateGrievance(g); err != nil {
		return nil, err
	}

	s.recordEventAbsorbed(ctx, g, models.EventGrievanceSubmitted, map[string]interface{}{
		"category": g.Category,
	})

	return g, nil
}

// Accept assigns an officer and starts the resolution clock: dueDate is
// timelineDays ahead and the verification deadline trails it by three days.
func (s *Service) Accept(ctx context.Context, id, officerID string, timelineDays int) (*models.Grievance, error) {
	if timelineDays < config.MinResolutionTimelineDays || timelineDays > config.MaxResolutionTimelineDays {
		return nil, ErrInvalidTimeline
	}

	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.AdminOnly {
		return nil, ErrLocked
	}
	if g.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: grievance is not pending", ErrInvalidTransition)
	}
	if g.AcceptBy != nil && g.AcceptBy.Before(time.Now()) {
		return nil, ErrWindowExpired
	}

	dueDate := time.Now().AddDate(0, 0, timelineDays)
	verificationDeadline := dueDate.Add(config.VerificationGrace)

	updated, err := s.Storage.UpdateGrievance(id, map[string]interface{}{
		"status":                models.StatusInProgress,
		"assigned_to":           officerID,
		"resolution_timeline":   timelineDays,
		"due_date":              dueDate,
		"verification_deadline": verificationDeadline,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.recordEventAbsorbed(ctx, updated, models.EventTaskAccepted, map[string]interface{}{
		"officerId":          officerID,
		"resolutionTimeline": timelineDays,
		"dueDate":            dueDate.Format(time.RFC3339),
	})

	return updated, nil
}

// Resolve moves an in-progress grievance to pending_verification with the
// officer's resolution notes attached.
func (s *Service) Resolve(ctx context.Context, id, notes string, evidence []string, actor Actor) (*models.Grievance, error) {
	updates := map[string]interface{}{
		"resolution_notes": notes,
	}
	if len(evidence) > 0 {
		updates["resolution_evidence"] = toStringArray(evidence)
	}
	return s.UpdateStatus(ctx, id, models.StatusPendingVerification, actor, updates)
}

// SubmitUserSatisfaction records the submitter's verdict on the resolution.
// Satisfied closes the grievance as verified; not satisfied reopens work.
func (s *Service) SubmitUserSatisfaction(ctx context.Context, id string, satisfied bool) (*models.Grievance, error) {
	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.AdminOnly {
		return nil, ErrLocked
	}

	satisfaction := models.SatisfactionNotSatisfied
	status := models.StatusInProgress
	updates := map[string]interface{}{
		"user_satisfaction_at": time.Now(),
	}
	if satisfied {
		satisfaction = models.SatisfactionSatisfied
		status = models.StatusVerified
		updates["resolved_at"] = time.Now()
	}
	updates["user_satisfaction"] = satisfaction
	updates["status"] = status

	updated, err := s.Storage.UpdateGrievance(id, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.recordEventAbsorbed(ctx, updated, models.EventUserSatisfaction, map[string]interface{}{
		"satisfaction": satisfaction,
	})

	return updated, nil
}

// AdminManualVerify finalizes a grievance stuck in pending_verification or
// admin_review. This is the only exit from admin_review. The ledger is
// written first: without a confirmed transaction the grievance is left
// untouched.
func (s *Service) AdminManualVerify(ctx context.Context, id string) (*models.Grievance, error) {
	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.Status != models.StatusPendingVerification && g.Status != models.StatusAdminReview {
		return nil, ErrInvalidState
	}

	receipt, err := s.recordEvent(ctx, g, models.EventGrievanceVerified, map[string]interface{}{
		"verifiedBy": "admin",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedger, err)
	}

	updated, err := s.Storage.UpdateGrievance(id, map[string]interface{}{
		"status":             models.StatusVerified,
		"admin_only":         false,
		"resolved_at":        time.Now(),
		"blockchain_tx_hash": receipt.TxHash,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// FinalizeVerification closes out a grievance whose community verification
// window elapsed without a verdict. The ledger confirmation comes first: on
// failure the grievance is left untouched so the next sweep retries, and it
// is never marked verified without a recorded transaction.
func (s *Service) FinalizeVerification(ctx context.Context, id string) (*models.Grievance, error) {
	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.Status != models.StatusPendingVerification {
		return nil, ErrInvalidState
	}

	receipt, err := s.recordEvent(ctx, g, models.EventGrievanceVerified, map[string]interface{}{
		"verifiedBy": "system",
		"reason":     "verification deadline elapsed",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedger, err)
	}

	updates := map[string]interface{}{
		"status":             models.StatusVerified,
		"blockchain_tx_hash": receipt.TxHash,
	}
	if g.ResolvedAt == nil {
		updates["resolved_at"] = time.Now()
	}
	updated, err := s.Storage.UpdateGrievance(id, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// Detail is the full view of one grievance with its relational children.
type Detail struct {
	Grievance         models.Grievance           `json:"grievance"`
	Verifications     []models.Verification      `json:"verifications"`
	EscalationHistory []models.EscalationHistory `json:"escalationHistory"`
	LedgerRecords     []models.LedgerRecord      `json:"ledgerRecords"`
}

// GetDetail loads a grievance together with its votes, escalation history
// and ledger mirror rows.
func (s *Service) GetDetail(ctx context.Context, id string) (*Detail, error) {
	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	votes, err := s.Storage.GetVerificationsByGrievance(id)
	if err != nil {
		return nil, err
	}
	history, err := s.Storage.GetEscalationHistory(id)
	if err != nil {
		return nil, err
	}
	records, err := s.Storage.GetLedgerRecordsByGrievance(id)
	if err != nil {
		return nil, err
	}
	return &Detail{Grievance: *g, Verifications: votes, EscalationHistory: history, LedgerRecords: records}, nil
}

// recordEvent submits one event to the ledger, mirrors it into the local
// append-only table and broadcasts it to realtime subscribers. The caller
// decides whether a failure is fatal.
func (s *Service) recordEvent(ctx context.Context, g *models.Grievance, eventType string, data map[string]interface{}) (*ledger.Receipt, error) {
	payload := map[string]interface{}{
		"grievanceNumber": g.GrievanceNumber,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range data {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	receipt, err := s.Ledger.Record(ctx, g.ID, raw)
	if err != nil {
		return nil, err
	}

	if err := s.Storage.CreateLedgerRecord(&models.LedgerRecord{
		GrievanceID:     g.ID,
		TransactionHash: receipt.TxHash,
		BlockNumber:     receipt.BlockNumber,
		EventType:       eventType,
		EventData:       string(raw),
	}); err != nil {
		return nil, err
	}

	if err := s.Storage.PublishEvent(models.GrievanceEvent{
		GrievanceID:     g.ID,
		GrievanceNumber: g.GrievanceNumber,
		EventType:       eventType,
		Status:          g.Status,
		TransactionHash: receipt.TxHash,
		Timestamp:       time.Now(),
	}); err != nil {
		log.Printf("ERROR: Failed to publish event %s for grievance %s: %v", eventType, g.ID, err)
	}

	return &receipt, nil
}

// recordEventAbsorbed mirrors an event but absorbs failures: the local state
// is already durable and the ledger can catch up later.
func (s *Service) recordEventAbsorbed(ctx context.Context, g *models.Grievance, eventType string, data map[string]interface{}) {
	if _, err := s.recordEvent(ctx, g, eventType, data); err != nil {
		log.Printf("ERROR: Failed to record %s on ledger for grievance %s, will rely on later retry: %v", eventType, g.ID, err)
	}
}

func (s *Service) logAbsorbedLedgerFailure(id string, err error) {
	log.Printf("ERROR: Ledger confirmation failed for grievance %s, scheduler will retry: %v", id, err)
}

func toStringArray(v []string) pq.StringArray {
	return pq.StringArray(v)
}

// newGrievanceNumber generates the citizen-facing sequence number,
// e.g. "GR202600042".
func newGrievanceNumber() string {
	return fmt.Sprintf("GR%d%05d", time.Now().Year(), rand.Intn(100000))
}
