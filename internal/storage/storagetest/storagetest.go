// Package storagetest provides an in-memory Storage implementation for unit
// tests of the lifecycle service and the scheduler. It mirrors the column
// update semantics of the GORM-backed service closely enough to exercise the
// state machine without a database.
package storagetest

import (
	"fmt"
	"sync"
	"time"

	"gramseva/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Fake is an in-memory storage.Storage. Zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	Grievances map[string]*models.Grievance
	Votes      map[string]*models.Verification // keyed grievanceID + "/" + userID
	History    []models.EscalationHistory
	Records    []models.LedgerRecord
	Users      map[string]*models.User
	Events     []models.GrievanceEvent

	// LeaseHeld reports whether the sweep lease is currently taken.
	LeaseHeld bool
	// DenyLease forces AcquireSweepLease to report the lease as taken.
	DenyLease bool
}

func New() *Fake {
	return &Fake{
		Grievances: map[string]*models.Grievance{},
		Votes:      map[string]*models.Verification{},
		Users:      map[string]*models.User{},
	}
}

// SeedUser stores a user, assigning an id when missing, and returns it.
func (f *Fake) SeedUser(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	f.Users[u.ID] = u
	return u
}

// SeedGrievance stores a grievance, assigning an id when missing.
func (f *Fake) SeedGrievance(g *models.Grievance) *models.Grievance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	f.Grievances[g.ID] = g
	return g
}

func (f *Fake) CreateGrievance(g *models.Grievance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	f.Grievances[g.ID] = g
	return nil
}

func (f *Fake) GetGrievance(id string) (*models.Grievance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.Grievances[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *Fake) UpdateGrievance(id string, updates map[string]interface{}) (*models.Grievance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.Grievances[id]
	if !ok {
		return nil, nil
	}
	for col, v := range updates {
		if err := applyColumn(g, col, v); err != nil {
			return nil, err
		}
	}
	g.UpdatedAt = time.Now()
	cp := *g
	return &cp, nil
}

func applyColumn(g *models.Grievance, col string, v interface{}) error {
	switch col {
	case "status":
		g.Status = v.(string)
	case "assigned_to":
		g.AssignedTo = strPtr(v)
	case "resolution_timeline":
		g.ResolutionTimeline = v.(int)
	case "due_date":
		g.DueDate = timePtr(v)
	case "verification_deadline":
		g.VerificationDeadline = timePtr(v)
	case "escalation_due_date":
		g.EscalationDueDate = timePtr(v)
	case "resolved_at":
		g.ResolvedAt = timePtr(v)
	case "escalated_at":
		g.EscalatedAt = timePtr(v)
	case "user_satisfaction":
		g.UserSatisfaction = strPtr(v)
	case "user_satisfaction_at":
		g.UserSatisfactionAt = timePtr(v)
	case "blockchain_tx_hash":
		g.BlockchainTxHash = strPtr(v)
	case "escalation_reason":
		g.EscalationReason = strPtr(v)
	case "resolution_notes":
		g.ResolutionNotes = strPtr(v)
	case "resolution_evidence":
		g.ResolutionEvidence = v.(pq.StringArray)
	case "community_verify_count":
		g.CommunityVerifyCount = v.(int)
	case "community_dispute_count":
		g.CommunityDisputeCount = v.(int)
	case "dispute_count":
		g.DisputeCount = v.(int)
	case "escalation_count":
		g.EscalationCount = v.(int)
	case "current_authority_level":
		g.CurrentAuthorityLevel = v.(string)
	case "admin_only":
		g.AdminOnly = v.(bool)
	case "is_escalated":
		g.IsEscalated = v.(bool)
	case "can_resolve":
		g.CanResolve = v.(bool)
	case "updated_at":
		// set unconditionally below
	default:
		return fmt.Errorf("storagetest: unmapped column %q", col)
	}
	return nil
}

func strPtr(v interface{}) *string {
	switch t := v.(type) {
	case string:
		return &t
	case *string:
		return t
	}
	panic(fmt.Sprintf("storagetest: unexpected string value %T", v))
}

func timePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	panic(fmt.Sprintf("storagetest: unexpected time value %T", v))
}

func (f *Fake) GetAllGrievances() ([]models.Grievance, error) {
	return f.filter(func(*models.Grievance) bool { return true })
}

func (f *Fake) GetGrievancesByUser(userID string) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool { return g.UserID == userID })
}

func (f *Fake) GetAssignedGrievances(officerID string) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool {
		return g.AssignedTo != nil && *g.AssignedTo == officerID
	})
}

func (f *Fake) GetPendingVerificationGrievances(excludeUserID string) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool {
		return g.Status == models.StatusPendingVerification && g.UserID != excludeUserID
	})
}

func (f *Fake) GetDisputedGrievances(lockThreshold int) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool {
		unhappy := g.UserSatisfaction != nil && *g.UserSatisfaction == models.SatisfactionNotSatisfied
		return unhappy || g.AdminOnly || g.DisputeCount >= lockThreshold
	})
}

func (f *Fake) GetOverdueGrievances(now time.Time) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool {
		return g.DueDate != nil && g.DueDate.Before(now) &&
			(g.Status == models.StatusPending || g.Status == models.StatusInProgress)
	})
}

func (f *Fake) FindPendingPastAcceptBy(now time.Time) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool {
		return g.Status == models.StatusPending && g.AcceptBy != nil && g.AcceptBy.Before(now)
	})
}

func (f *Fake) FindActivePastDue(now time.Time) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool {
		return g.DueDate != nil && g.DueDate.Before(now) &&
			(g.Status == models.StatusPending || g.Status == models.StatusInProgress)
	})
}

func (f *Fake) FindVerificationExpired(now time.Time) ([]models.Grievance, error) {
	return f.filter(func(g *models.Grievance) bool {
		return g.Status == models.StatusPendingVerification &&
			g.VerificationDeadline != nil && g.VerificationDeadline.Before(now)
	})
}

func (f *Fake) filter(keep func(*models.Grievance) bool) ([]models.Grievance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Grievance
	for _, g := range f.Grievances {
		if keep(g) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *Fake) InsertVerification(v *models.Verification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := v.GrievanceID + "/" + v.UserID
	if _, exists := f.Votes[key]; exists {
		return false, nil
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	v.CreatedAt = time.Now()
	f.Votes[key] = v
	return true, nil
}

func (f *Fake) GetVerification(grievanceID, userID string) (*models.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Votes[grievanceID+"/"+userID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *Fake) GetVerificationsByGrievance(grievanceID string) ([]models.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Verification
	for _, v := range f.Votes {
		if v.GrievanceID == grievanceID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *Fake) CreateEscalationHistory(h *models.EscalationHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	h.CreatedAt = time.Now()
	f.History = append(f.History, *h)
	return nil
}

func (f *Fake) GetEscalationHistory(grievanceID string) ([]models.EscalationHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EscalationHistory
	for _, h := range f.History {
		if h.GrievanceID == grievanceID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *Fake) CreateLedgerRecord(r *models.LedgerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now()
	f.Records = append(f.Records, *r)
	return nil
}

func (f *Fake) GetLedgerRecordsByGrievance(grievanceID string) ([]models.LedgerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LedgerRecord
	for _, r := range f.Records {
		if r.GrievanceID == grievanceID {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecordsOfType returns the mirrored ledger rows carrying the given event tag.
func (f *Fake) RecordsOfType(eventType string) []models.LedgerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LedgerRecord
	for _, r := range f.Records {
		if r.EventType == eventType {
			out = append(out, r)
		}
	}
	return out
}

func (f *Fake) CreateUser(u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	f.Users[u.ID] = u
	return nil
}

func (f *Fake) GetUserByID(id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *Fake) GetUserByUsername(username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Fake) UpdateUser(u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Users[u.ID] = u
	return nil
}

func (f *Fake) PublishEvent(ev models.GrievanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, ev)
	return nil
}

func (f *Fake) AcquireSweepLease(ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DenyLease || f.LeaseHeld {
		return false, nil
	}
	f.LeaseHeld = true
	return true, nil
}

func (f *Fake) ReleaseSweepLease() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LeaseHeld = false
	return nil
}
