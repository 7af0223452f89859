package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Lifecycle statuses a grievance moves through.
const (
	StatusPending             = "pending"
	StatusInProgress          = "in_progress"
	StatusPendingVerification = "pending_verification"
	StatusVerified            = "verified"
	StatusOverdue             = "overdue"
	StatusAdminReview         = "admin_review"
)

// Submitter satisfaction values.
const (
	SatisfactionSatisfied    = "satisfied"
	SatisfactionNotSatisfied = "not_satisfied"
)

// Grievance is the central entity: a citizen-submitted issue tracked through
// submission, acceptance, resolution, verification and escalation.
type Grievance struct {
	ID string `gorm:"primaryKey" json:"id"`
	// GrievanceNumber is the human-readable sequence number shown to citizens,
	// e.g. "GR202600042". Generated once at creation.
	GrievanceNumber string `gorm:"uniqueIndex;not null" json:"grievanceNumber"`

	Title       string `gorm:"type:text;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	Category    string `gorm:"not null" json:"category"`
	VillageName string `json:"villageName"`
	Priority    string `gorm:"default:medium" json:"priority"`

	Status string `gorm:"not null;index" json:"status"`

	// UserID is the submitting citizen; AssignedTo is the officer who accepted
	// the grievance (nil until acceptance).
	UserID     string  `gorm:"not null;index" json:"userId"`
	AssignedTo *string `gorm:"index" json:"assignedTo"`

	EvidenceFiles pq.StringArray `gorm:"type:text[]" json:"evidenceFiles"`

	// Deadlines. AcceptBy gates officer acceptance, DueDate gates resolution,
	// VerificationDeadline triggers auto-finalization, EscalationDueDate is
	// set when the grievance moves up the authority ladder.
	AcceptBy             *time.Time `json:"acceptBy"`
	DueDate              *time.Time `gorm:"index" json:"dueDate"`
	VerificationDeadline *time.Time `json:"verificationDeadline"`
	EscalationDueDate    *time.Time `json:"escalationDueDate"`
	ResolutionTimeline   int        `json:"resolutionTimeline"`

	CurrentAuthorityLevel string     `gorm:"default:panchayat" json:"currentAuthorityLevel"`
	EscalationCount       int        `json:"escalationCount"`
	EscalationReason      *string    `json:"escalationReason"`
	IsEscalated           bool       `json:"isEscalated"`
	EscalatedAt           *time.Time `json:"escalatedAt"`
	CanResolve            bool       `gorm:"default:true" json:"canResolve"`

	// Community counters are informational; DisputeCount is the global
	// counter that drives the admin lock.
	CommunityVerifyCount  int  `json:"communityVerifyCount"`
	CommunityDisputeCount int  `json:"communityDisputeCount"`
	DisputeCount          int  `json:"disputeCount"`
	AdminOnly             bool `json:"adminOnly"`

	ResolutionNotes    *string        `gorm:"type:text" json:"resolutionNotes"`
	ResolutionEvidence pq.StringArray `gorm:"type:text[]" json:"resolutionEvidence"`
	ResolvedAt         *time.Time     `json:"resolvedAt"`
	UserSatisfaction   *string        `json:"userSatisfaction"`
	UserSatisfactionAt *time.Time     `json:"userSatisfactionAt"`
	// BlockchainTxHash mirrors the transaction hash of the last ledger record
	// written for this grievance.
	BlockchainTxHash *string `json:"blockchainTxHash"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate generates a UUID primary key when the caller did not set one.
func (g *Grievance) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return
}
