package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event type tags mirrored to the ledger on every committed transition.
const (
	EventGrievanceSubmitted    = "GRIEVANCE_SUBMITTED"
	EventTaskAccepted          = "TASK_ACCEPTED"
	EventStatusUpdated         = "STATUS_UPDATED"
	EventOwnerVerification     = "OWNER_VERIFICATION"
	EventCommunityVerification = "COMMUNITY_VERIFICATION"
	EventGrievanceVerified     = "GRIEVANCE_VERIFIED"
	EventGrievanceEscalated    = "GRIEVANCE_ESCALATED"
	EventLockedForAdmin        = "LOCKED_FOR_ADMIN"
	EventUserSatisfaction      = "USER_SATISFACTION"
)

// LedgerRecord is the local mirror of one event recorded on the external
// ledger. Append-only: created on every committed transition, read-only
// afterward.
type LedgerRecord struct {
	ID          string `gorm:"primaryKey" json:"id"`
	GrievanceID string `gorm:"not null;index" json:"grievanceId"`

	// TransactionHash is the externally assigned transaction identifier.
	TransactionHash string  `gorm:"uniqueIndex;not null" json:"transactionHash"`
	BlockNumber     *string `json:"blockNumber"`

	EventType string `gorm:"not null" json:"eventType"`
	// EventData holds the serialized event payload (JSON).
	EventData string `gorm:"type:text" json:"eventData"`

	CreatedAt time.Time `json:"createdAt"`
}

func (r *LedgerRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
