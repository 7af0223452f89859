package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EscalationHistory is an append-only audit entry written once per escalation
// event. Rows are never mutated after creation.
type EscalationHistory struct {
	ID          string `gorm:"primaryKey" json:"id"`
	GrievanceID string `gorm:"not null;index" json:"grievanceId"`

	FromLevel string `gorm:"not null" json:"fromLevel"`
	ToLevel   string `gorm:"not null" json:"toLevel"`
	Reason    string `gorm:"type:text;not null" json:"reason"`

	// EscalatedBy is the officer who triggered the escalation; nil means the
	// reconciliation scheduler escalated automatically.
	EscalatedBy   *string `json:"escalatedBy"`
	AutoEscalated bool    `json:"autoEscalated"`

	CreatedAt time.Time `json:"createdAt"`
}

func (e *EscalationHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}
