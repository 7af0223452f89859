package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Vote types and their resulting statuses.
const (
	VoteVerify  = "verify"
	VoteDispute = "dispute"

	VoteStatusVerified = "verified"
	VoteStatusDisputed = "disputed"
)

// Verification is one community vote on a grievance. The composite unique
// index enforces one vote per (grievance, user) pair; the insert path treats
// a conflict as "already voted" rather than an error.
type Verification struct {
	ID          string `gorm:"primaryKey" json:"id"`
	GrievanceID string `gorm:"not null;uniqueIndex:idx_vote_once" json:"grievanceId"`
	UserID      string `gorm:"not null;uniqueIndex:idx_vote_once" json:"userId"`

	VerificationType string         `gorm:"not null" json:"verificationType"` // "verify" or "dispute"
	Status           string         `gorm:"not null" json:"status"`           // "verified" or "disputed"
	Comments         *string        `gorm:"type:text" json:"comments"`
	EvidenceFiles    pq.StringArray `gorm:"type:text[]" json:"evidenceFiles"`

	CreatedAt time.Time `json:"createdAt"`
}

func (v *Verification) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return
}
