package storage

import (
	"log"

	"gramseva/backend/internal/models"

	"gorm.io/gorm/clause"
)

// InsertVerification stores a vote row. The (grievance_id, user_id) unique
// index plus ON CONFLICT DO NOTHING makes a duplicate submission idempotent:
// the caller gets created == false and must re-fetch the existing row.
func (s *Service) InsertVerification(v *models.Verification) (bool, error) {
	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "grievance_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(v)
	if res.Error != nil {
		log.Printf("ERROR: Failed to insert verification for grievance %s: %v", v.GrievanceID, res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetVerification returns the vote a user cast on a grievance, or (nil, nil)
// when the user has not voted.
func (s *Service) GetVerification(grievanceID, userID string) (*models.Verification, error) {
	var v models.Verification
	err := s.DB.Where("grievance_id = ? AND user_id = ?", grievanceID, userID).First(&v).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (s *Service) GetVerificationsByGrievance(grievanceID string) ([]models.Verification, error) {
	var list []models.Verification
	err := s.DB.Where("grievance_id = ?", grievanceID).Order("created_at desc").Find(&list).Error
	return list, err
}

// CreateEscalationHistory appends one audit entry. Entries are never updated.
func (s *Service) CreateEscalationHistory(h *models.EscalationHistory) error {
	if err := s.DB.Create(h).Error; err != nil {
		log.Printf("ERROR: Failed to append escalation history for grievance %s: %v", h.GrievanceID, err)
		return err
	}
	return nil
}

func (s *Service) GetEscalationHistory(grievanceID string) ([]models.EscalationHistory, error) {
	var list []models.EscalationHistory
	err := s.DB.Where("grievance_id = ?", grievanceID).Order("created_at desc").Find(&list).Error
	return list, err
}

// CreateLedgerRecord appends the local mirror row for a ledger event.
func (s *Service) CreateLedgerRecord(r *models.LedgerRecord) error {
	if err := s.DB.Create(r).Error; err != nil {
		log.Printf("ERROR: Failed to create ledger record %s for grievance %s: %v", r.TransactionHash, r.GrievanceID, err)
		return err
	}
	return nil
}

func (s *Service) GetLedgerRecordsByGrievance(grievanceID string) ([]models.LedgerRecord, error) {
	var list []models.LedgerRecord
	err := s.DB.Where("grievance_id = ?", grievanceID).Order("created_at desc").Find(&list).Error
	return list, err
}
