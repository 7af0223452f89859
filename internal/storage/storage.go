package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"gramseva/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is the persistence boundary consumed by the lifecycle engines and
// the scheduler. All grievance mutations go through here; the GORM-backed
// Service is the single source of truth.
type Storage interface {
	CreateGrievance(g *models.Grievance) error
	GetGrievance(id string) (*models.Grievance, error)
	UpdateGrievance(id string, updates map[string]interface{}) (*models.Grievance, error)
	GetAllGrievances() ([]models.Grievance, error)
	GetGrievancesByUser(userID string) ([]models.Grievance, error)
	GetAssignedGrievances(officerID string) ([]models.Grievance, error)
	GetPendingVerificationGrievances(excludeUserID string) ([]models.Grievance, error)
	GetDisputedGrievances(lockThreshold int) ([]models.Grievance, error)
	GetOverdueGrievances(now time.Time) ([]models.Grievance, error)

	// Scheduler candidate sets, one per reconciliation pass.
	FindPendingPastAcceptBy(now time.Time) ([]models.Grievance, error)
	FindActivePastDue(now time.Time) ([]models.Grievance, error)
	FindVerificationExpired(now time.Time) ([]models.Grievance, error)

	// InsertVerification inserts a vote row; a (grievance, user) uniqueness
	// conflict is reported as created == false, never as an error.
	InsertVerification(v *models.Verification) (created bool, err error)
	GetVerification(grievanceID, userID string) (*models.Verification, error)
	GetVerificationsByGrievance(grievanceID string) ([]models.Verification, error)

	CreateEscalationHistory(h *models.EscalationHistory) error
	GetEscalationHistory(grievanceID string) ([]models.EscalationHistory, error)

	CreateLedgerRecord(r *models.LedgerRecord) error
	GetLedgerRecordsByGrievance(grievanceID string) ([]models.LedgerRecord, error)

	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateUser(user *models.User) error

	PublishEvent(ev models.GrievanceEvent) error
	AcquireSweepLease(ttl time.Duration) (bool, error)
	ReleaseSweepLease() error
}

// Service is the PostgreSQL + Redis implementation of Storage.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor. Redis may be nil for tooling that only
// needs the database (the admin CLI).
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// CreateGrievance persists a new grievance row.
func (s *Service) CreateGrievance(g *models.Grievance) error {
	if err := s.DB.Create(g).Error; err != nil {
		log.Printf("ERROR: Failed to create grievance %s: %v", g.GrievanceNumber, err)
		return err
	}
	return nil
}

// GetGrievance returns the grievance or (nil, nil) when it does not exist.
func (s *Service) GetGrievance(id string) (*models.Grievance, error) {
	var g models.Grievance
	err := s.DB.First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGrievance applies the given column updates atomically to a single
// row and returns the refreshed grievance, or (nil, nil) when it is missing.
func (s *Service) UpdateGrievance(id string, updates map[string]interface{}) (*models.Grievance, error) {
	updates["updated_at"] = time.Now()
	res := s.DB.Model(&models.Grievance{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		log.Printf("ERROR: Failed to update grievance %s: %v", id, res.Error)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetGrievance(id)
}

func (s *Service) GetAllGrievances() ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.Order("created_at desc").Find(&list).Error
	return list, err
}

func (s *Service) GetGrievancesByUser(userID string) ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&list).Error
	return list, err
}

func (s *Service) GetAssignedGrievances(officerID string) ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.Where("assigned_to = ?", officerID).Order("created_at desc").Find(&list).Error
	return list, err
}

// GetPendingVerificationGrievances lists grievances awaiting community
// verification, excluding the caller's own submissions when a user id is
// given.
func (s *Service) GetPendingVerificationGrievances(excludeUserID string) ([]models.Grievance, error) {
	q := s.DB.Where("status = ?", models.StatusPendingVerification)
	if excludeUserID != "" {
		q = q.Where("user_id <> ?", excludeUserID)
	}
	var list []models.Grievance
	err := q.Order("resolved_at desc").Find(&list).Error
	return list, err
}

// GetDisputedGrievances returns grievances that need admin attention: an
// explicitly unhappy submitter, an applied admin lock, or a dispute count at
// or past the lock threshold.
func (s *Service) GetDisputedGrievances(lockThreshold int) ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.
		Where("user_satisfaction = ?", models.SatisfactionNotSatisfied).
		Or("admin_only = ?", true).
		Or("dispute_count >= ?", lockThreshold).
		Order("updated_at desc").
		Find(&list).Error
	return list, err
}

func (s *Service) GetOverdueGrievances(now time.Time) ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.
		Where("due_date < ?", now).
		Where("status IN ?", []string{models.StatusPending, models.StatusInProgress}).
		Order("due_date desc").
		Find(&list).Error
	return list, err
}

// FindPendingPastAcceptBy returns pending grievances whose acceptance window
// has elapsed (scheduler pass 1).
func (s *Service) FindPendingPastAcceptBy(now time.Time) ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.
		Where("status = ? AND accept_by < ?", models.StatusPending, now).
		Find(&list).Error
	return list, err
}

// FindActivePastDue returns pending or in-progress grievances whose due date
// has elapsed (scheduler pass 2).
func (s *Service) FindActivePastDue(now time.Time) ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.
		Where("due_date < ?", now).
		Where("status IN ?", []string{models.StatusPending, models.StatusInProgress}).
		Find(&list).Error
	return list, err
}

// FindVerificationExpired returns grievances stuck in pending_verification
// past their verification deadline (scheduler pass 3).
func (s *Service) FindVerificationExpired(now time.Time) ([]models.Grievance, error) {
	var list []models.Grievance
	err := s.DB.
		Where("status = ? AND verification_deadline < ?", models.StatusPendingVerification, now).
		Find(&list).Error
	return list, err
}
