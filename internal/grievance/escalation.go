package grievance

import (
	"context"
	"time"
	"unicode/utf8"

	"gramseva/backend/internal/config"
	"gramseva/backend/internal/models"
)

// Escalate moves a grievance one step up the authority ladder on behalf of
// an officer. The justification must carry at least 100 characters, counted
// as runes so non-Latin scripts are not shortchanged.
func (s *Service) Escalate(ctx context.Context, id, reason string, officerID string) (*models.Grievance, error) {
	if utf8.RuneCountInString(reason) < config.MinEscalationReasonLength {
		return nil, ErrReasonTooShort
	}
	return s.escalate(ctx, id, reason, &officerID)
}

// AutoEscalate is the scheduler's path: it supplies its own fixed reason and
// is exempt from the minimum-length rule.
func (s *Service) AutoEscalate(ctx context.Context, id, reason string) (*models.Grievance, error) {
	return s.escalate(ctx, id, reason, nil)
}

// CannotResolve marks a grievance as beyond the officer's authority and
// escalates it with the same justification.
func (s *Service) CannotResolve(ctx context.Context, id, reason, officerID string) (*models.Grievance, error) {
	if utf8.RuneCountInString(reason) < config.MinEscalationReasonLength {
		return nil, ErrReasonTooShort
	}

	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}

	if _, err := s.Storage.UpdateGrievance(id, map[string]interface{}{
		"can_resolve":       false,
		"escalation_reason": reason,
	}); err != nil {
		return nil, err
	}

	return s.escalate(ctx, id, reason, &officerID)
}

func (s *Service) escalate(ctx context.Context, id, reason string, escalatedBy *string) (*models.Grievance, error) {
	g, err := s.Storage.GetGrievance(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}

	fromLevel := g.CurrentAuthorityLevel
	toLevel := config.NextAuthorityLevel(fromLevel)
	now := time.Now()

	updated, err := s.Storage.UpdateGrievance(id, map[string]interface{}{
		"current_authority_level": toLevel,
		"escalation_count":        g.EscalationCount + 1,
		"escalation_reason":       reason,
		"escalation_due_date":     now.Add(config.EscalationWindow),
		"is_escalated":            true,
		"escalated_at":            now,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	if err := s.Storage.CreateEscalationHistory(&models.EscalationHistory{
		GrievanceID:   id,
		FromLevel:     fromLevel,
		ToLevel:       toLevel,
		Reason:        reason,
		EscalatedBy:   escalatedBy,
		AutoEscalated: escalatedBy == nil,
	}); err != nil {
		return nil, err
	}

	s.recordEventAbsorbed(ctx, updated, models.EventGrievanceEscalated, map[string]interface{}{
		"fromLevel":     fromLevel,
		"toLevel":       toLevel,
		"reason":        reason,
		"autoEscalated": escalatedBy == nil,
	})

	return updated, nil
}
