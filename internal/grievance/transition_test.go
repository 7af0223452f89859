package grievance

import (
	"context"
	"testing"
	"time"

	"gramseva/backend/internal/config"
	"gramseva/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.StatusPending, models.StatusInProgress, true},
		{models.StatusPending, models.StatusOverdue, true},
		{models.StatusPending, models.StatusVerified, false},
		{models.StatusPending, models.StatusPendingVerification, false},
		{models.StatusInProgress, models.StatusPendingVerification, true},
		{models.StatusInProgress, models.StatusVerified, true},
		{models.StatusInProgress, models.StatusPending, false},
		{models.StatusPendingVerification, models.StatusVerified, true},
		{models.StatusPendingVerification, models.StatusInProgress, true},
		{models.StatusPendingVerification, models.StatusOverdue, false},
		{models.StatusOverdue, models.StatusInProgress, true},
		{models.StatusOverdue, models.StatusVerified, true},
		{models.StatusOverdue, models.StatusPending, false},
		{models.StatusAdminReview, models.StatusVerified, true},
		{models.StatusAdminReview, models.StatusInProgress, false},
		{models.StatusVerified, models.StatusInProgress, false},
		{models.StatusVerified, models.StatusAdminReview, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusVerified, UserID: "citizen-1"})

	_, err := svc.UpdateStatus(context.Background(), g.ID, models.StatusInProgress,
		Actor{ID: "officer-1", Role: models.RoleOfficial}, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusHonorsAdminLock(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{
		Status:    models.StatusAdminReview,
		UserID:    "citizen-1",
		AdminOnly: true,
	})

	_, err := svc.UpdateStatus(context.Background(), g.ID, models.StatusVerified,
		Actor{ID: "officer-1", Role: models.RoleOfficial}, nil)
	assert.ErrorIs(t, err, ErrLocked)

	// Administrators pass through the lock, and leaving admin review
	// releases it.
	updated, err := svc.UpdateStatus(context.Background(), g.ID, models.StatusVerified,
		Actor{ID: "admin-1", Role: models.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, updated.Status)
	assert.False(t, updated.AdminOnly)
}

func TestUpdateStatusSystemActorBypassesLock(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{
		Status:    models.StatusAdminReview,
		UserID:    "citizen-1",
		AdminOnly: true,
	})

	_, err := svc.UpdateStatus(context.Background(), g.ID, models.StatusVerified, Actor{System: true}, nil)
	assert.NoError(t, err)
}

func TestUpdateStatusStartsVerificationClock(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusInProgress, UserID: "citizen-1"})

	before := time.Now()
	updated, err := svc.UpdateStatus(context.Background(), g.ID, models.StatusPendingVerification,
		Actor{ID: "officer-1", Role: models.RoleOfficial}, nil)
	require.NoError(t, err)

	require.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.VerificationDeadline)
	assert.WithinDuration(t, before.AddDate(0, 0, config.VerificationWindowDays), *updated.VerificationDeadline, 2*time.Second)
	require.Len(t, st.RecordsOfType(models.EventStatusUpdated), 1)
}

func TestUpdateStatusKeepsExistingVerificationDeadline(t *testing.T) {
	svc, st, _ := newTestService()
	deadline := time.Now().AddDate(0, 0, 10)
	g := st.SeedGrievance(&models.Grievance{
		Status:               models.StatusInProgress,
		UserID:               "citizen-1",
		VerificationDeadline: &deadline,
	})

	updated, err := svc.UpdateStatus(context.Background(), g.ID, models.StatusPendingVerification,
		Actor{ID: "officer-1", Role: models.RoleOfficial}, nil)
	require.NoError(t, err)

	require.NotNil(t, updated.VerificationDeadline)
	assert.Equal(t, deadline, *updated.VerificationDeadline)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.UpdateStatus(context.Background(), "missing", models.StatusInProgress, Actor{System: true}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
