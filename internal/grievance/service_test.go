package grievance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gramseva/backend/internal/config"
	"gramseva/backend/internal/ledger"
	"gramseva/backend/internal/models"
	"gramseva/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecorder is a controllable ledger recorder. Every successful call
// returns a unique hash so tests can tell records apart.
type fakeRecorder struct {
	mu       sync.Mutex
	fail     bool
	calls    int
	subjects []string
}

func (f *fakeRecorder) Record(ctx context.Context, subjectID string, payload []byte) (ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return ledger.Receipt{}, errors.New("rpc unreachable")
	}
	f.subjects = append(f.subjects, subjectID)
	block := fmt.Sprintf("%d", f.calls)
	return ledger.Receipt{TxHash: fmt.Sprintf("0xtx%04d", f.calls), BlockNumber: &block}, nil
}

func newTestService() (*Service, *storagetest.Fake, *fakeRecorder) {
	st := storagetest.New()
	rec := &fakeRecorder{}
	return NewService(st, rec), st, rec
}

func seedCitizen(st *storagetest.Fake) *models.User {
	return st.SeedUser(&models.User{Username: "asha", FullName: "Asha Devi", Role: models.RoleCitizen})
}

func TestSubmitCreatesPendingGrievance(t *testing.T) {
	svc, st, _ := newTestService()
	user := seedCitizen(st)

	before := time.Now()
	g, err := svc.Submit(context.Background(), SubmitInput{
		Title:       "Hand pump broken",
		Description: "The only hand pump in ward 3 has been broken for a week",
		Category:    "water_supply",
		VillageName: "Rampur",
	}, user.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, g.Status)
	assert.Equal(t, "high", g.Priority, "water_supply should default to high priority")
	assert.Equal(t, config.AuthorityLevels[0], g.CurrentAuthorityLevel)
	assert.True(t, g.CanResolve)
	assert.True(t, strings.HasPrefix(g.GrievanceNumber, "GR"))

	require.NotNil(t, g.AcceptBy)
	assert.WithinDuration(t, before.Add(config.AcceptWindow), *g.AcceptBy, 2*time.Second)

	records := st.RecordsOfType(models.EventGrievanceSubmitted)
	require.Len(t, records, 1)
	assert.Equal(t, g.ID, records[0].GrievanceID)
}

func TestSubmitUnknownUser(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), SubmitInput{
		Title:       "x",
		Description: "y",
		Category:    "roads",
	}, "no-such-user")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAcceptComputesDeadlines(t *testing.T) {
	svc, st, _ := newTestService()
	acceptBy := time.Now().Add(time.Hour)
	g := st.SeedGrievance(&models.Grievance{
		Status:   models.StatusPending,
		UserID:   "citizen-1",
		AcceptBy: &acceptBy,
	})

	before := time.Now()
	updated, err := svc.Accept(context.Background(), g.ID, "officer-1", 7)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "officer-1", *updated.AssignedTo)
	assert.Equal(t, 7, updated.ResolutionTimeline)

	require.NotNil(t, updated.DueDate)
	require.NotNil(t, updated.VerificationDeadline)
	assert.WithinDuration(t, before.AddDate(0, 0, 7), *updated.DueDate, 2*time.Second)
	assert.Equal(t, updated.DueDate.Add(config.VerificationGrace), *updated.VerificationDeadline)

	require.Len(t, st.RecordsOfType(models.EventTaskAccepted), 1)
}

func TestAcceptRejectsTimelineOutOfBounds(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusPending, UserID: "citizen-1"})

	_, err := svc.Accept(context.Background(), g.ID, "officer-1", 0)
	assert.ErrorIs(t, err, ErrInvalidTimeline)

	_, err = svc.Accept(context.Background(), g.ID, "officer-1", 31)
	assert.ErrorIs(t, err, ErrInvalidTimeline)
}

func TestAcceptAfterWindowExpired(t *testing.T) {
	svc, st, _ := newTestService()
	acceptBy := time.Now().Add(-time.Minute)
	g := st.SeedGrievance(&models.Grievance{
		Status:   models.StatusPending,
		UserID:   "citizen-1",
		AcceptBy: &acceptBy,
	})

	_, err := svc.Accept(context.Background(), g.ID, "officer-1", 7)
	assert.ErrorIs(t, err, ErrWindowExpired)
}

func TestAcceptRejectsLockedGrievance(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{
		Status:    models.StatusAdminReview,
		UserID:    "citizen-1",
		AdminOnly: true,
	})

	_, err := svc.Accept(context.Background(), g.ID, "officer-1", 7)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAcceptRejectsNonPending(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusInProgress, UserID: "citizen-1"})

	_, err := svc.Accept(context.Background(), g.ID, "officer-1", 7)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResolveMovesToPendingVerification(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusInProgress, UserID: "citizen-1"})

	before := time.Now()
	updated, err := svc.Resolve(context.Background(), g.ID, "Pump repaired, parts replaced", []string{"photo1.jpg"},
		Actor{ID: "officer-1", Role: models.RoleOfficial})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingVerification, updated.Status)
	require.NotNil(t, updated.ResolutionNotes)
	assert.Equal(t, "Pump repaired, parts replaced", *updated.ResolutionNotes)
	require.NotNil(t, updated.ResolvedAt)

	// No due date was ever set, so the verification clock starts now.
	require.NotNil(t, updated.VerificationDeadline)
	assert.WithinDuration(t, before.AddDate(0, 0, config.VerificationWindowDays), *updated.VerificationDeadline, 2*time.Second)
}

func TestUserSatisfactionCloses(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusPendingVerification, UserID: "citizen-1"})

	updated, err := svc.SubmitUserSatisfaction(context.Background(), g.ID, true)
	require.NoError(t, err)

	assert.Equal(t, models.StatusVerified, updated.Status)
	require.NotNil(t, updated.UserSatisfaction)
	assert.Equal(t, models.SatisfactionSatisfied, *updated.UserSatisfaction)
	assert.NotNil(t, updated.ResolvedAt)
	require.Len(t, st.RecordsOfType(models.EventUserSatisfaction), 1)
}

func TestUserSatisfactionReopens(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusPendingVerification, UserID: "citizen-1"})

	updated, err := svc.SubmitUserSatisfaction(context.Background(), g.ID, false)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.UserSatisfaction)
	assert.Equal(t, models.SatisfactionNotSatisfied, *updated.UserSatisfaction)
	assert.Nil(t, updated.ResolvedAt)
}

func TestUserSatisfactionRejectedWhileLocked(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{
		Status:    models.StatusAdminReview,
		UserID:    "citizen-1",
		AdminOnly: true,
	})

	_, err := svc.SubmitUserSatisfaction(context.Background(), g.ID, true)
	assert.ErrorIs(t, err, ErrLocked)

	after, _ := st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusAdminReview, after.Status)
	assert.True(t, after.AdminOnly)
	assert.Nil(t, after.UserSatisfaction)
	assert.Empty(t, st.RecordsOfType(models.EventUserSatisfaction))
}

func TestAdminManualVerifyUnlocks(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{
		Status:    models.StatusAdminReview,
		UserID:    "citizen-1",
		AdminOnly: true,
	})

	updated, err := svc.AdminManualVerify(context.Background(), g.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusVerified, updated.Status)
	assert.False(t, updated.AdminOnly, "manual verification must clear the admin lock")
	assert.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.BlockchainTxHash)
	require.Len(t, st.RecordsOfType(models.EventGrievanceVerified), 1)
}

func TestAdminManualVerifyLedgerFailureLeavesGrievanceUntouched(t *testing.T) {
	svc, st, rec := newTestService()
	rec.fail = true
	g := st.SeedGrievance(&models.Grievance{
		Status:    models.StatusAdminReview,
		UserID:    "citizen-1",
		AdminOnly: true,
	})

	_, err := svc.AdminManualVerify(context.Background(), g.ID)
	assert.ErrorIs(t, err, ErrLedger)

	after, _ := st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusAdminReview, after.Status)
	assert.True(t, after.AdminOnly)
	assert.Nil(t, after.BlockchainTxHash)
}

func TestAdminManualVerifyInvalidState(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusPending, UserID: "citizen-1"})

	_, err := svc.AdminManualVerify(context.Background(), g.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFinalizeVerificationRequiresPendingVerification(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusInProgress, UserID: "citizen-1"})

	_, err := svc.FinalizeVerification(context.Background(), g.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFinalizeVerificationSetsTxHash(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusPendingVerification, UserID: "citizen-1"})

	updated, err := svc.FinalizeVerification(context.Background(), g.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusVerified, updated.Status)
	require.NotNil(t, updated.BlockchainTxHash)
	assert.NotNil(t, updated.ResolvedAt)
}

func TestGetDetailAggregatesChildren(t *testing.T) {
	svc, st, _ := newTestService()
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusPendingVerification, UserID: "citizen-1"})

	_, err := svc.CastVote(context.Background(), g.ID, "neighbor-1", models.VoteVerify, nil)
	require.NoError(t, err)

	detail, err := svc.GetDetail(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, detail.Grievance.ID)
	assert.Len(t, detail.Verifications, 1)
	assert.NotEmpty(t, detail.LedgerRecords)
}

func TestGetDetailNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.GetDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
