package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gramseva/backend/internal/grievance"
	"gramseva/backend/internal/ledger"
	"gramseva/backend/internal/models"
	"gramseva/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecorder struct {
	fail  bool
	calls int
}

func (r *stubRecorder) Record(ctx context.Context, subjectID string, payload []byte) (ledger.Receipt, error) {
	r.calls++
	if r.fail {
		return ledger.Receipt{}, errors.New("rpc unreachable")
	}
	return ledger.Receipt{TxHash: fmt.Sprintf("0xtx%04d", r.calls)}, nil
}

func newTestScheduler() (*Scheduler, *storagetest.Fake, *stubRecorder) {
	st := storagetest.New()
	rec := &stubRecorder{}
	svc := grievance.NewService(st, rec)
	return New(svc, st, time.Minute), st, rec
}

func TestSweepMarksUnacceptedGrievanceOverdue(t *testing.T) {
	sched, st, _ := newTestScheduler()
	acceptBy := time.Now().Add(-time.Hour)
	g := st.SeedGrievance(&models.Grievance{
		Status:                models.StatusPending,
		UserID:                "citizen-1",
		AcceptBy:              &acceptBy,
		CurrentAuthorityLevel: "panchayat",
	})

	sched.Sweep(context.Background())

	after, _ := st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusOverdue, after.Status)
	assert.Equal(t, "block", after.CurrentAuthorityLevel)

	history, _ := st.GetEscalationHistory(g.ID)
	require.Len(t, history, 1, "one sweep must produce exactly one escalation entry")
	assert.True(t, history[0].AutoEscalated)
	assert.Nil(t, history[0].EscalatedBy)
}

func TestSweepMarksPastDueGrievanceOverdue(t *testing.T) {
	sched, st, _ := newTestScheduler()
	dueDate := time.Now().Add(-time.Hour)
	g := st.SeedGrievance(&models.Grievance{
		Status:                models.StatusInProgress,
		UserID:                "citizen-1",
		DueDate:               &dueDate,
		CurrentAuthorityLevel: "block",
	})

	sched.Sweep(context.Background())

	after, _ := st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusOverdue, after.Status)
	assert.Equal(t, "district", after.CurrentAuthorityLevel)
	history, _ := st.GetEscalationHistory(g.ID)
	assert.Len(t, history, 1)
}

func TestSweepLeavesHealthyGrievancesAlone(t *testing.T) {
	sched, st, _ := newTestScheduler()
	acceptBy := time.Now().Add(time.Hour)
	dueDate := time.Now().AddDate(0, 0, 5)
	pending := st.SeedGrievance(&models.Grievance{Status: models.StatusPending, UserID: "c1", AcceptBy: &acceptBy})
	active := st.SeedGrievance(&models.Grievance{Status: models.StatusInProgress, UserID: "c2", DueDate: &dueDate})

	sched.Sweep(context.Background())

	p, _ := st.GetGrievance(pending.ID)
	a, _ := st.GetGrievance(active.ID)
	assert.Equal(t, models.StatusPending, p.Status)
	assert.Equal(t, models.StatusInProgress, a.Status)
}

func TestSweepFinalizesExpiredVerification(t *testing.T) {
	sched, st, _ := newTestScheduler()
	deadline := time.Now().Add(-time.Hour)
	g := st.SeedGrievance(&models.Grievance{
		Status:               models.StatusPendingVerification,
		UserID:               "citizen-1",
		VerificationDeadline: &deadline,
	})

	sched.Sweep(context.Background())

	after, _ := st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusVerified, after.Status)
	require.NotNil(t, after.BlockchainTxHash)
	assert.NotNil(t, after.ResolvedAt)
	require.Len(t, st.RecordsOfType(models.EventGrievanceVerified), 1)
}

func TestSweepRetriesFinalizationAfterLedgerFailure(t *testing.T) {
	sched, st, rec := newTestScheduler()
	deadline := time.Now().Add(-time.Hour)
	g := st.SeedGrievance(&models.Grievance{
		Status:               models.StatusPendingVerification,
		UserID:               "citizen-1",
		VerificationDeadline: &deadline,
	})

	rec.fail = true
	sched.Sweep(context.Background())

	after, _ := st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusPendingVerification, after.Status, "ledger failure must leave the grievance for the next run")
	assert.Nil(t, after.BlockchainTxHash)

	rec.fail = false
	sched.Sweep(context.Background())

	after, _ = st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusVerified, after.Status)
	require.Len(t, st.RecordsOfType(models.EventGrievanceVerified), 1)
}

func TestSweepSkipsWhenAnotherInstanceHoldsLease(t *testing.T) {
	sched, st, _ := newTestScheduler()
	st.DenyLease = true
	acceptBy := time.Now().Add(-time.Hour)
	g := st.SeedGrievance(&models.Grievance{Status: models.StatusPending, UserID: "c1", AcceptBy: &acceptBy})

	sched.Sweep(context.Background())

	after, _ := st.GetGrievance(g.ID)
	assert.Equal(t, models.StatusPending, after.Status)
}

func TestSweepReleasesLease(t *testing.T) {
	sched, st, _ := newTestScheduler()

	sched.Sweep(context.Background())

	assert.False(t, st.LeaseHeld)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sched, _, _ := newTestScheduler()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}
