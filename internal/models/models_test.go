package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrievanceBeforeCreateAssignsID(t *testing.T) {
	g := &Grievance{}
	require.NoError(t, g.BeforeCreate(nil))
	assert.NotEmpty(t, g.ID)

	other := &Grievance{}
	require.NoError(t, other.BeforeCreate(nil))
	assert.NotEqual(t, g.ID, other.ID)
}

func TestBeforeCreateKeepsExistingID(t *testing.T) {
	g := &Grievance{ID: "fixed-id"}
	require.NoError(t, g.BeforeCreate(nil))
	assert.Equal(t, "fixed-id", g.ID)

	u := &User{ID: "user-id"}
	require.NoError(t, u.BeforeCreate(nil))
	assert.Equal(t, "user-id", u.ID)
}

func TestChildModelsAssignIDs(t *testing.T) {
	v := &Verification{}
	require.NoError(t, v.BeforeCreate(nil))
	assert.NotEmpty(t, v.ID)

	h := &EscalationHistory{}
	require.NoError(t, h.BeforeCreate(nil))
	assert.NotEmpty(t, h.ID)

	r := &LedgerRecord{}
	require.NoError(t, r.BeforeCreate(nil))
	assert.NotEmpty(t, r.ID)
}
