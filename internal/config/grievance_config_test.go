package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextAuthorityLevel(t *testing.T) {
	cases := []struct {
		current, want string
	}{
		{"panchayat", "block"},
		{"block", "district"},
		{"district", "state"},
		{"state", "state"}, // saturates at the top
		{"", "panchayat"},  // unknown restarts at the bottom
		{"municipality", "panchayat"},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, NextAuthorityLevel(c.current), "from %q", c.current)
	}
}

func TestAdminLockThresholdDefault(t *testing.T) {
	t.Setenv("ADMIN_LOCK_THRESHOLD", "")
	assert.Equal(t, DefaultAdminLockThreshold, AdminLockThreshold())
}

func TestAdminLockThresholdEnvOverride(t *testing.T) {
	t.Setenv("ADMIN_LOCK_THRESHOLD", "5")
	assert.Equal(t, 5, AdminLockThreshold())
}

func TestAdminLockThresholdIgnoresBadValues(t *testing.T) {
	t.Setenv("ADMIN_LOCK_THRESHOLD", "zero")
	assert.Equal(t, DefaultAdminLockThreshold, AdminLockThreshold())

	t.Setenv("ADMIN_LOCK_THRESHOLD", "-3")
	assert.Equal(t, DefaultAdminLockThreshold, AdminLockThreshold())
}

func TestSchedulerIntervalEnvOverride(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL_MS", "1500")
	assert.Equal(t, 1500*time.Millisecond, SchedulerInterval())
}

func TestSchedulerIntervalByEnvironment(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL_MS", "")

	t.Setenv("APP_ENV", "production")
	assert.Equal(t, ProdSchedulerInterval, SchedulerInterval())

	t.Setenv("APP_ENV", "development")
	assert.Equal(t, DevSchedulerInterval, SchedulerInterval())
}
