package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// Deadlines
	AcceptWindow      = 24 * time.Hour     // officer must accept within this
	VerificationGrace = 3 * 24 * time.Hour // added to dueDate for community verification
	EscalationWindow  = 10 * 24 * time.Hour

	// Resolution timeline bounds (days) an officer may commit to.
	MinResolutionTimelineDays = 1
	MaxResolutionTimelineDays = 30

	// Community verification
	CommunityVerifyThreshold  = 3
	DefaultAdminLockThreshold = 2
	MinEscalationReasonLength = 100
	VerificationWindowDays    = 7 // verification window when resolving without a prior due date

	// Scheduler
	DevSchedulerInterval  = time.Minute
	ProdSchedulerInterval = 24 * time.Hour
)

// AuthorityLevels is the ordered escalation ladder. A grievance only ever
// moves forward and saturates at the last entry.
var AuthorityLevels = []string{"panchayat", "block", "district", "state"}

// DefaultPriorities maps grievance categories to a default priority.
var DefaultPriorities = map[string]string{
	"water_supply":   "high",
	"electricity":    "high",
	"roads":          "medium",
	"sanitation":     "medium",
	"land_records":   "medium",
	"welfare_scheme": "low",
	"other":          "low",
}

// NextAuthorityLevel returns the ladder entry one step past the given level,
// saturating at the top. Unknown levels restart at the bottom of the ladder.
func NextAuthorityLevel(current string) string {
	for i, level := range AuthorityLevels {
		if level == current {
			if i == len(AuthorityLevels)-1 {
				return level
			}
			return AuthorityLevels[i+1]
		}
	}
	return AuthorityLevels[0]
}

// AdminLockThreshold reads the dispute threshold that locks a grievance for
// admin review. Env override allowed, matching the deployment knob.
func AdminLockThreshold() int {
	if v := os.Getenv("ADMIN_LOCK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultAdminLockThreshold
}

// SchedulerInterval returns the reconciliation sweep interval: an explicit
// SCHEDULER_INTERVAL_MS wins, otherwise daily in production and every minute
// in development.
func SchedulerInterval() time.Duration {
	if v := os.Getenv("SCHEDULER_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if os.Getenv("APP_ENV") == "production" {
		return ProdSchedulerInterval
	}
	return DevSchedulerInterval
}
