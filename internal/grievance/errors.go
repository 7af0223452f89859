package grievance

import "errors"

// Typed errors returned by the lifecycle service. Handlers map these to HTTP
// codes; callers can distinguish "fix your input" failures from transient
// downstream ones (ErrLedger).
var (
	ErrNotFound          = errors.New("grievance not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrWindowExpired     = errors.New("acceptance window has expired")
	ErrReasonTooShort    = errors.New("reason must be at least 100 characters")
	ErrLocked            = errors.New("grievance is locked for admin review")
	ErrInvalidState      = errors.New("grievance is not awaiting verification or admin review")
	ErrInvalidVoteType   = errors.New("vote type must be verify or dispute")
	ErrInvalidTimeline   = errors.New("resolution timeline must be between 1 and 30 days")
	ErrLedger            = errors.New("ledger confirmation failed")
)
