package domain

import "errors"

var (
	// ErrQuotaExceeded rejects a run that would overshoot a tenant limit.
	// It is never retried: the budget cannot recover before the next period.
	ErrQuotaExceeded = errors.New("tenant quota exceeded")

	// ErrScheduleNotFound is returned when a run references a missing schedule.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrScheduleInactive stops a run whose schedule was deactivated
	// between the tick and the dispatch.
	ErrScheduleInactive = errors.New("schedule is inactive")

	// ErrAgentUnavailable stops a run whose agent is missing or inactive.
	ErrAgentUnavailable = errors.New("agent not found or inactive")

	// ErrTenantNotFound is returned by quota operations on unknown tenants.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrPostNotFound is returned when reading a missing post.
	ErrPostNotFound = errors.New("post not found")
)
