package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Interval enumerates the supported publication cadences.
type Interval string

const (
	IntervalDaily      Interval = "daily"
	IntervalEvery3Days Interval = "every_3_days"
	IntervalWeekly     Interval = "weekly"
	IntervalBiweekly   Interval = "biweekly"
)

// PostLength enumerates the target length classes for generated posts.
type PostLength string

const (
	LengthShort    PostLength = "short"
	LengthMedium   PostLength = "medium"
	LengthLong     PostLength = "long"
	LengthVeryLong PostLength = "very_long"
)

// ScheduleConfig drives one agent's automated content production.
type ScheduleConfig struct {
	ID      uuid.UUID
	AgentID uuid.UUID

	Interval    Interval
	PublishHour int    // 0-23, UTC
	Timezone    string // display only, the cron runs in UTC
	IsActive    bool

	AutoPublish     bool
	TargetKeywords  []string
	ExcludeKeywords []string
	PostLength      PostLength

	LastRunAt *time.Time
	NextRunAt *time.Time

	TotalPostsGenerated int
	SuccessfulPosts     int
	FailedPosts         int

	CreatedAt time.Time
	UpdatedAt time.Time
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// CronExpression maps the interval and publish hour to a five-field cron
// string. Unknown intervals fall back to the weekly template.
func (s ScheduleConfig) CronExpression() string {
	switch s.Interval {
	case IntervalDaily:
		return fmt.Sprintf("0 %d * * *", s.PublishHour)
	case IntervalEvery3Days:
		return fmt.Sprintf("0 %d */3 * *", s.PublishHour)
	case IntervalBiweekly:
		return fmt.Sprintf("0 %d 1,15 * *", s.PublishHour)
	case IntervalWeekly:
		return fmt.Sprintf("0 %d * * 1", s.PublishHour)
	default:
		return fmt.Sprintf("0 %d * * 1", s.PublishHour)
	}
}

// NextRun computes the next fire time strictly after the given instant.
func (s ScheduleConfig) NextRun(from time.Time) (time.Time, error) {
	spec, err := cronParser.Parse(s.CronExpression())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron %q: %w", s.CronExpression(), err)
	}
	return spec.Next(from.UTC()), nil
}

// IsDue reports whether the schedule should trigger a run at the given time.
func (s ScheduleConfig) IsDue(now time.Time) bool {
	return s.IsActive && s.NextRunAt != nil && !s.NextRunAt.After(now)
}

// SetActive toggles the schedule and keeps NextRunAt consistent:
// deactivation clears it, activation recomputes it from now.
func (s *ScheduleConfig) SetActive(active bool, now time.Time) error {
	s.IsActive = active
	if !active {
		s.NextRunAt = nil
		return nil
	}
	next, err := s.NextRun(now)
	if err != nil {
		return err
	}
	s.NextRunAt = &next
	return nil
}
