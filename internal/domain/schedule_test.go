package domain

import (
	"testing"
	"time"
)

func TestCronExpression(t *testing.T) {
	t.Parallel()

	cases := []struct {
		interval Interval
		hour     int
		want     string
	}{
		{IntervalDaily, 6, "0 6 * * *"},
		{IntervalEvery3Days, 12, "0 12 */3 * *"},
		{IntervalWeekly, 9, "0 9 * * 1"},
		{IntervalBiweekly, 8, "0 8 1,15 * *"},
		{Interval("unknown"), 9, "0 9 * * 1"},
	}

	for _, tc := range cases {
		schedule := ScheduleConfig{Interval: tc.interval, PublishHour: tc.hour}
		if got := schedule.CronExpression(); got != tc.want {
			t.Fatalf("%s/%d: expected %q, got %q", tc.interval, tc.hour, tc.want, got)
		}
	}
}

func TestNextRunStrictlyAfter(t *testing.T) {
	t.Parallel()

	schedule := ScheduleConfig{Interval: IntervalWeekly, PublishHour: 9}

	// Monday 09:00 exactly: the next run must be the following Monday,
	// not the same instant.
	monday := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	next, err := schedule.NextRun(monday)
	if err != nil {
		t.Fatalf("NextRun error: %v", err)
	}

	want := monday.AddDate(0, 0, 7)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRunDaily(t *testing.T) {
	t.Parallel()

	schedule := ScheduleConfig{Interval: IntervalDaily, PublishHour: 6}

	from := time.Date(2026, time.August, 17, 7, 30, 0, 0, time.UTC)
	next, err := schedule.NextRun(from)
	if err != nil {
		t.Fatalf("NextRun error: %v", err)
	}

	want := time.Date(2026, time.August, 18, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestSetActive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 17, 12, 0, 0, 0, time.UTC)
	schedule := ScheduleConfig{Interval: IntervalDaily, PublishHour: 9, IsActive: true}
	next := now.Add(time.Hour)
	schedule.NextRunAt = &next

	if err := schedule.SetActive(false, now); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if schedule.NextRunAt != nil {
		t.Fatalf("expected cleared NextRunAt, got %v", schedule.NextRunAt)
	}

	if err := schedule.SetActive(true, now); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if schedule.NextRunAt == nil {
		t.Fatal("expected NextRunAt after activation")
	}
	if !schedule.NextRunAt.After(now) {
		t.Fatalf("expected NextRunAt strictly after %v, got %v", now, *schedule.NextRunAt)
	}
}

func TestIsDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 17, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name     string
		schedule ScheduleConfig
		want     bool
	}{
		{"due", ScheduleConfig{IsActive: true, NextRunAt: &past}, true},
		{"exactly now", ScheduleConfig{IsActive: true, NextRunAt: &now}, true},
		{"not yet", ScheduleConfig{IsActive: true, NextRunAt: &future}, false},
		{"inactive", ScheduleConfig{IsActive: false, NextRunAt: &past}, false},
		{"never scheduled", ScheduleConfig{IsActive: true}, false},
	}

	for _, tc := range cases {
		if got := tc.schedule.IsDue(now); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
