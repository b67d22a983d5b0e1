// Package schedule keeps the site's named periodic background jobs: a static
// spec list, idempotent registration against the scheduled_tasks table, and a
// polling runner that executes due tasks.
package schedule

import "time"

// TaskSpec defines one named periodic background job. The set of specs is
// fixed in code; registration only creates rows that are missing.
type TaskSpec struct {
	Name      string
	Period    time.Duration
	StartTime time.Time
}

// Task names known to the runner.
const (
	TaskMembershipReminder = "membership-approval-reminder"
	TaskBoardDigest        = "board-weekly-digest"
)

const week = 7 * 24 * time.Hour

// DefaultSpecs returns the site's static task list, with start times
// computed relative to now.
func DefaultSpecs(now time.Time) []TaskSpec {
	return []TaskSpec{
		{
			Name:      TaskMembershipReminder,
			Period:    week,
			StartTime: NextWeeklyStart(now, 1, 1, 0, 0),
		},
		{
			Name:      TaskBoardDigest,
			Period:    week,
			StartTime: NextWeeklyStart(now, 1, 1, 30, 0),
		},
	}
}

// NextWeeklyStart returns the occurrence of the given ISO weekday
// (1=Monday..7=Sunday) and time of day on or after now's date.
//
// Note the "on": when called on the target weekday the formula yields today
// even if the target time of day has already passed, so the returned instant
// can lie in the past. The runner's drift-free advance absorbs this (the
// first due poll runs the task and schedules the next whole period), so the
// literal modulo arithmetic is kept.
func NextWeeklyStart(now time.Time, isoWeekday, hour, minute, second int) time.Time {
	today := int(now.Weekday())
	if today == 0 {
		today = 7 // Go counts Sunday as 0, ISO as 7.
	}

	daysAhead := (isoWeekday - today + 7) % 7

	target := now.AddDate(0, 0, daysAhead)
	return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, second, 0, now.Location())
}

// NextRunAfter computes the next run time following a run at now. With drift
// prevention the result is advanced from the task's scheduled slot by whole
// periods, so a late run does not shift the schedule; without it the period
// simply starts from now.
func NextRunAfter(scheduled time.Time, period time.Duration, preventDrift bool, now time.Time) time.Time {
	if !preventDrift {
		return now.Add(period)
	}

	next := scheduled
	if !next.After(now) {
		steps := now.Sub(next)/period + 1
		next = next.Add(steps * period)
	}
	return next
}
