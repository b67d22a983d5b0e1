package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/models"
	"github.com/meridianlab/fieldstation/internal/testutil"
)

func insertDueTask(t *testing.T, pool db.Pool, name string, now time.Time) *models.ScheduledTask {
	t.Helper()

	task := &models.ScheduledTask{
		Name:         name,
		Period:       int64(week / time.Second),
		StartTime:    now.Add(-time.Hour),
		NextRunTime:  now.Add(-time.Hour),
		Repeats:      0,
		PreventDrift: true,
		Enabled:      true,
	}
	if err := db.InsertTask(context.Background(), pool, task); err != nil {
		t.Fatalf("Failed to insert task: %v", err)
	}
	return task
}

func TestRunDueMembershipReminder(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	adminID, err := db.GetOrCreateUser(ctx, pool, "admin@fieldstation.example")
	require.NoError(t, err)
	require.NoError(t, db.SetUserRole(ctx, pool, adminID, models.RoleAdmin))

	applicantID, err := db.GetOrCreateUser(ctx, pool, "applicant@fieldstation.example")
	require.NoError(t, err)
	_, err = db.CreateMembershipRequest(ctx, pool, applicantID, "glacier-survey")
	require.NoError(t, err)

	insertDueTask(t, pool, TaskMembershipReminder, now)

	mailer := &testutil.FakeMailer{}
	runner := NewRunner(pool, mail.NewService(pool, mailer), "fallback@fieldstation.example", time.Second)

	require.NoError(t, runner.RunDue(ctx, now))

	attempts := mailer.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, mail.TemplateMembershipReminder, attempts[0].Template)
	assert.Equal(t, []string{"admin@fieldstation.example"}, attempts[0].To)
	assert.Equal(t, "1", attempts[0].Data["PendingCount"])

	task, err := db.GetTaskByName(ctx, pool, TaskMembershipReminder)
	require.NoError(t, err)
	assert.EqualValues(t, 1, task.TimesRun)
	assert.EqualValues(t, 0, task.TimesFailed)
	assert.True(t, task.NextRunTime.After(now))
	require.NotNil(t, task.LastRunAt)
}

func TestRunDueReminderSkipsWhenNothingPending(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertDueTask(t, pool, TaskMembershipReminder, now)

	mailer := &testutil.FakeMailer{}
	runner := NewRunner(pool, mail.NewService(pool, mailer), "fallback@fieldstation.example", time.Second)

	require.NoError(t, runner.RunDue(ctx, now))

	// Nothing pending, nothing sent, but the run is still counted and the
	// schedule advances.
	assert.Empty(t, mailer.Attempts())

	task, err := db.GetTaskByName(ctx, pool, TaskMembershipReminder)
	require.NoError(t, err)
	assert.EqualValues(t, 1, task.TimesRun)
	assert.True(t, task.NextRunTime.After(now))
}

func TestRunDueBoardDigest(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ownerID, err := db.GetOrCreateUser(ctx, pool, "owner@fieldstation.example")
	require.NoError(t, err)
	_, err = db.CreateTopic(ctx, pool, "Antenna alignment", ownerID, "The dish drifted again.")
	require.NoError(t, err)

	insertDueTask(t, pool, TaskBoardDigest, now)

	mailer := &testutil.FakeMailer{}
	runner := NewRunner(pool, mail.NewService(pool, mailer), "fallback@fieldstation.example", time.Second)

	require.NoError(t, runner.RunDue(ctx, now))

	attempts := mailer.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, mail.TemplateBoardDigest, attempts[0].Template)
	assert.Empty(t, attempts[0].To)
	assert.Equal(t, []string{"owner@fieldstation.example"}, attempts[0].BCC)
	assert.Contains(t, attempts[0].Data["TopicList"], "Antenna alignment")
}

func TestRunDueUnknownJobCountsAsFailed(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertDueTask(t, pool, "retired-job", now)

	mailer := &testutil.FakeMailer{}
	runner := NewRunner(pool, mail.NewService(pool, mailer), "fallback@fieldstation.example", time.Second)

	require.NoError(t, runner.RunDue(ctx, now))

	task, err := db.GetTaskByName(ctx, pool, "retired-job")
	require.NoError(t, err)
	assert.EqualValues(t, 0, task.TimesRun)
	assert.EqualValues(t, 1, task.TimesFailed)
	// A failing task stays registered and keeps its next slot.
	assert.True(t, task.NextRunTime.After(now))
	assert.True(t, task.Enabled)

	assert.Empty(t, mailer.Attempts())
}

func TestRunDueNothingDue(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	task := &models.ScheduledTask{
		Name:         TaskBoardDigest,
		Period:       int64(week / time.Second),
		StartTime:    now.Add(time.Hour),
		NextRunTime:  now.Add(time.Hour),
		PreventDrift: true,
		Enabled:      true,
	}
	require.NoError(t, db.InsertTask(ctx, pool, task))

	mailer := &testutil.FakeMailer{}
	runner := NewRunner(pool, mail.NewService(pool, mailer), "fallback@fieldstation.example", time.Second)

	require.NoError(t, runner.RunDue(ctx, now))

	assert.Empty(t, mailer.Attempts())

	got, err := db.GetTaskByName(ctx, pool, TaskBoardDigest)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.TimesRun)
}
