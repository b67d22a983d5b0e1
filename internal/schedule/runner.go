package schedule

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/models"
)

const siteName = "Fieldstation"

// JobFunc executes one scheduled job.
type JobFunc func(ctx context.Context) error

// Runner polls the task table and executes due tasks. Failures are counted
// on the task row; the task stays registered and runs again at its next slot.
type Runner struct {
	pool     db.Pool
	interval time.Duration
	jobs     map[string]JobFunc
}

// NewRunner creates a runner with the site's standard jobs wired in.
func NewRunner(pool db.Pool, mailSvc *mail.Service, adminEmail string, interval time.Duration) *Runner {
	r := &Runner{
		pool:     pool,
		interval: interval,
		jobs:     make(map[string]JobFunc),
	}
	r.jobs[TaskMembershipReminder] = func(ctx context.Context) error {
		return runMembershipReminder(ctx, pool, mailSvc, adminEmail)
	}
	r.jobs[TaskBoardDigest] = func(ctx context.Context) error {
		return runBoardDigest(ctx, pool, mailSvc)
	}
	return r
}

// Run polls for due tasks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("schedule: runner polling every %s", r.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunDue(ctx, time.Now()); err != nil {
				log.Printf("schedule: poll failed: %v", err)
			}
		}
	}
}

// RunDue executes every task whose next run time has passed, then advances
// each task's schedule. A job error marks the run failed but never
// unregisters the task.
func (r *Runner) RunDue(ctx context.Context, now time.Time) error {
	due, err := db.ListDueTasks(ctx, r.pool, now)
	if err != nil {
		return err
	}

	for _, task := range due {
		r.runOne(ctx, task, now)
	}

	return nil
}

func (r *Runner) runOne(ctx context.Context, task *models.ScheduledTask, now time.Time) {
	job, ok := r.jobs[task.Name]

	var runErr error
	if !ok {
		runErr = fmt.Errorf("no job registered for task %s", task.Name)
	} else {
		runErr = job(ctx)
	}

	if runErr != nil {
		log.Printf("schedule: task %s failed: %v", task.Name, runErr)
	} else {
		log.Printf("schedule: task %s completed", task.Name)
	}

	period := time.Duration(task.Period) * time.Second
	next := NextRunAfter(task.NextRunTime, period, task.PreventDrift, now)

	if err := db.CompleteTaskRun(ctx, r.pool, task.ID, now, next, runErr != nil); err != nil {
		log.Printf("schedule: failed to record run of task %s: %v", task.Name, err)
	}
}

// runMembershipReminder emails the administrators when membership requests
// are waiting for review. Nothing pending means nothing sent.
func runMembershipReminder(ctx context.Context, pool db.Pool, mailSvc *mail.Service, adminEmail string) error {
	count, err := db.CountPendingMembershipRequests(ctx, pool)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	to, err := db.ListAdminEmails(ctx, pool)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		to = []string{adminEmail}
	}

	_, err = mailSvc.Send(ctx, &mail.Message{
		Subject:  fmt.Sprintf("%d membership request(s) pending", count),
		Template: mail.TemplateMembershipReminder,
		Data: map[string]string{
			"SiteName":     siteName,
			"PendingCount": strconv.FormatInt(count, 10),
		},
		To: to,
	})
	return err
}

// runBoardDigest emails all members the topics created in the last week.
// A quiet week means no digest.
func runBoardDigest(ctx context.Context, pool db.Pool, mailSvc *mail.Service) error {
	topics, err := db.ListTopicsCreatedSince(ctx, pool, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return nil
	}

	var list strings.Builder
	for _, topic := range topics {
		fmt.Fprintf(&list, "  - %s (%d messages)\n", topic.Title, topic.MessageCount)
	}

	to, err := db.ListMemberEmails(ctx, pool)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		return nil
	}

	_, err = mailSvc.Send(ctx, &mail.Message{
		Subject:  "This week on the discussion board",
		Template: mail.TemplateBoardDigest,
		Data: map[string]string{
			"SiteName":  siteName,
			"TopicList": list.String(),
		},
		BCC: to,
	})
	return err
}
