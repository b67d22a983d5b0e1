package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meridianlab/fieldstation/internal/models"
)

// ErrTaskNotFound is returned when a requested scheduled task cannot be found.
var ErrTaskNotFound = errors.New("scheduled task not found")

// ErrTaskExists is returned by InsertTask when a task with the same name is
// already registered. The scheduled_tasks.name unique constraint is the
// enforcement mechanism, so two concurrent registrations cannot both insert.
var ErrTaskExists = errors.New("scheduled task already registered")

const taskColumns = `id, name, period_seconds, start_time, next_run_time, repeats, prevent_drift, enabled, times_run, times_failed, last_run_at, created_at`

// InsertTask registers a new scheduled task row. A unique-constraint
// violation on the name is reported as ErrTaskExists rather than a raw
// database error.
func InsertTask(ctx context.Context, pool Pool, task *models.ScheduledTask) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO scheduled_tasks (name, period_seconds, start_time, next_run_time, repeats, prevent_drift, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		task.Name,
		task.Period,
		task.StartTime,
		task.NextRunTime,
		task.Repeats,
		task.PreventDrift,
		task.Enabled,
	).Scan(&task.ID, &task.CreatedAt)

	if isUniqueViolation(err) {
		return ErrTaskExists
	}

	if err != nil {
		return fmt.Errorf("failed to insert scheduled task: %w", err)
	}

	return nil
}

// GetTaskByName returns the scheduled task with the given name.
func GetTaskByName(ctx context.Context, pool Pool, name string) (*models.ScheduledTask, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM scheduled_tasks
		WHERE name = $1
	`, name)

	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled task: %w", err)
	}

	return task, nil
}

// ListDueTasks returns enabled tasks whose next run time has passed, soonest
// first.
func ListDueTasks(ctx context.Context, pool Pool, now time.Time) ([]*models.ScheduledTask, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM scheduled_tasks
		WHERE enabled AND next_run_time <= $1
		ORDER BY next_run_time ASC
	`, now)

	if err != nil {
		return nil, fmt.Errorf("failed to list due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due tasks: %w", err)
	}

	return tasks, nil
}

// CompleteTaskRun records the outcome of one run: bumps times_run or
// times_failed, stamps last_run_at, and moves next_run_time forward. The
// counters are incremented in place so concurrent runners never lose counts.
func CompleteTaskRun(ctx context.Context, pool Pool, taskID string, ranAt, nextRunTime time.Time, failed bool) error {
	var tag string
	if failed {
		tag = "times_failed"
	} else {
		tag = "times_run"
	}

	cmdTag, err := pool.Exec(ctx, `
		UPDATE scheduled_tasks
		SET `+tag+` = `+tag+` + 1, last_run_at = $2, next_run_time = $3
		WHERE id = $1
	`, taskID, ranAt, nextRunTime)

	if err != nil {
		return fmt.Errorf("failed to complete task run: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

func scanTask(row pgx.Row) (*models.ScheduledTask, error) {
	var task models.ScheduledTask
	if err := row.Scan(
		&task.ID,
		&task.Name,
		&task.Period,
		&task.StartTime,
		&task.NextRunTime,
		&task.Repeats,
		&task.PreventDrift,
		&task.Enabled,
		&task.TimesRun,
		&task.TimesFailed,
		&task.LastRunAt,
		&task.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}
