package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/models"
)

// Registration outcomes.
const (
	OutcomeRecreated = "recreated"
	OutcomeFound     = "found"
)

// TaskReport describes one spec's registration state.
type TaskReport struct {
	Name        string    `json:"name"`
	Outcome     string    `json:"outcome"`
	TimesRun    int64     `json:"times_run"`
	TimesFailed int64     `json:"times_failed"`
	NextRunTime time.Time `json:"next_run_time"`
}

// Registry ties the static spec list to the persisted task table.
type Registry struct {
	pool  db.Pool
	specs []TaskSpec
}

// NewRegistry creates a registry for the given specs.
func NewRegistry(pool db.Pool, specs []TaskSpec) *Registry {
	return &Registry{pool: pool, specs: specs}
}

// EnsureRegistered makes sure every spec has exactly one persisted task row.
// Missing tasks are inserted with next_run_time = start_time, infinite
// repeats and drift prevention on; existing tasks are left untouched. The
// name's unique constraint makes concurrent calls safe: a duplicate insert
// is reported as "found", never as an error. The report lists one entry per
// spec, in spec order.
func (r *Registry) EnsureRegistered(ctx context.Context) ([]TaskReport, error) {
	reports := make([]TaskReport, 0, len(r.specs))

	for _, spec := range r.specs {
		report, err := r.ensureOne(ctx, spec)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func (r *Registry) ensureOne(ctx context.Context, spec TaskSpec) (TaskReport, error) {
	task, err := db.GetTaskByName(ctx, r.pool, spec.Name)

	if errors.Is(err, db.ErrTaskNotFound) {
		created := &models.ScheduledTask{
			Name:         spec.Name,
			Period:       int64(spec.Period / time.Second),
			StartTime:    spec.StartTime,
			NextRunTime:  spec.StartTime,
			Repeats:      0, // run forever
			PreventDrift: true,
			Enabled:      true,
		}

		insertErr := db.InsertTask(ctx, r.pool, created)
		if errors.Is(insertErr, db.ErrTaskExists) {
			// Another registration won the race; treat as found.
			task, err = db.GetTaskByName(ctx, r.pool, spec.Name)
			if err != nil {
				return TaskReport{}, fmt.Errorf("task %s vanished after duplicate insert: %w", spec.Name, err)
			}
			return foundReport(task), nil
		}
		if insertErr != nil {
			return TaskReport{}, insertErr
		}

		log.Printf("schedule: registered task %s, first run at %s", spec.Name, created.NextRunTime.Format(time.RFC3339))
		return TaskReport{
			Name:        spec.Name,
			Outcome:     OutcomeRecreated,
			NextRunTime: created.NextRunTime,
		}, nil
	}

	if err != nil {
		return TaskReport{}, err
	}

	return foundReport(task), nil
}

func foundReport(task *models.ScheduledTask) TaskReport {
	return TaskReport{
		Name:        task.Name,
		Outcome:     OutcomeFound,
		TimesRun:    task.TimesRun,
		TimesFailed: task.TimesFailed,
		NextRunTime: task.NextRunTime,
	}
}
