package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianlab/fieldstation/internal/config"
	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/schedule"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	registry := schedule.NewRegistry(pool, schedule.DefaultSpecs(time.Now()))
	reports, err := registry.EnsureRegistered(ctx)
	if err != nil {
		log.Fatalf("Failed to register scheduled tasks: %v", err)
	}
	for _, report := range reports {
		log.Printf("Task %s: %s (next run %s)", report.Name, report.Outcome, report.NextRunTime.Format(time.RFC3339))
	}

	mailer := mail.NewSMTPMailer(cfg)
	mailSvc := mail.NewService(pool, mailer)

	runner := schedule.NewRunner(pool, mailSvc, cfg.AdminEmail, time.Duration(cfg.SchedulerPollSecs)*time.Second)

	log.Printf("Fieldstation scheduler starting (environment: %s)", cfg.Environment)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Scheduler stopped: %v", err)
	}

	log.Printf("Scheduler shut down")
}
