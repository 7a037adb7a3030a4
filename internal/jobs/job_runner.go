package jobs

import (
	"context"
	"fmt"
	"sort"

	"library-backend/internal/clock"
	"library-backend/internal/config"
	"library-backend/internal/logger"
	"library-backend/internal/repository"
	"library-backend/internal/service"
)

const (
	JobSendOverdueReminders   = "send-overdue-reminders"
	JobPurgeStaleReservations = "purge-stale-reservations"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    repository.Store
	services *Services
	config   *config.Config
	clock    clock.Clock
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Email        service.EmailService
	Loans        service.LoanService
	Reservations service.ReservationService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, services *Services, cfg *config.Config, clk clock.Clock) *JobRunner {
	return &JobRunner{
		store:    store,
		services: services,
		config:   cfg,
		clock:    clk,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	if err = jobFunc(context.Background()); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return err
	}
	logger.Info("Job completed", "job", jobName)
	return nil
}

func (jr *JobRunner) jobs() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		JobSendOverdueReminders: func(ctx context.Context) error {
			_, err := jr.sendOverdueReminders(ctx)
			return err
		},
		JobPurgeStaleReservations: func(ctx context.Context) error {
			_, err := jr.services.Reservations.PurgeOlderThan(ctx, jr.config.Scheduler.ReservationTTLDays)
			return err
		},
	}
}

// JobNames lists the jobs accepted by Run.
func (jr *JobRunner) JobNames() []string {
	var names []string
	for name := range jr.jobs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one job by name (for manual execution)
func (jr *JobRunner) Run(name string) error {
	job, ok := jr.jobs()[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return jr.runWithRecovery(name, job)
}

func (jr *JobRunner) SendOverdueReminders() {
	_ = jr.Run(JobSendOverdueReminders)
}

func (jr *JobRunner) PurgeStaleReservations() {
	_ = jr.Run(JobPurgeStaleReservations)
}
