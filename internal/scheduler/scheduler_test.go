package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/clock"
	"library-backend/internal/config"
	"library-backend/internal/jobs"
	"library-backend/internal/repository/memory"
)

func runner(sched config.SchedulerConfig) *jobs.JobRunner {
	return jobs.NewJobRunner(memory.NewStore(), &jobs.Services{}, &config.Config{Scheduler: sched}, clock.New())
}

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(runner(config.SchedulerConfig{
		SendOverdueReminders:   "0 0 8 * * *",
		PurgeStaleReservations: "0 30 2 * * *",
	}))
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s.Start()
	assert.Len(t, s.Entries(), 2)
	for _, next := range s.Entries() {
		assert.False(t, next.IsZero())
	}
	s.Stop()
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(runner(config.SchedulerConfig{
		SendOverdueReminders:   "every morning",
		PurgeStaleReservations: "0 30 2 * * *",
	}))
	assert.Error(t, err)
}
