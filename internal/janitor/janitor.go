// Package janitor removes rows the application no longer needs: expired or
// used magic tokens, expired sessions, and old send records.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nbeast/nbeast/internal/metrics"
	"github.com/nbeast/nbeast/internal/repository"
)

const (
	schedule = "@every 10m"

	// sendRecordRetention keeps records well past the 120 s duplicate-send
	// window so the guard never loses the row it needs.
	sendRecordRetention = 24 * time.Hour
)

type Janitor struct {
	users       repository.UserRepository
	sessions    repository.SessionRepository
	sendRecords repository.SendRecordRepository
	logger      *slog.Logger
	cron        *cron.Cron
	now         func() time.Time
}

func New(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	sendRecords repository.SendRecordRepository,
	logger *slog.Logger,
) *Janitor {
	return &Janitor{
		users:       users,
		sessions:    sessions,
		sendRecords: sendRecords,
		logger:      logger.With("component", "janitor"),
		cron:        cron.New(),
		now:         time.Now,
	}
}

// Start registers the cleanup schedule and begins running it in the
// background.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(ctx) }); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("janitor started", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish.
func (j *Janitor) Stop() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.logger.Info("janitor shut down")
}

// RunOnce executes a single cleanup cycle. Failures are logged per table;
// one failing purge does not block the others.
func (j *Janitor) RunOnce(ctx context.Context) {
	start := j.now()

	if n, err := j.users.PurgeMagicTokens(ctx, start); err != nil {
		j.logger.ErrorContext(ctx, "purge magic tokens", "error", err)
	} else if n > 0 {
		metrics.JanitorPurgedTotal.WithLabelValues("magic_tokens").Add(float64(n))
		j.logger.InfoContext(ctx, "purged magic tokens", "count", n)
	}

	if n, err := j.sessions.PurgeExpired(ctx, start); err != nil {
		j.logger.ErrorContext(ctx, "purge sessions", "error", err)
	} else if n > 0 {
		metrics.JanitorPurgedTotal.WithLabelValues("sessions").Add(float64(n))
		j.logger.InfoContext(ctx, "purged sessions", "count", n)
	}

	if n, err := j.sendRecords.PurgeOlderThan(ctx, start.Add(-sendRecordRetention)); err != nil {
		j.logger.ErrorContext(ctx, "purge send records", "error", err)
	} else if n > 0 {
		metrics.JanitorPurgedTotal.WithLabelValues("send_records").Add(float64(n))
		j.logger.InfoContext(ctx, "purged send records", "count", n)
	}

	metrics.JanitorCycleDuration.Observe(time.Since(start).Seconds())
}
