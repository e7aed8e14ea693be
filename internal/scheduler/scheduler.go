// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the platform's background jobs on cron schedules:
// publishing due posts, purging unverified accounts and pruning the event log.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job names
const (
	JobPublishScheduled = "publish_scheduled"
	JobPurgeUnverified  = "purge_unverified"
	JobCleanupEvents    = "cleanup_events"
)

// EventRetention is how long event log entries are kept.
const EventRetention = 90 * 24 * time.Hour

// defaultJobTimeout bounds a single job run.
const defaultJobTimeout = 5 * time.Minute

// Publisher promotes scheduled posts whose time has come.
type Publisher interface {
	PublishScheduled(ctx context.Context) (int, error)
}

// AccountPurger removes accounts that never verified their email.
type AccountPurger interface {
	PurgeUnverified(ctx context.Context) (int64, error)
}

// EventPruner deletes old event log entries.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) error
}

// Job is a named unit of background work.
type Job struct {
	Name        string
	Description string
	Schedule    string
	Run         func(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	logger   *slog.Logger
	registry *Registry
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a scheduler. Overlapping runs of the same job are skipped and
// panics inside a job are recovered and logged.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:  logger,
		timeout: defaultJobTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.registry = newRegistry(s, logger)
	return s
}

// DefaultJobs returns the platform jobs: the publication sweep every minute,
// the unverified account purge hourly and the event log cleanup daily.
func DefaultJobs(posts Publisher, accounts AccountPurger, events EventPruner) []Job {
	return []Job{
		{
			Name:        JobPublishScheduled,
			Description: "Publish scheduled posts that are due",
			Schedule:    "* * * * *",
			Run: func(ctx context.Context) error {
				_, err := posts.PublishScheduled(ctx)
				return err
			},
		},
		{
			Name:        JobPurgeUnverified,
			Description: "Delete accounts that never verified their email",
			Schedule:    "@hourly",
			Run: func(ctx context.Context) error {
				_, err := accounts.PurgeUnverified(ctx)
				return err
			},
		},
		{
			Name:        JobCleanupEvents,
			Description: "Delete event log entries older than 90 days",
			Schedule:    "@daily",
			Run: func(ctx context.Context) error {
				return events.DeleteOldEvents(ctx, EventRetention)
			},
		},
	}
}

// Register adds a job to the cron table.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	return s.registry.add(job)
}

// Registry exposes the registered jobs for inspection and manual runs.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the cron loop, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	s.cancel()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
