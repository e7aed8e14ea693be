// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/sitehub/internal/metrics"
)

// Registry errors
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidSchedule = errors.New("invalid cron expression")
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// registeredJob holds a job and its cron bookkeeping.
type registeredJob struct {
	job      Job
	schedule string // effective schedule (override or default)
	entryID  cron.EntryID
	mu       sync.Mutex
	lastErr  string
	lastDur  time.Duration
	running  sync.Mutex
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	DefaultSchedule string        `json:"default_schedule"`
	Schedule        string        `json:"schedule"`
	IsOverridden    bool          `json:"is_overridden"`
	LastRun         time.Time     `json:"last_run"`
	NextRun         time.Time     `json:"next_run"`
	LastError       string        `json:"last_error,omitempty"`
	LastDuration    time.Duration `json:"last_duration"`
}

// Registry tracks the jobs of a scheduler.
type Registry struct {
	s      *Scheduler
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[string]*registeredJob
}

func newRegistry(s *Scheduler, logger *slog.Logger) *Registry {
	return &Registry{s: s, logger: logger, jobs: make(map[string]*registeredJob)}
}

func (r *Registry) add(job Job) error {
	if _, err := parser.Parse(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", job.Schedule, job.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	rj := &registeredJob{job: job, schedule: job.Schedule}
	id, err := r.s.cron.AddFunc(job.Schedule, func() { r.run(r.s.ctx, rj) })
	if err != nil {
		return err
	}
	rj.entryID = id
	r.jobs[job.Name] = rj

	r.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, rj := range r.jobs {
		entry := r.s.cron.Entry(rj.entryID)
		rj.mu.Lock()
		result = append(result, JobInfo{
			Name:            rj.job.Name,
			Description:     rj.job.Description,
			DefaultSchedule: rj.job.Schedule,
			Schedule:        rj.schedule,
			IsOverridden:    rj.schedule != rj.job.Schedule,
			LastRun:         entry.Prev,
			NextRun:         entry.Next,
			LastError:       rj.lastErr,
			LastDuration:    rj.lastDur,
		})
		rj.mu.Unlock()
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs a job immediately and returns its error. It waits for a
// run already in progress to finish first.
func (r *Registry) TriggerNow(ctx context.Context, name string) error {
	rj, err := r.get(name)
	if err != nil {
		return err
	}
	r.logger.Info("manually triggering job", "name", name)
	return r.run(ctx, rj)
}

// UpdateSchedule replaces the cron entry of a job with a new schedule.
// Overrides live in memory only; a restart restores the defaults.
func (r *Registry) UpdateSchedule(name, schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, schedule, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rj, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if err := r.reschedule(rj, schedule); err != nil {
		return err
	}
	r.logger.Info("updated job schedule", "name", name, "schedule", schedule)
	return nil
}

// ResetSchedule restores the default schedule of a job.
func (r *Registry) ResetSchedule(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rj, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if rj.schedule == rj.job.Schedule {
		return nil
	}
	if err := r.reschedule(rj, rj.job.Schedule); err != nil {
		return err
	}
	r.logger.Info("reset job schedule to default", "name", name, "schedule", rj.schedule)
	return nil
}

func (r *Registry) reschedule(rj *registeredJob, schedule string) error {
	r.s.cron.Remove(rj.entryID)
	id, err := r.s.cron.AddFunc(schedule, func() { r.run(r.s.ctx, rj) })
	if err != nil {
		// Re-add with the old schedule on failure.
		fallback, fallbackErr := r.s.cron.AddFunc(rj.schedule, func() { r.run(r.s.ctx, rj) })
		if fallbackErr != nil {
			return fmt.Errorf("restoring schedule after update failure: %w (original: %w)", fallbackErr, err)
		}
		rj.entryID = fallback
		return fmt.Errorf("applying new schedule: %w", err)
	}
	rj.entryID = id
	rj.schedule = schedule
	return nil
}

func (r *Registry) get(name string) (*registeredJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rj, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return rj, nil
}

// run executes one job with the scheduler timeout and records the outcome.
func (r *Registry) run(ctx context.Context, rj *registeredJob) error {
	rj.running.Lock()
	defer rj.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.s.timeout)
	defer cancel()

	start := time.Now()
	err := rj.job.Run(ctx)
	elapsed := time.Since(start)

	rj.mu.Lock()
	rj.lastDur = elapsed
	rj.lastErr = ""
	if err != nil {
		rj.lastErr = err.Error()
	}
	rj.mu.Unlock()

	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(rj.job.Name, "error").Inc()
		r.logger.Error("scheduled job failed", "name", rj.job.Name, "error", err, "duration", elapsed)
		return err
	}
	metrics.JobRunsTotal.WithLabelValues(rj.job.Name, "ok").Inc()
	r.logger.Debug("scheduled job finished", "name", rj.job.Name, "duration", elapsed)
	return nil
}
