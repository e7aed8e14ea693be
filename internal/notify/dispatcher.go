// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/sitehub/internal/metrics"
)

// Dispatcher queues events and delivers them through a transport on
// worker goroutines, so producers never wait on the network.
type Dispatcher struct {
	transport Notifier
	logger    *slog.Logger
	queue     chan queued
	workers   int
	timeout   time.Duration
	wg        sync.WaitGroup
	done      chan struct{}
	mu        sync.RWMutex
	running   bool
}

type queued struct {
	rooms []string
	event Event
}

// Config holds dispatcher configuration.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per delivery
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   3,
		QueueSize: 100,
		Timeout:   5 * time.Second,
	}
}

// NewDispatcher creates a dispatcher over transport.
func NewDispatcher(transport Notifier, logger *slog.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if transport == nil {
		transport = Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		transport: transport,
		logger:    logger,
		queue:     make(chan queued, cfg.QueueSize),
		workers:   cfg.Workers,
		timeout:   cfg.Timeout,
		done:      make(chan struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting notification dispatcher", "workers", d.workers)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the workers and waits for in-flight deliveries. Events still
// queued are discarded.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping notification dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

// Notify enqueues the event. It never blocks and never fails: when the
// dispatcher is stopped or the queue is full the event is dropped.
func (d *Dispatcher) Notify(_ context.Context, rooms []string, event Event) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		d.drop(event, "dispatcher not running")
		return nil
	}

	select {
	case d.queue <- queued{rooms: rooms, event: event}:
	default:
		d.drop(event, "queue full")
	}
	return nil
}

func (d *Dispatcher) drop(event Event, why string) {
	metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
	d.logger.Warn("notification dropped", "reason", why, "event_type", event.Type, "post_id", event.PostID)
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("notification worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case q := <-d.queue:
			d.deliver(ctx, q)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, q queued) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.transport.Notify(ctx, q.rooms, q.event); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.logger.Error("notification delivery failed",
			"error", err,
			"event_type", q.event.Type,
			"post_id", q.event.PostID)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	d.logger.Debug("notification sent", "event_type", q.event.Type, "post_id", q.event.PostID, "rooms", q.rooms)
}

var _ Notifier = (*Dispatcher)(nil)
