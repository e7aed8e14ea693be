// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"errors"
)

// Transport names
const (
	TransportNone  = "none"
	TransportRedis = "redis"
	TransportAMQP  = "amqp"
)

// ErrClosed is returned by transports used after Close.
var ErrClosed = errors.New("notifier closed")

// Notifier publishes one event to a set of rooms.
type Notifier interface {
	Notify(ctx context.Context, rooms []string, event Event) error
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, []string, Event) error { return nil }

// Func adapts a function to Notifier.
type Func func(ctx context.Context, rooms []string, event Event) error

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, rooms []string, event Event) error {
	return f(ctx, rooms, event)
}
