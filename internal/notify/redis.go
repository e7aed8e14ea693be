// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// publisher is the subset of *redis.Client the Redis transport needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes each event on one channel per room:
// "<prefix>room:<room>".
type RedisNotifier struct {
	client publisher
	prefix string
}

// NewRedisNotifier wraps a shared Redis client.
func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel of a room.
func (n *RedisNotifier) Channel(room string) string {
	return n.prefix + "room:" + room
}

// Notify publishes the event to every room and returns the first error.
func (n *RedisNotifier) Notify(ctx context.Context, rooms []string, event Event) error {
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}
	for _, room := range rooms {
		if err := n.client.Publish(ctx, n.Channel(room), payload).Err(); err != nil {
			return fmt.Errorf("publishing to %s: %w", n.Channel(room), err)
		}
	}
	return nil
}
