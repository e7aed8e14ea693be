// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify fans post events out to role rooms over a pluggable
// transport (Redis pub/sub, a RabbitMQ topic exchange, or nothing).
// Delivery is best-effort: events may be dropped, are never retried, and
// failures never reach the caller that produced them.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

// Event types
const (
	EventNewPostCreated    = "new_post_created"
	EventPostStatusChanged = "post_status_changed"
)

// Rooms that receive post notifications. They are named after the
// platform roles whose members subscribe to them.
var PostRooms = []string{model.RoleEditor, model.RoleAdmin, model.RoleSuperAdmin}

// Author identifies the author of the post an event is about.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Event is a notification payload.
type Event struct {
	Type      string    `json:"type"`
	PostID    int64     `json:"post_id"`
	SiteID    int64     `json:"site_id"`
	Title     string    `json:"title"`
	Author    Author    `json:"author"`
	Status    string    `json:"status,omitempty"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPostCreated builds the event sent when a post is created.
func NewPostCreated(p *model.Post, author Author, now time.Time) Event {
	return Event{
		Type:      EventNewPostCreated,
		PostID:    p.ID,
		SiteID:    p.SiteID,
		Title:     p.Title,
		Author:    author,
		Status:    p.Status,
		Message:   fmt.Sprintf("New post %q created by %s", p.Title, author.Name),
		Timestamp: now.UTC(),
	}
}

// PostStatusChanged builds the event sent when a post changes status.
func PostStatusChanged(p *model.Post, author Author, oldStatus, newStatus string, now time.Time) Event {
	return Event{
		Type:      EventPostStatusChanged,
		PostID:    p.ID,
		SiteID:    p.SiteID,
		Title:     p.Title,
		Author:    author,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Message:   fmt.Sprintf("Post %q status changed from %s to %s", p.Title, oldStatus, newStatus),
		Timestamp: now.UTC(),
	}
}

// Encode returns the wire form of the event.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
