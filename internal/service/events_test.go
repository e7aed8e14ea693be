// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/testutil"
)

func newTestEventService(t *testing.T) (*EventService, *sql.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	return NewEventService(db, testutil.TestLoggerSilent()), db
}

func TestLogEvent(t *testing.T) {
	svc, db := newTestEventService(t)
	ctx := context.Background()

	userID := testutil.CreateUser(t, db, "events@example.com", model.RoleAuthor).ID
	err := svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategoryPost, "Test message", &userID, "192.168.1.100", map[string]any{
		"key": "value",
	})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var level, category, message, metadata, ip string
	var savedUserID sql.NullInt64
	err = db.QueryRow("SELECT level, category, message, user_id, metadata, ip_address FROM events").
		Scan(&level, &category, &message, &savedUserID, &metadata, &ip)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	if level != "info" || category != "post" || message != "Test message" {
		t.Errorf("got (%q, %q, %q)", level, category, message)
	}
	if !savedUserID.Valid || savedUserID.Int64 != userID {
		t.Errorf("user_id = %v, want %d", savedUserID, userID)
	}
	if metadata != `{"key":"value"}` {
		t.Errorf("metadata = %q, want %q", metadata, `{"key":"value"}`)
	}
	if ip != "192.168.1.100" {
		t.Errorf("ip_address = %q", ip)
	}
}

func TestLogEvent_NilUserAndMetadata(t *testing.T) {
	svc, db := newTestEventService(t)

	if err := svc.LogSystemEvent(context.Background(), model.EventLevelWarning, "No user", nil); err != nil {
		t.Fatalf("LogSystemEvent failed: %v", err)
	}

	var savedUserID sql.NullInt64
	var metadata string
	if err := db.QueryRow("SELECT user_id, metadata FROM events").Scan(&savedUserID, &metadata); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if savedUserID.Valid {
		t.Error("user_id should be NULL")
	}
	if metadata != "{}" {
		t.Errorf("metadata = %q, want {}", metadata)
	}
}

func TestLogCategoryEvents(t *testing.T) {
	tests := []struct {
		name     string
		logFn    func(*EventService, context.Context) error
		expected string
	}{
		{"auth", func(s *EventService, ctx context.Context) error {
			return s.LogAuthEvent(ctx, model.EventLevelInfo, "User logged in", nil, "", nil)
		}, model.EventCategoryAuth},
		{"post", func(s *EventService, ctx context.Context) error {
			return s.LogPostEvent(ctx, model.EventLevelInfo, "Post published", nil, nil)
		}, model.EventCategoryPost},
		{"site", func(s *EventService, ctx context.Context) error {
			return s.LogSiteEvent(ctx, model.EventLevelInfo, "Site created", nil, nil)
		}, model.EventCategorySite},
		{"user", func(s *EventService, ctx context.Context) error {
			return s.LogUserEvent(ctx, model.EventLevelInfo, "User created", nil, "", nil)
		}, model.EventCategoryUser},
		{"system", func(s *EventService, ctx context.Context) error {
			return s.LogSystemEvent(ctx, model.EventLevelInfo, "System started", nil)
		}, model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestEventService(t)
			ctx := context.Background()
			if err := tt.logFn(svc, ctx); err != nil {
				t.Fatalf("log failed: %v", err)
			}
			events, err := svc.ListEvents(ctx, "", tt.expected, 10, 0)
			if err != nil {
				t.Fatalf("ListEvents failed: %v", err)
			}
			if len(events) != 1 {
				t.Errorf("events in %s = %d, want 1", tt.expected, len(events))
			}
		})
	}
}

func TestDeleteOldEvents(t *testing.T) {
	svc, db := newTestEventService(t)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now.AddDate(0, 0, -91) }
	if err := svc.LogSystemEvent(ctx, model.EventLevelInfo, "Old event", nil); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return now }
	if err := svc.LogSystemEvent(ctx, model.EventLevelInfo, "Recent event", nil); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteOldEvents(ctx, 90*24*time.Hour); err != nil {
		t.Fatalf("DeleteOldEvents failed: %v", err)
	}

	var message string
	var count int
	if err := db.QueryRow("SELECT COUNT(*), MAX(message) FROM events").Scan(&count, &message); err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	if count != 1 || message != "Recent event" {
		t.Errorf("remaining = %d (%q), want 1 (Recent event)", count, message)
	}
}
