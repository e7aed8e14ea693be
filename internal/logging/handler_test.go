// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/store"
	"github.com/olegiv/sitehub/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, db *sql.DB) []model.Event {
	t.Helper()
	events, err := store.New(db).ListEvents(context.Background(), store.ListEventsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Levels(t *testing.T) {
	tests := []struct {
		name      string
		log       func(*slog.Logger)
		wantLevel string // empty when nothing should be captured
	}{
		{"error", func(l *slog.Logger) { l.Error("database connection failed", "host", "localhost") }, model.EventLevelError},
		{"warn", func(l *slog.Logger) { l.Warn("slow query detected", "duration_ms", 5000) }, model.EventLevelWarning},
		{"info", func(l *slog.Logger) { l.Info("request served") }, ""},
		{"debug", func(l *slog.Logger) { l.Debug("cache lookup") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.TestDB(t)
			tt.log(slog.New(NewEventLogHandler(discardHandler{}, db)))

			events := listEvents(t, db)
			if tt.wantLevel == "" {
				if len(events) != 0 {
					t.Fatalf("expected no events, got %d", len(events))
				}
				return
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", events[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))

	logger.Info("site created")
	logger.Debug("ignored")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Level != model.EventLevelInfo {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelInfo)
	}
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		message string
		attrs   []slog.Attr
		want    string
	}{
		{"login failed", nil, model.EventCategoryAuth},
		{"token revoked", nil, model.EventCategoryAuth},
		{"failed to publish scheduled post", nil, model.EventCategoryPost},
		{"site cache invalidated", nil, model.EventCategorySite},
		{"member removed", nil, model.EventCategorySite},
		{"user registered", nil, model.EventCategoryUser},
		{"config reloaded", nil, model.EventCategoryConfig},
		{"cache unavailable", nil, model.EventCategoryCache},
		{"something odd", nil, model.EventCategorySystem},
		{"login failed", []slog.Attr{slog.String("category", "custom")}, "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := extractCategory(tt.message, tt.attrs); got != tt.want {
				t.Errorf("extractCategory(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestEventLogHandler_Metadata(t *testing.T) {
	db := testutil.TestDB(t)

	logger := slog.New(NewEventLogHandler(discardHandler{}, db)).
		With("request_id", "abc", "category", model.EventCategoryUser).
		WithGroup("job")
	logger.Warn("failed to send \"mail\"\n", "name", "purge")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Category != model.EventCategoryUser {
		t.Errorf("Category = %q, want user", e.Category)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v (%s)", err, e.Metadata)
	}
	if meta["request_id"] != "abc" {
		t.Errorf("request_id = %q, want abc", meta["request_id"])
	}
	if meta["job.name"] != "purge" {
		t.Errorf("job.name = %q, want purge (metadata %v)", meta["job.name"], meta)
	}
	if _, ok := meta["category"]; ok {
		t.Error("category should not be repeated in metadata")
	}
}

func TestEventLogHandler_UserID(t *testing.T) {
	db := testutil.TestDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com", model.RoleAuthor)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	logger.Warn("account locked", "user_id", owner.ID)
	logger.Warn("no user here")

	events := listEvents(t, db)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	byMessage := map[string]model.Event{}
	for _, e := range events {
		byMessage[e.Message] = e
	}
	if got := byMessage["account locked"].UserID; !got.Valid || got.Int64 != owner.ID {
		t.Errorf("UserID = %+v, want %d", got, owner.ID)
	}
	if byMessage["no user here"].UserID.Valid {
		t.Error("UserID should be null without a user_id attribute")
	}
}

func TestSlogLevelToEventLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, model.EventLevelInfo},
		{slog.LevelInfo, model.EventLevelInfo},
		{slog.LevelWarn, model.EventLevelWarning},
		{slog.LevelError, model.EventLevelError},
		{slog.LevelError + 4, model.EventLevelError},
	}
	for _, tt := range tests {
		if got := slogLevelToEventLevel(tt.level); got != tt.want {
			t.Errorf("slogLevelToEventLevel(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
