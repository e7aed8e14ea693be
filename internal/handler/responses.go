// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/service"
)

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	PlatformRole  string     `json:"platform_role"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func userToResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.RoleName,
		PlatformRole:  u.PlatformRole,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   nullTime(u.LastLoginAt),
		CreatedAt:     u.CreatedAt,
	}
}

// SessionResponse is returned by the token endpoint.
type SessionResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func sessionToResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token,
		TokenType: "Bearer",
		ExpiresAt: s.ExpiresAt,
		User:      userToResponse(s.User),
	}
}

// PostResponse represents a post in API responses.
type PostResponse struct {
	ID           int64                 `json:"id"`
	SiteID       int64                 `json:"site_id"`
	AuthorID     int64                 `json:"author_id"`
	Title        string                `json:"title"`
	Slug         string                `json:"slug"`
	Content      string                `json:"content"`
	Excerpt      string                `json:"excerpt"`
	Status       string                `json:"status"`
	ScheduledAt  *time.Time            `json:"scheduled_at,omitempty"`
	PublishedAt  *time.Time            `json:"published_at,omitempty"`
	Language     string                `json:"language"`
	SourceID     *int64                `json:"source_id,omitempty"`
	Categories   []int64               `json:"categories"`
	Tags         []string              `json:"tags"`
	Views        int64                 `json:"views"`
	Translations []TranslationResponse `json:"translations,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TranslationResponse links a post to one of its translations.
type TranslationResponse struct {
	Language string `json:"language"`
	PostID   int64  `json:"post_id"`
}

func postToResponse(p *model.Post) PostResponse {
	resp := PostResponse{
		ID:          p.ID,
		SiteID:      p.SiteID,
		AuthorID:    p.AuthorID,
		Title:       p.Title,
		Slug:        p.Slug,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		Status:      p.Status,
		ScheduledAt: nullTime(p.ScheduledAt),
		PublishedAt: nullTime(p.PublishedAt),
		Language:    p.Language,
		SourceID:    nullInt(p.SourceID),
		Categories:  p.Categories,
		Tags:        p.Tags,
		Views:       p.Views,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if resp.Categories == nil {
		resp.Categories = []int64{}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	for _, t := range p.Translations {
		resp.Translations = append(resp.Translations, TranslationResponse{Language: t.Language, PostID: t.PostID})
	}
	return resp
}

func postsToResponse(posts []model.Post) []PostResponse {
	out := make([]PostResponse, len(posts))
	for i := range posts {
		out[i] = postToResponse(&posts[i])
	}
	return out
}

// VersionResponse represents one ledger entry.
type VersionResponse struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Content   string    `json:"content"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func versionsToResponse(versions []model.PostVersion) []VersionResponse {
	out := make([]VersionResponse, len(versions))
	for i, v := range versions {
		out[i] = VersionResponse{
			ID:        v.ID,
			PostID:    v.PostID,
			Content:   v.Content,
			CreatedBy: nullInt(v.CreatedBy),
			CreatedAt: v.CreatedAt,
		}
	}
	return out
}

// SiteResponse represents a site in API responses.
type SiteResponse struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Subdomain     string             `json:"subdomain"`
	CustomDomain  string             `json:"custom_domain,omitempty"`
	OwnerID       int64              `json:"owner_id"`
	Type          string             `json:"type"`
	Template      string             `json:"template"`
	Theme         model.SiteTheme    `json:"theme"`
	Settings      model.SiteSettings `json:"settings"`
	Plan          string             `json:"plan"`
	PlanStatus    string             `json:"plan_status"`
	Features      model.PlanFeatures `json:"features"`
	TotalPosts    int64              `json:"total_posts"`
	TotalViews    int64              `json:"total_views"`
	LastActivity  *time.Time         `json:"last_activity,omitempty"`
	IsActive      bool               `json:"is_active"`
	IsInitialized bool               `json:"is_initialized"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func siteToResponse(s *model.Site) SiteResponse {
	return SiteResponse{
		ID:            s.ID,
		Name:          s.Name,
		Subdomain:     s.Subdomain,
		CustomDomain:  s.CustomDomain.String,
		OwnerID:       s.OwnerID,
		Type:          s.Type,
		Template:      s.Template,
		Theme:         s.Theme,
		Settings:      s.Settings,
		Plan:          s.Plan,
		PlanStatus:    s.PlanStatus,
		Features:      s.Features,
		TotalPosts:    s.TotalPosts,
		TotalViews:    s.TotalViews,
		LastActivity:  nullTime(s.LastActivity),
		IsActive:      s.IsActive,
		IsInitialized: s.IsInitialized,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func sitesToResponse(sites []model.Site) []SiteResponse {
	out := make([]SiteResponse, len(sites))
	for i := range sites {
		out[i] = siteToResponse(&sites[i])
	}
	return out
}

// MemberResponse represents a site membership.
type MemberResponse struct {
	ID          int64                  `json:"id"`
	SiteID      int64                  `json:"site_id"`
	UserID      int64                  `json:"user_id"`
	Role        string                 `json:"role"`
	Permissions []model.SitePermission `json:"permissions"`
	Status      string                 `json:"status"`
	InvitedBy   *int64                 `json:"invited_by,omitempty"`
	JoinedAt    time.Time              `json:"joined_at"`
}

func memberToResponse(m *model.SiteUser) MemberResponse {
	perms := m.Permissions
	if perms == nil {
		perms = []model.SitePermission{}
	}
	return MemberResponse{
		ID:          m.ID,
		SiteID:      m.SiteID,
		UserID:      m.UserID,
		Role:        m.Role,
		Permissions: perms,
		Status:      m.Status,
		InvitedBy:   nullInt(m.InvitedBy),
		JoinedAt:    m.JoinedAt,
	}
}

// SubscriptionResponse represents the billing state of a site.
type SubscriptionResponse struct {
	ID              int64      `json:"id"`
	SiteID          int64      `json:"site_id"`
	Plan            string     `json:"plan"`
	Status          string     `json:"status"`
	BillingInterval string     `json:"billing_interval"`
	AmountCents     int64      `json:"amount_cents"`
	Currency        string     `json:"currency"`
	NextBillingAt   *time.Time `json:"next_billing_at,omitempty"`
	LastBillingAt   *time.Time `json:"last_billing_at,omitempty"`
	TrialEndsAt     *time.Time `json:"trial_ends_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func subscriptionToResponse(s *model.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:              s.ID,
		SiteID:          s.SiteID,
		Plan:            s.Plan,
		Status:          s.Status,
		BillingInterval: s.BillingInterval,
		AmountCents:     s.AmountCents,
		Currency:        s.Currency,
		NextBillingAt:   nullTime(s.NextBillingAt),
		LastBillingAt:   nullTime(s.LastBillingAt),
		TrialEndsAt:     nullTime(s.TrialEndsAt),
		CancelledAt:     nullTime(s.CancelledAt),
		UpdatedAt:       s.UpdatedAt,
	}
}

// EventResponse represents an audit log entry.
type EventResponse struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	UserID    *int64          `json:"user_id,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func eventsToResponse(events []model.Event) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = EventResponse{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			UserID:    nullInt(e.UserID),
			IPAddress: e.IPAddress,
			CreatedAt: e.CreatedAt,
		}
		if json.Valid([]byte(e.Metadata)) {
			out[i].Metadata = json.RawMessage(e.Metadata)
		}
	}
	return out
}
