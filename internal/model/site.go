// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Site types
const (
	SiteTypeBlog      = "blog"
	SiteTypePortfolio = "portfolio"
	SiteTypeBusiness  = "business"
	SiteTypeNews      = "news"
	SiteTypePersonal  = "personal"
)

// SiteTypes lists the supported site archetypes.
var SiteTypes = []string{SiteTypeBlog, SiteTypePortfolio, SiteTypeBusiness, SiteTypeNews, SiteTypePersonal}

// Subdomain constraints
const (
	MinSubdomainLength = 3
	MaxSubdomainLength = 50
)

// ReservedSubdomains can never be claimed by a site.
var ReservedSubdomains = []string{"www", "api", "admin", "app", "blog", "mail", "ftp", "support"}

var subdomainRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

// Subdomain validation errors.
var (
	ErrSubdomainReserved = errors.New("subdomain is reserved")
	ErrSubdomainInvalid  = errors.New("subdomain may only contain lowercase letters, digits and hyphens")
	ErrSubdomainLength   = errors.New("subdomain must be between 3 and 50 characters")
)

// NormalizeSubdomain lowercases and trims a requested subdomain.
func NormalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateSubdomain checks a normalized subdomain against the naming rules.
func ValidateSubdomain(s string) error {
	if len(s) < MinSubdomainLength || len(s) > MaxSubdomainLength {
		return ErrSubdomainLength
	}
	if !subdomainRegex.MatchString(s) || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return ErrSubdomainInvalid
	}
	if slices.Contains(ReservedSubdomains, s) {
		return ErrSubdomainReserved
	}
	return nil
}

// SiteTheme holds visual customization for a site.
type SiteTheme struct {
	Name           string `json:"name"`
	ColorScheme    string `json:"color_scheme"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
	HeadingFont    string `json:"heading_font"`
	BodyFont       string `json:"body_font"`
	Logo           string `json:"logo,omitempty"`
	Favicon        string `json:"favicon,omitempty"`
}

// DefaultSiteTheme returns the theme applied to new sites.
func DefaultSiteTheme() SiteTheme {
	return SiteTheme{
		Name:           "default",
		ColorScheme:    "default",
		PrimaryColor:   "#3b82f6",
		SecondaryColor: "#64748b",
		AccentColor:    "#06b6d4",
		HeadingFont:    "Inter",
		BodyFont:       "Inter",
	}
}

// SiteSettings is the free-form settings bag of a site.
type SiteSettings struct {
	Title              string   `json:"title"`
	Tagline            string   `json:"tagline,omitempty"`
	Description        string   `json:"description,omitempty"`
	Language           string   `json:"language"`
	Timezone           string   `json:"timezone"`
	IsPublic           bool     `json:"is_public"`
	AllowComments      bool     `json:"allow_comments"`
	AllowSubscriptions bool     `json:"allow_subscriptions"`
	Features           []string `json:"features,omitempty"`
}

// Site is a tenant: an isolated content namespace under its own subdomain.
type Site struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Subdomain     string         `json:"subdomain"`
	CustomDomain  sql.NullString `json:"custom_domain,omitempty"`
	OwnerID       int64          `json:"owner_id"`
	Type          string         `json:"type"`
	Template      string         `json:"template"`
	Theme         SiteTheme      `json:"theme"`
	Settings      SiteSettings   `json:"settings"`
	Plan          string         `json:"plan"`
	PlanStatus    string         `json:"plan_status"`
	Features      PlanFeatures   `json:"features"`
	TotalPosts    int64          `json:"total_posts"`
	TotalViews    int64          `json:"total_views"`
	LastActivity  sql.NullTime   `json:"last_activity,omitempty"`
	IsActive      bool           `json:"is_active"`
	IsInitialized bool           `json:"is_initialized"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// OwnerOf implements the ownership lookup used by the authorization evaluator.
func (s *Site) OwnerOf(field string) (int64, bool) {
	if field == "owner" {
		return s.OwnerID, true
	}
	return 0, false
}
