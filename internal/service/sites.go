// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
)

// SiteInvalidator drops cached lookups of a site. The tenant resolver
// implements it.
type SiteInvalidator interface {
	Invalidate(ctx context.Context, siteID int64, subdomain string)
}

// SiteService provisions sites and manages their memberships.
type SiteService struct {
	db          *sql.DB
	queries     *store.Queries
	eval        *rbac.Evaluator
	invalidator SiteInvalidator
	events      *EventService
	logger      *slog.Logger
	deny        denier
	now         func() time.Time

	// init tracks default-content seeding started by CreateSite.
	init sync.WaitGroup
}

// NewSiteService creates a SiteService. invalidator may be nil.
func NewSiteService(db *sql.DB, eval *rbac.Evaluator, invalidator SiteInvalidator, events *EventService, logger *slog.Logger) *SiteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteService{
		db:          db,
		queries:     store.New(db),
		eval:        eval,
		invalidator: invalidator,
		events:      events,
		logger:      logger,
		deny:        denier{logger: logger, events: events},
		now:         time.Now,
	}
}

// SiteInput is the payload of CreateSite.
type SiteInput struct {
	Name        string
	Subdomain   string
	Type        string
	Template    string
	Title       string
	Tagline     string
	ColorScheme string
	Settings    *model.SiteSettings
}

// SiteUpdate is the payload of UpdateSite. Nil fields are left unchanged.
type SiteUpdate struct {
	Name         *string
	Type         *string
	Template     *string
	Theme        *model.SiteTheme
	Settings     *model.SiteSettings
	CustomDomain *string
	IsActive     *bool
}

// UserSites splits the sites of a user by how they reach them.
type UserSites struct {
	Owned  []model.Site `json:"owned"`
	Member []model.Site `json:"member"`
}

// SubdomainStatus answers a subdomain availability check.
type SubdomainStatus struct {
	Subdomain string `json:"subdomain"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// CheckSubdomain reports whether a subdomain can be claimed.
func (s *SiteService) CheckSubdomain(ctx context.Context, subdomain string) (SubdomainStatus, error) {
	sub := model.NormalizeSubdomain(subdomain)
	status := SubdomainStatus{Subdomain: sub}

	if err := model.ValidateSubdomain(sub); err != nil {
		status.Message = err.Error()
		return status, nil
	}
	taken, err := s.queries.SubdomainTaken(ctx, sub)
	if err != nil {
		return status, fmt.Errorf("checking subdomain: %w", err)
	}
	if taken {
		status.Message = "subdomain already taken"
		return status, nil
	}
	status.Available = true
	status.Message = "subdomain available"
	return status, nil
}

// CreateSite provisions a site owned by the caller. The site, the owner's
// site_admin membership and the free subscription are written in one
// transaction; default content is seeded afterwards in the background.
func (s *SiteService) CreateSite(ctx context.Context, p *rbac.Principal, in SiteInput) (*model.Site, error) {
	if p == nil {
		return nil, s.deny.check(ctx, p, rbac.Deny(rbac.ReasonUnauthenticated, ""), "create site")
	}

	verr := &ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("name", "name is required")
	}
	sub := model.NormalizeSubdomain(in.Subdomain)
	if err := model.ValidateSubdomain(sub); err != nil {
		verr.Add("subdomain", err.Error())
	}
	siteType := in.Type
	if siteType == "" {
		siteType = model.SiteTypeBlog
	}
	if !slices.Contains(model.SiteTypes, siteType) {
		verr.Add("type", "unknown site type")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	settings := model.SiteSettings{
		Title:              name,
		Language:           model.DefaultLanguage,
		Timezone:           "UTC",
		IsPublic:           true,
		AllowComments:      true,
		AllowSubscriptions: true,
	}
	if in.Settings != nil {
		settings = *in.Settings
	}
	if in.Title != "" {
		settings.Title = in.Title
	}
	if in.Tagline != "" {
		settings.Tagline = in.Tagline
	}
	theme := model.DefaultSiteTheme()
	if in.ColorScheme != "" {
		theme.ColorScheme = in.ColorScheme
	}
	template := in.Template
	if template == "" {
		template = "default"
	}
	free, _ := model.LookupPlan(model.PlanFree)

	now := s.now()
	var site model.Site
	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		site, err = q.CreateSite(ctx, model.Site{
			Name:       name,
			Subdomain:  sub,
			OwnerID:    p.UserID,
			Type:       siteType,
			Template:   template,
			Theme:      theme,
			Settings:   settings,
			Plan:       free.Key,
			PlanStatus: model.SubscriptionActive,
			Features:   free.Features,
			IsActive:   true,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}

		if _, err := q.CreateSiteUser(ctx, model.SiteUser{
			SiteID:      site.ID,
			UserID:      p.UserID,
			Role:        model.SiteRoleAdmin,
			Permissions: model.DefaultSitePermissions(model.SiteRoleAdmin),
			Status:      model.MembershipActive,
			JoinedAt:    now,
		}); err != nil {
			return err
		}

		_, err = q.CreateSubscription(ctx, model.Subscription{
			SiteID:          site.ID,
			Plan:            free.Key,
			Status:          model.SubscriptionActive,
			BillingInterval: model.BillingMonthly,
			AmountCents:     0,
			Currency:        "USD",
			CreatedAt:       now,
		})
		return err
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: subdomain %q already taken", ErrConflict, sub)
		}
		return nil, fmt.Errorf("creating site: %w", err)
	}

	s.logger.Info("site created", "site_id", site.ID, "subdomain", site.Subdomain, "owner_id", p.UserID)
	s.audit(ctx, p, "site created", &site)

	s.init.Add(1)
	go func() {
		defer s.init.Done()
		s.initialize(context.WithoutCancel(ctx), site)
	}()

	return &site, nil
}

// WaitInitialized blocks until background seeding of created sites is done.
func (s *SiteService) WaitInitialized() {
	s.init.Wait()
}

// initialize seeds the welcome post and marks the site initialized.
// Failures are logged; the site stays usable without default content.
func (s *SiteService) initialize(ctx context.Context, site model.Site) {
	now := s.now()
	title, content := welcomePost(site)

	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		post, err := q.CreatePost(ctx, store.CreatePostParams{
			SiteID:    site.ID,
			AuthorID:  site.OwnerID,
			Title:     title,
			Slug:      "welcome",
			Content:   content,
			Excerpt:   title,
			Status:    model.PostStatusPublished,
			Language:  model.DefaultLanguage,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		owner := sql.NullInt64{Int64: site.OwnerID, Valid: true}
		if _, err := q.AppendVersion(ctx, post.ID, content, owner, now, model.MaxPostVersions); err != nil {
			return err
		}
		if err := q.AdjustSitePostCount(ctx, site.ID, 1, now); err != nil {
			return err
		}
		return q.MarkSiteInitialized(ctx, site.ID, now)
	})
	if err != nil {
		s.logger.Error("site initialization failed", "error", err, "site_id", site.ID)
		return
	}
	s.logger.Info("site initialized", "site_id", site.ID)
}

func welcomePost(site model.Site) (string, string) {
	switch site.Type {
	case model.SiteTypePortfolio:
		return "Welcome to My Portfolio",
			"<h1>Welcome to My Portfolio</h1><p>This space showcases my work, skills and creative journey.</p>"
	case model.SiteTypeBusiness:
		return "Welcome to Our Business",
			"<h1>Welcome to Our Business</h1><p>We are dedicated to providing exceptional service to our customers.</p>"
	case model.SiteTypeNews:
		return "Welcome to " + site.Name,
			"<h1>Latest News</h1><p>Stay tuned for the latest stories and updates.</p>"
	default:
		return "Welcome to Your Blog",
			"<h1>Welcome to Your New Blog!</h1><p>This is your first post. Edit or delete it, then start writing.</p>"
	}
}

// GetSite returns a site to its owner or members.
func (s *SiteService) GetSite(ctx context.Context, p *rbac.Principal, siteID int64) (*model.Site, error) {
	site, scope, err := s.scope(ctx, p, siteID)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.RequireSiteAccess(p, scope, ""), "read site", "site_id", siteID); err != nil {
		return nil, err
	}
	return site, nil
}

// UpdateSite edits a site. Requires ownership or manage_site.
func (s *SiteService) UpdateSite(ctx context.Context, p *rbac.Principal, siteID int64, in SiteUpdate) (*model.Site, error) {
	site, scope, err := s.scope(ctx, p, siteID)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.RequireSiteAccess(p, scope, model.SitePermManageSite), "update site", "site_id", siteID); err != nil {
		return nil, err
	}

	params := store.UpdateSiteParams{
		ID:           site.ID,
		Name:         site.Name,
		Type:         site.Type,
		Template:     site.Template,
		Theme:        site.Theme,
		Settings:     site.Settings,
		CustomDomain: site.CustomDomain.String,
		IsActive:     site.IsActive,
		UpdatedAt:    s.now(),
	}

	verr := &ValidationError{}
	if in.Name != nil {
		params.Name = strings.TrimSpace(*in.Name)
		if params.Name == "" {
			verr.Add("name", "name is required")
		}
	}
	if in.Type != nil {
		params.Type = *in.Type
		if !slices.Contains(model.SiteTypes, params.Type) {
			verr.Add("type", "unknown site type")
		}
	}
	if in.Template != nil {
		params.Template = *in.Template
	}
	if in.Theme != nil {
		params.Theme = *in.Theme
	}
	if in.Settings != nil {
		params.Settings = *in.Settings
	}
	if in.CustomDomain != nil {
		params.CustomDomain = strings.ToLower(strings.TrimSpace(*in.CustomDomain))
		if params.CustomDomain != "" && !site.Features.CustomDomain {
			verr.Add("custom_domain", "the current plan does not include custom domains")
		}
	}
	if in.IsActive != nil {
		params.IsActive = *in.IsActive
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	updated, err := s.queries.UpdateSite(ctx, params)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: custom domain already in use", ErrConflict)
		}
		return nil, fmt.Errorf("updating site %d: %w", siteID, err)
	}

	s.invalidate(ctx, site)
	s.logger.Info("site updated", "site_id", siteID, "user_id", p.UserID)
	return &updated, nil
}

// DeleteSite removes a site with its memberships, subscription and posts.
// Only the owner may delete it.
func (s *SiteService) DeleteSite(ctx context.Context, p *rbac.Principal, siteID int64) error {
	site, scope, err := s.scope(ctx, p, siteID)
	if err != nil {
		return err
	}
	if err := s.deny.check(ctx, p, ownerOnly(s.eval, p, site, scope), "delete site", "site_id", siteID); err != nil {
		return err
	}

	if err := s.queries.DeleteSite(ctx, siteID); err != nil {
		return fmt.Errorf("deleting site %d: %w", siteID, err)
	}

	s.invalidate(ctx, site)
	s.logger.Info("site deleted", "site_id", siteID, "subdomain", site.Subdomain, "user_id", p.UserID)
	s.audit(ctx, p, "site deleted", site)
	return nil
}

// ListUserSites returns the sites the caller owns and those they are a
// member of.
func (s *SiteService) ListUserSites(ctx context.Context, p *rbac.Principal) (UserSites, error) {
	out := UserSites{Owned: []model.Site{}, Member: []model.Site{}}
	if p == nil {
		return out, s.deny.check(ctx, p, rbac.Deny(rbac.ReasonUnauthenticated, ""), "list sites")
	}

	sites, err := s.queries.ListSitesForUser(ctx, p.UserID)
	if err != nil {
		return out, fmt.Errorf("listing sites: %w", err)
	}
	for _, site := range sites {
		if site.OwnerID == p.UserID {
			out.Owned = append(out.Owned, site)
		} else {
			out.Member = append(out.Member, site)
		}
	}
	return out, nil
}

// MemberInput is the payload of AddMember.
type MemberInput struct {
	UserID      int64
	Role        string
	Permissions []model.SitePermission
}

// AddMember grants a user access to a site. Requires ownership or
// manage_users; the plan's user quota applies.
func (s *SiteService) AddMember(ctx context.Context, p *rbac.Principal, siteID int64, in MemberInput) (*model.SiteUser, error) {
	site, scope, err := s.scope(ctx, p, siteID)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.RequireSiteAccess(p, scope, model.SitePermManageUsers), "add site member", "site_id", siteID); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if !model.IsValidSiteRole(in.Role) {
		verr.Add("role", "unknown site role")
	}
	perms := in.Permissions
	if perms == nil {
		perms = model.DefaultSitePermissions(in.Role)
	}
	for _, perm := range perms {
		if !model.IsValidSitePermission(perm) {
			verr.Add("permissions", fmt.Sprintf("unknown permission %q", perm))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.queries.GetUserByID(ctx, in.UserID); err != nil {
		return nil, notFound(err, "user")
	}

	var member model.SiteUser
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		n, err := q.CountSiteUsers(ctx, siteID)
		if err != nil {
			return err
		}
		if site.Features.MaxUsers > 0 && n >= site.Features.MaxUsers {
			return fmt.Errorf("%w: the %s plan allows %d users", ErrConflict, site.Plan, site.Features.MaxUsers)
		}
		member, err = q.CreateSiteUser(ctx, model.SiteUser{
			SiteID:      siteID,
			UserID:      in.UserID,
			Role:        in.Role,
			Permissions: perms,
			Status:      model.MembershipActive,
			InvitedBy:   sql.NullInt64{Int64: p.UserID, Valid: true},
			JoinedAt:    s.now(),
		})
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			return nil, err
		case store.IsUniqueViolation(err):
			return nil, fmt.Errorf("%w: user %d is already a member", ErrConflict, in.UserID)
		}
		return nil, fmt.Errorf("adding member to site %d: %w", siteID, err)
	}

	s.logger.Info("site member added", "site_id", siteID, "member_id", in.UserID, "role", in.Role, "user_id", p.UserID)
	return &member, nil
}

// RemoveMember revokes a membership. The owner's own membership cannot be
// removed.
func (s *SiteService) RemoveMember(ctx context.Context, p *rbac.Principal, siteID, userID int64) error {
	site, scope, err := s.scope(ctx, p, siteID)
	if err != nil {
		return err
	}
	if err := s.deny.check(ctx, p, s.eval.RequireSiteAccess(p, scope, model.SitePermManageUsers), "remove site member", "site_id", siteID); err != nil {
		return err
	}
	if userID == site.OwnerID {
		return invalid("user_id", "the site owner cannot be removed")
	}

	if err := s.queries.DeleteSiteUser(ctx, siteID, userID); err != nil {
		return notFound(err, "membership")
	}
	s.logger.Info("site member removed", "site_id", siteID, "member_id", userID, "user_id", p.UserID)
	return nil
}

// ListMembers returns the memberships of a site to anyone with site access.
func (s *SiteService) ListMembers(ctx context.Context, p *rbac.Principal, siteID int64) ([]model.SiteUser, error) {
	_, scope, err := s.scope(ctx, p, siteID)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.RequireSiteAccess(p, scope, ""), "list site members", "site_id", siteID); err != nil {
		return nil, err
	}
	members, err := s.queries.ListSiteUsers(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing members of site %d: %w", siteID, err)
	}
	return members, nil
}

// scope loads a site and the caller's standing in it.
func (s *SiteService) scope(ctx context.Context, p *rbac.Principal, siteID int64) (*model.Site, *rbac.SiteScope, error) {
	return loadScope(ctx, s.queries, p, siteID)
}

func (s *SiteService) invalidate(ctx context.Context, site *model.Site) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, site.ID, site.Subdomain)
	}
}

func (s *SiteService) audit(ctx context.Context, p *rbac.Principal, message string, site *model.Site) {
	if s.events == nil {
		return
	}
	uid := p.UserID
	_ = s.events.LogSiteEvent(ctx, model.EventLevelInfo, message, &uid, map[string]any{
		"site_id":   site.ID,
		"subdomain": site.Subdomain,
	})
}

// loadScope loads a site and, for an authenticated caller, their membership.
func loadScope(ctx context.Context, q *store.Queries, p *rbac.Principal, siteID int64) (*model.Site, *rbac.SiteScope, error) {
	site, err := q.GetSiteByID(ctx, siteID)
	if err != nil {
		return nil, nil, notFound(err, "site")
	}

	var membership *model.SiteUser
	if p != nil {
		m, err := q.GetSiteUser(ctx, siteID, p.UserID)
		switch {
		case err == nil:
			membership = &m
		case !errors.Is(err, sql.ErrNoRows):
			return nil, nil, fmt.Errorf("loading membership: %w", err)
		}
	}
	return &site, rbac.NewSiteScope(&site, membership), nil
}

// ownerOnly requires access to the site and ownership of it. Platform
// admins pass the ownership check only from inside the site.
func ownerOnly(eval *rbac.Evaluator, p *rbac.Principal, site *model.Site, scope *rbac.SiteScope) rbac.Decision {
	if d := eval.RequireSiteAccess(p, scope, ""); !d.Allowed {
		return d
	}
	return eval.Authorize(p, rbac.Ownership(site, "owner"))
}
