// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP API of sitehub.
package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/sitehub/internal/auth"
	"github.com/olegiv/sitehub/internal/cache"
	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/scheduler"
	"github.com/olegiv/sitehub/internal/service"
	"github.com/olegiv/sitehub/internal/tenant"
	"github.com/olegiv/sitehub/internal/version"
)

// Deps are the collaborators of the API handlers.
type Deps struct {
	DB            *sql.DB
	Cache         cache.Cacher
	Tokens        *auth.TokenManager
	Eval          *rbac.Evaluator
	Accounts      *service.AccountService
	Posts         *service.PostService
	Comments      *service.CommentService
	Taxonomy      *service.TaxonomyService
	Sites         *service.SiteService
	Subscriptions *service.SubscriptionService
	Events        *service.EventService
	Resolver      *tenant.Resolver
	Boundary      *tenant.Boundary
	Jobs          *scheduler.Registry

	LoginProtection *middleware.LoginProtection
	RateLimiter     *middleware.RateLimiter
	Security        middleware.SecurityHeadersConfig
	RequestTimeout  time.Duration
	Build           version.Info
	Logger          *slog.Logger
}

// Handler serves the JSON API.
type Handler struct {
	db            *sql.DB
	cache         cache.Cacher
	eval          *rbac.Evaluator
	accounts      *service.AccountService
	posts         *service.PostService
	comments      *service.CommentService
	taxonomy      *service.TaxonomyService
	sites         *service.SiteService
	subscriptions *service.SubscriptionService
	events        *service.EventService
	resolver      *tenant.Resolver
	boundary      *tenant.Boundary
	jobs          *scheduler.Registry

	authn           *middleware.Authenticator
	loginProtection *middleware.LoginProtection
	rateLimiter     *middleware.RateLimiter
	security        middleware.SecurityHeadersConfig
	timeout         time.Duration

	validate  *validator.Validate
	trans     ut.Translator
	build     version.Info
	logger    *slog.Logger
	startTime time.Time
}

// New creates the API handler.
func New(d Deps) (*Handler, error) {
	if d.DB == nil || d.Tokens == nil || d.Accounts == nil || d.Posts == nil || d.Comments == nil ||
		d.Taxonomy == nil || d.Sites == nil ||
		d.Subscriptions == nil || d.Events == nil || d.Resolver == nil || d.Boundary == nil || d.Jobs == nil {
		return nil, errors.New("handler: missing dependency")
	}
	validate, trans, err := newValidator()
	if err != nil {
		return nil, err
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	eval := d.Eval
	if eval == nil {
		eval = rbac.NewEvaluator(rbac.MustDefaultRegistry())
	}
	lp := d.LoginProtection
	if lp == nil {
		lp = middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Handler{
		db:              d.DB,
		cache:           d.Cache,
		eval:            eval,
		accounts:        d.Accounts,
		posts:           d.Posts,
		comments:        d.Comments,
		taxonomy:        d.Taxonomy,
		sites:           d.Sites,
		subscriptions:   d.Subscriptions,
		events:          d.Events,
		resolver:        d.Resolver,
		boundary:        d.Boundary,
		jobs:            d.Jobs,
		authn:           middleware.NewAuthenticator(d.Tokens, d.Accounts),
		loginProtection: lp,
		rateLimiter:     d.RateLimiter,
		security:        d.Security,
		timeout:         timeout,
		validate:        validate,
		trans:           trans,
		build:           d.Build.OrDefault(),
		logger:          logger,
		startTime:       time.Now(),
	}, nil
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Metrics)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Timeout(h.timeout))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(h.security))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", h.Liveness)
	r.Get("/health/ready", h.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(h.authn.OptionalAuth)
		if h.rateLimiter != nil {
			r.Use(h.rateLimiter.Middleware())
		}

		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/verify-email", h.VerifyEmail)
			r.Post("/resend-verification", h.ResendVerification)
			r.With(h.loginProtection.Middleware()).Post("/token", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)

			r.With(h.authn.RequireAuth).Post("/logout", h.Logout)
			r.With(h.authn.RequireAuth).Get("/me", h.Me)
		})

		r.Get("/plans", h.ListPlans)
		r.Get("/subdomains/{subdomain}", h.CheckSubdomain)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ResolveSite(h.resolver))
			r.Use(middleware.RequireSite)
			r.Get("/public/posts/{slug}", h.ViewPublishedPost)
			r.Get("/public/posts/{slug}/comments", h.ListPublicComments)
			r.Get("/public/categories", h.ListCategories)
			r.Get("/public/tags", h.ListTags)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authn.RequireAuth)
		if h.rateLimiter != nil {
			r.Use(h.rateLimiter.Middleware())
		}

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", h.ListSites)
			r.Post("/", h.CreateSite)

			r.Route("/{siteID}", func(r chi.Router) {
				r.Get("/", h.GetSite)
				r.Patch("/", h.UpdateSite)
				r.Delete("/", h.DeleteSite)

				r.Get("/members", h.ListMembers)
				r.Post("/members", h.AddMember)
				r.Delete("/members/{userID}", h.RemoveMember)

				r.Get("/subscription", h.GetSubscription)
				r.Post("/subscription/upgrade", h.UpgradeSubscription)
				r.Post("/subscription/cancel", h.CancelSubscription)
				r.Get("/usage", h.GetUsage)

				r.Route("/posts", func(r chi.Router) {
					r.Get("/", h.ListPosts)
					r.Post("/", h.CreatePost)
					r.Get("/{postID}", h.GetPost)
					r.Patch("/{postID}", h.UpdatePost)
					r.Delete("/{postID}", h.DeletePost)
					r.Get("/{postID}/versions", h.ListVersions)
					r.Post("/{postID}/versions/{versionID}/restore", h.RestoreVersion)
					r.Post("/{postID}/translations", h.TranslatePost)
					r.Get("/{postID}/views", h.ViewHistory)
					r.Post("/{postID}/comments", h.CreateComment)
				})

				r.Get("/comments", h.ListComments)
				r.Patch("/comments/{commentID}", h.ModerateComment)
				r.Delete("/comments/{commentID}", h.DeleteComment)

				r.Get("/categories", h.ListCategories)
				r.Post("/categories", h.CreateCategory)
				r.Put("/categories/{categoryID}", h.UpdateCategory)
				r.Delete("/categories/{categoryID}", h.DeleteCategory)

				r.Get("/tags", h.ListTags)
				r.Post("/tags", h.CreateTag)
				r.Delete("/tags/{tagID}", h.DeleteTag)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RequirePermission(h.eval, model.PermManageRoles, h.events)).
				Put("/users/{userID}/role", h.ChangeRole)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(h.eval, model.PermManageSettings, h.events))
				r.Get("/events", h.ListEvents)
				r.Get("/jobs", h.ListJobs)
				r.Post("/jobs/{name}/run", h.RunJob)
				r.Put("/jobs/{name}/schedule", h.UpdateJobSchedule)
				r.Delete("/jobs/{name}/schedule", h.ResetJobSchedule)
			})
		})
	})

	return r
}

// siteScope loads the site named by the siteID URL parameter and the
// caller's standing in it.
func (h *Handler) siteScope(w http.ResponseWriter, r *http.Request) (*model.Site, *rbac.SiteScope, bool) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return nil, nil, false
	}
	site, err := h.resolver.ByID(r.Context(), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, nil, false
	}
	scope, err := h.boundary.Scope(r.Context(), site, middleware.GetPrincipal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, nil, false
	}
	return site, scope, true
}
