// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
)

// Boundary builds site scopes: the site a request operates in together with
// the caller's membership there.
type Boundary struct {
	queries *store.Queries
}

// NewBoundary creates a Boundary.
func NewBoundary(db *sql.DB) *Boundary {
	return &Boundary{queries: store.New(db)}
}

// Scope returns the scope of p within site. Anonymous callers and
// non-members get a scope without membership; the evaluator decides what
// that allows.
func (b *Boundary) Scope(ctx context.Context, site *model.Site, p *rbac.Principal) (*rbac.SiteScope, error) {
	if site == nil {
		return nil, nil
	}
	if p == nil {
		return rbac.NewSiteScope(site, nil), nil
	}

	m, err := b.queries.GetSiteUser(ctx, site.ID, p.UserID)
	switch {
	case err == nil:
		return rbac.NewSiteScope(site, &m), nil
	case errors.Is(err, sql.ErrNoRows):
		return rbac.NewSiteScope(site, nil), nil
	default:
		return nil, fmt.Errorf("loading membership of user %d in site %d: %w", p.UserID, site.ID, err)
	}
}

type ctxKey int

const siteKeyCtx ctxKey = iota

// WithSite returns a copy of ctx carrying the resolved site.
func WithSite(ctx context.Context, site *model.Site) context.Context {
	return context.WithValue(ctx, siteKeyCtx, site)
}

// SiteFromContext returns the site resolved for the request, if any.
func SiteFromContext(ctx context.Context) *model.Site {
	site, _ := ctx.Value(siteKeyCtx).(*model.Site)
	return site
}
