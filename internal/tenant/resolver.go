// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tenant resolves the site a request addresses and builds the site
// scope authorization decisions run against.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/sitehub/internal/cache"
	"github.com/olegiv/sitehub/internal/metrics"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/store"
)

// ErrSiteNotFound is returned when no active site matches a lookup.
var ErrSiteNotFound = errors.New("site not found")

// DefaultTTL is how long resolved sites stay cached.
const DefaultTTL = 5 * time.Minute

// ignoredLabels never name a site.
var ignoredLabels = map[string]struct{}{
	"www": {},
	"api": {},
}

// Resolver finds active sites by id or request host. Results are cached and
// concurrent misses for the same key share one database query.
type Resolver struct {
	queries    *store.Queries
	sites      *cache.TypedCache[model.Site]
	hosts      *cache.TypedCache[int64]
	group      singleflight.Group
	baseDomain string
	logger     *slog.Logger
}

// NewResolver creates a Resolver. baseDomain is the platform domain whose
// subdomains are sites; any other host is looked up as a custom domain.
func NewResolver(db *sql.DB, c cache.Cacher, ttl time.Duration, baseDomain string, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		queries:    store.New(db),
		sites:      cache.NewTypedCache[model.Site](c, ttl),
		hosts:      cache.NewTypedCache[int64](c, ttl),
		baseDomain: normalizeHost(baseDomain),
		logger:     logger,
	}
}

// ByID returns an active site by id.
func (r *Resolver) ByID(ctx context.Context, id int64) (*model.Site, error) {
	key := siteKey(id)
	if site, ok := r.sites.Get(ctx, key); ok {
		metrics.SiteCacheLookupsTotal.WithLabelValues("hit").Inc()
		return site, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if site, ok := r.sites.Get(ctx, key); ok {
			return site, nil
		}
		metrics.SiteCacheLookupsTotal.WithLabelValues("miss").Inc()
		site, err := r.queries.GetSiteByID(ctx, id)
		if err != nil {
			return nil, r.lookupError(err, "id", key)
		}
		if !site.IsActive {
			return nil, ErrSiteNotFound
		}
		r.store(ctx, key, &site)
		return &site, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Site), nil
}

// ByHost returns the active site a request host addresses: a subdomain of
// the base domain or a custom domain. The port is ignored.
func (r *Resolver) ByHost(ctx context.Context, host string) (*model.Site, error) {
	host = normalizeHost(host)
	if host == "" || r.isPlatformHost(host) {
		return nil, ErrSiteNotFound
	}

	key := hostKey(host)
	if id, ok := r.hosts.Get(ctx, key); ok {
		site, err := r.ByID(ctx, *id)
		if err == nil && r.matches(site, host) {
			return site, nil
		}
		// The site moved or went away since the host was cached.
		_ = r.hosts.Delete(ctx, key)
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		metrics.SiteCacheLookupsTotal.WithLabelValues("miss").Inc()
		var (
			site model.Site
			err  error
		)
		if sub := SubdomainFromHost(host, r.baseDomain); sub != "" {
			site, err = r.queries.GetActiveSiteBySubdomain(ctx, sub)
		} else {
			site, err = r.queries.GetActiveSiteByCustomDomain(ctx, host)
		}
		if err != nil {
			return nil, r.lookupError(err, "host", host)
		}
		r.store(ctx, siteKey(site.ID), &site)
		if err := r.hosts.Set(ctx, key, &site.ID); err != nil {
			r.logger.Warn("failed to cache site host", "host", host, "error", err)
		}
		return &site, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Site), nil
}

// Invalidate drops cached entries of a site. Custom domain entries are
// revalidated on their next lookup.
func (r *Resolver) Invalidate(ctx context.Context, siteID int64, subdomain string) {
	_ = r.sites.Delete(ctx, siteKey(siteID))
	if subdomain != "" && r.baseDomain != "" {
		_ = r.hosts.Delete(ctx, hostKey(subdomain+"."+r.baseDomain))
	}
	r.logger.Debug("site cache invalidated", "site_id", siteID)
}

func (r *Resolver) store(ctx context.Context, key string, site *model.Site) {
	if err := r.sites.Set(ctx, key, site); err != nil {
		r.logger.Warn("failed to cache site", "key", key, "error", err)
	}
}

func (r *Resolver) lookupError(err error, by, value string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSiteNotFound
	}
	metrics.SiteCacheLookupsTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("resolving site by %s %q: %w", by, value, err)
}

func (r *Resolver) isPlatformHost(host string) bool {
	if r.baseDomain == "" {
		return false
	}
	if host == r.baseDomain {
		return true
	}
	label, ok := strings.CutSuffix(host, "."+r.baseDomain)
	if !ok {
		return false
	}
	_, ignored := ignoredLabels[label]
	return ignored
}

func (r *Resolver) matches(site *model.Site, host string) bool {
	if sub := SubdomainFromHost(host, r.baseDomain); sub != "" {
		return site.Subdomain == sub
	}
	return site.CustomDomain.Valid && site.CustomDomain.String == host
}

// SubdomainFromHost returns the site label of host, or "" when host does
// not name a site subdomain. With a base domain only its direct children
// count; without one the first label of a host with three or more labels
// is used.
func SubdomainFromHost(host, baseDomain string) string {
	host = normalizeHost(host)
	baseDomain = normalizeHost(baseDomain)

	var label string
	if baseDomain != "" {
		sub, ok := strings.CutSuffix(host, "."+baseDomain)
		if !ok || strings.Contains(sub, ".") {
			return ""
		}
		label = sub
	} else {
		labels := strings.Split(host, ".")
		if len(labels) < 3 {
			return ""
		}
		label = labels[0]
	}

	if _, ignored := ignoredLabels[label]; ignored {
		return ""
	}
	return label
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func siteKey(id int64) string {
	return "site:id:" + strconv.FormatInt(id, 10)
}

func hostKey(host string) string {
	return "site:host:" + host
}
