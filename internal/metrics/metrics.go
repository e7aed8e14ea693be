// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics holds the Prometheus instruments shared across sitehub.
// All collectors are registered with the default registry, so mounting
// promhttp.Handler() on /metrics is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PostsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehub_posts_created_total",
			Help: "Posts created, by initial status.",
		}, []string{"status"})

	PostTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehub_post_transitions_total",
			Help: "Post status transitions, by target status.",
		}, []string{"status"})

	ScheduledPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitehub_scheduled_published_total",
			Help: "Scheduled posts promoted by the publication sweep.",
		})

	AuthzDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehub_authz_denied_total",
			Help: "Authorization denials, by reason.",
		}, []string{"reason"})

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehub_notifications_total",
			Help: "Notification deliveries, by result (sent, failed, dropped).",
		}, []string{"result"})

	SiteCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehub_site_cache_lookups_total",
			Help: "Site resolver lookups, by result (hit, miss, error).",
		}, []string{"result"})

	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehub_job_runs_total",
			Help: "Background job runs, by job and result.",
		}, []string{"job", "result"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitehub_http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"})
)

func init() {
	prometheus.MustRegister(
		PostsCreatedTotal,
		PostTransitionsTotal,
		ScheduledPublishedTotal,
		AuthzDeniedTotal,
		NotificationsTotal,
		SiteCacheLookupsTotal,
		JobRunsTotal,
		HTTPRequestDuration,
	)
}
