// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/scheduler"
)

type scheduleRequest struct {
	Schedule string `json:"schedule" validate:"required,max=100"`
}

// ListEvents handles GET /admin/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	pg := parsePage(r)
	q := r.URL.Query()
	events, err := h.events.ListEvents(r.Context(), q.Get("level"), q.Get("category"), pg.PerPage, pg.offset())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, eventsToResponse(events), pg.meta(len(events)))
}

// ListJobs handles GET /admin/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, h.jobs.List(), nil)
}

// RunJob handles POST /admin/jobs/{name}/run. The job runs synchronously.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.TriggerNow(r.Context(), name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			h.writeServiceError(w, r, err)
			return
		}
		middleware.WriteAPIError(w, http.StatusInternalServerError, "job_failed", "Job failed: "+err.Error(), nil)
		return
	}
	writeSuccess(w, h.jobInfo(name), nil)
}

// UpdateJobSchedule handles PUT /admin/jobs/{name}/schedule.
func (h *Handler) UpdateJobSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req scheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.jobs.UpdateSchedule(name, req.Schedule); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, h.jobInfo(name), nil)
}

// ResetJobSchedule handles DELETE /admin/jobs/{name}/schedule.
func (h *Handler) ResetJobSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.ResetSchedule(name); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, h.jobInfo(name), nil)
}

func (h *Handler) jobInfo(name string) *scheduler.JobInfo {
	for _, info := range h.jobs.List() {
		if info.Name == name {
			return &info
		}
	}
	return nil
}
