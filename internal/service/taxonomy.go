// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"html"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
	"github.com/olegiv/sitehub/internal/util"
)

// TaxonomyService manages the categories and tags of a site. Both are
// readable by anyone; changes need manage_categories or manage_tags.
type TaxonomyService struct {
	db      *sql.DB
	queries *store.Queries
	eval    *rbac.Evaluator
	logger  *slog.Logger
	deny    denier
	plain   *bluemonday.Policy
	now     func() time.Time
}

// NewTaxonomyService creates a TaxonomyService.
func NewTaxonomyService(db *sql.DB, eval *rbac.Evaluator, events *EventService, logger *slog.Logger) *TaxonomyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxonomyService{
		db:      db,
		queries: store.New(db),
		eval:    eval,
		logger:  logger,
		deny:    denier{logger: logger, events: events},
		plain:   bluemonday.StrictPolicy(),
		now:     time.Now,
	}
}

// CategoryInput is the payload of CreateCategory and UpdateCategory.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

// ListCategories returns the categories of a site.
func (s *TaxonomyService) ListCategories(ctx context.Context, siteID int64) ([]model.Category, error) {
	categories, err := s.queries.ListCategories(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// CreateCategory adds a category to the scoped site.
func (s *TaxonomyService) CreateCategory(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, in CategoryInput) (*model.Category, error) {
	if err := s.deny.check(ctx, p, s.eval.AuthorizeTaxonomy(p, scope, model.PermManageCategories), "create category"); err != nil {
		return nil, err
	}
	params, err := s.categoryParams(scope.SiteID, in)
	if err != nil {
		return nil, err
	}
	category, err := s.queries.CreateCategory(ctx, params)
	if err != nil {
		return nil, taxonomyWriteError(err, "category")
	}
	s.logger.Info("category created", "category_id", category.ID, "site_id", category.SiteID, "user_id", p.UserID)
	return &category, nil
}

// UpdateCategory replaces the fields of a category of the scoped site.
func (s *TaxonomyService) UpdateCategory(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64, in CategoryInput) (*model.Category, error) {
	if err := s.deny.check(ctx, p, s.eval.AuthorizeTaxonomy(p, scope, model.PermManageCategories), "update category", "category_id", id); err != nil {
		return nil, err
	}
	params, err := s.categoryParams(scope.SiteID, in)
	if err != nil {
		return nil, err
	}
	params.ID = id
	category, err := s.queries.UpdateCategory(ctx, params)
	if err != nil {
		return nil, taxonomyWriteError(err, "category")
	}
	return &category, nil
}

// DeleteCategory removes a category and detaches it from every post.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64) error {
	if err := s.deny.check(ctx, p, s.eval.AuthorizeTaxonomy(p, scope, model.PermManageCategories), "delete category", "category_id", id); err != nil {
		return err
	}
	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		return q.DeleteCategory(ctx, scope.SiteID, id)
	})
	if err != nil {
		return notFound(err, "category")
	}
	s.logger.Info("category deleted", "category_id", id, "site_id", scope.SiteID, "user_id", p.UserID)
	return nil
}

// ListTags returns the tags of a site.
func (s *TaxonomyService) ListTags(ctx context.Context, siteID int64) ([]model.Tag, error) {
	tags, err := s.queries.ListTags(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// CreateTag adds a tag to the scoped site.
func (s *TaxonomyService) CreateTag(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, name string) (*model.Tag, error) {
	if err := s.deny.check(ctx, p, s.eval.AuthorizeTaxonomy(p, scope, model.PermManageTags), "create tag"); err != nil {
		return nil, err
	}
	verr := &ValidationError{}
	tags := cleanTags(verr, []string{s.plainText(name)})
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, invalid("name", "name is required")
	}
	tag, err := s.queries.CreateTag(ctx, scope.SiteID, tags[0], util.Slugify(tags[0]), s.now())
	if err != nil {
		return nil, taxonomyWriteError(err, "tag")
	}
	return &tag, nil
}

// DeleteTag removes a tag and strips it from every post.
func (s *TaxonomyService) DeleteTag(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64) error {
	if err := s.deny.check(ctx, p, s.eval.AuthorizeTaxonomy(p, scope, model.PermManageTags), "delete tag", "tag_id", id); err != nil {
		return err
	}
	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		return q.DeleteTag(ctx, scope.SiteID, id)
	})
	if err != nil {
		return notFound(err, "tag")
	}
	s.logger.Info("tag deleted", "tag_id", id, "site_id", scope.SiteID, "user_id", p.UserID)
	return nil
}

func (s *TaxonomyService) categoryParams(siteID int64, in CategoryInput) (store.CategoryParams, error) {
	verr := &ValidationError{}
	name := s.plainText(in.Name)
	switch {
	case name == "":
		verr.Add("name", "name is required")
	case utf8.RuneCountInString(name) > model.MaxCategoryNameLength:
		verr.Add("name", fmt.Sprintf("name must be at most %d characters", model.MaxCategoryNameLength))
	}
	description := s.plainText(in.Description)
	if utf8.RuneCountInString(description) > model.MaxCategoryDescriptionLength {
		verr.Add("description", fmt.Sprintf("description must be at most %d characters", model.MaxCategoryDescriptionLength))
	}
	slug := util.Slugify(in.Slug)
	if strings.TrimSpace(in.Slug) == "" {
		slug = util.Slugify(name)
	}
	if slug == "" && name != "" {
		verr.Add("slug", "slug must contain letters or digits")
	}
	if err := verr.OrNil(); err != nil {
		return store.CategoryParams{}, err
	}
	return store.CategoryParams{SiteID: siteID, Name: name, Slug: slug, Description: description, Now: s.now()}, nil
}

func (s *TaxonomyService) plainText(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.plain.Sanitize(in)))
}

// taxonomyWriteError maps a taken name or slug to ErrConflict.
func taxonomyWriteError(err error, what string) error {
	if store.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s name or slug already taken", ErrConflict, what)
	}
	return notFound(err, what)
}

// cleanTags trims tags and drops blanks and duplicates, keeping order.
func cleanTags(verr *ValidationError, tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		switch {
		case utf8.RuneCountInString(tag) > model.MaxTagNameLength:
			verr.Add("tags", fmt.Sprintf("tags must be at most %d characters", model.MaxTagNameLength))
		case util.Slugify(tag) == "":
			verr.Add("tags", "tags must contain letters or digits")
		}
		out = append(out, tag)
	}
	return out
}

// cleanCategories drops duplicate ids and checks the rest belong to siteID.
func cleanCategories(ctx context.Context, q *store.Queries, verr *ValidationError, siteID int64, ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return out, nil
	}
	n, err := q.CountSiteCategories(ctx, siteID, out)
	if err != nil {
		return nil, fmt.Errorf("checking categories: %w", err)
	}
	if n != len(out) {
		verr.Add("categories", "unknown category")
	}
	return out, nil
}

// registerTags makes every tag on a post known to the site.
func registerTags(ctx context.Context, q *store.Queries, siteID int64, tags []string, now time.Time) error {
	for _, tag := range tags {
		if err := q.EnsureTag(ctx, siteID, tag, util.Slugify(tag), now); err != nil {
			return fmt.Errorf("registering tag %q: %w", tag, err)
		}
	}
	return nil
}
