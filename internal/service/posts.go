// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"

	"github.com/olegiv/sitehub/internal/metrics"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/notify"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
	"github.com/olegiv/sitehub/internal/util"
)

const (
	// maxSlugAttempts bounds the "-1", "-2", ... suffix search.
	maxSlugAttempts = 100
	// derivedExcerptLength is the rune budget of an excerpt cut from content.
	derivedExcerptLength = 200
)

// PostService implements the post lifecycle: authoring, status changes,
// the version ledger, translations, scheduled publishing and view counts.
type PostService struct {
	db       *sql.DB
	queries  *store.Queries
	eval     *rbac.Evaluator
	notifier notify.Notifier
	events   *EventService
	logger   *slog.Logger
	deny     denier
	rich     *bluemonday.Policy
	plain    *bluemonday.Policy
	now      func() time.Time
}

// NewPostService creates a PostService. A nil notifier discards events.
func NewPostService(db *sql.DB, eval *rbac.Evaluator, notifier notify.Notifier, events *EventService, logger *slog.Logger) *PostService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		db:       db,
		queries:  store.New(db),
		eval:     eval,
		notifier: notifier,
		events:   events,
		logger:   logger,
		deny:     denier{logger: logger, events: events},
		rich:     bluemonday.UGCPolicy(),
		plain:    bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

// PostInput is the payload of CreatePost.
type PostInput struct {
	Title       string
	Slug        string
	Content     string
	Excerpt     string
	Status      string
	ScheduledAt *time.Time
	Language    string
	Categories  []int64
	Tags        []string
}

// PostUpdate is the payload of UpdatePost. Nil fields are left unchanged.
type PostUpdate struct {
	Title       *string
	Slug        *string
	Content     *string
	Excerpt     *string
	Status      *string
	ScheduledAt *time.Time
	Language    *string
	Categories  []int64
	Tags        []string
}

// ListPostsFilter narrows ListPosts.
type ListPostsFilter struct {
	Status   string
	AuthorID int64
	Limit    int
	Offset   int
}

// CreatePost creates a post in the scoped site. A caller who may not
// publish has any requested status other than draft clamped to draft.
func (s *PostService) CreatePost(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, in PostInput) (*model.Post, error) {
	candidate := &model.Post{SiteID: scopeSiteID(scope), AuthorID: principalID(p), Status: model.PostStatusDraft}
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionCreate, candidate), "create post"); err != nil {
		return nil, err
	}
	if scope == nil {
		return nil, s.deny.check(ctx, p, rbac.Deny(rbac.ReasonSiteContextRequired, ""), "create post")
	}

	now := s.now()
	verr := &ValidationError{}

	title := s.plainText(in.Title)
	validateTitle(verr, title)
	content := s.rich.Sanitize(in.Content)
	if strings.TrimSpace(content) == "" {
		verr.Add("content", "content is required")
	}
	excerpt := s.plainText(in.Excerpt)
	validateExcerpt(verr, excerpt)
	if excerpt == "" {
		excerpt = s.deriveExcerpt(content)
	}

	lang, err := normalizeLanguage(in.Language)
	if err != nil {
		verr.Add("language", err.Error())
	}

	status := in.Status
	if status == "" {
		status = model.PostStatusDraft
	}
	if !model.IsValidPostStatus(status) {
		verr.Add("status", "unknown status")
	}
	if status != model.PostStatusDraft && !s.eval.CanPublish(p, scope) {
		s.logger.Debug("post status clamped to draft", "requested", status, "user_id", p.UserID)
		status = model.PostStatusDraft
	}

	var scheduledAt sql.NullTime
	if status == model.PostStatusScheduled {
		scheduledAt = s.validateSchedule(verr, in.ScheduledAt, now)
	}
	if status == model.PostStatusArchived {
		if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionArchive, candidate), "archive post"); err != nil {
			return nil, err
		}
	}

	base, ok := slugBase(in.Slug, title)
	if !ok {
		verr.Add("slug", "slug must contain letters or digits")
	}
	categories, err := cleanCategories(ctx, s.queries, verr, scope.SiteID, in.Categories)
	if err != nil {
		return nil, err
	}
	tags := cleanTags(verr, in.Tags)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var post model.Post
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		created, err := insertWithSlug(base, func(slug string) (model.Post, error) {
			return q.CreatePost(ctx, store.CreatePostParams{
				SiteID:      scope.SiteID,
				AuthorID:    p.UserID,
				Title:       title,
				Slug:        slug,
				Content:     content,
				Excerpt:     excerpt,
				Status:      status,
				ScheduledAt: scheduledAt,
				Language:    lang,
				Categories:  categories,
				Tags:        tags,
				CreatedAt:   now,
			})
		})
		if err != nil {
			return err
		}
		post = created
		if err := registerTags(ctx, q, scope.SiteID, tags, now); err != nil {
			return err
		}
		if _, err := q.AppendVersion(ctx, post.ID, post.Content, editorID(p), now, model.MaxPostVersions); err != nil {
			return err
		}
		return q.AdjustSitePostCount(ctx, scope.SiteID, 1, now)
	})
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}

	metrics.PostsCreatedTotal.WithLabelValues(post.Status).Inc()
	s.logger.Info("post created", "post_id", post.ID, "site_id", post.SiteID, "status", post.Status, "user_id", p.UserID)
	s.audit(ctx, p, "post created", &post)
	s.notifyCreated(ctx, &post)
	return &post, nil
}

// UpdatePost edits a post. Content changes append a version to the
// ledger in the same transaction as the write.
func (s *PostService) UpdatePost(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64, in PostUpdate) (*model.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionEdit, post), "edit post", "post_id", id); err != nil {
		return nil, err
	}

	now := s.now()
	verr := &ValidationError{}

	title := post.Title
	if in.Title != nil {
		title = s.plainText(*in.Title)
		validateTitle(verr, title)
	}
	content := post.Content
	if in.Content != nil {
		content = s.rich.Sanitize(*in.Content)
		if strings.TrimSpace(content) == "" {
			verr.Add("content", "content is required")
		}
	}
	excerpt := post.Excerpt
	if in.Excerpt != nil {
		excerpt = s.plainText(*in.Excerpt)
		validateExcerpt(verr, excerpt)
	}
	if excerpt == "" {
		excerpt = s.deriveExcerpt(content)
	}
	lang := post.Language
	if in.Language != nil {
		if lang, err = normalizeLanguage(*in.Language); err != nil {
			verr.Add("language", err.Error())
		}
	}
	categories := post.Categories
	if in.Categories != nil {
		if categories, err = cleanCategories(ctx, s.queries, verr, post.SiteID, in.Categories); err != nil {
			return nil, err
		}
	}
	tags := post.Tags
	if in.Tags != nil {
		tags = cleanTags(verr, in.Tags)
	}

	slugChanged := false
	base := post.Slug
	if in.Slug != nil {
		var ok bool
		if base, ok = slugBase(*in.Slug, title); !ok {
			verr.Add("slug", "slug must contain letters or digits")
		}
		slugChanged = base != post.Slug
	}

	status := post.Status
	if in.Status != nil {
		status = *in.Status
		if !model.IsValidPostStatus(status) {
			verr.Add("status", "unknown status")
		}
	}
	if status != post.Status && status != model.PostStatusDraft &&
		!s.eval.AuthorizePost(p, scope, rbac.ActionPublish, post).Allowed {
		s.logger.Debug("post status clamped to draft", "requested", status, "post_id", id)
		status = model.PostStatusDraft
	}
	if status != post.Status && (status == model.PostStatusArchived || post.Status == model.PostStatusArchived) {
		if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionArchive, post), "archive post", "post_id", id); err != nil {
			return nil, err
		}
	}

	scheduledAt := post.ScheduledAt
	if status == model.PostStatusScheduled {
		if in.ScheduledAt != nil || post.Status != model.PostStatusScheduled {
			scheduledAt = s.validateSchedule(verr, in.ScheduledAt, now)
		}
	} else {
		scheduledAt = sql.NullTime{}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	contentChanged := content != post.Content
	statusChanged := status != post.Status
	scheduleChanged := scheduledAt.Valid != post.ScheduledAt.Valid ||
		(scheduledAt.Valid && !scheduledAt.Time.Equal(post.ScheduledAt.Time))

	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		meta := store.UpdatePostMetaParams{
			ID:         post.ID,
			Title:      title,
			Excerpt:    excerpt,
			Language:   lang,
			Categories: categories,
			Tags:       tags,
			UpdatedAt:  now,
		}
		if slugChanged {
			_, err := insertWithSlug(base, func(slug string) (struct{}, error) {
				meta.Slug = slug
				return struct{}{}, q.UpdatePostMeta(ctx, meta)
			})
			if err != nil {
				return err
			}
		} else {
			meta.Slug = post.Slug
			if err := q.UpdatePostMeta(ctx, meta); err != nil {
				return err
			}
		}

		if in.Tags != nil {
			if err := registerTags(ctx, q, post.SiteID, tags, now); err != nil {
				return err
			}
		}
		if contentChanged {
			if err := q.SetPostContent(ctx, post.ID, content, now); err != nil {
				return err
			}
			if _, err := q.AppendVersion(ctx, post.ID, content, editorID(p), now, model.MaxPostVersions); err != nil {
				return err
			}
		}
		if statusChanged || scheduleChanged {
			return q.SetPostStatus(ctx, post.ID, status, scheduledAt, now)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating post %d: %w", id, err)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if statusChanged {
		metrics.PostTransitionsTotal.WithLabelValues(status).Inc()
		s.logger.Info("post status changed", "post_id", id, "from", post.Status, "to", status, "user_id", p.UserID)
		s.notifyStatusChanged(ctx, updated, post.Status, status)
	}
	return updated, nil
}

// DeletePost removes a post with its ledger, translation links and views.
func (s *PostService) DeletePost(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64) error {
	post, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionDelete, post), "delete post", "post_id", id); err != nil {
		return err
	}

	now := s.now()
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.DeletePost(ctx, id); err != nil {
			return err
		}
		return q.AdjustSitePostCount(ctx, post.SiteID, -1, now)
	})
	if err != nil {
		return fmt.Errorf("deleting post %d: %w", id, err)
	}

	s.logger.Info("post deleted", "post_id", id, "site_id", post.SiteID, "user_id", p.UserID)
	s.audit(ctx, p, "post deleted", post)
	return nil
}

// RestoreVersion replaces the live content with a ledger entry. The
// content being replaced is appended first unless the newest entry already
// holds it, then the restored content is appended like any other edit.
func (s *PostService) RestoreVersion(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, postID, versionID int64) (*model.Post, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionEdit, post), "restore post version", "post_id", postID); err != nil {
		return nil, err
	}

	version, err := s.queries.GetVersion(ctx, postID, versionID)
	if err != nil {
		return nil, notFound(err, "version")
	}
	if version.Content == post.Content {
		return post, nil
	}

	now := s.now()
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		latest, err := q.LatestVersion(ctx, postID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err != nil || latest.Content != post.Content {
			if _, err := q.AppendVersion(ctx, postID, post.Content, editorID(p), now, model.MaxPostVersions); err != nil {
				return err
			}
		}
		if err := q.SetPostContent(ctx, postID, version.Content, now); err != nil {
			return err
		}
		_, err = q.AppendVersion(ctx, postID, version.Content, editorID(p), now, model.MaxPostVersions)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("restoring version %d of post %d: %w", versionID, postID, err)
	}

	s.logger.Info("post version restored", "post_id", postID, "version_id", versionID, "user_id", p.UserID)
	return s.load(ctx, postID)
}

// TranslatePost creates a draft copy of a post in another language, owned
// by the caller and linked to the source. One translation per language.
func (s *PostService) TranslatePost(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, sourceID int64, lang string) (*model.Post, error) {
	if strings.TrimSpace(lang) == "" {
		return nil, invalid("language", "language is required")
	}
	tag, err := normalizeLanguage(lang)
	if err != nil {
		return nil, invalid("language", err.Error())
	}

	source, err := s.load(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionRead, source), "read post", "post_id", sourceID); err != nil {
		return nil, err
	}
	candidate := &model.Post{SiteID: source.SiteID, AuthorID: principalID(p), Status: model.PostStatusDraft}
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionCreate, candidate), "translate post", "post_id", sourceID); err != nil {
		return nil, err
	}
	if tag == source.Language {
		return nil, invalid("language", "translation language must differ from the source")
	}

	now := s.now()
	var post model.Post
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		created, err := insertWithSlug(source.Slug+"-"+util.Slugify(tag), func(slug string) (model.Post, error) {
			return q.CreatePost(ctx, store.CreatePostParams{
				SiteID:     source.SiteID,
				AuthorID:   p.UserID,
				Title:      source.Title,
				Slug:       slug,
				Content:    source.Content,
				Excerpt:    source.Excerpt,
				Status:     model.PostStatusDraft,
				Language:   tag,
				SourceID:   sql.NullInt64{Int64: source.ID, Valid: true},
				Categories: source.Categories,
				Tags:       source.Tags,
				CreatedAt:  now,
			})
		})
		if err != nil {
			return err
		}
		post = created
		if _, err := q.AppendVersion(ctx, post.ID, post.Content, editorID(p), now, model.MaxPostVersions); err != nil {
			return err
		}

		if err := q.CreateTranslation(ctx, source.ID, tag, post.ID, now); err != nil {
			if store.IsUniqueViolation(err) {
				return fmt.Errorf("%w: post %d already has a %s translation", ErrConflict, source.ID, tag)
			}
			return err
		}
		return q.AdjustSitePostCount(ctx, source.SiteID, 1, now)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("translating post %d: %w", sourceID, err)
	}

	metrics.PostsCreatedTotal.WithLabelValues(post.Status).Inc()
	s.logger.Info("post translated", "source_id", sourceID, "post_id", post.ID, "language", tag, "user_id", p.UserID)
	s.notifyCreated(ctx, &post)
	return &post, nil
}

// PublishScheduled promotes every scheduled post whose time has come and
// returns how many this call promoted. A post published concurrently by
// someone else is skipped; per-post failures are logged and skipped.
func (s *PostService) PublishScheduled(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.queries.ListDueScheduledPosts(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing scheduled posts: %w", err)
	}

	promoted := 0
	for i := range due {
		post := &due[i]
		if !post.DueForPublishing(now) {
			continue
		}
		ok, err := s.queries.PublishScheduledPost(ctx, post.ID, now)
		if err != nil {
			s.logger.Error("failed to publish scheduled post", "error", err, "post_id", post.ID)
			continue
		}
		if !ok {
			continue
		}
		promoted++
		metrics.ScheduledPublishedTotal.Inc()
		metrics.PostTransitionsTotal.WithLabelValues(model.PostStatusPublished).Inc()

		post.Status = model.PostStatusPublished
		s.notifyStatusChanged(ctx, post, model.PostStatusScheduled, model.PostStatusPublished)
	}

	if promoted > 0 {
		s.logger.Info("scheduled posts published", "count", promoted)
	}
	return promoted, nil
}

// GetPost returns a post with its translation links. Published posts are
// visible to everyone; other states follow the read policy.
func (s *PostService) GetPost(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64) (*model.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionRead, post), "read post", "post_id", id); err != nil {
		return nil, err
	}

	if post.Translations, err = s.queries.ListTranslations(ctx, post.ID); err != nil {
		return nil, fmt.Errorf("loading translations of post %d: %w", id, err)
	}
	return post, nil
}

// ViewPublished returns a published post by slug and counts the view.
func (s *PostService) ViewPublished(ctx context.Context, siteID int64, slug string) (*model.Post, error) {
	post, err := s.queries.GetPostBySlug(ctx, siteID, slug)
	if err != nil {
		return nil, notFound(err, "post")
	}
	if !post.IsPublished() {
		return nil, fmt.Errorf("post: %w", ErrNotFound)
	}
	if err := s.TrackView(ctx, &post); err != nil {
		s.logger.Warn("failed to record post view", "error", err, "post_id", post.ID)
	} else {
		post.Views++
	}
	return &post, nil
}

// TrackView counts one view of post in its total, today's bucket and the
// site totals. Buckets older than the retention window are pruned.
func (s *PostService) TrackView(ctx context.Context, post *model.Post) error {
	now := s.now()
	return store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.RecordView(ctx, post.ID, now, model.MaxViewHistoryDays); err != nil {
			return err
		}
		return q.IncrementSiteViews(ctx, post.SiteID)
	})
}

// ListPosts lists posts of the scoped site. Anonymous callers only see
// published posts; callers who cannot read other people's unpublished
// posts see published posts when asking for them and their own otherwise.
func (s *PostService) ListPosts(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, f ListPostsFilter) ([]model.Post, error) {
	if scope == nil {
		return nil, s.deny.check(ctx, p, rbac.Deny(rbac.ReasonSiteContextRequired, ""), "list posts")
	}
	if f.Status != "" && !model.IsValidPostStatus(f.Status) {
		return nil, invalid("status", "unknown status")
	}

	params := store.ListPostsParams{
		SiteID:   scope.SiteID,
		Status:   f.Status,
		AuthorID: f.AuthorID,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
	switch {
	case p == nil:
		params.Status = model.PostStatusPublished
	case f.Status == model.PostStatusPublished:
	default:
		candidate := &model.Post{SiteID: scope.SiteID, Status: model.PostStatusDraft}
		if !s.eval.AuthorizePost(p, scope, rbac.ActionRead, candidate).Allowed {
			params.AuthorID = p.UserID
		}
	}

	posts, err := s.queries.ListPosts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// ListVersions returns the ledger of a post, oldest first. The ledger of a
// published post is as private as an unpublished post.
func (s *PostService) ListVersions(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, postID int64) ([]model.PostVersion, error) {
	post, err := s.privateRead(ctx, p, scope, postID, "list post versions")
	if err != nil {
		return nil, err
	}
	versions, err := s.queries.ListVersions(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("listing versions of post %d: %w", postID, err)
	}
	return versions, nil
}

// ViewHistory returns the daily view buckets of a post.
func (s *PostService) ViewHistory(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, postID int64) ([]model.ViewDay, error) {
	post, err := s.privateRead(ctx, p, scope, postID, "read post analytics")
	if err != nil {
		return nil, err
	}
	days, err := s.queries.ListViewDays(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("listing views of post %d: %w", postID, err)
	}
	return days, nil
}

// privateRead applies the unpublished-read policy whatever the post's status.
func (s *PostService) privateRead(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, postID int64, action string) (*model.Post, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	hidden := *post
	hidden.Status = model.PostStatusDraft
	if err := s.deny.check(ctx, p, s.eval.AuthorizePost(p, scope, rbac.ActionRead, &hidden), action, "post_id", postID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) load(ctx context.Context, id int64) (*model.Post, error) {
	post, err := s.queries.GetPostByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return &post, nil
}

func (s *PostService) plainText(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.plain.Sanitize(in)))
}

// deriveExcerpt cuts the text of content at a word boundary.
func (s *PostService) deriveExcerpt(content string) string {
	text := strings.Join(strings.Fields(s.plainText(content)), " ")
	if utf8.RuneCountInString(text) <= derivedExcerptLength {
		return text
	}
	runes := []rune(text)[:derivedExcerptLength]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

func (s *PostService) validateSchedule(verr *ValidationError, at *time.Time, now time.Time) sql.NullTime {
	if at == nil {
		verr.Add("scheduled_at", "scheduled_at is required for scheduled posts")
		return sql.NullTime{}
	}
	if !at.After(now) {
		verr.Add("scheduled_at", "scheduled_at must be in the future")
		return sql.NullTime{}
	}
	return util.NullTimeFromPtr(at)
}

func (s *PostService) authorOf(ctx context.Context, userID int64) notify.Author {
	u, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return notify.Author{ID: userID}
	}
	return notify.Author{ID: u.ID, Name: u.Name}
}

func (s *PostService) notifyCreated(ctx context.Context, post *model.Post) {
	event := notify.NewPostCreated(post, s.authorOf(ctx, post.AuthorID), s.now())
	if err := s.notifier.Notify(ctx, notify.PostRooms, event); err != nil {
		s.logger.Warn("failed to send notification", "error", err, "event_type", event.Type, "post_id", post.ID)
	}
}

func (s *PostService) notifyStatusChanged(ctx context.Context, post *model.Post, from, to string) {
	event := notify.PostStatusChanged(post, s.authorOf(ctx, post.AuthorID), from, to, s.now())
	if err := s.notifier.Notify(ctx, notify.PostRooms, event); err != nil {
		s.logger.Warn("failed to send notification", "error", err, "event_type", event.Type, "post_id", post.ID)
	}
}

func (s *PostService) audit(ctx context.Context, p *rbac.Principal, message string, post *model.Post) {
	if s.events == nil {
		return
	}
	uid := p.UserID
	_ = s.events.LogPostEvent(ctx, model.EventLevelInfo, message, &uid, map[string]any{
		"post_id": post.ID,
		"site_id": post.SiteID,
		"slug":    post.Slug,
	})
}

// insertWithSlug runs write with base, then base-1, base-2, ... while the
// (site_id, slug) unique index rejects it.
func insertWithSlug[T any](base string, write func(slug string) (T, error)) (T, error) {
	var zero T
	for n := 0; n < maxSlugAttempts; n++ {
		v, err := write(util.WithSuffix(base, n))
		if err == nil {
			return v, nil
		}
		if !store.IsUniqueViolation(err) {
			return zero, err
		}
	}
	return zero, fmt.Errorf("%w: no free slug for %q", ErrConflict, base)
}

// slugBase normalizes a supplied slug or derives one from the title.
func slugBase(supplied, title string) (string, bool) {
	if strings.TrimSpace(supplied) != "" {
		slug := util.Slugify(supplied)
		return slug, slug != ""
	}
	if slug := util.Slugify(title); slug != "" {
		return slug, true
	}
	return "post", true
}

// normalizeLanguage parses a BCP 47 tag and returns its canonical form.
// An empty tag is the default language.
func normalizeLanguage(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return model.DefaultLanguage, nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q", tag)
	}
	return t.String(), nil
}

func validateTitle(verr *ValidationError, title string) {
	switch {
	case title == "":
		verr.Add("title", "title is required")
	case utf8.RuneCountInString(title) > model.MaxTitleLength:
		verr.Add("title", fmt.Sprintf("title must be at most %d characters", model.MaxTitleLength))
	}
}

func validateExcerpt(verr *ValidationError, excerpt string) {
	if utf8.RuneCountInString(excerpt) > model.MaxExcerptLength {
		verr.Add("excerpt", fmt.Sprintf("excerpt must be at most %d characters", model.MaxExcerptLength))
	}
}

func principalID(p *rbac.Principal) int64 {
	if p == nil {
		return 0
	}
	return p.UserID
}

func editorID(p *rbac.Principal) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return util.NullInt64FromValue(p.UserID)
}

func scopeSiteID(scope *rbac.SiteScope) int64 {
	if scope == nil {
		return 0
	}
	return scope.SiteID
}
