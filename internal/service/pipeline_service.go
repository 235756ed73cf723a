package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/cache"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
)

// PublishDueActor is recorded on snapshots written by the scheduled publisher
const PublishDueActor = "system:publish-due"

// pipelineService is the concrete implementation of PipelineService.
// Every transition is a conditional update on the source status, so a
// concurrent double action applies at most once.
type pipelineService struct {
	*base
	log zerolog.Logger
}

func newPipelineService(b *base, log zerolog.Logger) *pipelineService {
	return &pipelineService{
		base: b,
		log:  log.With().Str("service", "pipeline").Logger(),
	}
}

// Submit moves DRAFT or REJECTED to IN_REVIEW; writers may only submit their own articles
func (s *pipelineService) Submit(ctx context.Context, id *models.Identity, articleID int64) (article *models.Article, err error) {
	defer func() { s.metrics.RecordTransition("submit", err) }()

	if err := id.Require(models.RoleWriter); err != nil {
		return nil, err
	}
	if !id.Role.AtLeast(models.RoleEditor) {
		current, err := s.current(ctx, articleID)
		if err != nil {
			return nil, err
		}
		if current.CreatedBy != id.Subject {
			return nil, models.Forbidden("writers may only submit their own articles")
		}
	}

	return s.apply(ctx, "submit", repository.Transition{
		ArticleID: articleID,
		From:      []models.ArticleStatus{models.StatusDraft, models.StatusRejected},
		To:        models.StatusInReview,
		Kind:      models.VersionSubmit,
		Actor:     id.Subject,
	})
}

// Approve schedules an IN_REVIEW article when a future publish_at is known, else publishes it
func (s *pipelineService) Approve(ctx context.Context, id *models.Identity, articleID int64, publishAt *time.Time) (article *models.Article, err error) {
	defer func() { s.metrics.RecordTransition("approve", err) }()

	if err := id.Require(models.RoleEditor); err != nil {
		return nil, err
	}
	now := s.now()
	if publishAt != nil && !publishAt.After(now) {
		return nil, models.Invalid("approval failed", models.ValidationError{
			Field: "publish_at", Message: "publish_at must be in the future", Value: publishAt.Format(time.RFC3339),
		})
	}

	current, err := s.current(ctx, articleID)
	if err != nil {
		return nil, err
	}
	target := publishAt
	if target == nil && current.PublishAt != nil && current.PublishAt.After(now) {
		target = current.PublishAt
	}

	t := repository.Transition{
		ArticleID: articleID,
		From:      []models.ArticleStatus{models.StatusInReview},
		To:        models.StatusPublished,
		Kind:      models.VersionPublish,
		Actor:     id.Subject,
	}
	if target != nil {
		t.To = models.StatusScheduled
		t.Kind = models.VersionApprove
		t.PublishAt = target
	}
	return s.apply(ctx, "approve", t)
}

// Reject sends an IN_REVIEW article back to the writer
func (s *pipelineService) Reject(ctx context.Context, id *models.Identity, articleID int64) (article *models.Article, err error) {
	defer func() { s.metrics.RecordTransition("reject", err) }()

	if err := id.Require(models.RoleEditor); err != nil {
		return nil, err
	}
	return s.apply(ctx, "reject", repository.Transition{
		ArticleID: articleID,
		From:      []models.ArticleStatus{models.StatusInReview},
		To:        models.StatusRejected,
		Actor:     id.Subject,
	})
}

// PublishNow publishes a SCHEDULED or IN_REVIEW article immediately
func (s *pipelineService) PublishNow(ctx context.Context, id *models.Identity, articleID int64) (article *models.Article, err error) {
	defer func() { s.metrics.RecordTransition("publish_now", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return nil, err
	}
	return s.apply(ctx, "publish_now", repository.Transition{
		ArticleID: articleID,
		From:      []models.ArticleStatus{models.StatusScheduled, models.StatusInReview},
		To:        models.StatusPublished,
		Kind:      models.VersionPublish,
		Actor:     id.Subject,
	})
}

// Schedule sets a future publish_at on an IN_REVIEW or SCHEDULED article
func (s *pipelineService) Schedule(ctx context.Context, id *models.Identity, articleID int64, publishAt time.Time) (article *models.Article, err error) {
	defer func() { s.metrics.RecordTransition("schedule", err) }()

	if err := id.Require(models.RolePublisher); err != nil {
		return nil, err
	}
	if !publishAt.After(s.now()) {
		return nil, models.Invalid("schedule failed", models.ValidationError{
			Field: "publish_at", Message: "publish_at must be in the future", Value: publishAt.Format(time.RFC3339),
		})
	}

	return s.apply(ctx, "schedule", repository.Transition{
		ArticleID: articleID,
		From:      []models.ArticleStatus{models.StatusInReview, models.StatusScheduled},
		To:        models.StatusScheduled,
		PublishAt: &publishAt,
		Kind:      models.VersionSchedule,
		Actor:     id.Subject,
	})
}

// PublishDue publishes every SCHEDULED article whose publish_at is at or before now.
// Articles moved or rescheduled by someone else in the meantime are skipped, not failed.
func (s *pipelineService) PublishDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repos.Article.ListDueScheduled(ctx, now)
	if err != nil {
		return 0, storageErr("scheduled articles", err)
	}

	due := now.UTC()
	published := 0
	var errs []error
	for _, articleID := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		article, err := s.repos.Article.Transition(ctx, repository.Transition{
			ArticleID: articleID,
			From:      []models.ArticleStatus{models.StatusScheduled},
			To:        models.StatusPublished,
			Now:       due,
			DueBy:     &due,
			Kind:      models.VersionPublish,
			Actor:     PublishDueActor,
		})
		s.metrics.RecordTransition("publish_due", err)
		if err != nil {
			s.log.Error().Err(err).Int64("article_id", articleID).Msg("Failed to publish due article")
			errs = append(errs, err)
			continue
		}
		if article == nil {
			s.log.Debug().Int64("article_id", articleID).Msg("Due article already moved, skipping")
			continue
		}

		published++
		s.log.Info().
			Int64("article_id", articleID).
			Str("action", "publish_due").
			Str("to", string(models.StatusPublished)).
			Str("actor", PublishDueActor).
			Msg("Article transitioned")
	}

	s.metrics.RecordPublishDue(published)
	if published > 0 {
		s.invalidate(ctx, s.log, cache.NamespaceArticles, cache.NamespaceModules)
	}
	if len(errs) > 0 {
		return published, models.Internal("failed to publish some due articles", errors.Join(errs...))
	}
	return published, nil
}

func (s *pipelineService) current(ctx context.Context, articleID int64) (*models.Article, error) {
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, storageErr("article", err)
	}
	if article == nil {
		return nil, models.NotFound("article %d not found", articleID)
	}
	return article, nil
}

// apply runs the conditional transition and tells a missing article apart from a wrong state
func (s *pipelineService) apply(ctx context.Context, action string, t repository.Transition) (*models.Article, error) {
	t.Now = s.now()

	article, err := s.repos.Article.Transition(ctx, t)
	if err != nil {
		return nil, storageErr("article", err)
	}
	if article == nil {
		current, err := s.current(ctx, t.ArticleID)
		if err != nil {
			return nil, err
		}
		return nil, models.Forbidden("cannot %s an article in status %s", action, current.Status)
	}

	from := make([]string, len(t.From))
	for i, st := range t.From {
		from[i] = string(st)
	}
	s.log.Info().
		Int64("article_id", article.ID).
		Str("action", action).
		Strs("from", from).
		Str("to", string(article.Status)).
		Str("actor", t.Actor).
		Msg("Article transitioned")

	s.invalidate(ctx, s.log, cache.NamespaceArticles, cache.NamespaceModules)
	return article, nil
}
