package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sathwikreddy17/Common-Strange-sub000/internal/mocks"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
)

func TestMockArticleRepository_DuplicateSlug(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()

	first := &models.Article{Slug: "same", Title: "One", Status: models.StatusDraft}
	if err := repos.Articles.Create(ctx, first, models.VersionManual); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	second := &models.Article{Slug: "same", Title: "Two", Status: models.StatusDraft}
	err := repos.Articles.Create(ctx, second, models.VersionManual)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestMockArticleRepository_TransitionIsConditional(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	repos.Articles.Put(&models.Article{ID: 1, Slug: "a", Title: "A", Status: models.StatusDraft})

	got, err := repos.Articles.Transition(ctx, repository.Transition{
		ArticleID: 1,
		From:      []models.ArticleStatus{models.StatusInReview},
		To:        models.StatusPublished,
		Now:       now,
		Kind:      models.VersionPublish,
	})
	if err != nil || got != nil {
		t.Fatalf("Expected no transition from DRAFT, got %v (%v)", got, err)
	}

	got, err = repos.Articles.Transition(ctx, repository.Transition{
		ArticleID: 1,
		From:      []models.ArticleStatus{models.StatusDraft},
		To:        models.StatusPublished,
		Now:       now,
		Kind:      models.VersionPublish,
		Actor:     "publisher-1",
	})
	if err != nil || got == nil {
		t.Fatalf("Expected transition, got %v (%v)", got, err)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(now) {
		t.Errorf("Expected published_at %v, got %v", now, got.PublishedAt)
	}

	kinds := repos.Versions.Kinds(1)
	if len(kinds) != 1 || kinds[0] != models.VersionPublish {
		t.Errorf("Expected one PUBLISH snapshot, got %v", kinds)
	}

	if got, _ := repos.Articles.Transition(ctx, repository.Transition{ArticleID: 99, From: []models.ArticleStatus{models.StatusDraft}, To: models.StatusInReview, Now: now}); got != nil {
		t.Error("Expected nil for a missing article")
	}
}

func TestMockArticleRepository_ListDueScheduled(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	repos.Articles.Put(&models.Article{ID: 2, Slug: "due", Status: models.StatusScheduled, PublishAt: &past})
	repos.Articles.Put(&models.Article{ID: 1, Slug: "exact", Status: models.StatusScheduled, PublishAt: &now})
	repos.Articles.Put(&models.Article{ID: 3, Slug: "later", Status: models.StatusScheduled, PublishAt: &future})
	repos.Articles.Put(&models.Article{ID: 4, Slug: "draft", Status: models.StatusDraft, PublishAt: &past})

	ids, err := repos.Articles.ListDueScheduled(ctx, now)
	if err != nil {
		t.Fatalf("ListDueScheduled failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Expected [1 2], got %v", ids)
	}
}

func TestMockModuleRepository_ReplaceItems(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()

	module := &models.Module{Placement: models.PlacementHome, Title: "Top", IsActive: true}
	if err := repos.Modules.Create(ctx, module); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	items := []models.ModuleItem{
		{Order: 0, Target: models.ItemRef{Type: models.ItemArticle, ID: 5}},
		{Order: 1, Target: models.ItemRef{Type: models.ItemCategory, ID: 2}},
	}
	ok, err := repos.Modules.ReplaceItems(ctx, module.ID, items)
	if err != nil || !ok {
		t.Fatalf("ReplaceItems failed: %v %v", ok, err)
	}

	stored, _ := repos.Modules.GetByID(ctx, module.ID)
	if len(stored.Items) != 2 || stored.Items[1].Target.Type != models.ItemCategory {
		t.Errorf("Unexpected items %+v", stored.Items)
	}

	if ok, _ := repos.Modules.ReplaceItems(ctx, 404, items); ok {
		t.Error("Expected false for a missing module")
	}
}

func TestMockArticleRepository_TransitionDueBy(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	repos.Articles.Put(&models.Article{ID: 1, Slug: "later", Status: models.StatusScheduled, PublishAt: &future})

	got, err := repos.Articles.Transition(ctx, repository.Transition{
		ArticleID: 1,
		From:      []models.ArticleStatus{models.StatusScheduled},
		To:        models.StatusPublished,
		Now:       now,
		DueBy:     &now,
	})
	if err != nil || got != nil {
		t.Fatalf("Expected no transition before publish_at, got %v (%v)", got, err)
	}

	due := now.Add(time.Hour)
	got, err = repos.Articles.Transition(ctx, repository.Transition{
		ArticleID: 1,
		From:      []models.ArticleStatus{models.StatusScheduled},
		To:        models.StatusPublished,
		Now:       due,
		DueBy:     &due,
	})
	if err != nil || got == nil || got.Status != models.StatusPublished {
		t.Errorf("Expected transition once due, got %v (%v)", got, err)
	}
}

func TestMockArticleRepository_SlugLockedAfterPublish(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()
	published := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	repos.Articles.Put(&models.Article{ID: 1, Slug: "live", Status: models.StatusPublished, PublishedAt: &published})

	_, err := repos.Articles.Update(ctx, &models.Article{ID: 1, Slug: "renamed", Title: "Live"})
	if !errors.Is(err, repository.ErrSlugLocked) {
		t.Fatalf("Expected ErrSlugLocked, got %v", err)
	}

	ok, err := repos.Articles.Update(ctx, &models.Article{ID: 1, Slug: "live", Title: "Retitled"})
	if err != nil || !ok {
		t.Errorf("Expected same-slug update to succeed, got %v (%v)", ok, err)
	}
}

func TestMockArticleRepository_List(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	older, newer := base, base.Add(time.Hour)
	culture := int64(4)

	repos.Articles.Put(&models.Article{ID: 1, Slug: "old", Status: models.StatusPublished, PublishedAt: &older, CategoryID: &culture, TagIDs: []int64{9}})
	repos.Articles.Put(&models.Article{ID: 2, Slug: "new", Status: models.StatusPublished, PublishedAt: &newer, AuthorIDs: []int64{3}})
	repos.Articles.Put(&models.Article{ID: 3, Slug: "wip", Status: models.StatusDraft, CategoryID: &culture})

	all, err := repos.Articles.List(ctx, models.ArticleFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != 2 || all[1].ID != 1 || all[2].ID != 3 {
		t.Errorf("Expected [2 1 3], got %v", articleIDs(all))
	}

	live, _ := repos.Articles.List(ctx, models.ArticleFilter{Status: models.StatusPublished, CategoryID: &culture})
	if len(live) != 1 || live[0].ID != 1 {
		t.Errorf("Expected [1], got %v", articleIDs(live))
	}

	tag := int64(9)
	tagged, _ := repos.Articles.List(ctx, models.ArticleFilter{TagID: &tag})
	if len(tagged) != 1 || tagged[0].ID != 1 {
		t.Errorf("Expected [1], got %v", articleIDs(tagged))
	}

	page, _ := repos.Articles.List(ctx, models.ArticleFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != 1 {
		t.Errorf("Expected [1], got %v", articleIDs(page))
	}

	empty, _ := repos.Articles.List(ctx, models.ArticleFilter{Offset: 10})
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty page, got %v", empty)
	}
}

func TestMockArticleRepository_DeleteCompactsModuleItems(t *testing.T) {
	repos := mocks.NewMockRepositories()
	ctx := context.Background()

	repos.Articles.Put(&models.Article{ID: 7, Slug: "gone", Status: models.StatusDraft})
	module := &models.Module{Placement: models.PlacementHome, Title: "Top", IsActive: true}
	if err := repos.Modules.Create(ctx, module); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	items := []models.ModuleItem{
		{Order: 0, Target: models.ItemRef{Type: models.ItemCategory, ID: 2}},
		{Order: 1, Target: models.ItemRef{Type: models.ItemArticle, ID: 7}},
		{Order: 2, Target: models.ItemRef{Type: models.ItemSeries, ID: 3}},
	}
	if _, err := repos.Modules.ReplaceItems(ctx, module.ID, items); err != nil {
		t.Fatalf("ReplaceItems failed: %v", err)
	}

	if ok, err := repos.Articles.Delete(ctx, 7); err != nil || !ok {
		t.Fatalf("Delete failed: %v %v", ok, err)
	}

	stored, _ := repos.Modules.GetByID(ctx, module.ID)
	if len(stored.Items) != 2 {
		t.Fatalf("Expected 2 items, got %+v", stored.Items)
	}
	for i, it := range stored.Items {
		if it.Order != i {
			t.Errorf("Expected order %d, got %d", i, it.Order)
		}
	}
	if stored.Items[1].Target.Type != models.ItemSeries {
		t.Errorf("Expected series item to move up, got %+v", stored.Items[1])
	}
}

func articleIDs(articles []*models.Article) []int64 {
	ids := make([]int64, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	return ids
}
