package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/config"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/mocks"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/service"
)

var (
	writer    = &models.Identity{Subject: "writer-1", Role: models.RoleWriter}
	writer2   = &models.Identity{Subject: "writer-2", Role: models.RoleWriter}
	editor    = &models.Identity{Subject: "editor-1", Role: models.RoleEditor}
	publisher = &models.Identity{Subject: "publisher-1", Role: models.RolePublisher}
	reader    = &models.Identity{Subject: "reader-1", Role: models.RoleReader}
)

type fixture struct {
	repos *mocks.MockRepositories
	svc   *service.Services
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test interpose on the article repository
func newFixtureWith(t *testing.T, wrap func(f *fixture, inner repository.ArticleRepository) repository.ArticleRepository) *fixture {
	t.Helper()
	f := &fixture{
		repos: mocks.NewMockRepositories(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{
		Cache:    config.CacheConfig{TTL: time.Minute},
		Curation: config.CurationConfig{BulkFillMax: 50, ByIDsMax: 50},
	}
	repos := f.repos.Repositories()
	if wrap != nil {
		repos.Article = wrap(f, repos.Article)
	}
	f.svc = service.NewServices(service.Deps{
		Repos:  repos,
		Config: cfg,
		Log:    zerolog.Nop(),
		Now:    func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) draft(t *testing.T, owner *models.Identity, slug string) *models.Article {
	t.Helper()
	a, err := f.svc.Article.Create(context.Background(), owner, &models.ArticleInput{
		Slug:   slug,
		Title:  "Title of " + slug,
		BodyMD: "## Overview\n\nText.",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return a
}

// published stores a PUBLISHED article directly, bypassing the pipeline
func (f *fixture) published(id int64, publishedAt time.Time) *models.Article {
	a := &models.Article{
		ID:          id,
		Slug:        "story-" + string(rune('a'+id%26)),
		Title:       "Story",
		Status:      models.StatusPublished,
		PublishedAt: &publishedAt,
		Widgets:     models.WidgetList{},
	}
	f.repos.Articles.Put(a)
	return a
}

func expectKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", kind)
	}
	if got := models.KindOf(err); got != kind {
		t.Fatalf("Expected %s error, got %s (%v)", kind, got, err)
	}
}

func expectField(t *testing.T, err error, field string) {
	t.Helper()
	expectKind(t, err, models.KindValidation)
	e := err.(*models.Error)
	for _, f := range e.Fields {
		if f.Field == field {
			return
		}
	}
	t.Errorf("Expected a validation error on %s, got %v", field, e.Fields)
}

func TestPipeline_SubmitApprovePublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "first-story")

	submitted, err := f.svc.Pipeline.Submit(ctx, writer, a.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.Status != models.StatusInReview {
		t.Errorf("Expected IN_REVIEW, got %s", submitted.Status)
	}

	approved, err := f.svc.Pipeline.Approve(ctx, editor, a.ID, nil)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != models.StatusPublished {
		t.Errorf("Expected PUBLISHED, got %s", approved.Status)
	}
	if approved.PublishedAt == nil || !approved.PublishedAt.Equal(f.now) {
		t.Errorf("Expected published_at %v, got %v", f.now, approved.PublishedAt)
	}

	want := []models.VersionKind{models.VersionManual, models.VersionSubmit, models.VersionPublish}
	if diff := cmp.Diff(want, f.repos.Versions.Kinds(a.ID)); diff != "" {
		t.Errorf("Snapshot kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_ApproveWithFuturePublishAtSchedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "later-story")
	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	at := f.now.Add(time.Hour)
	scheduled, err := f.svc.Pipeline.Approve(ctx, editor, a.ID, &at)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if scheduled.Status != models.StatusScheduled {
		t.Fatalf("Expected SCHEDULED, got %s", scheduled.Status)
	}
	if scheduled.PublishedAt != nil {
		t.Errorf("Expected no published_at before publishing, got %v", scheduled.PublishedAt)
	}

	n, err := f.svc.Pipeline.PublishDue(ctx, f.now)
	if err != nil || n != 0 {
		t.Fatalf("Expected nothing due yet, got %d (%v)", n, err)
	}

	f.advance(2 * time.Hour)
	n, err = f.svc.Pipeline.PublishDue(ctx, f.now)
	if err != nil {
		t.Fatalf("PublishDue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 published, got %d", n)
	}

	stored, _ := f.repos.Articles.GetByID(ctx, a.ID)
	if stored.Status != models.StatusPublished {
		t.Errorf("Expected PUBLISHED, got %s", stored.Status)
	}
	if !stored.PublishAt.Equal(at) {
		t.Errorf("Expected publish_at %v to be kept, got %v", at, stored.PublishAt)
	}

	if n, _ := f.svc.Pipeline.PublishDue(ctx, f.now); n != 0 {
		t.Errorf("Expected a second run to publish nothing, got %d", n)
	}

	want := []models.VersionKind{models.VersionManual, models.VersionSubmit, models.VersionApprove, models.VersionPublish}
	if diff := cmp.Diff(want, f.repos.Versions.Kinds(a.ID)); diff != "" {
		t.Errorf("Snapshot kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_PublishedAtIsSetOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "once-story")
	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	first, err := f.svc.Pipeline.PublishNow(ctx, publisher, a.ID)
	if err != nil {
		t.Fatalf("PublishNow failed: %v", err)
	}
	publishedAt := *first.PublishedAt

	f.advance(time.Hour)
	_, err = f.svc.Pipeline.PublishNow(ctx, publisher, a.ID)
	expectKind(t, err, models.KindForbidden)
	_, err = f.svc.Pipeline.Approve(ctx, publisher, a.ID, nil)
	expectKind(t, err, models.KindForbidden)

	stored, _ := f.repos.Articles.GetByID(ctx, a.ID)
	if !stored.PublishedAt.Equal(publishedAt) {
		t.Errorf("Expected published_at to stay %v, got %v", publishedAt, stored.PublishedAt)
	}
}

func TestPipeline_WrongSourceStateIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	published := f.published(40, f.now)

	_, err := f.svc.Pipeline.Submit(ctx, editor, published.ID)
	expectKind(t, err, models.KindForbidden)

	_, err = f.svc.Pipeline.Reject(ctx, editor, published.ID)
	expectKind(t, err, models.KindForbidden)

	stored, _ := f.repos.Articles.GetByID(ctx, published.ID)
	if stored.Status != models.StatusPublished {
		t.Errorf("Expected status to stay PUBLISHED, got %s", stored.Status)
	}
}

func TestPipeline_RoleRequirements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "roles-story")
	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	future := f.now.Add(time.Hour)

	tests := []struct {
		name string
		run  func() error
		want models.ErrorKind
	}{
		{"anonymous submit", func() error { _, err := f.svc.Pipeline.Submit(ctx, nil, a.ID); return err }, models.KindUnauthenticated},
		{"reader submit", func() error { _, err := f.svc.Pipeline.Submit(ctx, reader, a.ID); return err }, models.KindForbidden},
		{"other writer submit", func() error { _, err := f.svc.Pipeline.Submit(ctx, writer2, a.ID); return err }, models.KindForbidden},
		{"writer approve", func() error { _, err := f.svc.Pipeline.Approve(ctx, writer, a.ID, nil); return err }, models.KindForbidden},
		{"writer reject", func() error { _, err := f.svc.Pipeline.Reject(ctx, writer, a.ID); return err }, models.KindForbidden},
		{"editor publish now", func() error { _, err := f.svc.Pipeline.PublishNow(ctx, editor, a.ID); return err }, models.KindForbidden},
		{"editor schedule", func() error { _, err := f.svc.Pipeline.Schedule(ctx, editor, a.ID, future); return err }, models.KindForbidden},
		{"unknown article", func() error { _, err := f.svc.Pipeline.PublishNow(ctx, publisher, 999); return err }, models.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectKind(t, tt.run(), tt.want)
		})
	}

	stored, _ := f.repos.Articles.GetByID(ctx, a.ID)
	if stored.Status != models.StatusInReview {
		t.Errorf("Expected status to stay IN_REVIEW, got %s", stored.Status)
	}
}

func TestPipeline_RejectAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "again-story")

	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	rejected, err := f.svc.Pipeline.Reject(ctx, editor, a.ID)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("Expected REJECTED, got %s", rejected.Status)
	}

	resubmitted, err := f.svc.Pipeline.Submit(ctx, writer, a.ID)
	if err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if resubmitted.Status != models.StatusInReview {
		t.Errorf("Expected IN_REVIEW, got %s", resubmitted.Status)
	}

	want := []models.VersionKind{models.VersionManual, models.VersionSubmit, models.VersionSubmit}
	if diff := cmp.Diff(want, f.repos.Versions.Kinds(a.ID)); diff != "" {
		t.Errorf("Snapshot kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_SchedulingNeedsFutureTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "timing-story")
	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	past := f.now.Add(-time.Minute)
	_, err := f.svc.Pipeline.Approve(ctx, editor, a.ID, &past)
	expectField(t, err, "publish_at")

	_, err = f.svc.Pipeline.Schedule(ctx, publisher, a.ID, f.now)
	expectField(t, err, "publish_at")

	at := f.now.Add(48 * time.Hour)
	scheduled, err := f.svc.Pipeline.Schedule(ctx, publisher, a.ID, at)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if scheduled.Status != models.StatusScheduled || !scheduled.PublishAt.Equal(at) {
		t.Errorf("Expected SCHEDULED at %v, got %s at %v", at, scheduled.Status, scheduled.PublishAt)
	}

	moved := at.Add(24 * time.Hour)
	rescheduled, err := f.svc.Pipeline.Schedule(ctx, publisher, a.ID, moved)
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if !rescheduled.PublishAt.Equal(moved) {
		t.Errorf("Expected publish_at %v, got %v", moved, rescheduled.PublishAt)
	}
}

func TestArticle_CreateAndUpdateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "rules-story")

	if a.Status != models.StatusDraft || a.CreatedBy != writer.Subject {
		t.Errorf("Expected DRAFT owned by %s, got %s owned by %s", writer.Subject, a.Status, a.CreatedBy)
	}

	_, err := f.svc.Article.Create(ctx, writer2, &models.ArticleInput{Slug: "rules-story", Title: "Copy"})
	expectKind(t, err, models.KindConflict)

	_, err = f.svc.Article.Create(ctx, writer, &models.ArticleInput{Slug: "with-author", Title: "T", AuthorIDs: []int64{77}})
	expectField(t, err, "author_ids[0]")

	title := "Someone else's edit"
	_, err = f.svc.Article.Update(ctx, writer2, a.ID, &models.ArticlePatch{Title: &title})
	expectKind(t, err, models.KindForbidden)

	updated, err := f.svc.Article.Update(ctx, editor, a.ID, &models.ArticlePatch{Title: &title})
	if err != nil {
		t.Fatalf("Editor update failed: %v", err)
	}
	if updated.Title != title {
		t.Errorf("Expected title %q, got %q", title, updated.Title)
	}

	err = f.svc.Article.Delete(ctx, writer, a.ID)
	expectKind(t, err, models.KindForbidden)
}

func TestArticle_SlugFrozenAfterPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "frozen-story")
	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := f.svc.Pipeline.PublishNow(ctx, publisher, a.ID); err != nil {
		t.Fatalf("PublishNow failed: %v", err)
	}

	slug := "renamed-story"
	_, err := f.svc.Article.Update(ctx, editor, a.ID, &models.ArticlePatch{Slug: &slug})
	expectField(t, err, "slug")

	title := "Late edit"
	_, err = f.svc.Article.Update(ctx, writer, a.ID, &models.ArticlePatch{Title: &title})
	expectKind(t, err, models.KindForbidden)
}

func TestArticle_GetPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "public-story")

	_, err := f.svc.Article.GetPublished(ctx, "public-story")
	expectKind(t, err, models.KindNotFound)

	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := f.svc.Pipeline.PublishNow(ctx, publisher, a.ID); err != nil {
		t.Fatalf("PublishNow failed: %v", err)
	}

	for _, ref := range []string{"public-story", "1"} {
		view, err := f.svc.Article.GetPublished(ctx, ref)
		if err != nil {
			t.Fatalf("GetPublished(%q) failed: %v", ref, err)
		}
		want := []models.TOCEntry{{ID: "overview", Text: "Overview", Level: 2}}
		if diff := cmp.Diff(want, view.TOC); diff != "" {
			t.Errorf("ToC mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestArticle_ByIDs(t *testing.T) {
	f := newFixture(t)
	f.published(1, f.now.Add(-2*time.Hour))
	f.published(3, f.now.Add(-time.Hour))
	f.repos.Articles.Put(&models.Article{ID: 2, Slug: "draft-two", Title: "Draft", Status: models.StatusDraft})

	got, err := f.svc.Article.ByIDs(context.Background(), "3, x,2 1 -4 3")
	if err != nil {
		t.Fatalf("ByIDs failed: %v", err)
	}
	ids := make([]int64, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	if diff := cmp.Diff([]int64{3, 1}, ids); diff != "" {
		t.Errorf("ByIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		raw   string
		limit int
		want  []int64
	}{
		{"", 50, []int64{}},
		{"1,2,3", 50, []int64{1, 2, 3}},
		{"5 5\t4,,abc,0,-1,4", 50, []int64{5, 4}},
		{"1,2,3,4", 2, []int64{1, 2}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, service.ParseIDList(tt.raw, tt.limit)); diff != "" {
			t.Errorf("ParseIDList(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestArticle_PreviewToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.draft(t, writer, "preview-story")
	if _, err := f.svc.Pipeline.Submit(ctx, writer, a.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	title := "Edited after submit"
	if _, err := f.svc.Article.Update(ctx, editor, a.ID, &models.ArticlePatch{Title: &title}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	tok, err := f.svc.Article.MintPreviewToken(ctx, writer, a.ID)
	if err != nil {
		t.Fatalf("MintPreviewToken failed: %v", err)
	}
	if tok.VersionID == nil {
		t.Fatal("Expected token to bind the submitted snapshot")
	}

	view, err := f.svc.Article.Preview(ctx, "preview-story", tok.Token)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if view.Title != "Title of preview-story" {
		t.Errorf("Expected the submitted title, got %q", view.Title)
	}

	_, err = f.svc.Article.Preview(ctx, "other-slug", tok.Token)
	expectKind(t, err, models.KindNotFound)

	f.advance(models.PreviewTokenTTL + time.Second)
	_, err = f.svc.Article.Preview(ctx, "preview-story", tok.Token)
	expectKind(t, err, models.KindNotFound)
}

func itemTargets(items []models.ItemView) [][2]int64 {
	out := make([][2]int64, len(items))
	for i, it := range items {
		out[i] = [2]int64{it.TargetID, int64(it.Order)}
	}
	return out
}

func (f *fixture) homeModule(t *testing.T, in *models.ModuleInput) *models.ModuleView {
	t.Helper()
	if in == nil {
		in = &models.ModuleInput{}
	}
	in.Placement = models.PlacementHome
	m, err := f.svc.Module.Create(context.Background(), publisher, in)
	if err != nil {
		t.Fatalf("Create module failed: %v", err)
	}
	return m
}

func articleItem(id int64) models.ItemInput {
	return models.ItemInput{ItemType: models.ItemArticle, Article: &id}
}

func TestModule_ReplaceItemsDedupesAndDensifies(t *testing.T) {
	f := newFixture(t)
	f.published(7, f.now)
	f.published(3, f.now)
	m := f.homeModule(t, &models.ModuleInput{Order: 0})

	got, err := f.svc.Module.ReplaceItems(context.Background(), publisher, m.ID, []models.ItemInput{
		articleItem(7), articleItem(3), articleItem(7),
	})
	if err != nil {
		t.Fatalf("ReplaceItems failed: %v", err)
	}
	if diff := cmp.Diff([][2]int64{{7, 0}, {3, 1}}, itemTargets(got.Items)); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestModule_ReplaceItemsRejectsBadTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.published(7, f.now)
	m := f.homeModule(t, nil)
	cat := int64(5)

	_, err := f.svc.Module.ReplaceItems(ctx, publisher, m.ID, []models.ItemInput{articleItem(7), articleItem(8)})
	expectField(t, err, "items[1].article")

	_, err = f.svc.Module.ReplaceItems(ctx, publisher, m.ID, []models.ItemInput{{ItemType: models.ItemArticle, Category: &cat}})
	expectField(t, err, "items[0].article")

	_, err = f.svc.Module.ReplaceItems(ctx, publisher, m.ID, []models.ItemInput{{ItemType: models.ItemCategory, Category: &cat}})
	expectField(t, err, "items[0].category")

	_, err = f.svc.Module.ReplaceItems(ctx, editor, m.ID, []models.ItemInput{articleItem(7)})
	expectKind(t, err, models.KindForbidden)

	_, err = f.svc.Module.ReplaceItems(ctx, publisher, 404, []models.ItemInput{articleItem(7)})
	expectKind(t, err, models.KindNotFound)

	if f.repos.Modules.ReplaceCalls != 0 {
		t.Errorf("Expected no writes, got %d", f.repos.Modules.ReplaceCalls)
	}
}

func TestModule_InvalidWindowRejectsWholePatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	publishAt := f.now.Add(time.Hour)
	m := f.homeModule(t, &models.ModuleInput{Title: "Top stories", PublishAt: &publishAt})

	title := "Renamed"
	patch := &models.ModulePatch{
		Title:     &title,
		ExpiresAt: models.Some(publishAt.Add(-time.Minute)),
	}
	_, err := f.svc.Module.Update(ctx, publisher, m.ID, patch)
	expectField(t, err, "expires_at")

	stored, _ := f.repos.Modules.GetByID(ctx, m.ID)
	if stored.Title != "Top stories" || stored.ExpiresAt != nil {
		t.Errorf("Expected stored module unchanged, got title %q expires_at %v", stored.Title, stored.ExpiresAt)
	}
}

func TestModule_CopyItemsLeavesSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.published(1, f.now)
	f.published(2, f.now)
	author := f.repos.Taxonomy.Add(models.KindAuthor, "Ada", "ada")

	source := f.homeModule(t, nil)
	target := f.homeModule(t, nil)
	items := []models.ItemInput{
		articleItem(2),
		{ItemType: models.ItemAuthor, Author: &author.ID, OverrideTitle: "Our columnist"},
		articleItem(1),
	}
	if _, err := f.svc.Module.ReplaceItems(ctx, publisher, source.ID, items); err != nil {
		t.Fatalf("ReplaceItems failed: %v", err)
	}

	copied, err := f.svc.Module.CopyItems(ctx, publisher, target.ID, source.ID)
	if err != nil {
		t.Fatalf("CopyItems failed: %v", err)
	}
	if diff := cmp.Diff([][2]int64{{2, 0}, {author.ID, 1}, {1, 2}}, itemTargets(copied.Items)); diff != "" {
		t.Errorf("Copied items mismatch (-want +got):\n%s", diff)
	}
	if copied.Items[1].OverrideTitle != "Our columnist" {
		t.Errorf("Expected override title to be copied, got %q", copied.Items[1].OverrideTitle)
	}

	after, _ := f.svc.Module.Get(ctx, writer, source.ID)
	if len(after.Items) != 3 {
		t.Errorf("Expected source to keep 3 items, got %d", len(after.Items))
	}
}

func TestModule_BulkFillAppendsUnlisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.published(1, f.now.Add(-3*time.Hour))
	f.published(2, f.now.Add(-2*time.Hour))
	f.published(3, f.now.Add(-time.Hour))
	m := f.homeModule(t, nil)

	if _, err := f.svc.Module.ReplaceItems(ctx, publisher, m.ID, []models.ItemInput{articleItem(1), articleItem(2)}); err != nil {
		t.Fatalf("ReplaceItems failed: %v", err)
	}

	filled, err := f.svc.Module.BulkFill(ctx, publisher, m.ID, 5)
	if err != nil {
		t.Fatalf("BulkFill failed: %v", err)
	}
	if diff := cmp.Diff([][2]int64{{1, 0}, {2, 1}, {3, 2}}, itemTargets(filled.Items)); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}

	calls := f.repos.Modules.ReplaceCalls
	if _, err := f.svc.Module.BulkFill(ctx, publisher, m.ID, 5); err != nil {
		t.Fatalf("Second BulkFill failed: %v", err)
	}
	if f.repos.Modules.ReplaceCalls != calls {
		t.Error("Expected no write when nothing new is available")
	}

	_, err = f.svc.Module.BulkFill(ctx, publisher, m.ID, 0)
	expectField(t, err, "count")
	_, err = f.svc.Module.BulkFill(ctx, publisher, m.ID, 51)
	expectField(t, err, "count")
}

func TestModule_ScheduledBecomesLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.published(1, f.now)
	f.repos.Articles.Put(&models.Article{ID: 2, Slug: "still-draft", Title: "Draft", Status: models.StatusDraft})

	tomorrow := f.now.Add(24 * time.Hour)
	m := f.homeModule(t, &models.ModuleInput{Title: "Weekend", PublishAt: &tomorrow})
	if m.Status != models.ModuleScheduled {
		t.Errorf("Expected SCHEDULED, got %s", m.Status)
	}
	if _, err := f.svc.Module.ReplaceItems(ctx, publisher, m.ID, []models.ItemInput{articleItem(2), articleItem(1)}); err != nil {
		t.Fatalf("ReplaceItems failed: %v", err)
	}

	live, err := f.svc.Module.ListLive(ctx, "", "")
	if err != nil {
		t.Fatalf("ListLive failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("Expected no live modules before publish_at, got %d", len(live))
	}

	f.advance(25 * time.Hour)
	live, err = f.svc.Module.ListLive(ctx, models.PlacementHome, "")
	if err != nil {
		t.Fatalf("ListLive failed: %v", err)
	}
	if len(live) != 1 || live[0].Status != models.ModuleLive {
		t.Fatalf("Expected one live module, got %+v", live)
	}
	if len(live[0].Items) != 1 || live[0].Items[0].TargetID != 1 {
		t.Fatalf("Expected only the published article card, got %+v", live[0].Items)
	}
	if card := live[0].Items[0].Card; card == nil || card.Title != "Story" {
		t.Errorf("Expected a resolved card, got %+v", card)
	}
}

func TestModule_ScopedPlacements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	science := f.repos.Taxonomy.Add(models.KindCategory, "Science", "science")

	_, err := f.svc.Module.Create(ctx, publisher, &models.ModuleInput{Placement: models.PlacementCategory})
	expectField(t, err, "scope")

	_, err = f.svc.Module.Create(ctx, publisher, &models.ModuleInput{Placement: models.PlacementCategory, ScopeSlug: "history"})
	expectField(t, err, "scope")

	missing := int64(99)
	_, err = f.svc.Module.Create(ctx, publisher, &models.ModuleInput{Placement: models.PlacementCategory, ScopeID: &missing})
	expectField(t, err, "scope")

	_, err = f.svc.Module.Create(ctx, publisher, &models.ModuleInput{Placement: models.PlacementHome, ScopeSlug: "science"})
	expectField(t, err, "scope")

	m, err := f.svc.Module.Create(ctx, publisher, &models.ModuleInput{Placement: models.PlacementCategory, ScopeSlug: "science", Title: "Lab notes"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if m.ScopeID == nil || *m.ScopeID != science.ID {
		t.Errorf("Expected scope %d, got %v", science.ID, m.ScopeID)
	}

	_, err = f.svc.Module.ListLive(ctx, models.PlacementCategory, "")
	expectField(t, err, "scope")
	_, err = f.svc.Module.ListLive(ctx, models.PlacementCategory, "history")
	expectKind(t, err, models.KindNotFound)

	live, err := f.svc.Module.ListLive(ctx, models.PlacementCategory, "science")
	if err != nil {
		t.Fatalf("ListLive failed: %v", err)
	}
	if len(live) != 1 || live[0].ID != m.ID {
		t.Errorf("Expected module %d, got %+v", m.ID, live)
	}

	home, err := f.svc.Module.ListLive(ctx, models.PlacementHome, "")
	if err != nil {
		t.Fatalf("ListLive failed: %v", err)
	}
	if len(home) != 0 {
		t.Errorf("Expected no HOME modules, got %d", len(home))
	}

	placement := models.PlacementHome
	moved, err := f.svc.Module.Update(ctx, publisher, m.ID, &models.ModulePatch{Placement: &placement})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if moved.ScopeID != nil {
		t.Errorf("Expected scope to be cleared when moving to HOME, got %v", *moved.ScopeID)
	}
}

func TestModule_ListOrdersByOrderThenID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.homeModule(t, &models.ModuleInput{Title: "a", Order: 2})
	b := f.homeModule(t, &models.ModuleInput{Title: "b", Order: 1})
	c := f.homeModule(t, &models.ModuleInput{Title: "c", Order: 1})
	inactive := false
	f.homeModule(t, &models.ModuleInput{Title: "off", IsActive: &inactive})

	all, err := f.svc.Module.List(ctx, writer, models.PlacementHome, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 modules, got %d", len(all))
	}

	live, err := f.svc.Module.ListLive(ctx, models.PlacementHome, "")
	if err != nil {
		t.Fatalf("ListLive failed: %v", err)
	}
	ids := make([]int64, len(live))
	for i, m := range live {
		ids[i] = m.ID
	}
	if diff := cmp.Diff([]int64{b.ID, c.ID, a.ID}, ids); diff != "" {
		t.Errorf("Live order mismatch (-want +got):\n%s", diff)
	}
}

func TestTaxonomy_CreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Taxonomy.Create(ctx, writer, models.KindTag, &models.TaxonomyInput{Name: "Robots", Slug: "robots"})
	expectKind(t, err, models.KindForbidden)

	if _, err := f.svc.Taxonomy.Create(ctx, editor, models.KindTag, &models.TaxonomyInput{Name: "Robots", Slug: "robots"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.Taxonomy.Create(ctx, editor, models.KindTag, &models.TaxonomyInput{Name: "Apples", Slug: "apples"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err = f.svc.Taxonomy.Create(ctx, editor, models.KindTag, &models.TaxonomyInput{Name: "Robots again", Slug: "robots"})
	expectKind(t, err, models.KindConflict)

	tags, err := f.svc.Taxonomy.List(ctx, models.KindTag)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "Apples" {
		t.Errorf("Expected tags ordered by name, got %+v", tags)
	}

	_, err = f.svc.Taxonomy.List(ctx, "shelf")
	expectKind(t, err, models.KindNotFound)
}
