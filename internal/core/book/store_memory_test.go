// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/dberr"
)

func seedChapter(t *testing.T, store book.Store, id string, number int, topic string, state book.State) *book.Chapter {
	t.Helper()
	now := time.Now().UTC()
	chapter := &book.Chapter{
		ID: id, Number: number, Title: fmt.Sprintf("Chapter %d", number), Topic: topic,
		State: state, CreatedAt: now, ModifiedAt: now,
	}
	require.NoError(t, store.Chapters().Create(context.Background(), chapter))
	return chapter
}

func seedText(t *testing.T, store book.Store, id, topic string, createdAt time.Time) *book.Content {
	t.Helper()
	content := &book.Content{
		ID: id, Topic: topic, Payload: book.Text{Body: "body of " + id},
		CreatedAt: createdAt, ModifiedAt: createdAt,
	}
	require.NoError(t, store.Contents().Create(context.Background(), content))
	return content
}

func assign(t *testing.T, store book.Store, chapterID, contentID string, order int) *book.Assignment {
	t.Helper()
	assignment := &book.Assignment{ChapterID: chapterID, ContentID: contentID, Order: order}
	require.NoError(t, store.Assignments().Create(context.Background(), assignment))
	return assignment
}

func TestMemoryChapters_UniqueNumber(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	seedChapter(t, store, "a", 1, "Biology", book.StateDraft)
	other := seedChapter(t, store, "b", 2, "Biology", book.StateDraft)

	err := store.Chapters().Create(ctx, &book.Chapter{ID: "c", Number: 1, State: book.StateDraft})
	assert.True(t, dberr.IsUniqueViolation(err))

	other.Number = 1
	err = store.Chapters().Update(ctx, other)
	assert.True(t, dberr.IsUniqueViolation(err))

	// Keeping its own number is not a clash.
	other.Number = 2
	other.Title = "Renamed"
	require.NoError(t, store.Chapters().Update(ctx, other))
}

func TestMemoryChapters_ListOrderAndFilters(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	seedChapter(t, store, "c3", 3, "BIOLOGÍA celular", book.StatePublished)
	seedChapter(t, store, "c1", 1, "Biología", book.StateDraft)
	seedChapter(t, store, "c2", 2, "Physics", book.StatePublished)

	all, err := store.Chapters().List(ctx, book.ChapterFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].Number, all[1].Number, all[2].Number})

	byTopic, err := store.Chapters().List(ctx, book.ChapterFilter{Topic: "biología"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, byTopic, 2)
	assert.Equal(t, "c1", byTopic[0].ID)

	published := book.StatePublished
	filtered, err := store.Chapters().List(ctx, book.ChapterFilter{Topic: "bio", State: &published}, 10, 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "c3", filtered[0].ID)

	total, err := store.Chapters().Count(ctx, book.ChapterFilter{State: &published})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestMemoryChapters_Window(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	for n := 1; n <= 5; n++ {
		seedChapter(t, store, fmt.Sprintf("c%d", n), n, "Math", book.StateDraft)
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		want   []int
	}{
		{name: "First page", limit: 2, offset: 0, want: []int{1, 2}},
		{name: "Middle page", limit: 2, offset: 2, want: []int{3, 4}},
		{name: "Tail", limit: 10, offset: 3, want: []int{4, 5}},
		{name: "Past the end", limit: 10, offset: 9, want: []int{}},
		{name: "Zero limit", limit: 0, offset: 0, want: []int{}},
		{name: "Unbounded limit", limit: math.MaxInt, offset: 1, want: []int{2, 3, 4, 5}},
		{name: "Unbounded limit and offset", limit: math.MaxInt, offset: math.MaxInt, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Chapters().List(ctx, book.ChapterFilter{}, tt.limit, tt.offset)
			require.NoError(t, err)
			require.NotNil(t, got)

			numbers := make([]int, 0, len(got))
			for _, chapter := range got {
				numbers = append(numbers, chapter.Number)
			}
			assert.Equal(t, tt.want, numbers)
		})
	}
}

func TestMemoryChapters_DeleteCascades(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	seedChapter(t, store, "ch", 1, "Biology", book.StateDraft)
	seedText(t, store, "t1", "Biology", time.Now())
	assign(t, store, "ch", "t1", 1)

	require.NoError(t, store.Chapters().Delete(ctx, "ch"))

	count, err := store.Assignments().CountByContent(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.Contents().FindByID(ctx, "t1")
	require.NoError(t, err, "content outlives the chapter")

	assert.True(t, apperr.IsNotFound(store.Chapters().Delete(ctx, "ch")))
}

func TestMemoryContents_DeleteRestrictedWhileAssigned(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	seedChapter(t, store, "ch", 1, "Biology", book.StateDraft)
	seedText(t, store, "t1", "Biology", time.Now())
	assign(t, store, "ch", "t1", 1)

	err := store.Contents().Delete(ctx, "t1")
	assert.True(t, dberr.IsForeignKeyViolation(err))

	require.NoError(t, store.Assignments().Delete(ctx, "ch", "t1"))
	require.NoError(t, store.Contents().Delete(ctx, "t1"))
}

func TestMemoryContents_ListOrderAndKindFilter(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedText(t, store, "b", "Art", base)
	seedText(t, store, "a", "Art", base)
	seedText(t, store, "c", "Art", base.Add(-time.Hour))
	require.NoError(t, store.Contents().Create(ctx, &book.Content{
		ID: "img", Topic: "Art", Payload: book.Image{FileURL: "https://cdn/x.png", Format: "png"},
		CreatedAt: base.Add(time.Hour), ModifiedAt: base.Add(time.Hour),
	}))

	all, err := store.Contents().List(ctx, book.ContentFilter{}, 10, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, content := range all {
		ids = append(ids, content.ID)
	}
	assert.Equal(t, []string{"c", "a", "b", "img"}, ids)

	image := book.KindImage
	images, err := store.Contents().List(ctx, book.ContentFilter{Kind: &image}, 10, 0)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "img", images[0].ID)
}

func TestMemoryContents_FindByIDsSkipsMissing(t *testing.T) {
	store := book.NewMemoryStore()
	seedText(t, store, "t1", "Art", time.Now())

	got, err := store.Contents().FindByIDs(context.Background(), []string{"t1", "nope", "t1"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

func TestMemoryContents_ReturnsCopies(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	duration := 10.0
	require.NoError(t, store.Contents().Create(ctx, &book.Content{
		ID: "v", Topic: "Film", Payload: book.Video{FileURL: "https://cdn/v.mp4", DurationSeconds: &duration},
	}))

	loaded, err := store.Contents().FindByID(ctx, "v")
	require.NoError(t, err)
	*loaded.Payload.(book.Video).DurationSeconds = 99

	again, err := store.Contents().FindByID(ctx, "v")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, *again.Payload.(book.Video).DurationSeconds, 0.0001)
}

func TestMemoryAssignments_Constraints(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	seedChapter(t, store, "ch", 1, "Biology", book.StateDraft)
	seedText(t, store, "t1", "Biology", time.Now())

	first := assign(t, store, "ch", "t1", 1)
	assert.Equal(t, int64(1), first.ID)

	err := store.Assignments().Create(ctx, &book.Assignment{ChapterID: "ch", ContentID: "t1", Order: 2})
	assert.True(t, dberr.IsUniqueViolation(err))

	err = store.Assignments().Create(ctx, &book.Assignment{ChapterID: "missing", ContentID: "t1", Order: 1})
	assert.True(t, dberr.IsForeignKeyViolation(err))

	err = store.Assignments().Create(ctx, &book.Assignment{ChapterID: "ch", ContentID: "missing", Order: 1})
	assert.True(t, dberr.IsForeignKeyViolation(err))

	assert.True(t, apperr.IsNotFound(store.Assignments().Delete(ctx, "ch", "missing")))
}

func TestMemoryAssignments_DisplayOrder(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	seedChapter(t, store, "ch", 1, "Biology", book.StateDraft)
	for _, id := range []string{"x", "y", "z"} {
		seedText(t, store, id, "Biology", time.Now())
	}
	assign(t, store, "ch", "x", 5)
	assign(t, store, "ch", "y", 2)
	assign(t, store, "ch", "z", 2)

	contents, err := store.Contents().ListByChapter(ctx, "ch")
	require.NoError(t, err)

	ids := make([]string, 0, len(contents))
	for _, content := range contents {
		ids = append(ids, content.ID)
	}
	assert.Equal(t, []string{"y", "z", "x"}, ids)

	empty, err := store.Assignments().ListByChapter(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryStore_RunInTxRollsBack(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()
	seedChapter(t, store, "ch", 1, "Biology", book.StateDraft)
	seedText(t, store, "t1", "Biology", time.Now())
	assign(t, store, "ch", "t1", 1)

	failure := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := store.Assignments().DeleteByChapter(ctx, "ch"); err != nil {
			return err
		}
		if err := store.Assignments().Create(ctx, &book.Assignment{ChapterID: "ch", ContentID: "t1", Order: 9}); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	assignments, err := store.Assignments().ListByChapter(ctx, "ch")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, 1, assignments[0].Order)
	assert.Equal(t, int64(1), assignments[0].ID)
}

func TestMemoryStore_RunInTxRestoresOnPanic(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.RunInTx(ctx, func(ctx context.Context) error {
			_ = store.Chapters().Create(ctx, &book.Chapter{ID: "ch", Number: 1, State: book.StateDraft})
			panic("abort")
		})
	})

	total, err := store.Chapters().Count(ctx, book.ChapterFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryStore_RunInTxCommitsAndNests(t *testing.T) {
	store := book.NewMemoryStore()
	ctx := context.Background()

	err := store.RunInTx(ctx, func(ctx context.Context) error {
		return store.RunInTx(ctx, func(ctx context.Context) error {
			return store.Chapters().Create(ctx, &book.Chapter{ID: "ch", Number: 1, Title: "T", Topic: "X", State: book.StateDraft})
		})
	})
	require.NoError(t, err)

	_, err = store.Chapters().FindByID(ctx, "ch")
	require.NoError(t, err)
}
