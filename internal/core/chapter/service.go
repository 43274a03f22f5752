// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chapter manages the numbered chapters of the textbook.

It owns the chapter lifecycle (create, patch, publish, archive, delete) and
the reader-facing views that only expose published chapters.

# Invariants

  - Chapter numbers are unique. A clash found before the write, or reported
    by storage after a concurrent write, is a DUPLICATE_NUMBER error.
  - Deleting a chapter removes its assignments in the same transaction. The
    content blocks themselves are left untouched.
*/
package chapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/dberr"
	"github.com/taibuivan/textbook/pkg/pointer"
	"github.com/taibuivan/textbook/pkg/uuid"
)

// DefaultListLimit is the page size callers use when none is requested.
const DefaultListLimit = 100

// # Inputs

// CreateChapterInput carries the client-supplied fields of a new chapter.
// An empty State means DRAFT.
type CreateChapterInput struct {
	Number       int
	Title        string
	Topic        string
	Introduction string
	State        string
}

// ChapterPatch is a partial update; nil fields are left unchanged.
type ChapterPatch struct {
	Number       *int
	Title        *string
	Topic        *string
	Introduction *string
	State        *string
}

// ChapterListParams narrows and windows a chapter listing.
// PublishedOnly overrides State.
type ChapterListParams struct {
	Skip          int
	Limit         int
	Topic         string
	State         *string
	PublishedOnly bool
}

// # Service Layer

// Service orchestrates the business logic for chapters.
type Service struct {
	store  book.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new [Service] over the given store.
func NewService(store book.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// # Chapter Operations

/*
Create validates and persists a new chapter.

Returns:
  - *book.Chapter: The stored chapter
  - error: VALIDATION_ERROR, INVALID_STATE or DUPLICATE_NUMBER
*/
func (service *Service) Create(ctx context.Context, input CreateChapterInput) (*book.Chapter, error) {
	title := strings.TrimSpace(input.Title)
	topic := strings.TrimSpace(input.Topic)

	if err := book.ValidateChapterFields(input.Number, title, topic); err != nil {
		return nil, err
	}

	state := book.StateDraft
	if strings.TrimSpace(input.State) != "" {
		parsed, err := book.ParseState(input.State)
		if err != nil {
			return nil, err
		}
		state = parsed
	}

	if err := service.ensureNumberFree(ctx, input.Number, ""); err != nil {
		return nil, err
	}

	now := service.now()
	chapter := &book.Chapter{
		ID:           uuid.New(),
		Number:       input.Number,
		Title:        title,
		Topic:        topic,
		Introduction: input.Introduction,
		State:        state,
		CreatedAt:    now,
		ModifiedAt:   now,
	}

	if err := service.store.Chapters().Create(ctx, chapter); err != nil {
		return nil, writeError(err, chapter.Number)
	}

	service.logger.Info("chapter_created",
		slog.String("chapter_id", chapter.ID),
		slog.Int("number", chapter.Number),
		slog.String("state", string(chapter.State)),
	)

	return chapter, nil
}

/*
List returns chapters ascending by number.

A zero Limit yields an empty slice; a Skip past the end does too.
*/
func (service *Service) List(ctx context.Context, params ChapterListParams) ([]*book.Chapter, error) {
	chapters, _, err := service.list(ctx, params, false)
	return chapters, err
}

// ListWithTotal is [Service.List] plus the number of chapters matching the
// filter before windowing.
func (service *Service) ListWithTotal(ctx context.Context, params ChapterListParams) ([]*book.Chapter, int, error) {
	return service.list(ctx, params, true)
}

func (service *Service) list(ctx context.Context, params ChapterListParams, withTotal bool) ([]*book.Chapter, int, error) {
	if params.Skip < 0 || params.Limit < 0 {
		return nil, 0, apperr.ValidationError("Invalid pagination",
			apperr.FieldError{Field: "skip", Message: "Skip and limit cannot be negative"})
	}

	filter := book.ChapterFilter{Topic: strings.TrimSpace(params.Topic)}
	switch {
	case params.PublishedOnly:
		published := book.StatePublished
		filter.State = &published
	case params.State != nil:
		state, err := book.ParseState(*params.State)
		if err != nil {
			return nil, 0, err
		}
		filter.State = &state
	}

	chapters, err := service.store.Chapters().List(ctx, filter, params.Limit, params.Skip)
	if err != nil {
		return nil, 0, dberr.Sanitize(err)
	}

	if !withTotal {
		return chapters, 0, nil
	}

	total, err := service.store.Chapters().Count(ctx, filter)
	if err != nil {
		return nil, 0, dberr.Sanitize(err)
	}
	return chapters, total, nil
}

// GetByID returns the chapter in any state.
func (service *Service) GetByID(ctx context.Context, id string) (*book.Chapter, error) {
	chapter, err := service.store.Chapters().FindByID(ctx, id)
	if err != nil {
		return nil, dberr.Sanitize(err)
	}
	return chapter, nil
}

// GetPublishedByID returns the chapter only if readers may see it. A draft or
// archived chapter is reported exactly like a missing one.
func (service *Service) GetPublishedByID(ctx context.Context, id string) (*book.Chapter, error) {
	chapter, err := service.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !chapter.IsPublished() {
		return nil, apperr.NotFound("Chapter")
	}
	return chapter, nil
}

/*
Update applies a partial patch.

The number is only checked against other chapters, so re-sending the current
number is allowed. ModifiedAt moves only when a field actually changed.

Returns:
  - error: NOT_FOUND, VALIDATION_ERROR, INVALID_STATE or DUPLICATE_NUMBER
*/
func (service *Service) Update(ctx context.Context, id string, patch ChapterPatch) (*book.Chapter, error) {
	current, err := service.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.Number = pointer.Fallback(patch.Number, current.Number)
	updated.Title = strings.TrimSpace(pointer.Fallback(patch.Title, current.Title))
	updated.Topic = strings.TrimSpace(pointer.Fallback(patch.Topic, current.Topic))
	updated.Introduction = pointer.Fallback(patch.Introduction, current.Introduction)
	if patch.State != nil {
		state, err := book.ParseState(*patch.State)
		if err != nil {
			return nil, err
		}
		updated.State = state
	}

	if err := book.ValidateChapterFields(updated.Number, updated.Title, updated.Topic); err != nil {
		return nil, err
	}

	if updated == *current {
		return current, nil
	}

	if updated.Number != current.Number {
		if err := service.ensureNumberFree(ctx, updated.Number, id); err != nil {
			return nil, err
		}
	}

	updated.ModifiedAt = service.now()
	if err := service.store.Chapters().Update(ctx, &updated); err != nil {
		return nil, writeError(err, updated.Number)
	}

	service.logger.Info("chapter_updated",
		slog.String("chapter_id", id),
		slog.Int("number", updated.Number),
		slog.String("state", string(updated.State)),
	)

	return &updated, nil
}

// ChangeState moves a chapter to another lifecycle state.
func (service *Service) ChangeState(ctx context.Context, id, state string) (*book.Chapter, error) {
	return service.Update(ctx, id, ChapterPatch{State: &state})
}

/*
Delete removes a chapter and its assignments atomically.

Returns:
  - error: NOT_FOUND if the chapter does not exist
*/
func (service *Service) Delete(ctx context.Context, id string) error {
	var removed int

	err := service.store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := service.store.Chapters().FindByID(ctx, id); err != nil {
			return err
		}

		var err error
		if removed, err = service.store.Assignments().DeleteByChapter(ctx, id); err != nil {
			return err
		}

		return service.store.Chapters().Delete(ctx, id)
	})
	if err != nil {
		return dberr.Sanitize(err)
	}

	service.logger.Info("chapter_deleted",
		slog.String("chapter_id", id),
		slog.Int("assignments_removed", removed),
	)

	return nil
}

// Count returns how many chapters exist, optionally only in one state.
func (service *Service) Count(ctx context.Context, state *book.State) (int, error) {
	total, err := service.store.Chapters().Count(ctx, book.ChapterFilter{State: state})
	if err != nil {
		return 0, dberr.Sanitize(err)
	}
	return total, nil
}

// # Composite Views

// GetWithContents returns a chapter followed by its blocks in display order.
func (service *Service) GetWithContents(ctx context.Context, id string) (*book.ChapterWithContents, error) {
	chapter, err := service.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return service.withContents(ctx, chapter)
}

// GetPublishedWithContents is [Service.GetWithContents] for readers.
func (service *Service) GetPublishedWithContents(ctx context.Context, id string) (*book.ChapterWithContents, error) {
	chapter, err := service.GetPublishedByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return service.withContents(ctx, chapter)
}

func (service *Service) withContents(ctx context.Context, chapter *book.Chapter) (*book.ChapterWithContents, error) {
	contents, err := service.store.Contents().ListByChapter(ctx, chapter.ID)
	if err != nil {
		return nil, dberr.Sanitize(err)
	}
	return &book.ChapterWithContents{Chapter: chapter, Contents: contents}, nil
}

// # Internal Helpers

// ensureNumberFree fails when another chapter than exceptID holds number.
func (service *Service) ensureNumberFree(ctx context.Context, number int, exceptID string) error {
	existing, err := service.store.Chapters().FindByNumber(ctx, number)
	switch {
	case apperr.IsNotFound(err):
		return nil
	case err != nil:
		return dberr.Sanitize(err)
	case existing.ID != exceptID:
		return apperr.DuplicateNumber(number)
	default:
		return nil
	}
}

// writeError maps a failed chapter write; a unique violation can only be the
// number constraint once the pre-check has passed.
func writeError(err error, number int) error {
	if dberr.IsUniqueViolation(err) {
		return apperr.DuplicateNumber(number).WithCause(err)
	}
	return dberr.Sanitize(err)
}
