// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package content manages content blocks and their placement inside chapters.

A block is created once and can be assigned to any number of chapters, each
time at its own position. Blocks that are still assigned cannot be deleted.

# Ordering

Inside a chapter, blocks are shown by ascending order value; blocks sharing a
value are shown in the order they were assigned.
*/
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/dberr"
	"github.com/taibuivan/textbook/internal/platform/objectstore"
	"github.com/taibuivan/textbook/internal/platform/validate"
	"github.com/taibuivan/textbook/pkg/slice"
	"github.com/taibuivan/textbook/pkg/uuid"
)

// # Ports

// MediaStore keeps the files behind media blocks.
type MediaStore interface {
	Put(ctx context.Context, object objectstore.Object) (string, error)
	Delete(ctx context.Context, key string) error
}

// # Inputs

// CreateContentInput carries a new block in its flat form. Which pointers
// must be set depends on Kind.
type CreateContentInput struct {
	Kind            string
	Topic           string
	Body            *string
	FileURL         *string
	Format          *string
	DurationSeconds *float64
}

// ContentListParams narrows and windows a block listing.
type ContentListParams struct {
	Skip  int
	Limit int
	Kind  *string
	Topic *string
}

// # Service Layer

// Service orchestrates the business logic for content blocks and assignments.
type Service struct {
	store  book.Store
	media  MediaStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new [Service]. A nil media store disables uploads.
func NewService(store book.Store, media MediaStore, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		media:  media,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// # Block Operations

/*
Create validates and persists a new block.

Returns:
  - error: INVALID_KIND, MISSING_FIELD (naming the field) or VALIDATION_ERROR
*/
func (service *Service) Create(ctx context.Context, input CreateContentInput) (*book.Content, error) {
	kind, err := book.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}

	fields := book.ContentFields{
		Body:            input.Body,
		FileURL:         input.FileURL,
		Format:          input.Format,
		DurationSeconds: input.DurationSeconds,
	}

	content, err := service.build(kind, input.Topic, fields)
	if err != nil {
		return nil, err
	}

	if err := service.store.Contents().Create(ctx, content); err != nil {
		return nil, dberr.Sanitize(err)
	}

	service.logger.Info("content_created",
		slog.String("content_id", content.ID),
		slog.String("kind", string(kind)),
	)

	return content, nil
}

func (service *Service) build(kind book.Kind, topic string, fields book.ContentFields) (*book.Content, error) {
	payload, err := fields.Payload(kind)
	if err != nil {
		return nil, err
	}

	topic = strings.TrimSpace(topic)
	if err := book.ValidateTopic(topic); err != nil {
		return nil, err
	}

	now := service.now()
	return &book.Content{
		ID:         uuid.New(),
		Topic:      topic,
		Payload:    payload,
		CreatedAt:  now,
		ModifiedAt: now,
	}, nil
}

// List returns blocks ascending by creation time, ties by ID.
func (service *Service) List(ctx context.Context, params ContentListParams) ([]*book.Content, error) {
	contents, _, err := service.list(ctx, params, false)
	return contents, err
}

// ListWithTotal is [Service.List] plus the number of matching blocks.
func (service *Service) ListWithTotal(ctx context.Context, params ContentListParams) ([]*book.Content, int, error) {
	return service.list(ctx, params, true)
}

func (service *Service) list(ctx context.Context, params ContentListParams, withTotal bool) ([]*book.Content, int, error) {
	if params.Skip < 0 || params.Limit < 0 {
		return nil, 0, apperr.ValidationError("Invalid pagination",
			apperr.FieldError{Field: "skip", Message: "Skip and limit cannot be negative"})
	}

	var filter book.ContentFilter
	if params.Kind != nil {
		kind, err := book.ParseKind(*params.Kind)
		if err != nil {
			return nil, 0, err
		}
		filter.Kind = &kind
	}
	if params.Topic != nil {
		filter.Topic = strings.TrimSpace(*params.Topic)
	}

	contents, err := service.store.Contents().List(ctx, filter, params.Limit, params.Skip)
	if err != nil {
		return nil, 0, dberr.Sanitize(err)
	}

	if !withTotal {
		return contents, 0, nil
	}

	total, err := service.store.Contents().Count(ctx, filter)
	if err != nil {
		return nil, 0, dberr.Sanitize(err)
	}
	return contents, total, nil
}

// GetByID returns one block.
func (service *Service) GetByID(ctx context.Context, id string) (*book.Content, error) {
	content, err := service.store.Contents().FindByID(ctx, id)
	if err != nil {
		return nil, dberr.Sanitize(err)
	}
	return content, nil
}

/*
UpdateText changes the body and/or topic of a TEXT block.

Returns:
  - error: NOT_FOUND, INVALID_KIND for non-text blocks, MISSING_FIELD for a blank body
*/
func (service *Service) UpdateText(ctx context.Context, id string, body, topic *string) (*book.Content, error) {
	current, err := service.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	text, ok := current.Payload.(book.Text)
	if !ok {
		return nil, apperr.InvalidKind(fmt.Sprintf("Content %s is %s, only TEXT blocks can be edited", id, current.Kind()))
	}

	updated := *current
	if body != nil {
		payload, err := book.ContentFields{Body: body}.Payload(book.KindText)
		if err != nil {
			return nil, err
		}
		text = payload.(book.Text)
		updated.Payload = text
	}
	if topic != nil {
		updated.Topic = strings.TrimSpace(*topic)
		if err := book.ValidateTopic(updated.Topic); err != nil {
			return nil, err
		}
	}

	if updated.Topic == current.Topic && text == current.Payload {
		return current, nil
	}

	updated.ModifiedAt = service.now()
	if err := service.store.Contents().Update(ctx, &updated); err != nil {
		return nil, dberr.Sanitize(err)
	}

	service.logger.Info("content_text_updated", slog.String("content_id", id))
	return &updated, nil
}

/*
Delete removes an unassigned block.

Returns:
  - error: NOT_FOUND, CONFLICT while the block is assigned to a chapter
*/
func (service *Service) Delete(ctx context.Context, id string) error {
	if _, err := service.GetByID(ctx, id); err != nil {
		return err
	}

	assigned, err := service.store.Assignments().CountByContent(ctx, id)
	if err != nil {
		return dberr.Sanitize(err)
	}
	if assigned > 0 {
		return stillAssigned(assigned)
	}

	if err := service.store.Contents().Delete(ctx, id); err != nil {
		// Assigned between the check and the delete.
		if dberr.IsForeignKeyViolation(err) {
			return apperr.Conflict("Content is assigned to a chapter").WithCause(err)
		}
		return dberr.Sanitize(err)
	}

	service.logger.Info("content_deleted", slog.String("content_id", id))
	return nil
}

func stillAssigned(count int) error {
	return apperr.Conflict(fmt.Sprintf("Content is assigned to %d chapter(s); unassign it first", count))
}

// # Chapter Placement

/*
AssignToChapter places a block inside a chapter at the given position.

Returns:
  - error: NOT_FOUND for a missing chapter or block, ALREADY_ASSIGNED for an
    existing pair, VALIDATION_ERROR for order < 1
*/
func (service *Service) AssignToChapter(ctx context.Context, chapterID, contentID string, order int) (*book.Assignment, error) {
	if err := (&validate.Validator{}).Range("order", order, 1, book.MaxPosition).Err(); err != nil {
		return nil, err
	}

	if err := service.ensureParents(ctx, chapterID, contentID); err != nil {
		return nil, err
	}

	if _, err := service.store.Assignments().Find(ctx, chapterID, contentID); err == nil {
		return nil, apperr.AlreadyAssigned()
	} else if !apperr.IsNotFound(err) {
		return nil, dberr.Sanitize(err)
	}

	assignment := &book.Assignment{ChapterID: chapterID, ContentID: contentID, Order: order}
	if err := service.store.Assignments().Create(ctx, assignment); err != nil {
		switch {
		case dberr.IsUniqueViolation(err):
			return nil, apperr.AlreadyAssigned().WithCause(err)
		case dberr.IsForeignKeyViolation(err):
			// A parent vanished after the check.
			if missing := service.ensureParents(ctx, chapterID, contentID); missing != nil {
				return nil, missing
			}
			return nil, apperr.NotFound("Chapter").WithCause(err)
		default:
			return nil, dberr.Sanitize(err)
		}
	}

	service.logger.Info("content_assigned",
		slog.String("chapter_id", chapterID),
		slog.String("content_id", contentID),
		slog.Int("order", order),
	)

	return assignment, nil
}

// ListForChapter returns a chapter's blocks in display order.
func (service *Service) ListForChapter(ctx context.Context, chapterID string) ([]*book.Content, error) {
	if _, err := service.store.Chapters().FindByID(ctx, chapterID); err != nil {
		return nil, dberr.Sanitize(err)
	}

	contents, err := service.store.Contents().ListByChapter(ctx, chapterID)
	if err != nil {
		return nil, dberr.Sanitize(err)
	}
	return contents, nil
}

// Unassign removes a block from a chapter. The block itself is kept.
func (service *Service) Unassign(ctx context.Context, chapterID, contentID string) error {
	if err := service.store.Assignments().Delete(ctx, chapterID, contentID); err != nil {
		return dberr.Sanitize(err)
	}

	service.logger.Info("content_unassigned",
		slog.String("chapter_id", chapterID),
		slog.String("content_id", contentID),
	)
	return nil
}

/*
SetOrderForChapter replaces a chapter's assignments with contentIDs, numbered
1..N in the given order.

Everything is validated before the existing assignments are touched, and the
replacement runs in one transaction. An empty list clears the chapter.

Returns:
  - error: NOT_FOUND for the chapter or any block, VALIDATION_ERROR for repeated ids
*/
func (service *Service) SetOrderForChapter(ctx context.Context, chapterID string, contentIDs []string) error {
	if err := uniqueIDs(contentIDs); err != nil {
		return err
	}

	err := service.store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := service.store.Chapters().FindByID(ctx, chapterID); err != nil {
			return err
		}

		found, err := service.store.Contents().FindByIDs(ctx, contentIDs)
		if err != nil {
			return err
		}
		if len(found) != len(contentIDs) {
			return missingContent(contentIDs, found)
		}

		if _, err := service.store.Assignments().DeleteByChapter(ctx, chapterID); err != nil {
			return err
		}

		for index, contentID := range contentIDs {
			assignment := &book.Assignment{ChapterID: chapterID, ContentID: contentID, Order: index + 1}
			if err := service.store.Assignments().Create(ctx, assignment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dberr.Sanitize(err)
	}

	service.logger.Info("chapter_contents_reordered",
		slog.String("chapter_id", chapterID),
		slog.Int("count", len(contentIDs)),
	)
	return nil
}

// # Internal Helpers

// ensureParents reports which side of a prospective assignment is missing.
func (service *Service) ensureParents(ctx context.Context, chapterID, contentID string) error {
	if _, err := service.store.Chapters().FindByID(ctx, chapterID); err != nil {
		return dberr.Sanitize(err)
	}
	if _, err := service.store.Contents().FindByID(ctx, contentID); err != nil {
		return dberr.Sanitize(err)
	}
	return nil
}

func uniqueIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return apperr.ValidationError("Validation failed",
				apperr.FieldError{Field: "content_ids", Message: "Duplicate content id " + id})
		}
		seen[id] = struct{}{}
	}
	return nil
}

func missingContent(requested []string, found []*book.Content) error {
	present := make(map[string]bool, len(found))
	for _, id := range slice.Map(found, func(content *book.Content) string { return content.ID }) {
		present[id] = true
	}

	missing := slice.Filter(requested, func(id string) bool { return !present[id] })
	return apperr.NotFound("Content").WithCause(fmt.Errorf("unknown content ids: %s", strings.Join(missing, ", ")))
}
