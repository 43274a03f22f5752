// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import "context"

// Constraint names shared by every [Store] implementation. They match the
// PostgreSQL schema so integrity errors read the same on every backend.
const (
	ConstraintChapterNumber     = "chapters_number_key"
	ConstraintAssignmentPair    = "chapter_content_assignments_pair_key"
	ConstraintAssignmentChapter = "chapter_content_assignments_chapter_id_fkey"
	ConstraintAssignmentContent = "chapter_content_assignments_content_id_fkey"
)

// # Chapter Data Access

// ChapterRepository defines the data access contract for chapters.
type ChapterRepository interface {

	/*
		FindByID returns the chapter with the given ID.

		Returns:
		  - error: apperr NotFound if missing
	*/
	FindByID(ctx context.Context, id string) (*Chapter, error)

	/*
		FindByNumber returns the chapter holding number.

		Returns:
		  - error: apperr NotFound if no chapter has it
	*/
	FindByNumber(ctx context.Context, number int) (*Chapter, error)

	/*
		List returns chapters matching filter, ascending by number.

		Parameters:
		  - limit: int (0 yields an empty slice)
		  - offset: int
	*/
	List(ctx context.Context, filter ChapterFilter, limit, offset int) ([]*Chapter, error)

	// Count returns the number of chapters matching filter.
	Count(ctx context.Context, filter ChapterFilter) (int, error)

	/*
		Create persists a new chapter.

		Returns:
		  - error: integrity error carrying dberr.ErrUniqueViolation on a taken number
	*/
	Create(ctx context.Context, chapter *Chapter) error

	// Update persists every field of an existing chapter.
	Update(ctx context.Context, chapter *Chapter) error

	// Delete removes a chapter and, by cascade, its assignments.
	Delete(ctx context.Context, id string) error
}

// # Content Data Access

// ContentRepository defines the data access contract for content blocks.
type ContentRepository interface {
	FindByID(ctx context.Context, id string) (*Content, error)

	// FindByIDs returns the blocks that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]*Content, error)

	// List returns blocks matching filter, ascending by creation time then ID.
	List(ctx context.Context, filter ContentFilter, limit, offset int) ([]*Content, error)

	Count(ctx context.Context, filter ContentFilter) (int, error)

	// ListByChapter resolves a chapter's assignments to blocks, in display order.
	ListByChapter(ctx context.Context, chapterID string) ([]*Content, error)

	Create(ctx context.Context, content *Content) error
	Update(ctx context.Context, content *Content) error

	/*
		Delete removes a block.

		Returns:
		  - error: integrity error carrying dberr.ErrForeignKeyViolation while assigned
	*/
	Delete(ctx context.Context, id string) error
}

// # Assignment Data Access

// AssignmentRepository defines the data access contract for the chapter/content junction.
type AssignmentRepository interface {
	Find(ctx context.Context, chapterID, contentID string) (*Assignment, error)

	// ListByChapter returns assignments ascending by order, ties by ID.
	ListByChapter(ctx context.Context, chapterID string) ([]*Assignment, error)

	CountByContent(ctx context.Context, contentID string) (int, error)

	/*
		Create persists a new assignment and sets its ID.

		Returns:
		  - error: unique violation for an existing pair, foreign key violation for a missing parent
	*/
	Create(ctx context.Context, assignment *Assignment) error

	// Delete removes one pair; apperr NotFound when absent.
	Delete(ctx context.Context, chapterID, contentID string) error

	// DeleteByChapter removes every assignment of a chapter and reports how many.
	DeleteByChapter(ctx context.Context, chapterID string) (int, error)
}

// # Store

// Store groups the repositories of one dataset and runs units of work.
type Store interface {
	Chapters() ChapterRepository
	Contents() ContentRepository
	Assignments() AssignmentRepository

	// RunInTx executes fn atomically. Repository calls made with the ctx
	// passed to fn join the transaction. An error from fn rolls back.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
