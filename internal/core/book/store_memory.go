// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/dberr"
)

// MemoryStore is an in-process [Store]. It enforces the same constraints as
// the PostgreSQL schema (unique number, unique pair, cascade on chapter
// delete, restrict on content delete) and reports them with the same errors.
//
// # Concurrency
//
// Single calls take a read or write lock. RunInTx holds the write lock for
// the whole callback and restores a snapshot when the callback fails, so
// transactions are serialised and all-or-nothing.
type MemoryStore struct {
	mu          sync.RWMutex
	chapters    map[string]Chapter
	contents    map[string]*Content
	assignments map[int64]Assignment
	nextID      int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chapters:    make(map[string]Chapter),
		contents:    make(map[string]*Content),
		assignments: make(map[int64]Assignment),
	}
}

// Chapters implements [Store].
func (store *MemoryStore) Chapters() ChapterRepository { return memoryChapters{store} }

// Contents implements [Store].
func (store *MemoryStore) Contents() ContentRepository { return memoryContents{store} }

// Assignments implements [Store].
func (store *MemoryStore) Assignments() AssignmentRepository { return memoryAssignments{store} }

// # Locking & Transactions

type memoryTxKey struct{}

func (store *MemoryStore) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(memoryTxKey{}).(*MemoryStore)
	return owner == store
}

func (store *MemoryStore) read(ctx context.Context) func() {
	if store.inTx(ctx) {
		return func() {}
	}
	store.mu.RLock()
	return store.mu.RUnlock
}

func (store *MemoryStore) write(ctx context.Context) func() {
	if store.inTx(ctx) {
		return func() {}
	}
	store.mu.Lock()
	return store.mu.Unlock
}

type memorySnapshot struct {
	chapters    map[string]Chapter
	contents    map[string]*Content
	assignments map[int64]Assignment
	nextID      int64
}

func (store *MemoryStore) snapshot() memorySnapshot {
	contents := make(map[string]*Content, len(store.contents))
	for id, content := range store.contents {
		contents[id] = cloneContent(content)
	}
	return memorySnapshot{
		chapters:    maps.Clone(store.chapters),
		contents:    contents,
		assignments: maps.Clone(store.assignments),
		nextID:      store.nextID,
	}
}

func (store *MemoryStore) restore(snap memorySnapshot) {
	store.chapters = snap.chapters
	store.contents = snap.contents
	store.assignments = snap.assignments
	store.nextID = snap.nextID
}

// RunInTx implements [Store].
func (store *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if store.inTx(ctx) {
		return fn(ctx)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	snap := store.snapshot()
	defer func() {
		if r := recover(); r != nil {
			store.restore(snap)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, store)); err != nil {
		store.restore(snap)
		return err
	}
	return nil
}

// # Chapters

type memoryChapters struct{ store *MemoryStore }

func (repo memoryChapters) FindByID(ctx context.Context, id string) (*Chapter, error) {
	defer repo.store.read(ctx)()

	chapter, ok := repo.store.chapters[id]
	if !ok {
		return nil, apperr.NotFound("Chapter")
	}
	return &chapter, nil
}

func (repo memoryChapters) FindByNumber(ctx context.Context, number int) (*Chapter, error) {
	defer repo.store.read(ctx)()

	for _, chapter := range repo.store.chapters {
		if chapter.Number == number {
			return &chapter, nil
		}
	}
	return nil, apperr.NotFound("Chapter")
}

func (repo memoryChapters) matching(filter ChapterFilter) []*Chapter {
	needle := foldTopic(filter.Topic)

	var result []*Chapter
	for _, chapter := range repo.store.chapters {
		if filter.State != nil && chapter.State != *filter.State {
			continue
		}
		if needle != "" && !strings.Contains(foldTopic(chapter.Topic), needle) {
			continue
		}
		result = append(result, &chapter)
	}
	return result
}

func (repo memoryChapters) List(ctx context.Context, filter ChapterFilter, limit, offset int) ([]*Chapter, error) {
	defer repo.store.read(ctx)()

	chapters := repo.matching(filter)
	slices.SortFunc(chapters, func(a, b *Chapter) int { return a.Number - b.Number })
	return window(chapters, limit, offset), nil
}

func (repo memoryChapters) Count(ctx context.Context, filter ChapterFilter) (int, error) {
	defer repo.store.read(ctx)()
	return len(repo.matching(filter)), nil
}

func (repo memoryChapters) numberTaken(number int, exceptID string) bool {
	for id, chapter := range repo.store.chapters {
		if chapter.Number == number && id != exceptID {
			return true
		}
	}
	return false
}

func (repo memoryChapters) Create(ctx context.Context, chapter *Chapter) error {
	defer repo.store.write(ctx)()

	if _, exists := repo.store.chapters[chapter.ID]; exists {
		return dberr.UniqueViolation("chapters_pkey", nil)
	}
	if repo.numberTaken(chapter.Number, "") {
		return dberr.UniqueViolation(ConstraintChapterNumber, nil)
	}
	repo.store.chapters[chapter.ID] = *chapter
	return nil
}

func (repo memoryChapters) Update(ctx context.Context, chapter *Chapter) error {
	defer repo.store.write(ctx)()

	if _, exists := repo.store.chapters[chapter.ID]; !exists {
		return apperr.NotFound("Chapter")
	}
	if repo.numberTaken(chapter.Number, chapter.ID) {
		return dberr.UniqueViolation(ConstraintChapterNumber, nil)
	}
	repo.store.chapters[chapter.ID] = *chapter
	return nil
}

func (repo memoryChapters) Delete(ctx context.Context, id string) error {
	defer repo.store.write(ctx)()

	if _, exists := repo.store.chapters[id]; !exists {
		return apperr.NotFound("Chapter")
	}

	// ON DELETE CASCADE
	for assignmentID, assignment := range repo.store.assignments {
		if assignment.ChapterID == id {
			delete(repo.store.assignments, assignmentID)
		}
	}
	delete(repo.store.chapters, id)
	return nil
}

// # Contents

type memoryContents struct{ store *MemoryStore }

func (repo memoryContents) FindByID(ctx context.Context, id string) (*Content, error) {
	defer repo.store.read(ctx)()

	content, ok := repo.store.contents[id]
	if !ok {
		return nil, apperr.NotFound("Content")
	}
	return cloneContent(content), nil
}

func (repo memoryContents) FindByIDs(ctx context.Context, ids []string) ([]*Content, error) {
	defer repo.store.read(ctx)()

	result := make([]*Content, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		content, ok := repo.store.contents[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, cloneContent(content))
	}
	return result, nil
}

func (repo memoryContents) matching(filter ContentFilter) []*Content {
	needle := foldTopic(filter.Topic)

	var result []*Content
	for _, content := range repo.store.contents {
		if filter.Kind != nil && content.Kind() != *filter.Kind {
			continue
		}
		if needle != "" && !strings.Contains(foldTopic(content.Topic), needle) {
			continue
		}
		result = append(result, cloneContent(content))
	}
	return result
}

func (repo memoryContents) List(ctx context.Context, filter ContentFilter, limit, offset int) ([]*Content, error) {
	defer repo.store.read(ctx)()

	contents := repo.matching(filter)
	slices.SortFunc(contents, func(a, b *Content) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return window(contents, limit, offset), nil
}

func (repo memoryContents) Count(ctx context.Context, filter ContentFilter) (int, error) {
	defer repo.store.read(ctx)()
	return len(repo.matching(filter)), nil
}

func (repo memoryContents) ListByChapter(ctx context.Context, chapterID string) ([]*Content, error) {
	defer repo.store.read(ctx)()

	assignments := repo.store.chapterAssignments(chapterID)
	result := make([]*Content, 0, len(assignments))
	for _, assignment := range assignments {
		if content, ok := repo.store.contents[assignment.ContentID]; ok {
			result = append(result, cloneContent(content))
		}
	}
	return result, nil
}

func (repo memoryContents) Create(ctx context.Context, content *Content) error {
	defer repo.store.write(ctx)()

	if _, exists := repo.store.contents[content.ID]; exists {
		return dberr.UniqueViolation("contents_pkey", nil)
	}
	repo.store.contents[content.ID] = cloneContent(content)
	return nil
}

func (repo memoryContents) Update(ctx context.Context, content *Content) error {
	defer repo.store.write(ctx)()

	if _, exists := repo.store.contents[content.ID]; !exists {
		return apperr.NotFound("Content")
	}
	repo.store.contents[content.ID] = cloneContent(content)
	return nil
}

func (repo memoryContents) Delete(ctx context.Context, id string) error {
	defer repo.store.write(ctx)()

	if _, exists := repo.store.contents[id]; !exists {
		return apperr.NotFound("Content")
	}

	// ON DELETE RESTRICT
	for _, assignment := range repo.store.assignments {
		if assignment.ContentID == id {
			return dberr.ForeignKeyViolation(ConstraintAssignmentContent, nil)
		}
	}
	delete(repo.store.contents, id)
	return nil
}

// # Assignments

type memoryAssignments struct{ store *MemoryStore }

// chapterAssignments returns a chapter's assignments in display order.
// Callers hold the lock.
func (store *MemoryStore) chapterAssignments(chapterID string) []*Assignment {
	var result []*Assignment
	for _, assignment := range store.assignments {
		if assignment.ChapterID == chapterID {
			result = append(result, &assignment)
		}
	}
	slices.SortFunc(result, func(a, b *Assignment) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

func (repo memoryAssignments) Find(ctx context.Context, chapterID, contentID string) (*Assignment, error) {
	defer repo.store.read(ctx)()

	for _, assignment := range repo.store.assignments {
		if assignment.ChapterID == chapterID && assignment.ContentID == contentID {
			return &assignment, nil
		}
	}
	return nil, apperr.NotFound("Assignment")
}

func (repo memoryAssignments) ListByChapter(ctx context.Context, chapterID string) ([]*Assignment, error) {
	defer repo.store.read(ctx)()

	assignments := repo.store.chapterAssignments(chapterID)
	if assignments == nil {
		return []*Assignment{}, nil
	}
	return assignments, nil
}

func (repo memoryAssignments) CountByContent(ctx context.Context, contentID string) (int, error) {
	defer repo.store.read(ctx)()

	count := 0
	for _, assignment := range repo.store.assignments {
		if assignment.ContentID == contentID {
			count++
		}
	}
	return count, nil
}

func (repo memoryAssignments) Create(ctx context.Context, assignment *Assignment) error {
	defer repo.store.write(ctx)()

	if _, ok := repo.store.chapters[assignment.ChapterID]; !ok {
		return dberr.ForeignKeyViolation(ConstraintAssignmentChapter, nil)
	}
	if _, ok := repo.store.contents[assignment.ContentID]; !ok {
		return dberr.ForeignKeyViolation(ConstraintAssignmentContent, nil)
	}
	for _, existing := range repo.store.assignments {
		if existing.ChapterID == assignment.ChapterID && existing.ContentID == assignment.ContentID {
			return dberr.UniqueViolation(ConstraintAssignmentPair, nil)
		}
	}

	repo.store.nextID++
	assignment.ID = repo.store.nextID
	repo.store.assignments[assignment.ID] = *assignment
	return nil
}

func (repo memoryAssignments) Delete(ctx context.Context, chapterID, contentID string) error {
	defer repo.store.write(ctx)()

	for id, assignment := range repo.store.assignments {
		if assignment.ChapterID == chapterID && assignment.ContentID == contentID {
			delete(repo.store.assignments, id)
			return nil
		}
	}
	return apperr.NotFound("Assignment")
}

func (repo memoryAssignments) DeleteByChapter(ctx context.Context, chapterID string) (int, error) {
	defer repo.store.write(ctx)()

	deleted := 0
	for id, assignment := range repo.store.assignments {
		if assignment.ChapterID == chapterID {
			delete(repo.store.assignments, id)
			deleted++
		}
	}
	return deleted, nil
}

// # Helpers

// foldTopic case-folds a topic for insensitive matching ("Biología" ~ "BIOLOGÍA").
func foldTopic(topic string) string {
	return cases.Fold().String(strings.TrimSpace(topic))
}

// window applies offset/limit; a non-positive limit yields an empty slice.
func window[T any](items []T, limit, offset int) []T {
	if limit <= 0 || offset >= len(items) {
		return []T{}
	}
	if offset < 0 {
		offset = 0
	}
	return items[offset : offset+min(limit, len(items)-offset)]
}

func cloneContent(content *Content) *Content {
	clone := *content
	if video, ok := content.Payload.(Video); ok {
		if video.Format != nil {
			format := *video.Format
			video.Format = &format
		}
		if video.DurationSeconds != nil {
			duration := *video.DurationSeconds
			video.DurationSeconds = &duration
		}
		clone.Payload = video
	}
	return &clone
}
