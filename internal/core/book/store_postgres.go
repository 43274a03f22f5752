// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/database/schema"
	"github.com/taibuivan/textbook/internal/platform/dberr"
	"github.com/taibuivan/textbook/internal/platform/postgres"
	"github.com/taibuivan/textbook/pkg/uuid"
)

// psql builds statements with PostgreSQL's $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore is the PostgreSQL implementation of [Store].
//
// Every repository resolves its querier from the context, so calls made
// inside [PostgresStore.RunInTx] share the transaction.
type PostgresStore struct {
	db postgres.DB
	tx *postgres.TxRunner
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db postgres.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: postgres.NewTxRunner(db)}
}

// Chapters implements [Store].
func (store *PostgresStore) Chapters() ChapterRepository { return pgChapters{store} }

// Contents implements [Store].
func (store *PostgresStore) Contents() ContentRepository { return pgContents{store} }

// Assignments implements [Store].
func (store *PostgresStore) Assignments() AssignmentRepository { return pgAssignments{store} }

// RunInTx implements [Store].
func (store *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return store.tx.RunInTx(ctx, fn)
}

func (store *PostgresStore) querier(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromCtx(ctx, store.db)
}

// selectMany runs a SELECT and scans every row into dest.
func (store *PostgresStore) selectMany(ctx context.Context, dest any, builder sq.SelectBuilder, action string) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: build query: %w", action, err))
	}
	return dberr.Wrap(pgxscan.Select(ctx, store.querier(ctx), dest, query, args...), action)
}

// selectOne runs a SELECT expected to match one row; no row becomes NotFound(resource).
func (store *PostgresStore) selectOne(ctx context.Context, dest any, builder sq.SelectBuilder, action, resource string) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: build query: %w", action, err))
	}
	if err := pgxscan.Get(ctx, store.querier(ctx), dest, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperr.NotFound(resource)
		}
		return dberr.Wrap(err, action)
	}
	return nil
}

// count runs a SELECT count(*) statement.
func (store *PostgresStore) count(ctx context.Context, builder sq.SelectBuilder, action string) (int, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("%s: build query: %w", action, err))
	}

	var total int
	if err := store.querier(ctx).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, dberr.Wrap(err, action)
	}
	return total, nil
}

// exec runs a write statement and returns the affected row count.
func (store *PostgresStore) exec(ctx context.Context, builder sq.Sqlizer, action string) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("%s: build query: %w", action, err))
	}

	tag, err := store.querier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, dberr.Wrap(err, action)
	}
	return tag.RowsAffected(), nil
}

// # Chapters

type chapterRow struct {
	ID           string    `db:"id"`
	Number       int       `db:"number"`
	Title        string    `db:"title"`
	Topic        string    `db:"topic"`
	Introduction *string   `db:"introduction"`
	State        string    `db:"state"`
	CreatedAt    time.Time `db:"created_at"`
	ModifiedAt   time.Time `db:"modified_at"`
}

func (row chapterRow) toDomain() *Chapter {
	chapter := &Chapter{
		ID:         row.ID,
		Number:     row.Number,
		Title:      row.Title,
		Topic:      row.Topic,
		State:      State(row.State),
		CreatedAt:  row.CreatedAt,
		ModifiedAt: row.ModifiedAt,
	}
	if row.Introduction != nil {
		chapter.Introduction = *row.Introduction
	}
	return chapter
}

type pgChapters struct{ store *PostgresStore }

func (repo pgChapters) selectBuilder() sq.SelectBuilder {
	return psql.Select(schema.BookChapter.Columns()...).From(schema.BookChapter.Table)
}

func (repo pgChapters) FindByID(ctx context.Context, id string) (*Chapter, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound("Chapter")
	}

	var row chapterRow
	builder := repo.selectBuilder().Where(sq.Eq{schema.BookChapter.ID: id})
	if err := repo.store.selectOne(ctx, &row, builder, "chapter.find_by_id", "Chapter"); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (repo pgChapters) FindByNumber(ctx context.Context, number int) (*Chapter, error) {
	var row chapterRow
	builder := repo.selectBuilder().Where(sq.Eq{schema.BookChapter.Number: number})
	if err := repo.store.selectOne(ctx, &row, builder, "chapter.find_by_number", "Chapter"); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func applyChapterFilter(builder sq.SelectBuilder, filter ChapterFilter) sq.SelectBuilder {
	if topic := strings.TrimSpace(filter.Topic); topic != "" {
		builder = builder.Where(sq.ILike{schema.BookChapter.Topic: containsPattern(topic)})
	}
	if filter.State != nil {
		builder = builder.Where(sq.Eq{schema.BookChapter.State: string(*filter.State)})
	}
	return builder
}

func (repo pgChapters) List(ctx context.Context, filter ChapterFilter, limit, offset int) ([]*Chapter, error) {
	if limit <= 0 {
		return []*Chapter{}, nil
	}

	builder := applyChapterFilter(repo.selectBuilder(), filter).
		OrderBy(schema.BookChapter.Number + " ASC").
		Limit(uint64(limit)).
		Offset(uint64(max(offset, 0)))

	var rows []chapterRow
	if err := repo.store.selectMany(ctx, &rows, builder, "chapter.list"); err != nil {
		return nil, err
	}

	chapters := make([]*Chapter, 0, len(rows))
	for _, row := range rows {
		chapters = append(chapters, row.toDomain())
	}
	return chapters, nil
}

func (repo pgChapters) Count(ctx context.Context, filter ChapterFilter) (int, error) {
	builder := applyChapterFilter(psql.Select("count(*)").From(schema.BookChapter.Table), filter)
	return repo.store.count(ctx, builder, "chapter.count")
}

func (repo pgChapters) Create(ctx context.Context, chapter *Chapter) error {
	builder := psql.Insert(schema.BookChapter.Table).
		Columns(schema.BookChapter.Columns()...).
		Values(
			chapter.ID, chapter.Number, chapter.Title, chapter.Topic, nullable(chapter.Introduction),
			string(chapter.State), chapter.CreatedAt, chapter.ModifiedAt,
		)

	_, err := repo.store.exec(ctx, builder, "chapter.create")
	return err
}

func (repo pgChapters) Update(ctx context.Context, chapter *Chapter) error {
	builder := psql.Update(schema.BookChapter.Table).
		Set(schema.BookChapter.Number, chapter.Number).
		Set(schema.BookChapter.Title, chapter.Title).
		Set(schema.BookChapter.Topic, chapter.Topic).
		Set(schema.BookChapter.Introduction, nullable(chapter.Introduction)).
		Set(schema.BookChapter.State, string(chapter.State)).
		Set(schema.BookChapter.ModifiedAt, chapter.ModifiedAt).
		Where(sq.Eq{schema.BookChapter.ID: chapter.ID})

	affected, err := repo.store.exec(ctx, builder, "chapter.update")
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("Chapter")
	}
	return nil
}

func (repo pgChapters) Delete(ctx context.Context, id string) error {
	builder := psql.Delete(schema.BookChapter.Table).Where(sq.Eq{schema.BookChapter.ID: id})

	affected, err := repo.store.exec(ctx, builder, "chapter.delete")
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("Chapter")
	}
	return nil
}

// # Contents

type contentRow struct {
	ID              string    `db:"id"`
	Kind            string    `db:"kind"`
	Topic           string    `db:"topic"`
	Body            *string   `db:"body"`
	FileURL         *string   `db:"file_url"`
	Format          *string   `db:"format"`
	DurationSeconds *float64  `db:"duration_seconds"`
	CreatedAt       time.Time `db:"created_at"`
	ModifiedAt      time.Time `db:"modified_at"`
}

func (row contentRow) toDomain() (*Content, error) {
	fields := ContentFields{
		Body:            row.Body,
		FileURL:         row.FileURL,
		Format:          row.Format,
		DurationSeconds: row.DurationSeconds,
	}

	payload, err := fields.Payload(Kind(row.Kind))
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("content %s: stored row does not match kind %s: %w", row.ID, row.Kind, err))
	}

	return &Content{
		ID:         row.ID,
		Topic:      row.Topic,
		Payload:    payload,
		CreatedAt:  row.CreatedAt,
		ModifiedAt: row.ModifiedAt,
	}, nil
}

func contentsFromRows(rows []contentRow) ([]*Content, error) {
	contents := make([]*Content, 0, len(rows))
	for _, row := range rows {
		content, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}

type pgContents struct{ store *PostgresStore }

func (repo pgContents) selectBuilder() sq.SelectBuilder {
	return psql.Select(schema.BookContent.Columns()...).From(schema.BookContent.Table)
}

func (repo pgContents) FindByID(ctx context.Context, id string) (*Content, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound("Content")
	}

	var row contentRow
	builder := repo.selectBuilder().Where(sq.Eq{schema.BookContent.ID: id})
	if err := repo.store.selectOne(ctx, &row, builder, "content.find_by_id", "Content"); err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (repo pgContents) FindByIDs(ctx context.Context, ids []string) ([]*Content, error) {
	ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return !uuid.Valid(id) })
	if len(ids) == 0 {
		return []*Content{}, nil
	}

	var rows []contentRow
	builder := repo.selectBuilder().Where(sq.Eq{schema.BookContent.ID: ids})
	if err := repo.store.selectMany(ctx, &rows, builder, "content.find_by_ids"); err != nil {
		return nil, err
	}
	return contentsFromRows(rows)
}

func applyContentFilter(builder sq.SelectBuilder, filter ContentFilter) sq.SelectBuilder {
	if filter.Kind != nil {
		builder = builder.Where(sq.Eq{schema.BookContent.Kind: string(*filter.Kind)})
	}
	if topic := strings.TrimSpace(filter.Topic); topic != "" {
		builder = builder.Where(sq.ILike{schema.BookContent.Topic: containsPattern(topic)})
	}
	return builder
}

func (repo pgContents) List(ctx context.Context, filter ContentFilter, limit, offset int) ([]*Content, error) {
	if limit <= 0 {
		return []*Content{}, nil
	}

	builder := applyContentFilter(repo.selectBuilder(), filter).
		OrderBy(schema.BookContent.CreatedAt+" ASC", schema.BookContent.ID+" ASC").
		Limit(uint64(limit)).
		Offset(uint64(max(offset, 0)))

	var rows []contentRow
	if err := repo.store.selectMany(ctx, &rows, builder, "content.list"); err != nil {
		return nil, err
	}
	return contentsFromRows(rows)
}

func (repo pgContents) Count(ctx context.Context, filter ContentFilter) (int, error) {
	builder := applyContentFilter(psql.Select("count(*)").From(schema.BookContent.Table), filter)
	return repo.store.count(ctx, builder, "content.count")
}

func (repo pgContents) ListByChapter(ctx context.Context, chapterID string) ([]*Content, error) {
	columns := make([]string, 0, len(schema.BookContent.Columns()))
	for _, column := range schema.BookContent.Columns() {
		columns = append(columns, "c."+column)
	}

	builder := psql.Select(columns...).
		From(schema.BookContent.Table + " c").
		Join(fmt.Sprintf("%s a ON a.%s = c.%s",
			schema.BookAssignment.Table, schema.BookAssignment.ContentID, schema.BookContent.ID)).
		Where(sq.Eq{"a." + schema.BookAssignment.ChapterID: chapterID}).
		OrderBy("a."+schema.BookAssignment.Order+" ASC", "a."+schema.BookAssignment.ID+" ASC")

	var rows []contentRow
	if err := repo.store.selectMany(ctx, &rows, builder, "content.list_by_chapter"); err != nil {
		return nil, err
	}
	return contentsFromRows(rows)
}

func (repo pgContents) Create(ctx context.Context, content *Content) error {
	fields := content.Fields()
	builder := psql.Insert(schema.BookContent.Table).
		Columns(schema.BookContent.Columns()...).
		Values(
			content.ID, string(content.Kind()), content.Topic,
			fields.Body, fields.FileURL, fields.Format, fields.DurationSeconds,
			content.CreatedAt, content.ModifiedAt,
		)

	_, err := repo.store.exec(ctx, builder, "content.create")
	return err
}

func (repo pgContents) Update(ctx context.Context, content *Content) error {
	fields := content.Fields()
	builder := psql.Update(schema.BookContent.Table).
		Set(schema.BookContent.Topic, content.Topic).
		Set(schema.BookContent.Body, fields.Body).
		Set(schema.BookContent.FileURL, fields.FileURL).
		Set(schema.BookContent.Format, fields.Format).
		Set(schema.BookContent.DurationSeconds, fields.DurationSeconds).
		Set(schema.BookContent.ModifiedAt, content.ModifiedAt).
		Where(sq.Eq{schema.BookContent.ID: content.ID})

	affected, err := repo.store.exec(ctx, builder, "content.update")
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("Content")
	}
	return nil
}

func (repo pgContents) Delete(ctx context.Context, id string) error {
	builder := psql.Delete(schema.BookContent.Table).Where(sq.Eq{schema.BookContent.ID: id})

	affected, err := repo.store.exec(ctx, builder, "content.delete")
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("Content")
	}
	return nil
}

// # Assignments

type assignmentRow struct {
	ID        int64  `db:"id"`
	ChapterID string `db:"chapter_id"`
	ContentID string `db:"content_id"`
	Order     int    `db:"order"`
}

func (row assignmentRow) toDomain() *Assignment {
	return &Assignment{ID: row.ID, ChapterID: row.ChapterID, ContentID: row.ContentID, Order: row.Order}
}

type pgAssignments struct{ store *PostgresStore }

func (repo pgAssignments) selectBuilder() sq.SelectBuilder {
	return psql.Select(schema.BookAssignment.Columns()...).From(schema.BookAssignment.Table)
}

func (repo pgAssignments) Find(ctx context.Context, chapterID, contentID string) (*Assignment, error) {
	var row assignmentRow
	builder := repo.selectBuilder().Where(sq.Eq{
		schema.BookAssignment.ChapterID: chapterID,
		schema.BookAssignment.ContentID: contentID,
	})
	if err := repo.store.selectOne(ctx, &row, builder, "assignment.find", "Assignment"); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (repo pgAssignments) ListByChapter(ctx context.Context, chapterID string) ([]*Assignment, error) {
	builder := repo.selectBuilder().
		Where(sq.Eq{schema.BookAssignment.ChapterID: chapterID}).
		OrderBy(schema.BookAssignment.Order+" ASC", schema.BookAssignment.ID+" ASC")

	var rows []assignmentRow
	if err := repo.store.selectMany(ctx, &rows, builder, "assignment.list_by_chapter"); err != nil {
		return nil, err
	}

	assignments := make([]*Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.toDomain())
	}
	return assignments, nil
}

func (repo pgAssignments) CountByContent(ctx context.Context, contentID string) (int, error) {
	builder := psql.Select("count(*)").
		From(schema.BookAssignment.Table).
		Where(sq.Eq{schema.BookAssignment.ContentID: contentID})
	return repo.store.count(ctx, builder, "assignment.count_by_content")
}

func (repo pgAssignments) Create(ctx context.Context, assignment *Assignment) error {
	query, args, err := psql.Insert(schema.BookAssignment.Table).
		Columns(schema.BookAssignment.ChapterID, schema.BookAssignment.ContentID, schema.BookAssignment.Order).
		Values(assignment.ChapterID, assignment.ContentID, assignment.Order).
		Suffix("RETURNING " + schema.BookAssignment.ID).
		ToSql()
	if err != nil {
		return apperr.Internal(fmt.Errorf("assignment.create: build query: %w", err))
	}

	if err := repo.store.querier(ctx).QueryRow(ctx, query, args...).Scan(&assignment.ID); err != nil {
		return dberr.Wrap(err, "assignment.create")
	}
	return nil
}

func (repo pgAssignments) Delete(ctx context.Context, chapterID, contentID string) error {
	builder := psql.Delete(schema.BookAssignment.Table).Where(sq.Eq{
		schema.BookAssignment.ChapterID: chapterID,
		schema.BookAssignment.ContentID: contentID,
	})

	affected, err := repo.store.exec(ctx, builder, "assignment.delete")
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("Assignment")
	}
	return nil
}

func (repo pgAssignments) DeleteByChapter(ctx context.Context, chapterID string) (int, error) {
	builder := psql.Delete(schema.BookAssignment.Table).
		Where(sq.Eq{schema.BookAssignment.ChapterID: chapterID})

	affected, err := repo.store.exec(ctx, builder, "assignment.delete_by_chapter")
	return int(affected), err
}

// # Helpers

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns user text into an ILIKE substring pattern.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
