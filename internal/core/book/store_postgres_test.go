// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/dberr"
)

var (
	chapterColumns    = []string{"id", "number", "title", "topic", "introduction", "state", "created_at", "modified_at"}
	contentColumns    = []string{"id", "kind", "topic", "body", "file_url", "format", "duration_seconds", "created_at", "modified_at"}
	assignmentColumns = []string{"id", "chapter_id", "content_id", "order"}
)

func newPgStore(t *testing.T) (*book.PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return book.NewPostgresStore(mock), mock
}

func strPtr(value string) *string { return &value }

const (
	chapterUUID = "0190a6e4-3b1c-7c2e-8f00-000000000001"
	contentUUID = "0190a6e4-3b1c-7c2e-8f00-0000000000c1"
	missingUUID = "0190a6e4-3b1c-7c2e-8f00-00000000dead"
)

func TestPostgresChapters_FindByID(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		setup   func(mock pgxmock.PgxPoolIface)
		want    *book.Chapter
		wantErr string
	}{
		{
			name: "Success",
			id:   chapterUUID,
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(chapterColumns).
					AddRow(chapterUUID, 1, "Cells", "Biology", strPtr("Intro"), "PUBLISHED", stamp, stamp)
				mock.ExpectQuery("SELECT (.+) FROM chapters WHERE id = \\$1").
					WithArgs(chapterUUID).
					WillReturnRows(rows)
			},
			want: &book.Chapter{
				ID: chapterUUID, Number: 1, Title: "Cells", Topic: "Biology", Introduction: "Intro",
				State: book.StatePublished, CreatedAt: stamp, ModifiedAt: stamp,
			},
		},
		{
			name: "Null introduction reads as empty",
			id:   contentUUID,
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(chapterColumns).
					AddRow(contentUUID, 2, "Atoms", "Chemistry", (*string)(nil), "DRAFT", stamp, stamp)
				mock.ExpectQuery("SELECT (.+) FROM chapters").
					WithArgs(contentUUID).
					WillReturnRows(rows)
			},
			want: &book.Chapter{
				ID: contentUUID, Number: 2, Title: "Atoms", Topic: "Chemistry",
				State: book.StateDraft, CreatedAt: stamp, ModifiedAt: stamp,
			},
		},
		{
			name:    "Malformed id never reaches the database",
			id:      "not-a-uuid",
			setup:   func(pgxmock.PgxPoolIface) {},
			wantErr: apperr.CodeNotFound,
		},
		{
			name: "Not found",
			id:   missingUUID,
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT (.+) FROM chapters").
					WithArgs(missingUUID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: apperr.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newPgStore(t)
			tt.setup(mock)

			got, err := store.Chapters().FindByID(context.Background(), tt.id)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, tt.wantErr))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresChapters_ListFilters(t *testing.T) {
	store, mock := newPgStore(t)
	stamp := time.Now().UTC()
	published := book.StatePublished

	rows := pgxmock.NewRows(chapterColumns).
		AddRow("ch-1", 1, "Motion", "Physics_101", (*string)(nil), "PUBLISHED", stamp, stamp)
	mock.ExpectQuery("SELECT (.+) FROM chapters WHERE topic ILIKE \\$1 AND state = \\$2 ORDER BY number ASC LIMIT 10 OFFSET 20").
		WithArgs(`%physics\_101%`, "PUBLISHED").
		WillReturnRows(rows)

	got, err := store.Chapters().List(context.Background(), book.ChapterFilter{Topic: " physics_101 ", State: &published}, 10, 20)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Motion", got[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresChapters_ListZeroLimit(t *testing.T) {
	store, mock := newPgStore(t)

	got, err := store.Chapters().List(context.Background(), book.ChapterFilter{}, 0, 0)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresChapters_Count(t *testing.T) {
	store, mock := newPgStore(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM chapters").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	total, err := store.Chapters().Count(context.Background(), book.ChapterFilter{})

	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresChapters_CreateDuplicateNumber(t *testing.T) {
	store, mock := newPgStore(t)
	stamp := time.Now().UTC()

	mock.ExpectExec("INSERT INTO chapters").
		WithArgs("ch-1", 1, "Cells", "Biology", pgxmock.AnyArg(), "DRAFT", stamp, stamp).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: book.ConstraintChapterNumber})

	err := store.Chapters().Create(context.Background(), &book.Chapter{
		ID: "ch-1", Number: 1, Title: "Cells", Topic: "Biology",
		State: book.StateDraft, CreatedAt: stamp, ModifiedAt: stamp,
	})

	require.Error(t, err)
	assert.True(t, dberr.IsUniqueViolation(err))
	assert.True(t, apperr.HasCode(err, apperr.CodeIntegrity))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresChapters_UpdateMissing(t *testing.T) {
	store, mock := newPgStore(t)

	stamp := time.Now().UTC()
	mock.ExpectExec("UPDATE chapters SET").
		WithArgs(1, "Cells", "Biology", pgxmock.AnyArg(), "DRAFT", stamp, "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Chapters().Update(context.Background(), &book.Chapter{
		ID: "gone", Number: 1, Title: "Cells", Topic: "Biology", State: book.StateDraft, ModifiedAt: stamp,
	})

	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresContents_ListByChapter(t *testing.T) {
	store, mock := newPgStore(t)
	stamp := time.Now().UTC()
	duration := 12.5

	rows := pgxmock.NewRows(contentColumns).
		AddRow("c-1", "TEXT", "Biology", strPtr("Cells divide."), (*string)(nil), (*string)(nil), (*float64)(nil), stamp, stamp).
		AddRow("c-2", "VIDEO", "Biology", (*string)(nil), strPtr("https://cdn/v.mp4"), (*string)(nil), &duration, stamp, stamp)
	mock.ExpectQuery("SELECT (.+) FROM contents c JOIN chapter_content_assignments a ON a.content_id = c.id WHERE a.chapter_id = \\$1 ORDER BY a.\"order\" ASC, a.id ASC").
		WithArgs("ch-1").
		WillReturnRows(rows)

	got, err := store.Contents().ListByChapter(context.Background(), "ch-1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, book.Text{Body: "Cells divide."}, got[0].Payload)

	video, ok := got[1].Payload.(book.Video)
	require.True(t, ok)
	assert.Equal(t, "https://cdn/v.mp4", video.FileURL)
	assert.Nil(t, video.Format)
	require.NotNil(t, video.DurationSeconds)
	assert.InDelta(t, 12.5, *video.DurationSeconds, 0.0001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresContents_CorruptRow(t *testing.T) {
	store, mock := newPgStore(t)
	stamp := time.Now().UTC()

	rows := pgxmock.NewRows(contentColumns).
		AddRow(contentUUID, "IMAGE", "Art", (*string)(nil), strPtr("https://cdn/a.png"), (*string)(nil), (*float64)(nil), stamp, stamp)
	mock.ExpectQuery("SELECT (.+) FROM contents").WithArgs(contentUUID).WillReturnRows(rows)

	_, err := store.Contents().FindByID(context.Background(), contentUUID)

	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresContents_DeleteWhileAssigned(t *testing.T) {
	store, mock := newPgStore(t)

	mock.ExpectExec("DELETE FROM contents WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: book.ConstraintAssignmentContent})

	err := store.Contents().Delete(context.Background(), "c-1")

	assert.True(t, dberr.IsForeignKeyViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresContents_FindByIDsSkipsMalformed(t *testing.T) {
	store, mock := newPgStore(t)

	got, err := store.Contents().FindByIDs(context.Background(), []string{"garbage"})

	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignments_CreateReturnsID(t *testing.T) {
	store, mock := newPgStore(t)

	mock.ExpectQuery("INSERT INTO chapter_content_assignments \\(chapter_id,content_id,\"order\"\\) VALUES \\(\\$1,\\$2,\\$3\\) RETURNING id").
		WithArgs("ch-1", "c-1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	assignment := &book.Assignment{ChapterID: "ch-1", ContentID: "c-1", Order: 2}
	err := store.Assignments().Create(context.Background(), assignment)

	require.NoError(t, err)
	assert.Equal(t, int64(7), assignment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignments_ListByChapter(t *testing.T) {
	store, mock := newPgStore(t)

	rows := pgxmock.NewRows(assignmentColumns).
		AddRow(int64(3), "ch-1", "c-2", 1).
		AddRow(int64(4), "ch-1", "c-1", 1)
	mock.ExpectQuery("SELECT (.+) FROM chapter_content_assignments WHERE chapter_id = \\$1 ORDER BY \"order\" ASC, id ASC").
		WithArgs("ch-1").
		WillReturnRows(rows)

	got, err := store.Assignments().ListByChapter(context.Background(), "ch-1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c-2", got[0].ContentID)
	assert.Equal(t, 1, got[1].Order)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunInTxSharesTransaction(t *testing.T) {
	store, mock := newPgStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chapter_content_assignments").
		WithArgs("ch-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("DELETE FROM chapters").
		WithArgs("ch-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	var removed int
	err := store.RunInTx(context.Background(), func(ctx context.Context) error {
		var err error
		removed, err = store.Assignments().DeleteByChapter(ctx, "ch-1")
		if err != nil {
			return err
		}
		return store.Chapters().Delete(ctx, "ch-1")
	})

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunInTxRollsBack(t *testing.T) {
	store, mock := newPgStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chapters").
		WithArgs("ch-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := store.RunInTx(context.Background(), func(ctx context.Context) error {
		return store.Chapters().Delete(ctx, "ch-1")
	})

	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
