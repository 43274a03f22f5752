// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/textbook/internal/platform/postgres"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

/*
TestRunInTx_Commit verifies fn runs on the transaction and is committed.
*/
func TestRunInTx_Commit(t *testing.T) {
	mock := newMock(t)
	runner := postgres.NewTxRunner(mock)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chapters").WithArgs("x").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, postgres.InTx(ctx))
		_, err := postgres.QuerierFromCtx(ctx, mock).Exec(ctx, "DELETE FROM chapters WHERE id = $1", "x")
		return err
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

/*
TestRunInTx_Rollback verifies the callback error is returned unchanged.
*/
func TestRunInTx_Rollback(t *testing.T) {
	mock := newMock(t)
	runner := postgres.NewTxRunner(mock)
	sentinel := errors.New("stop")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := runner.RunInTx(context.Background(), func(context.Context) error { return sentinel })

	assert.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}

/*
TestRunInTx_Nested joins the outer transaction instead of opening a second one.
*/
func TestRunInTx_Nested(t *testing.T) {
	mock := newMock(t)
	runner := postgres.NewTxRunner(mock)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return runner.RunInTx(ctx, func(context.Context) error { return nil })
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

/*
TestQuerierFromCtx_NoTx falls back to the pool.
*/
func TestQuerierFromCtx_NoTx(t *testing.T) {
	mock := newMock(t)
	assert.False(t, postgres.InTx(context.Background()))
	assert.Equal(t, postgres.Querier(mock), postgres.QuerierFromCtx(context.Background(), mock))
}
