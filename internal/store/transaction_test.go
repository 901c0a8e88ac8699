package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestRunInTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			return nil
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns the function error unchanged", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		fnErr := errors.New("task row conflict")
		err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			return fnErr
		})

		assert.Equal(t, fnErr, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure maps to ErrTransactionFailed", func(t *testing.T) {
		db, mock := newMockDB(t)
		beginErr := errors.New("connection refused")
		mock.ExpectBegin().WillReturnError(beginErr)

		err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			t.Fatal("function must not run when begin fails")
			return nil
		})

		assert.ErrorIs(t, err, ErrTransactionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure maps to ErrTransactionFailed", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("commit lost"))

		err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			return nil
		})

		assert.ErrorIs(t, err, ErrTransactionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback failure preserves the original error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

		fnErr := errors.New("update rejected")
		err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			return fnErr
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, fnErr)
		assert.Contains(t, err.Error(), "rollback failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("panic rolls back and repanics", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
				panic("boom")
			})
		})

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
