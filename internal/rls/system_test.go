package rls

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell/pkg/database"
)

func newTestSystemRunner(t *testing.T) (*SystemRunner, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewSystemRunner(mock, discardLogger()), mock
}

func TestSystemRunner_RunCommits(t *testing.T) {
	runner, mock := newTestSystemRunner(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := runner.Run(context.Background(), OpDeliverNotification, func(ctx context.Context, db database.DBTX) error {
		_, err := db.Exec(ctx, "INSERT INTO notifications (id) VALUES ($1)", "n1")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemRunner_RunRollsBackOnError(t *testing.T) {
	runner, mock := newTestSystemRunner(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := runner.Run(context.Background(), OpRecordSecurityEvent, func(ctx context.Context, db database.DBTX) error {
		return errors.New("insert failed")
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemRunner_RejectsUnknownOperation(t *testing.T) {
	runner, mock := newTestSystemRunner(t)

	called := false
	err := runner.Run(context.Background(), SystemOp("drop_all_tables"), func(ctx context.Context, db database.DBTX) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrUnknownSystemOp)
	assert.False(t, called)

	// A rejected operation never opens a transaction.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemRunner_CommitError(t *testing.T) {
	runner, mock := newTestSystemRunner(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback().WillReturnError(errors.New("transaction is aborted"))

	err := runner.Run(context.Background(), OpPurgeExpiredTokens, func(ctx context.Context, db database.DBTX) error {
		return nil
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "commit system tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}
