package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlotRepoMock(t *testing.T) (*SlotRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSlotRepo(db), mock
}

func TestNewHoldToken(t *testing.T) {
	a, err := NewHoldToken()
	require.NoError(t, err)
	b, err := NewHoldToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", a)
	assert.NotEqual(t, a, b)
}

func TestAcquireHoldWinsRace(t *testing.T) {
	repo, mock := newSlotRepoMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = ?, hold_expires_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AcquireHold(context.Background(), 1, "2026-08-31", "07:30", "tok", time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireHoldLosesRace(t *testing.T) {
	repo, mock := newSlotRepoMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = ?, hold_expires_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// The slot exists, so the zero-row update means another hold or
	// a reservation got there first.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM slots")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	err := repo.AcquireHold(context.Background(), 1, "2026-08-31", "07:30", "tok", time.Now().Add(2*time.Minute))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireHoldUnknownSlot(t *testing.T) {
	repo, mock := newSlotRepoMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = ?, hold_expires_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM slots")).
		WillReturnError(sql.ErrNoRows)

	err := repo.AcquireHold(context.Background(), 1, "2026-08-31", "99:99", "tok", time.Now().Add(2*time.Minute))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseHoldUnknownTokenIsNoop(t *testing.T) {
	repo, mock := newSlotRepoMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = NULL, hold_expires_at = NULL WHERE hold_token = ?")).
		WithArgs("never-issued").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReleaseHold(context.Background(), "never-issued")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupyTxLostSlotIsConflict(t *testing.T) {
	repo, mock := newSlotRepoMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET reservation_id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.DB().Begin()
	require.NoError(t, err)
	err = repo.OccupyTx(context.Background(), tx, 7, 99)
	assert.True(t, errors.Is(err, ErrConflict))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDisabledEmptyTimes(t *testing.T) {
	repo, mock := newSlotRepoMock(t)

	n, err := repo.SetDisabled(context.Background(), 1, "2026-08-31", nil, true)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpenSweepsBeforeReading(t *testing.T) {
	repo, mock := newSlotRepoMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = NULL, hold_expires_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot_time FROM slots")).
		WillReturnRows(sqlmock.NewRows([]string{"slot_time"}).AddRow("07:00").AddRow("07:05"))

	times, err := repo.ListOpen(context.Background(), 1, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, []string{"07:00", "07:05"}, times)
	assert.NoError(t, mock.ExpectationsWereMet())
}
