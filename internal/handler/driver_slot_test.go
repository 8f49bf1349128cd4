package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/truck-intake-reservation/internal/notify"
	"github.com/iliyamo/truck-intake-reservation/internal/repository"
)

// newDriverTest wires a DriverHandler onto a mocked database and a
// no-op notifier.
func newDriverTest(t *testing.T) (*DriverHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewDriverHandler(
		repository.NewSiteRepo(db),
		repository.NewSlotRepo(db),
		repository.NewReservationRepo(db),
		notify.Nop{},
		2*time.Minute,
	)
	return h, mock
}

func dayRequest(t *testing.T, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("site", "date")
	c.SetParamValues("1", "2026-08-31")
	return c, rec
}

func TestHoldGrantsToken(t *testing.T) {
	h, mock := newDriverTest(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = NULL, hold_expires_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = ?, hold_expires_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := dayRequest(t, http.MethodPost, `{"time":"07:30"}`)
	require.NoError(t, h.Hold(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Regexp(t, "^[0-9a-f]{64}$", body["token"])
	exp, err := time.Parse(time.RFC3339, body["expires_at"])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), exp, 5*time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldLoserGetsConflict(t *testing.T) {
	h, mock := newDriverTest(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = NULL, hold_expires_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = ?, hold_expires_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM slots")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	c, rec := dayRequest(t, http.MethodPost, `{"time":"07:30"}`)
	require.NoError(t, h.Hold(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldUnknownTimeIs404(t *testing.T) {
	h, mock := newDriverTest(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = NULL, hold_expires_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = ?, hold_expires_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM slots")).
		WillReturnError(sql.ErrNoRows)

	c, rec := dayRequest(t, http.MethodPost, `{"time":"23:55"}`)
	require.NoError(t, h.Hold(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRejectsMalformedTime(t *testing.T) {
	h, mock := newDriverTest(t)

	c, rec := dayRequest(t, http.MethodPost, `{"time":"half past seven"}`)
	require.NoError(t, h.Hold(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmCreatesReservation(t *testing.T) {
	h, mock := newDriverTest(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE hold_token = ? AND hold_expires_at > UTC_TIMESTAMP()")).
		WillReturnRows(slotRow(5, "07:30", "tok", nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at, updated_at FROM reservations WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET reservation_id = ?, hold_token = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := dayRequest(t, http.MethodPost, `{"token":"tok","details":{"name":"Sam","plate":"AB-123"}}`)
	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		ReservationID uint64 `json:"reservation_id"`
		QueueCode     string `json:"queue_code"`
		Notification  string `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(11), body.ReservationID)
	assert.Regexp(t, "^[0-9]{4}$", body.QueueCode)
	// No phone in the details, so no text goes out.
	assert.Equal(t, "skipped", body.Notification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmExpiredTokenIsGone(t *testing.T) {
	h, mock := newDriverTest(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE hold_token = ? AND hold_expires_at > UTC_TIMESTAMP()")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := dayRequest(t, http.MethodPost, `{"token":"stale","details":{"name":"Sam"}}`)
	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmRequiresName(t *testing.T) {
	h, mock := newDriverTest(t)

	c, rec := dayRequest(t, http.MethodPost, `{"token":"tok","details":{"plate":"AB-123"}}`)
	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseUnknownTokenSucceeds(t *testing.T) {
	h, mock := newDriverTest(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = NULL, hold_expires_at = NULL WHERE hold_token = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues("never-issued")

	require.NoError(t, h.Release(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
