package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/truck-intake-reservation/internal/repository"
)

func newAdminTest(t *testing.T) (*AdminHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewAdminHandler(
		repository.NewSiteRepo(db),
		repository.NewScheduleRepo(db),
		repository.NewSlotRepo(db),
	)
	return h, mock
}

func expectSite(mock sqlmock.Sqlmock, id uint64, minInterval int) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM sites WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "min_interval_minutes", "created_at"}).
			AddRow(id, "North Yard", minInterval, time.Now()))
}

type previewResponse struct {
	Interval int `json:"interval"`
	Slots    []struct {
		Time     string `json:"time"`
		Kind     string `json:"kind"`
		Disabled bool   `json:"disabled"`
	} `json:"slots"`
}

func TestPreviewScheduleWritesNothing(t *testing.T) {
	h, mock := newAdminTest(t)
	expectSite(mock, 1, 5)

	c, rec := dayRequest(t, http.MethodPost, `{"open":"07:00","close":"09:00","target":25}`)
	require.NoError(t, h.PreviewSchedule(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body previewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// 25 slots do not fit in two hours above the 5 minute floor, so
	// the floor wins and the run is truncated at close.
	assert.Equal(t, 5, body.Interval)
	assert.Len(t, body.Slots, 25)
	assert.Equal(t, "07:00", body.Slots[0].Time)
	assert.Equal(t, "09:00", body.Slots[24].Time)
	// Only the site read hits the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreviewWithWorkInCapacity(t *testing.T) {
	h, mock := newAdminTest(t)
	expectSite(mock, 1, 5)

	c, rec := dayRequest(t, http.MethodPost,
		`{"open":"07:00","close":"08:00","target":5,"workin_target":3}`)
	require.NoError(t, h.PreviewSchedule(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body previewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	regular, workin := 0, 0
	for _, s := range body.Slots {
		switch s.Kind {
		case "REGULAR":
			regular++
		case "WORK_IN":
			workin++
		}
	}
	assert.Equal(t, 5, regular)
	assert.Equal(t, 3, workin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishScheduleIsOneTransaction(t *testing.T) {
	h, mock := newAdminTest(t)
	expectSite(mock, 1, 5)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE site_id = ? AND slot_date = ? AND reservation_id IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET hold_token = NULL, hold_expires_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slots")).
		WillReturnResult(sqlmock.NewResult(1, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO day_schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := dayRequest(t, http.MethodPost, `{"open":"07:00","close":"08:00","target":5}`)
	require.NoError(t, h.PublishSchedule(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body["generated_count"])
	assert.Equal(t, 0, body["disabled_count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDisabledRejectsEmptyTimes(t *testing.T) {
	h, mock := newAdminTest(t)

	c, rec := dayRequest(t, http.MethodPatch, `{"times":[],"disabled":true}`)
	require.NoError(t, h.SetDisabled(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
