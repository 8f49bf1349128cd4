package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
)

// ScheduleRepo provides data access to the day_schedules table, the
// record of what was last published for each (site, date).  There is
// at most one row per site and date; a republish overwrites it.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo bound to the provided database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

// UpsertTx inserts or overwrites the schedule row for (site, date)
// within the provided transaction.  Publishing slots and recording
// the parameters they came from must commit together, so this always
// runs inside the publish transaction.
func (r *ScheduleRepo) UpsertTx(ctx context.Context, tx *sql.Tx, s *model.DaySchedule) error {
	const q = `INSERT INTO day_schedules (site_id, sched_date, loads_target, open_time, close_time, workin_target)
               VALUES (?, ?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE
                   loads_target = VALUES(loads_target),
                   open_time = VALUES(open_time),
                   close_time = VALUES(close_time),
                   workin_target = VALUES(workin_target),
                   updated_at = CURRENT_TIMESTAMP`
	_, err := tx.ExecContext(ctx, q, s.SiteID, s.Date, s.LoadsTarget, s.OpenTime, s.CloseTime, s.WorkInTarget)
	return err
}

// GetBySiteDate fetches the published parameters for one site day.
// Returns ErrNotFound when nothing has been published yet.
func (r *ScheduleRepo) GetBySiteDate(ctx context.Context, siteID uint64, date string) (*model.DaySchedule, error) {
	const q = `SELECT id, site_id, sched_date, loads_target, open_time, close_time, workin_target, updated_at
               FROM day_schedules WHERE site_id = ? AND sched_date = ?`
	var s model.DaySchedule
	err := r.db.QueryRowContext(ctx, q, siteID, date).Scan(
		&s.ID, &s.SiteID, &s.Date, &s.LoadsTarget, &s.OpenTime, &s.CloseTime, &s.WorkInTarget, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
