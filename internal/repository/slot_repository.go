package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
)

// SlotRepo provides data access to the slots table.  A slot row is
// the single shared mutable resource of the booking engine: holds and
// reservation pointers live on it, and every state transition runs as
// one conditional statement or inside a caller supplied transaction
// so that concurrent claims on the same slot race to exactly one
// winner.  All expiry comparisons happen in UTC via UTC_TIMESTAMP().
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning slot and reservation writes.
func (r *SlotRepo) DB() *sql.DB { return r.db }

// NewHoldToken generates the opaque token stamped onto a slot when a
// hold is granted.  crypto/rand keeps tokens unguessable; the token is
// the only credential needed to confirm or release the hold.
func NewHoldToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SlotRow is the publish input for one slot: a time of day, the slot
// kind and whether it starts out disabled.
type SlotRow struct {
	Time     string // HH:MM time of day
	Kind     string // model.KindRegular or model.KindWorkIn
	Disabled bool   // soft-hide from drivers
}

// PublishTx replaces the non-reserved slot set for one site day with
// the freshly generated rows.  Non-reserved rows are deleted and the
// new set inserted; rows that collide with a surviving reservation
// keep their reservation pointer and only have the disabled flag
// updated in place.  Dropping and re-inserting also clears every hold
// for the day, which is deliberate: a republish invalidates in-flight
// claims.  The caller owns the transaction.
func (r *SlotRepo) PublishTx(ctx context.Context, tx *sql.Tx, siteID uint64, date string, rows []SlotRow) error {
	// Remove everything that is not pinned down by a reservation.
	const del = `DELETE FROM slots WHERE site_id = ? AND slot_date = ? AND reservation_id IS NULL`
	if _, err := tx.ExecContext(ctx, del, siteID, date); err != nil {
		return err
	}
	// Reserved rows may also carry stale hold bookkeeping; a
	// reservation supersedes it, so wipe it while we are here.
	const clear = `UPDATE slots SET hold_token = NULL, hold_expires_at = NULL
                   WHERE site_id = ? AND slot_date = ? AND hold_token IS NOT NULL`
	if _, err := tx.ExecContext(ctx, clear, siteID, date); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	// Upsert the generated set.  The duplicate path only fires for
	// reserved rows that survived the delete above; they keep their
	// reservation and pick up the new disabled flag in place.
	query := `INSERT INTO slots (site_id, slot_date, slot_time, kind, disabled) VALUES `
	args := make([]interface{}, 0, len(rows)*5)
	for i, row := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, siteID, date, row.Time, row.Kind, row.Disabled)
	}
	query += ` ON DUPLICATE KEY UPDATE disabled = VALUES(disabled), updated_at = CURRENT_TIMESTAMP`
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// AppendTimesTx inserts or reactivates slot rows for the given times
// without touching any other row.  Existing rows are re-enabled in
// place rather than replaced, so holds and reservations elsewhere in
// the day are never disturbed.  It returns the times that were
// actually inserted or reactivated; times that already existed
// enabled are silently skipped.
func (r *SlotRepo) AppendTimesTx(ctx context.Context, tx *sql.Tx, siteID uint64, date string, times []string, kind string) ([]string, error) {
	const q = `INSERT INTO slots (site_id, slot_date, slot_time, kind, disabled) VALUES (?, ?, ?, ?, FALSE)
               ON DUPLICATE KEY UPDATE disabled = FALSE`
	touched := make([]string, 0, len(times))
	for _, t := range times {
		res, err := tx.ExecContext(ctx, q, siteID, date, t, kind)
		if err != nil {
			return nil, err
		}
		// MySQL reports 1 affected row for an insert and 2 for an
		// update that changed the disabled flag; 0 means the row was
		// already there and enabled.
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			touched = append(touched, t)
		}
	}
	return touched, nil
}

// SweepExpired clears the hold columns on every slot of one site day
// whose expiry has passed.  The sweep is lazy: it runs at the top of
// hold, confirm and listing operations instead of on a timer, which
// keeps the engine free of background workers while still making an
// expired hold behave as absent everywhere.
func (r *SlotRepo) SweepExpired(ctx context.Context, siteID uint64, date string) error {
	const q = `UPDATE slots SET hold_token = NULL, hold_expires_at = NULL
               WHERE site_id = ? AND slot_date = ? AND hold_token IS NOT NULL AND hold_expires_at <= UTC_TIMESTAMP()`
	_, err := r.db.ExecContext(ctx, q, siteID, date)
	return err
}

// SweepExpiredTx is SweepExpired inside a caller supplied transaction.
func (r *SlotRepo) SweepExpiredTx(ctx context.Context, tx *sql.Tx, siteID uint64, date string) error {
	const q = `UPDATE slots SET hold_token = NULL, hold_expires_at = NULL
               WHERE site_id = ? AND slot_date = ? AND hold_token IS NOT NULL AND hold_expires_at <= UTC_TIMESTAMP()`
	_, err := tx.ExecContext(ctx, q, siteID, date)
	return err
}

// AcquireHold stamps a fresh hold token and expiry onto one open
// regular slot.  The check-and-set is a single conditional UPDATE, so
// two concurrent attempts on the same slot yield exactly one winner;
// the loser sees zero affected rows and a follow-up read decides
// between ErrNotFound (no such slot) and ErrConflict (disabled,
// reserved, or held by someone else).
func (r *SlotRepo) AcquireHold(ctx context.Context, siteID uint64, date, timeOfDay, token string, expiresAt time.Time) error {
	const q = `UPDATE slots SET hold_token = ?, hold_expires_at = ?
               WHERE site_id = ? AND slot_date = ? AND slot_time = ? AND kind = ?
                 AND disabled = FALSE AND reservation_id IS NULL
                 AND (hold_token IS NULL OR hold_expires_at <= UTC_TIMESTAMP())`
	res, err := r.db.ExecContext(ctx, q,
		token, expiresAt.UTC().Format("2006-01-02 15:04:05"),
		siteID, date, timeOfDay, model.KindRegular,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// Lost the race or the slot never existed; diagnose for the caller.
	const probe = `SELECT id FROM slots WHERE site_id = ? AND slot_date = ? AND slot_time = ? AND kind = ?`
	var id uint64
	err = r.db.QueryRowContext(ctx, probe, siteID, date, timeOfDay, model.KindRegular).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// FindByHoldTokenTx loads the slot carrying a live hold for the given
// token, locking the row for the remainder of the transaction.  An
// unknown token and a lapsed hold are indistinguishable to the caller
// and both come back as ErrGone.
func (r *SlotRepo) FindByHoldTokenTx(ctx context.Context, tx *sql.Tx, token string) (*model.Slot, error) {
	const q = `SELECT id, site_id, slot_date, slot_time, kind, disabled, hold_token, hold_expires_at, reservation_id, created_at, updated_at
               FROM slots
               WHERE hold_token = ? AND hold_expires_at > UTC_TIMESTAMP()
               FOR UPDATE`
	s, err := scanSlot(tx.QueryRowContext(ctx, q, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGone
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ReleaseHold clears the hold identified by token.  Unknown or
// already superseded tokens are a no-op; early release is advisory
// and never fails the caller.
func (r *SlotRepo) ReleaseHold(ctx context.Context, token string) error {
	const q = `UPDATE slots SET hold_token = NULL, hold_expires_at = NULL WHERE hold_token = ?`
	_, err := r.db.ExecContext(ctx, q, token)
	return err
}

// EnsureTx makes sure a slot row exists at (site, date, time, kind)
// and returns its ID.  The upsert is idempotent: an existing row is
// left untouched.  Reassign and direct-reserve use this to provision
// ad hoc times the published schedule never included, keeping slot
// provisioning separate from the reservation write that follows it in
// the same transaction.
func (r *SlotRepo) EnsureTx(ctx context.Context, tx *sql.Tx, siteID uint64, date, timeOfDay, kind string) (uint64, error) {
	const q = `INSERT INTO slots (site_id, slot_date, slot_time, kind) VALUES (?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	res, err := tx.ExecContext(ctx, q, siteID, date, timeOfDay, kind)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByIDTx loads one slot by primary key with a row lock.
func (r *SlotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Slot, error) {
	const q = `SELECT id, site_id, slot_date, slot_time, kind, disabled, hold_token, hold_expires_at, reservation_id, created_at, updated_at
               FROM slots WHERE id = ? FOR UPDATE`
	s, err := scanSlot(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OccupyTx points a slot at its new reservation and wipes any hold
// bookkeeping, conditional on the slot being enabled and free.  Zero
// affected rows means someone else got there first (or the slot was
// disabled meanwhile) and comes back as ErrConflict, leaving the
// transaction to roll back.
func (r *SlotRepo) OccupyTx(ctx context.Context, tx *sql.Tx, slotID, reservationID uint64) error {
	const q = `UPDATE slots SET reservation_id = ?, hold_token = NULL, hold_expires_at = NULL
               WHERE id = ? AND reservation_id IS NULL AND disabled = FALSE`
	res, err := tx.ExecContext(ctx, q, reservationID, slotID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// FreeTx clears the reservation pointer from a slot, but only when it
// still points at the expected reservation.  Freeing an already freed
// slot is a no-op so that cancel stays idempotent at the slot level.
func (r *SlotRepo) FreeTx(ctx context.Context, tx *sql.Tx, slotID, reservationID uint64) error {
	const q = `UPDATE slots SET reservation_id = NULL WHERE id = ? AND reservation_id = ?`
	_, err := tx.ExecContext(ctx, q, slotID, reservationID)
	return err
}

// SetDisabled flips the disabled flag on the named times of one site
// day.  The flip is idempotent and times without a matching row are
// ignored; it returns how many rows actually changed.  Disabling
// never deletes anything, so historical reservations survive.
func (r *SlotRepo) SetDisabled(ctx context.Context, siteID uint64, date string, times []string, disabled bool) (int64, error) {
	if len(times) == 0 {
		return 0, nil
	}
	query := `UPDATE slots SET disabled = ? WHERE site_id = ? AND slot_date = ? AND slot_time IN (`
	args := make([]interface{}, 0, len(times)+3)
	args = append(args, disabled, siteID, date)
	for i, t := range times {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, t)
	}
	query += ")"
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListOpen returns the regular slot times a driver may still claim:
// not disabled, not reserved, not under a live hold.  Lapsed holds
// are swept first so the open invariant can be read straight off the
// row state.
func (r *SlotRepo) ListOpen(ctx context.Context, siteID uint64, date string) ([]string, error) {
	if err := r.SweepExpired(ctx, siteID, date); err != nil {
		return nil, err
	}
	const q = `SELECT slot_time FROM slots
               WHERE site_id = ? AND slot_date = ? AND kind = ?
                 AND disabled = FALSE AND reservation_id IS NULL AND hold_token IS NULL
               ORDER BY slot_time`
	rows, err := r.db.QueryContext(ctx, q, siteID, date, model.KindRegular)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	times := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// SlotDetail is one row of the operator's day view: the slot itself
// plus a summary of the reservation occupying it, when there is one.
type SlotDetail struct {
	Time        string              `json:"time"`
	Kind        string              `json:"kind"`
	Disabled    bool                `json:"disabled"`
	Held        bool                `json:"held"`
	Reservation *ReservationSummary `json:"reservation"`
}

// ReservationSummary is the slice of a reservation shown in slot
// listings: enough for gate staff to greet the truck.
type ReservationSummary struct {
	ID        uint64 `json:"id"`
	QueueCode string `json:"queue_code"`
	Name      string `json:"name"`
	Plate     string `json:"plate"`
	Vendor    string `json:"vendor"`
}

// ListAll returns every slot of one site day with its occupancy,
// ordered by time then kind.  Expired holds are swept first so the
// held flag is trustworthy.
func (r *SlotRepo) ListAll(ctx context.Context, siteID uint64, date string) ([]SlotDetail, error) {
	if err := r.SweepExpired(ctx, siteID, date); err != nil {
		return nil, err
	}
	const q = `SELECT s.slot_time, s.kind, s.disabled, s.hold_token IS NOT NULL,
                      res.id, res.queue_code, res.name, res.plate, res.vendor
               FROM slots s
               LEFT JOIN reservations res ON res.id = s.reservation_id
               WHERE s.site_id = ? AND s.slot_date = ?
               ORDER BY s.slot_time, s.kind`
	rows, err := r.db.QueryContext(ctx, q, siteID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SlotDetail{}
	for rows.Next() {
		var d SlotDetail
		var resID sql.NullInt64
		var code, name, plate, vendor sql.NullString
		if err := rows.Scan(&d.Time, &d.Kind, &d.Disabled, &d.Held, &resID, &code, &name, &plate, &vendor); err != nil {
			return nil, err
		}
		if resID.Valid {
			d.Reservation = &ReservationSummary{
				ID:        uint64(resID.Int64),
				QueueCode: code.String,
				Name:      name.String,
				Plate:     plate.String,
				Vendor:    vendor.String,
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// rowScanner lets scanSlot work for both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSlot(row rowScanner) (*model.Slot, error) {
	var s model.Slot
	var token sql.NullString
	var expires sql.NullTime
	var resID sql.NullInt64
	err := row.Scan(&s.ID, &s.SiteID, &s.Date, &s.Time, &s.Kind, &s.Disabled,
		&token, &expires, &resID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if token.Valid {
		v := token.String
		s.HoldToken = &v
	}
	if expires.Valid {
		v := expires.Time
		s.HoldExpiresAt = &v
	}
	if resID.Valid {
		v := uint64(resID.Int64)
		s.ReservationID = &v
	}
	return &s, nil
}
