package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations table.
// Every reservation occupies exactly one slot; the slot row holds the
// forward pointer and the reservation holds the back-reference, and
// the two are only ever written together inside one transaction.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// NewQueueCode draws a random four digit confirmation code.  Codes
// are drawn independently per reservation and deliberately not
// checked for uniqueness: the upstream system behaves the same way,
// and enforcing uniqueness would silently cap live reservations at
// 10000 per day.  Lookup resolves a collision by returning the most
// recent match.
func NewQueueCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// CreateTx inserts a reservation within the provided transaction and
// populates the generated ID plus DB-assigned timestamps.  The queue
// code must already be set by the caller; it is written once here and
// never updated again.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (slot_id, site_id, res_date, res_time, queue_code, name, plate, vendor, ticket_ref, quantity, unit, phone)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.SlotID, res.SiteID, res.Date, res.Time, res.QueueCode,
		res.Name, res.Plate, res.Vendor, res.TicketRef, res.Quantity, res.Unit, res.Phone,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// GetByID fetches one reservation.  Returns ErrNotFound when absent.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, selectReservation+` WHERE id = ?`, id)
	return scanReservation(row)
}

// GetByIDTx is GetByID inside a transaction with a row lock, used by
// cancel and reassign so the slot swap sees a stable reservation.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	row := tx.QueryRowContext(ctx, selectReservation+` WHERE id = ? FOR UPDATE`, id)
	return scanReservation(row)
}

// DeleteTx removes a reservation row.  The caller frees the owning
// slot in the same transaction; a crash can therefore never leave a
// slot reserved with no reservation behind it.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReservationPatch carries the mutable detail fields of an edit.  Nil
// pointers leave the column untouched.  The queue code and the slot
// binding are not part of the patch on purpose.
type ReservationPatch struct {
	Name      *string
	Plate     *string
	Vendor    *string
	TicketRef *string
	Quantity  *float64
	Unit      *string
	Phone     *string
}

// Edit applies a partial update to the mutable fields of a
// reservation and reports how many rows changed.  An empty patch is a
// no-op.  Returns ErrNotFound when the reservation does not exist.
func (r *ReservationRepo) Edit(ctx context.Context, id uint64, p ReservationPatch) (int64, error) {
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Plate != nil {
		add("plate", *p.Plate)
	}
	if p.Vendor != nil {
		add("vendor", *p.Vendor)
	}
	if p.TicketRef != nil {
		add("ticket_ref", *p.TicketRef)
	}
	if p.Quantity != nil {
		add("quantity", *p.Quantity)
	}
	if p.Unit != nil {
		add("unit", *p.Unit)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	query := "UPDATE reservations SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id = ?"
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Zero rows means either the patch matched the stored values
		// or the reservation vanished; probing after the update keeps
		// the two distinguishable without a racy pre-check.
		var exists uint64
		err := r.db.QueryRowContext(ctx, `SELECT id FROM reservations WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
	}
	return n, nil
}

// MoveTx rebinds a reservation to a new slot and time within the
// provided transaction.  The queue code travels unchanged; only the
// slot pointer and time field move.
func (r *ReservationRepo) MoveTx(ctx context.Context, tx *sql.Tx, id, newSlotID uint64, newTime string) error {
	const q = `UPDATE reservations SET slot_id = ?, res_time = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, newSlotID, newTime, id)
	return err
}

// Lookup resolves a reservation from a contact phone (full normalized
// number or just the last four digits) plus the queue code.  Both
// factors must match the same row, which is what makes this read
// double as the self-service authorization check.  When two live
// reservations collide on the code, the most recent one wins.
func (r *ReservationRepo) Lookup(ctx context.Context, phoneOrSuffix, queueCode string) (*model.Reservation, error) {
	const q = selectReservation + `
               WHERE queue_code = ?
                 AND phone <> ''
                 AND (phone = ? OR (CHAR_LENGTH(?) >= 4 AND RIGHT(phone, 4) = RIGHT(?, 4)))
               ORDER BY created_at DESC, id DESC
               LIMIT 1`
	row := r.db.QueryRowContext(ctx, q, queueCode, phoneOrSuffix, phoneOrSuffix, phoneOrSuffix)
	return scanReservation(row)
}

const selectReservation = `SELECT id, slot_id, site_id, res_date, res_time, queue_code, name, plate, vendor, ticket_ref, quantity, unit, phone, created_at, updated_at
               FROM reservations`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.SlotID, &res.SiteID, &res.Date, &res.Time, &res.QueueCode,
		&res.Name, &res.Plate, &res.Vendor, &res.TicketRef, &res.Quantity, &res.Unit, &res.Phone,
		&res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
