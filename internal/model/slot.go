package model

import "time"

// Slot kinds.  Regular slots come from the published schedule,
// work-in slots are overflow capacity for unscheduled arrivals.
const (
	KindRegular = "REGULAR" // slots.kind value for scheduled capacity
	KindWorkIn  = "WORK_IN" // slots.kind value for overflow capacity
)

// Slot is one bookable unit of intake capacity, uniquely identified
// by (site, date, time, kind).  A hold is not a separate entity but a
// transient annotation on the slot row: an opaque token plus an
// expiry.  A hold past its expiry is void even before a sweep clears
// it, so every read must go through an expiry check.  A reservation
// pointer supersedes any hold bookkeeping.
//
// Fields:
//  ID            - primary key identifier.
//  SiteID        - site the slot belongs to.
//  Date          - calendar day in YYYY-MM-DD form.
//  Time          - time of day in HH:MM form.
//  Kind          - KindRegular or KindWorkIn.
//  Disabled      - soft-hidden from drivers; independent of reservation state.
//  HoldToken     - opaque claim token (nil when not held).
//  HoldExpiresAt - when the claim lapses (nil when not held).
//  ReservationID - owning reservation (nil when free).
//  CreatedAt     - when the row was materialized.
//  UpdatedAt     - last modification.
type Slot struct {
	ID            uint64     // slots.id
	SiteID        uint64     // slots.site_id
	Date          string     // slots.slot_date
	Time          string     // slots.slot_time
	Kind          string     // slots.kind
	Disabled      bool       // slots.disabled
	HoldToken     *string    // slots.hold_token (nullable)
	HoldExpiresAt *time.Time // slots.hold_expires_at (nullable)
	ReservationID *uint64    // slots.reservation_id (nullable)
	CreatedAt     time.Time  // slots.created_at
	UpdatedAt     time.Time  // slots.updated_at
}

// Held reports whether the slot carries a live hold at the given
// instant.  An expired hold counts as absent.
func (s *Slot) Held(now time.Time) bool {
	return s.HoldToken != nil && s.HoldExpiresAt != nil && s.HoldExpiresAt.After(now)
}

// Open reports whether a driver may claim the slot at the given
// instant: not disabled, not reserved, and not under a live hold.
func (s *Slot) Open(now time.Time) bool {
	return !s.Disabled && s.ReservationID == nil && !s.Held(now)
}
