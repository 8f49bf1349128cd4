package model

import "time"

// Reservation is a durable booking bound to exactly one slot.  It
// carries the rider and vendor details collected from the driver plus
// a short numeric queue code that staff use to re-identify the booking
// at the gate without the original session.  The queue code is drawn
// once at creation and never regenerated by edits or reassignments.
//
// Fields:
//  ID        - primary key identifier.
//  SlotID    - slot the reservation occupies.
//  SiteID    - site of that slot, denormalized for lookups.
//  Date      - booked day in YYYY-MM-DD form.
//  Time      - booked time of day in HH:MM form; updated on reassign.
//  QueueCode - four digit confirmation code, assigned once.
//  Name      - rider name.
//  Plate     - truck plate number.
//  Vendor    - vendor or hauler the load belongs to.
//  TicketRef - ticket or lot reference.
//  Quantity  - estimated quantity of the load.
//  Unit      - unit for Quantity (tons, pallets, ...).
//  Phone     - contact phone in normalized form; may be empty.
//  CreatedAt - creation timestamp.
//  UpdatedAt - last edit timestamp.
type Reservation struct {
	ID        uint64    // reservations.id
	SlotID    uint64    // reservations.slot_id
	SiteID    uint64    // reservations.site_id
	Date      string    // reservations.res_date
	Time      string    // reservations.res_time
	QueueCode string    // reservations.queue_code
	Name      string    // reservations.name
	Plate     string    // reservations.plate
	Vendor    string    // reservations.vendor
	TicketRef string    // reservations.ticket_ref
	Quantity  float64   // reservations.quantity
	Unit      string    // reservations.unit
	Phone     string    // reservations.phone
	CreatedAt time.Time // reservations.created_at
	UpdatedAt time.Time // reservations.updated_at
}
