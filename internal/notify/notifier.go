// Package notify dispatches one-way text notifications to drivers.
// The engine treats the SMS gateway as an external collaborator: a
// Send that fails is recorded in the result and logged, but it never
// fails or rolls back the reservation mutation that triggered it.
package notify

import (
	"context"
	"fmt"
)

// Result reports the outcome of one dispatch attempt.  Delivered
// false with a non-nil Err means the message is lost unless the
// operator follows up; the engine does not retry.
type Result struct {
	Delivered bool   // whether the gateway accepted the message
	MessageID string // gateway-side id for tracing, empty on failure
	Err       error  // what went wrong, nil when delivered
}

// Notifier sends one text to one destination.  Implementations must
// never panic and must return rather than propagate failures; the
// booking flow calls Send after its transaction has committed and
// ignores everything except logging.
type Notifier interface {
	Send(ctx context.Context, destination, text string) Result
}

// Nop is a Notifier that silently succeeds.  It backs tests and
// deployments without a broker.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(ctx context.Context, destination, text string) Result {
	return Result{Delivered: true, MessageID: "nop"}
}

// ConfirmationText builds the booking confirmation message.  The
// queue code is the piece the driver must keep: staff use it at the
// gate to find the booking without the original session.
func ConfirmationText(siteName, date, timeOfDay, queueCode string) string {
	return fmt.Sprintf("Booking confirmed at %s on %s %s. Your queue code is %s. Show it at the gate.",
		siteName, date, timeOfDay, queueCode)
}

// UpdateText builds the notice sent after a reservation edit when the
// caller asked for one.
func UpdateText(siteName, date, timeOfDay, queueCode string) string {
	return fmt.Sprintf("Booking updated: %s on %s %s. Queue code %s is unchanged.",
		siteName, date, timeOfDay, queueCode)
}

// ReassignText builds the notice sent after a reservation is moved to
// a new time.
func ReassignText(siteName, date, newTime, queueCode string) string {
	return fmt.Sprintf("Booking moved to %s on %s at %s. Queue code %s is unchanged.",
		siteName, date, newTime, queueCode)
}
