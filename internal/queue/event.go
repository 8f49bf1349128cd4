// Package queue defines message payloads exchanged over the message broker.
package queue

// SMSQueueName is the durable queue carrying outbound text messages to
// the SMS gateway worker.
const SMSQueueName = "sms.outbound"

// SMSMessage is published when the engine wants a text sent: booking
// confirmations carrying the queue code, and detail-update notices.
// Delivery is best effort and one way; nothing in the booking flow
// waits on it or rolls back because of it.
type SMSMessage struct {
	MessageID   string `json:"message_id"`  // unique id for tracing non-delivery
	Destination string `json:"destination"` // normalized phone number
	Text        string `json:"text"`        // message body
	QueuedAt    string `json:"queued_at"`   // RFC3339 UTC enqueue time
}
