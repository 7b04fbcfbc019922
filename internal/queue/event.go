// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published to the account.events queue.
const (
	EventAccountRegistered  = "account.registered"
	EventAccountApproved    = "account.approved"
	EventAccountDisapproved = "account.disapproved"
)

// AccountEvent is published on account lifecycle transitions: self-service
// registration and moderation decisions.  It carries enough for downstream
// consumers (notification, analytics) to act without querying the primary
// database.  The password hash is never part of an event.
type AccountEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
