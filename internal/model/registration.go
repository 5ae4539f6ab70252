package model

import "time"

// Registration is a user's confirmed signup for an event, consuming one unit
// of the event's capacity. Registrations are immutable once created.
type Registration struct {
	ID             string    `json:"id"`
	EventID        Ref       `json:"eventId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phoneNumber,omitempty"`
	ProofOfPayment string    `json:"transactionScreenshot,omitempty"`
	RegisteredAt   time.Time `json:"registeredAt"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	EventID               Ref    `json:"eventId" validate:"required"`
	Name                  string `json:"name" validate:"required"`
	Email                 string `json:"email" validate:"required,email"`
	PhoneNumber           string `json:"phoneNumber"`
	TransactionScreenshot string `json:"transactionScreenshot"`
}
