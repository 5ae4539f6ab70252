package model

import "time"

// Event represents a bookable event created by a manager.
type Event struct {
	ID              string    `json:"id"`
	ManagerID       string    `json:"managerId,omitempty"`
	Name            string    `json:"eventName"`
	Description     string    `json:"description,omitempty"`
	Venue           string    `json:"venue,omitempty"`
	StartsAt        time.Time `json:"startsAt,omitempty"`
	Capacity        int       `json:"capacity"`
	RegisteredCount int       `json:"registeredCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string    `json:"eventName" validate:"required"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"startsAt"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
}

// UpdateEventRequest is the payload for updating an event. Nil fields are
// left unchanged.
type UpdateEventRequest struct {
	Name        *string    `json:"eventName,omitempty"`
	Description *string    `json:"description,omitempty"`
	Venue       *string    `json:"venue,omitempty"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	Capacity    *int       `json:"capacity,omitempty" validate:"omitempty,gte=0"`
}
