// Package model defines data structures for the event platform.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sender identifies which side of a conversation wrote a message.
type Sender string

const (
	SenderUser    Sender = "user"
	SenderManager Sender = "manager"
)

// Valid reports whether s is one of the known sender values.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderManager
}

// QueryStatus is the lifecycle state of a query thread.
type QueryStatus string

const (
	QueryOpen   QueryStatus = "open"
	QueryClosed QueryStatus = "closed"
)

// Ref is an entity reference that may arrive on the wire either as a bare
// identifier string or as an expanded object carrying the identifier under
// "_id" or "id". Both shapes normalize to the canonical string form.
type Ref string

// UnmarshalJSON accepts "abc123", {"_id":"abc123",...} and {"id":"abc123",...}.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Ref(s)
		return nil
	}
	var obj struct {
		OID string `json:"_id"`
		ID  string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("ref: unsupported shape: %w", err)
	}
	if obj.OID != "" {
		*r = Ref(obj.OID)
	} else {
		*r = Ref(obj.ID)
	}
	return nil
}

func (r Ref) String() string { return string(r) }

// Message is one chat entry inside a query thread. Messages have no lifecycle
// of their own; they exist only as part of their query's append-only history.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Query is a per-(event, user) conversation thread between a user and the
// event's managers.
type Query struct {
	ID        string      `json:"id"`
	EventID   Ref         `json:"eventId"`
	EventName string      `json:"eventName,omitempty"`
	UserID    Ref         `json:"userId,omitempty"`
	UserName  string      `json:"userName,omitempty"`
	Status    QueryStatus `json:"status"`
	Messages  []Message   `json:"messages"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// CreateQueryRequest is the payload for opening a new query thread.
type CreateQueryRequest struct {
	EventID        Ref    `json:"eventId"`
	EventName      string `json:"eventName,omitempty"`
	InitialMessage string `json:"initialMessage,omitempty"`
	UserName       string `json:"userName,omitempty"`
}

// AppendMessageRequest is the payload for appending a message to a query.
// Sender is optional; when absent the server derives it from the caller's role.
type AppendMessageRequest struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender,omitempty"`
}

// QueryFilter narrows a query listing. Zero values mean "no constraint".
type QueryFilter struct {
	EventID string
	UserID  string
}
