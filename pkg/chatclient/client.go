// Package chatclient is the Go client for the query chat API. It carries its
// own wire types so consumers outside this module can use it, and it decodes
// reference fields defensively: eventId/userId may arrive either as a bare
// identifier or as an expanded object with a nested id.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sender identifies which side of a conversation wrote a message.
type Sender string

const (
	SenderUser    Sender = "user"
	SenderManager Sender = "manager"
)

// Ref is an entity reference normalized to its canonical string form.
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

// Message is one chat entry within a query thread.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Query is a per-(event, user) conversation thread.
type Query struct {
	ID        string    `json:"id"`
	EventID   Ref       `json:"eventId"`
	EventName string    `json:"eventName,omitempty"`
	UserID    Ref       `json:"userId,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	Status    string    `json:"status"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// APIError is a non-2xx response decoded from the server envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the query chat endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the session token sent as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors the server's {success, message?, ...payload} convention.
// The "message" field is a string on failure and a Message object on a
// successful append, so it stays raw until the success flag is known.
type envelope struct {
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message,omitempty"`
	Query   *Query          `json:"query,omitempty"`
	Queries []Query         `json:"queries,omitempty"`
}

func (e *envelope) errorMessage() string {
	var s string
	if len(e.Message) > 0 && json.Unmarshal(e.Message, &s) == nil {
		return s
	}
	return "request failed"
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.errorMessage()}
	}
	return &env, nil
}

// ListQueries returns threads filtered by event and/or user id.
func (c *Client) ListQueries(ctx context.Context, eventID, userID string) ([]Query, error) {
	path := "/api/queries"
	params := make([]string, 0, 2)
	if eventID != "" {
		params = append(params, "eventId="+eventID)
	}
	if userID != "" {
		params = append(params, "userId="+userID)
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Queries, nil
}

// CreateQuery opens a new thread, optionally seeded with a first message.
func (c *Client) CreateQuery(ctx context.Context, eventID Ref, eventName, initialMessage string) (*Query, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/queries", map[string]any{
		"eventId":        eventID,
		"eventName":      eventName,
		"initialMessage": initialMessage,
	})
	if err != nil {
		return nil, err
	}
	return env.Query, nil
}

// ResolveQuery finds the caller's thread for the event or creates an empty
// one, without ever duplicating an existing thread.
func (c *Client) ResolveQuery(ctx context.Context, eventID Ref, eventName string) (*Query, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/queries/resolve", map[string]any{
		"eventId":   eventID,
		"eventName": eventName,
	})
	if err != nil {
		return nil, err
	}
	return env.Query, nil
}

// GetQuery fetches a thread with its full message history.
func (c *Client) GetQuery(ctx context.Context, queryID string) (*Query, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/queries/"+queryID, nil)
	if err != nil {
		return nil, err
	}
	return env.Query, nil
}

// AppendMessage appends one message to a thread. An empty sender lets the
// server derive it from the caller's role.
func (c *Client) AppendMessage(ctx context.Context, queryID, text string, sender Sender) (*Message, error) {
	body := map[string]any{"text": text}
	if sender != "" {
		body["sender"] = sender
	}
	env, err := c.do(ctx, http.MethodPost, "/api/queries/"+queryID+"/messages", body)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}
