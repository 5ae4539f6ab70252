package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle position of a chat session.
type State int

const (
	// StateIdle means no thread is attached yet.
	StateIdle State = iota
	// StateLoading means the initial thread fetch is in flight.
	StateLoading
	// StateSynced means the local transcript matched the server at the
	// last successful exchange.
	StateSynced
	// StateSending means a send is in flight.
	StateSending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSynced:
		return "synced"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

// ErrEmptyMessage is returned when Send is called with blank text.
var ErrEmptyMessage = errors.New("chatclient: message text required")

// DefaultPollInterval is how often an open session refreshes its thread.
const DefaultPollInterval = 2 * time.Second

// Session keeps one conversation thread synchronized with the server.
// While open it polls on a fixed interval and replaces the local
// transcript with whatever the server returns; the server is always
// ground truth. Poll failures keep the previous transcript and never
// change state. A session is safe for concurrent use.
type Session struct {
	client    *Client
	eventID   Ref
	eventName string
	sender    Sender
	interval  time.Duration
	onUpdate  func([]Message)
	onError   func(error)

	mu       sync.Mutex
	state    State
	queryID  string
	messages []Message

	pollOnce  sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPollInterval overrides the refresh interval.
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSender pins the sender attribution on outgoing messages. Left
// unset, the server derives it from the caller's role.
func WithSender(sender Sender) SessionOption {
	return func(s *Session) { s.sender = sender }
}

// WithQueryID attaches the session to an already-known thread, skipping
// resolution on Open.
func WithQueryID(id string) SessionOption {
	return func(s *Session) { s.queryID = id }
}

// OnUpdate registers a callback invoked with a copy of the transcript
// after every successful refresh or send. Called outside the session
// lock.
func OnUpdate(fn func([]Message)) SessionOption {
	return func(s *Session) { s.onUpdate = fn }
}

// OnError registers a callback for poll failures, which are otherwise
// silent.
func OnError(fn func(error)) SessionOption {
	return func(s *Session) { s.onError = fn }
}

// NewSession creates a session for the caller's thread on the given event.
func NewSession(client *Client, eventID Ref, eventName string, opts ...SessionOption) *Session {
	s := &Session{
		client:    client,
		eventID:   eventID,
		eventName: eventName,
		interval:  DefaultPollInterval,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open attaches the session to its thread and starts polling. The
// thread is resolved server-side so a returning user lands on their
// existing conversation instead of a duplicate. On failure the session
// returns to idle and Open may be retried.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.New("chatclient: session already open")
	}
	s.state = StateLoading
	queryID := s.queryID
	s.mu.Unlock()

	var q *Query
	var err error
	if queryID != "" {
		q, err = s.client.GetQuery(ctx, queryID)
	} else {
		q, err = s.client.ResolveQuery(ctx, s.eventID, s.eventName)
	}

	s.mu.Lock()
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		return err
	}
	s.queryID = q.ID
	s.messages = q.Messages
	s.state = StateSynced
	s.mu.Unlock()

	s.notify()
	s.startPolling()
	return nil
}

// Send delivers one message. If the session has no thread yet, the
// thread is created with the text as its first message; otherwise the
// text is appended. The confirmed message is added to the local
// transcript immediately so the sender sees it before the next poll.
func (s *Session) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	prev := s.state
	s.state = StateSending
	queryID := s.queryID
	s.mu.Unlock()

	if queryID == "" {
		q, err := s.client.CreateQuery(ctx, s.eventID, s.eventName, trimmed)
		s.mu.Lock()
		if err != nil {
			s.state = prev
			s.mu.Unlock()
			return err
		}
		s.queryID = q.ID
		s.messages = q.Messages
		s.state = StateSynced
		s.mu.Unlock()

		s.notify()
		s.startPolling()
		return nil
	}

	msg, err := s.client.AppendMessage(ctx, queryID, trimmed, s.sender)
	s.mu.Lock()
	if err != nil {
		s.state = prev
		s.mu.Unlock()
		return err
	}
	s.messages = append(s.messages, *msg)
	s.state = StateSynced
	s.mu.Unlock()

	s.notify()
	return nil
}

// Messages returns a copy of the current transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueryID returns the attached thread id, or "" before one exists.
func (s *Session) QueryID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryID
}

// Close stops polling. It is idempotent and safe to call at any time;
// after Close returns, no further refreshes run and no callbacks fire.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		// Claim pollOnce first so polling can never start after Close.
		// If polling already started, this Do is a no-op and cancel is set.
		s.pollOnce.Do(func() { close(s.done) })

		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
			<-s.done
		}
	})
}

func (s *Session) startPolling() {
	s.pollOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()

		go s.poll(ctx)
	})
}

func (s *Session) poll(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh replaces the transcript with the server's copy. A refresh
// that races a send is harmless: the server already holds the sent
// message or the next tick picks it up.
func (s *Session) refresh(ctx context.Context) {
	s.mu.Lock()
	queryID := s.queryID
	s.mu.Unlock()
	if queryID == "" {
		return
	}

	q, err := s.client.GetQuery(ctx, queryID)
	if err != nil {
		if s.onError != nil && ctx.Err() == nil {
			s.onError(err)
		}
		return
	}

	s.mu.Lock()
	s.messages = q.Messages
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	if s.onUpdate == nil {
		return
	}
	s.onUpdate(s.Messages())
}
