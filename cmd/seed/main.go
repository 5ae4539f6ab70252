// Command seed populates a running API server with demo data: a manager
// with a handful of events, fake attendee registrations, and a few query
// threads with short conversations. It needs DEV_LOGIN_ENABLED on the
// server side.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"

	"github.com/flockly/event-platform/pkg/chatclient"
	"github.com/flockly/event-platform/pkg/logger"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API server base URL")
	events := flag.Int("events", 3, "number of events to create")
	attendees := flag.Int("attendees", 5, "registrations per event")
	querists := flag.Int("querists", 2, "users opening a query thread per event")
	seed := flag.Int64("seed", 0, "fake data seed (0 = random)")
	flag.Parse()

	log, err := logger.New("info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *seed != 0 {
		gofakeit.Seed(*seed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := &seeder{baseURL: *baseURL, http: &http.Client{Timeout: 10 * time.Second}, log: log}
	if err := s.run(ctx, *events, *attendees, *querists); err != nil {
		log.Error("seeding failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("seeding complete")
}

type seeder struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func (s *seeder) run(ctx context.Context, events, attendees, querists int) error {
	managerToken, err := s.devLogin(ctx, gofakeit.Name(), gofakeit.Email(), "manager")
	if err != nil {
		return fmt.Errorf("manager login: %w", err)
	}

	for i := 0; i < events; i++ {
		eventID, eventName, err := s.createEvent(ctx, managerToken)
		if err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		s.log.Info("created event", zap.String("id", eventID), zap.String("name", eventName))

		for j := 0; j < attendees; j++ {
			if err := s.register(ctx, eventID); err != nil {
				// Capacity or duplicate rejections are part of the demo.
				s.log.Warn("registration rejected", zap.String("event", eventID), zap.Error(err))
			}
		}

		for j := 0; j < querists; j++ {
			if err := s.converse(ctx, managerToken, eventID, eventName); err != nil {
				return fmt.Errorf("seed conversation: %w", err)
			}
		}
	}
	return nil
}

// converse has a fake user open a thread, exchange a couple of messages
// with the manager, and close the session.
func (s *seeder) converse(ctx context.Context, managerToken, eventID, eventName string) error {
	userToken, err := s.devLogin(ctx, gofakeit.Name(), gofakeit.Email(), "user")
	if err != nil {
		return err
	}

	userClient := chatclient.New(s.baseURL, chatclient.WithToken(userToken))
	session := chatclient.NewSession(userClient, chatclient.Ref(eventID), eventName)
	defer session.Close()

	if err := session.Open(ctx); err != nil {
		return err
	}
	if err := session.Send(ctx, gofakeit.Question()); err != nil {
		return err
	}

	managerClient := chatclient.New(s.baseURL, chatclient.WithToken(managerToken))
	if _, err := managerClient.AppendMessage(ctx, session.QueryID(), gofakeit.Sentence(8), chatclient.SenderManager); err != nil {
		return err
	}
	if err := session.Send(ctx, gofakeit.Sentence(6)); err != nil {
		return err
	}

	s.log.Info("seeded conversation",
		zap.String("event", eventID),
		zap.String("query", session.QueryID()),
		zap.Int("messages", len(session.Messages())))
	return nil
}

func (s *seeder) devLogin(ctx context.Context, name, email, role string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := s.post(ctx, "", "/auth/dev-login", map[string]any{
		"name":     name,
		"email":    email,
		"userType": role,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (s *seeder) createEvent(ctx context.Context, token string) (id, name string, err error) {
	var resp struct {
		Event struct {
			ID   string `json:"id"`
			Name string `json:"eventName"`
		} `json:"event"`
	}
	start := gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 3, 0))
	err = s.post(ctx, token, "/api/events", map[string]any{
		"eventName":   gofakeit.Company() + " " + gofakeit.HackerNoun() + " meetup",
		"description": gofakeit.Sentence(12),
		"venue":       gofakeit.City(),
		"startsAt":    start.UTC().Format(time.RFC3339),
		"capacity":    gofakeit.Number(10, 200),
	}, &resp)
	if err != nil {
		return "", "", err
	}
	return resp.Event.ID, resp.Event.Name, nil
}

func (s *seeder) register(ctx context.Context, eventID string) error {
	return s.post(ctx, "", "/api/registrations", map[string]any{
		"eventId":     eventID,
		"name":        gofakeit.Name(),
		"email":       gofakeit.Email(),
		"phoneNumber": gofakeit.Phone(),
	}, nil)
}

func (s *seeder) post(ctx context.Context, token, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Message json.RawMessage `json:"message"`
	}
	raw, err := decodeTwice(resp.Body, &env, out)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 || !env.Success {
		var msg string
		if json.Unmarshal(env.Message, &msg) != nil || msg == "" {
			msg = string(raw)
		}
		return fmt.Errorf("%s: %d: %s", path, resp.StatusCode, msg)
	}
	return nil
}

// decodeTwice reads the body once and decodes it into both the envelope
// and, when non-nil, the caller's payload struct.
func decodeTwice(r io.Reader, env, out any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	raw := buf.Bytes()
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, err
		}
	}
	return raw, nil
}
