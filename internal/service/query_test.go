package service

import (
	"context"
	"testing"
	"time"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/internal/store/memory"
	"github.com/flockly/event-platform/pkg/logger"
)

func newQueryService() (*QueryService, *memory.Store) {
	st := memory.New()
	return NewQueryService(st, nil, logger.NewNop()), st
}

func TestCreateQuerySeedsInitialMessage(t *testing.T) {
	svc, _ := newQueryService()
	ctx := context.Background()

	q, err := svc.Create(ctx, &model.CreateQueryRequest{
		EventID:        "ev1",
		EventName:      "GopherCon",
		InitialMessage: "  is parking available?  ",
	}, "u1", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if q.ID == "" {
		t.Fatal("missing query id")
	}
	if q.Status != model.QueryOpen {
		t.Fatalf("status = %q, want open", q.Status)
	}
	if len(q.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(q.Messages))
	}
	m := q.Messages[0]
	if m.Sender != model.SenderUser {
		t.Fatalf("seed sender = %q, want user", m.Sender)
	}
	if m.Text != "is parking available?" {
		t.Fatalf("seed text not trimmed: %q", m.Text)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatal("seed message missing id or timestamp")
	}
}

func TestCreateQueryWithoutInitialMessage(t *testing.T) {
	svc, _ := newQueryService()

	q, err := svc.Create(context.Background(), &model.CreateQueryRequest{
		EventID: "ev1",
	}, "u1", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(q.Messages) != 0 {
		t.Fatalf("blank initial message should not seed, got %d", len(q.Messages))
	}
	if q.UserName != "Anonymous" {
		t.Fatalf("userName = %q, want Anonymous fallback", q.UserName)
	}

	// Whitespace-only counts as blank too.
	q2, err := svc.Create(context.Background(), &model.CreateQueryRequest{
		EventID:        "ev1",
		InitialMessage: "   ",
	}, "u1", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(q2.Messages) != 0 {
		t.Fatal("whitespace initial message should not seed")
	}
}

func TestCreateQueryRequiresEvent(t *testing.T) {
	svc, _ := newQueryService()
	_, err := svc.Create(context.Background(), &model.CreateQueryRequest{}, "u1", "Alice")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestAppendMessageAttribution(t *testing.T) {
	cases := []struct {
		name       string
		explicit   model.Sender
		callerRole model.Role
		want       model.Sender
	}{
		{"explicit user wins over manager role", model.SenderUser, model.RoleManager, model.SenderUser},
		{"explicit manager wins over user role", model.SenderManager, model.RoleUser, model.SenderManager},
		{"derived from manager role", "", model.RoleManager, model.SenderManager},
		{"derived from user role", "", model.RoleUser, model.SenderUser},
		{"invalid sender falls back to role", "admin", model.RoleManager, model.SenderManager},
		{"anonymous defaults to user", "", "", model.SenderUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newQueryService()
			ctx := context.Background()
			q, err := svc.Create(ctx, &model.CreateQueryRequest{EventID: "ev1"}, "u1", "Alice")
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			msg, err := svc.AppendMessage(ctx, q.ID, &model.AppendMessageRequest{
				Text:   "hello",
				Sender: tc.explicit,
			}, tc.callerRole)
			if err != nil {
				t.Fatalf("append: %v", err)
			}
			if msg.Sender != tc.want {
				t.Fatalf("sender = %q, want %q", msg.Sender, tc.want)
			}
		})
	}
}

func TestAppendMessageValidation(t *testing.T) {
	svc, _ := newQueryService()
	ctx := context.Background()
	q, err := svc.Create(ctx, &model.CreateQueryRequest{EventID: "ev1"}, "u1", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.AppendMessage(ctx, q.ID, &model.AppendMessageRequest{Text: "   "}, model.RoleUser)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("got %v, want validation error", err)
	}

	// Nothing may have been written.
	got, _ := svc.Get(ctx, q.ID)
	if len(got.Messages) != 0 {
		t.Fatal("rejected message reached the store")
	}

	_, err = svc.AppendMessage(ctx, "missing", &model.AppendMessageRequest{Text: "hi"}, model.RoleUser)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("got %v, want not-found", err)
	}
}

func TestAppendMessageOrdering(t *testing.T) {
	svc, _ := newQueryService()
	ctx := context.Background()
	q, err := svc.Create(ctx, &model.CreateQueryRequest{
		EventID:        "ev1",
		InitialMessage: "first",
	}, "u1", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AppendMessage(ctx, q.ID, &model.AppendMessageRequest{Text: "second"}, model.RoleManager); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, q.ID, &model.AppendMessageRequest{Text: "third"}, model.RoleUser); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := svc.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	texts := []string{"first", "second", "third"}
	senders := []model.Sender{model.SenderUser, model.SenderManager, model.SenderUser}
	if len(got.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(got.Messages))
	}
	for i := range texts {
		if got.Messages[i].Text != texts[i] || got.Messages[i].Sender != senders[i] {
			t.Fatalf("position %d: got (%q,%q), want (%q,%q)",
				i, got.Messages[i].Text, got.Messages[i].Sender, texts[i], senders[i])
		}
	}
}

func TestResolveOrCreateReturnsExistingThread(t *testing.T) {
	svc, _ := newQueryService()
	ctx := context.Background()

	first, err := svc.ResolveOrCreate(ctx, "ev1", "GopherCon", "u1", "Alice")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	again, err := svc.ResolveOrCreate(ctx, "ev1", "GopherCon", "u1", "Alice")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("resolve duplicated the thread: %s vs %s", again.ID, first.ID)
	}

	// A different user on the same event gets their own thread.
	other, err := svc.ResolveOrCreate(ctx, "ev1", "GopherCon", "u2", "Bob")
	if err != nil {
		t.Fatalf("other resolve: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("threads must be per-user")
	}

	// Same user on a different event too.
	elsewhere, err := svc.ResolveOrCreate(ctx, "ev2", "Other", "u1", "Alice")
	if err != nil {
		t.Fatalf("elsewhere resolve: %v", err)
	}
	if elsewhere.ID == first.ID {
		t.Fatal("threads must be per-event")
	}
}

func TestResolveOrCreateIgnoresStatus(t *testing.T) {
	svc, _ := newQueryService()
	ctx := context.Background()

	q, err := svc.ResolveOrCreate(ctx, "ev1", "GopherCon", "u1", "Alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := svc.Close(ctx, q.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := svc.ResolveOrCreate(ctx, "ev1", "GopherCon", "u1", "Alice")
	if err != nil {
		t.Fatalf("resolve after close: %v", err)
	}
	if again.ID != q.ID {
		t.Fatal("closed thread should still resolve, not duplicate")
	}
	if again.Status != model.QueryClosed {
		t.Fatalf("status = %q, want closed", again.Status)
	}
}

func TestResolveOrCreatePicksFirstOfDuplicates(t *testing.T) {
	svc, st := newQueryService()
	ctx := context.Background()

	// Pre-existing duplicate threads, as raw Create can produce. The one
	// touched last lists first and must win deterministically.
	old := &model.Query{
		ID: "q-old", EventID: "ev1", UserID: "u1", Status: model.QueryOpen,
		CreatedAt: time.Now().Add(-2 * time.Hour), UpdatedAt: time.Now().Add(-2 * time.Hour),
	}
	fresh := &model.Query{
		ID: "q-fresh", EventID: "ev1", UserID: "u1", Status: model.QueryOpen,
		CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now(),
	}
	if err := st.CreateQuery(ctx, old); err != nil {
		t.Fatalf("seed old: %v", err)
	}
	if err := st.CreateQuery(ctx, fresh); err != nil {
		t.Fatalf("seed fresh: %v", err)
	}

	got, err := svc.ResolveOrCreate(ctx, "ev1", "GopherCon", "u1", "Alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != "q-fresh" {
		t.Fatalf("got %s, want the most recently updated thread", got.ID)
	}
}

func TestResolveOrCreateRequiresEvent(t *testing.T) {
	svc, _ := newQueryService()
	_, err := svc.ResolveOrCreate(context.Background(), "", "", "u1", "Alice")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}
