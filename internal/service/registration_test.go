package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/internal/proofstore"
	"github.com/flockly/event-platform/internal/store/memory"
	"github.com/flockly/event-platform/pkg/logger"
)

func newRegistrationService(t *testing.T, capacity int) (*RegistrationService, *memory.Store) {
	t.Helper()
	st := memory.New()
	if err := st.CreateEvent(context.Background(), &model.Event{
		ID: "ev1", Name: "GopherCon", Capacity: capacity,
	}); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return NewRegistrationService(st, nil, logger.NewNop()), st
}

func TestRegisterHappyPath(t *testing.T) {
	svc, st := newRegistrationService(t, 10)

	reg, err := svc.Register(context.Background(), &model.RegisterRequest{
		EventID:     "ev1",
		Name:        "Alice",
		Email:       "alice@example.com",
		PhoneNumber: "555-0100",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.ID == "" || reg.RegisteredAt.IsZero() {
		t.Fatal("registration missing id or timestamp")
	}

	e, _ := st.GetEvent(context.Background(), "ev1")
	if e.RegisteredCount != 1 {
		t.Fatalf("registeredCount = %d, want 1", e.RegisteredCount)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, st := newRegistrationService(t, 10)
	ctx := context.Background()

	cases := []struct {
		name string
		req  model.RegisterRequest
	}{
		{"missing event", model.RegisterRequest{Name: "Alice", Email: "alice@example.com"}},
		{"missing name", model.RegisterRequest{EventID: "ev1", Email: "alice@example.com"}},
		{"missing email", model.RegisterRequest{EventID: "ev1", Name: "Alice"}},
		{"malformed email", model.RegisterRequest{EventID: "ev1", Name: "Alice", Email: "not-an-email"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, &tc.req)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("got %v, want validation error", err)
			}
		})
	}

	// Rejections must not consume capacity.
	e, _ := st.GetEvent(ctx, "ev1")
	if e.RegisteredCount != 0 {
		t.Fatalf("registeredCount = %d, want 0", e.RegisteredCount)
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	svc, _ := newRegistrationService(t, 10)
	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		EventID: "ghost", Name: "Alice", Email: "alice@example.com",
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("got %v, want not-found", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newRegistrationService(t, 10)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &model.RegisterRequest{
		EventID: "ev1", Name: "Alice", Email: "alice@example.com",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, &model.RegisterRequest{
		EventID: "ev1", Name: "Alice Again", Email: "Alice@Example.com",
	})
	if !apperr.Is(err, apperr.KindDuplicateRegistration) {
		t.Fatalf("got %v, want duplicate", err)
	}
}

func TestRegisterFullEvent(t *testing.T) {
	svc, _ := newRegistrationService(t, 1)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &model.RegisterRequest{
		EventID: "ev1", Name: "Alice", Email: "alice@example.com",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, &model.RegisterRequest{
		EventID: "ev1", Name: "Bob", Email: "bob@example.com",
	})
	if !apperr.Is(err, apperr.KindCapacityExceeded) {
		t.Fatalf("got %v, want capacity exceeded", err)
	}
}

func TestRegisterConcurrentAdmitsExactlyCapacity(t *testing.T) {
	const capacity = 3
	const attempts = 20
	svc, st := newRegistrationService(t, capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(ctx, &model.RegisterRequest{
				EventID: "ev1",
				Name:    fmt.Sprintf("User %d", i),
				Email:   fmt.Sprintf("user%d@example.com", i),
			})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			} else if !apperr.Is(err, apperr.KindCapacityExceeded) {
				t.Errorf("attempt %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != capacity {
		t.Fatalf("admitted %d, want exactly %d", admitted, capacity)
	}
	e, _ := st.GetEvent(ctx, "ev1")
	if e.RegisteredCount != capacity {
		t.Fatalf("registeredCount = %d, want %d", e.RegisteredCount, capacity)
	}
}

func TestRegisterStoresProofScreenshot(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	if err := st.CreateEvent(ctx, &model.Event{ID: "ev1", Name: "GopherCon", Capacity: 5}); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	proofs := proofstore.NewMemoryStore()
	svc := NewRegistrationService(st, proofs, logger.NewNop())

	payload := []byte("screenshot bytes")
	reg, err := svc.Register(ctx, &model.RegisterRequest{
		EventID:               "ev1",
		Name:                  "Alice",
		Email:                 "alice@example.com",
		TransactionScreenshot: "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.ProofOfPayment == "" || len(reg.ProofOfPayment) > 100 {
		t.Fatalf("expected a storage key, got %q", reg.ProofOfPayment)
	}
	if stored, ok := proofs.Get(reg.ProofOfPayment); !ok || string(stored) != string(payload) {
		t.Fatal("screenshot bytes not stored under the recorded key")
	}
}
