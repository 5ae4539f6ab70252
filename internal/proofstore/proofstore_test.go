package proofstore

import (
	"context"
	"encoding/base64"
	"testing"
)

func TestResolvePassThrough(t *testing.T) {
	ctx := context.Background()

	// External URLs and existing keys are never rewritten.
	for _, raw := range []string{"", "https://cdn.example.com/x.png", "proofs/abc"} {
		got, err := Resolve(ctx, NewMemoryStore(), raw)
		if err != nil {
			t.Fatalf("resolve %q: %v", raw, err)
		}
		if got != raw {
			t.Fatalf("got %q, want %q", got, raw)
		}
	}

	// Without a store, even data URIs stay inline.
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	got, err := Resolve(ctx, nil, uri)
	if err != nil {
		t.Fatalf("resolve without store: %v", err)
	}
	if got != uri {
		t.Fatalf("data uri was rewritten with nil store")
	}
}

func TestResolveStoresDataURI(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	payload := []byte("fake image bytes")

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	key, err := Resolve(ctx, store, uri)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if key == uri || key == "" {
		t.Fatalf("expected a storage key, got %q", key)
	}

	stored, ok := store.Get(key)
	if !ok {
		t.Fatalf("nothing stored under %q", key)
	}
	if string(stored) != string(payload) {
		t.Fatalf("stored bytes mismatch: %q", stored)
	}
}

func TestResolveRejectsMalformedDataURI(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, raw := range []string{
		"data:image/png;base64",         // no comma
		"data:image/png,plaintext",      // not base64-encoded
		"data:image/png;base64,!!!not!", // invalid base64 payload
	} {
		if _, err := Resolve(ctx, store, raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
