// Package proofstore saves proof-of-payment screenshots submitted with
// registrations. References that are not data URIs pass through untouched.
package proofstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
)

// Store saves an image and returns a stable reference to it.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// Resolve turns the raw transactionScreenshot value into a stored reference.
// A "data:<type>;base64,<payload>" URI is decoded and saved; anything else
// (an external URL, an existing object key) is returned as-is. With no store
// configured, data URIs are also passed through inline.
func Resolve(ctx context.Context, store Store, raw string) (string, error) {
	if store == nil || !strings.HasPrefix(raw, "data:") {
		return raw, nil
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return "", fmt.Errorf("malformed data uri")
	}
	contentType, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, "base64") {
		return "", fmt.Errorf("unsupported data uri encoding")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode data uri: %w", err)
	}
	return store.Put(ctx, data, contentType)
}

// MemoryStore keeps proofs in a map. Used for tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
}

// NewMemoryStore creates an empty in-memory proof store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores the bytes under a generated key.
func (s *MemoryStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.n++
	key := fmt.Sprintf("proofs/%d", s.n)
	s.objects[key] = data
	return key, nil
}

// Get returns stored bytes. Used by tests.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	return data, ok
}
