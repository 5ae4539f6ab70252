package model

import (
	"encoding/json"
	"testing"
)

func TestRefUnmarshalBareString(t *testing.T) {
	var r Ref
	if err := json.Unmarshal([]byte(`"ev-123"`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.String() != "ev-123" {
		t.Fatalf("got %q, want %q", r.String(), "ev-123")
	}
}

func TestRefUnmarshalExpandedObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"underscore id", `{"_id":"ev-123","eventName":"GopherCon"}`, "ev-123"},
		{"plain id", `{"id":"ev-456","eventName":"GopherCon"}`, "ev-456"},
		{"underscore id wins", `{"_id":"ev-123","id":"ev-456"}`, "ev-123"},
		{"empty object", `{}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r Ref
			if err := json.Unmarshal([]byte(tc.in), &r); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.in, err)
			}
			if r.String() != tc.want {
				t.Fatalf("got %q, want %q", r.String(), tc.want)
			}
		})
	}
}

func TestRefUnmarshalRejectsUnsupportedShapes(t *testing.T) {
	for _, in := range []string{`42`, `["a"]`, `true`} {
		var r Ref
		if err := json.Unmarshal([]byte(in), &r); err == nil {
			t.Fatalf("expected error for %s, got ref %q", in, r)
		}
	}
}

func TestRefNormalizationMakesShapesComparable(t *testing.T) {
	var bare, expanded Ref
	if err := json.Unmarshal([]byte(`"ev-9"`), &bare); err != nil {
		t.Fatalf("bare: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"_id":"ev-9","eventName":"x"}`), &expanded); err != nil {
		t.Fatalf("expanded: %v", err)
	}
	if bare.String() != expanded.String() {
		t.Fatalf("shapes diverge: %q vs %q", bare, expanded)
	}
}

func TestSenderValid(t *testing.T) {
	if !SenderUser.Valid() || !SenderManager.Valid() {
		t.Fatal("known senders should be valid")
	}
	for _, s := range []Sender{"", "admin", "User"} {
		if s.Valid() {
			t.Fatalf("%q should not be valid", s)
		}
	}
}
