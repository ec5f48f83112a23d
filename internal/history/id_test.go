package history

import (
	"encoding/json"
	"testing"
)

func TestFlexIDUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want FlexID
	}{
		{name: "string id", json: `"abc-123"`, want: "abc-123"},
		{name: "numeric id", json: `1724500000123`, want: "1724500000123"},
		{name: "string digits", json: `"42"`, want: "42"},
		{name: "null", json: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id FlexID
			if err := json.Unmarshal([]byte(tt.json), &id); err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", tt.json, err)
			}
			if id != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.json, id, tt.want)
			}
		})
	}
}

func TestFlexIDUnmarshalInvalid(t *testing.T) {
	var id FlexID
	if err := json.Unmarshal([]byte(`{"nested":true}`), &id); err == nil {
		t.Error("Unmarshal of object succeeded, want error")
	}
}

func TestFlexIDMarshalAlwaysString(t *testing.T) {
	// Even an id that entered as a number leaves as a string.
	var id FlexID
	if err := json.Unmarshal([]byte(`42`), &id); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	out, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `"42"` {
		t.Errorf("Marshal = %s, want \"42\"", out)
	}
}

func TestFlexIDEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b FlexID
		want bool
	}{
		{name: "identical strings", a: "abc", b: "abc", want: true},
		{name: "string vs numeric form", a: "42", b: "42", want: true},
		{name: "different values", a: "42", b: "43", want: false},
		{name: "numeric with trailing zero", a: "42.0", b: "42", want: true},
		{name: "non-numeric mismatch", a: "abc", b: "abd", want: false},
		{name: "empty ids", a: "", b: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%q.Equal(%q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("%q.Equal(%q) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}
