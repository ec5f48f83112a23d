package display

import (
	"testing"

	"github.com/lumohealth/tabsync/internal/profile"
)

// recorder is a binding target that remembers what was written to it.
type recorder struct {
	value string
	sets  int
}

func (r *recorder) binding(kind Kind) Binding {
	return Binding{
		Kind: kind,
		Get:  func() string { return r.value },
		Set: func(v string) {
			r.value = v
			r.sets++
		},
	}
}

func TestApplyUpdatesTextBindings(t *testing.T) {
	s := New(nil)
	name := &recorder{}
	avatar := &recorder{}
	s.Bind(FieldFullname, name.binding(KindText))
	s.Bind(FieldAvatar, avatar.binding(KindAttribute))

	updated := s.Apply(&profile.Profile{Fullname: "Alice", Avatar: "https://example.com/a.png"})
	if updated != 2 {
		t.Errorf("Apply updated %d bindings, want 2", updated)
	}
	if name.value != "Alice" {
		t.Errorf("name = %q, want Alice", name.value)
	}
	if avatar.value != "https://example.com/a.png" {
		t.Errorf("avatar = %q, want the URL", avatar.value)
	}
}

func TestApplyNilProfile(t *testing.T) {
	s := New(nil)
	name := &recorder{}
	s.Bind(FieldFullname, name.binding(KindText))

	if updated := s.Apply(nil); updated != 0 {
		t.Errorf("Apply(nil) updated %d bindings, want 0", updated)
	}
}

func TestApplySkipsWhileEditing(t *testing.T) {
	editing := true
	s := New(func() bool { return editing })
	name := &recorder{}
	s.Bind(FieldFullname, name.binding(KindText))

	p := &profile.Profile{Fullname: "Alice"}
	if updated := s.Apply(p); updated != 0 {
		t.Errorf("Apply during edit updated %d bindings, want 0", updated)
	}
	if name.sets != 0 {
		t.Error("binding written while editing")
	}

	editing = false
	if updated := s.Apply(p); updated != 1 {
		t.Errorf("Apply after edit updated %d bindings, want 1", updated)
	}
}

func TestApplyNeverTouchesInputsOrLabels(t *testing.T) {
	s := New(nil)
	input := &recorder{}
	label := &recorder{}
	text := &recorder{}
	s.Bind(FieldFullname, input.binding(KindInput))
	s.Bind(FieldFullname, label.binding(KindLabel))
	s.Bind(FieldFullname, text.binding(KindText))

	updated := s.Apply(&profile.Profile{Fullname: "Alice"})
	if updated != 1 {
		t.Errorf("Apply updated %d bindings, want 1 (text only)", updated)
	}
	if input.sets != 0 || label.sets != 0 {
		t.Error("input or label binding was written")
	}
	if text.value != "Alice" {
		t.Errorf("text = %q, want Alice", text.value)
	}
}

func TestApplySkipsPlaceholders(t *testing.T) {
	s := New(nil)
	name := &recorder{value: "Sign In"}
	s.Bind(FieldFullname, name.binding(KindText))

	if updated := s.Apply(&profile.Profile{Fullname: "Alice"}); updated != 0 {
		t.Errorf("Apply over placeholder updated %d bindings, want 0", updated)
	}
	if name.value != "Sign In" {
		t.Errorf("placeholder %q was overwritten", name.value)
	}
}

func TestAddPlaceholder(t *testing.T) {
	s := New(nil)
	s.AddPlaceholder("My App")
	name := &recorder{value: "My App"}
	s.Bind(FieldFullname, name.binding(KindText))

	if updated := s.Apply(&profile.Profile{Fullname: "Alice"}); updated != 0 {
		t.Errorf("Apply over custom placeholder updated %d bindings, want 0", updated)
	}
}

func TestApplySkipsUnchangedValues(t *testing.T) {
	s := New(nil)
	name := &recorder{value: "Alice"}
	s.Bind(FieldFullname, name.binding(KindText))

	if updated := s.Apply(&profile.Profile{Fullname: "Alice"}); updated != 0 {
		t.Errorf("Apply of identical value updated %d bindings, want 0", updated)
	}
	if name.sets != 0 {
		t.Error("unchanged binding was rewritten")
	}
}

func TestApplySkipsEmptyFields(t *testing.T) {
	s := New(nil)
	name := &recorder{value: "Alice"}
	email := &recorder{}
	s.Bind(FieldFullname, name.binding(KindText))
	s.Bind(FieldEmail, email.binding(KindText))

	// An empty profile field never blanks an element.
	updated := s.Apply(&profile.Profile{Email: "a@example.com"})
	if updated != 1 {
		t.Errorf("Apply updated %d bindings, want 1", updated)
	}
	if name.value != "Alice" {
		t.Errorf("name = %q, was blanked by empty field", name.value)
	}
	if email.value != "a@example.com" {
		t.Errorf("email = %q, want a@example.com", email.value)
	}
}
