// Package display applies profile data to the host application's
// display surface. The coordinator never owns markup; it only pushes
// text and attribute values through registered bindings.
package display

import (
	"sync"

	"github.com/lumohealth/tabsync/internal/logger"
	"github.com/lumohealth/tabsync/internal/profile"
)

// Profile fields a binding may target.
const (
	FieldFullname = "fullname"
	FieldAvatar   = "avatar"
	FieldEmail    = "email"
)

// Kind classifies a binding's target element.
type Kind int

const (
	// KindText is a plain text target; refreshable.
	KindText Kind = iota
	// KindAttribute is an attribute target (an avatar URL); refreshable.
	KindAttribute
	// KindInput is a form input. Never refreshed: a sync pass must not
	// clobber what the user is typing.
	KindInput
	// KindLabel is a form label. Never refreshed.
	KindLabel
)

// Binding connects a profile field to one element of the display
// surface. Get reads the element's current value, Set writes it.
type Binding struct {
	Kind Kind
	Get  func() string
	Set  func(string)
}

// DefaultPlaceholders are values that mean an element is showing
// application copy rather than user data. A binding currently showing
// one of these is skipped, so a shared selector never gets unrelated UI
// text overwritten.
var DefaultPlaceholders = []string{
	"Login",
	"Sign In",
	"Sign Up",
	"Guest",
	"Loading...",
	"User Name",
}

// Surface is the set of bindings plus the guards that decide whether a
// refresh may touch them.
type Surface struct {
	mu           sync.Mutex
	bindings     map[string][]Binding
	placeholders map[string]bool
	editing      func() bool
}

// New creates a surface. editing reports whether the user is actively
// editing the profile form; while it returns true, Apply is a no-op.
// It may be nil.
func New(editing func() bool) *Surface {
	placeholders := make(map[string]bool, len(DefaultPlaceholders))
	for _, p := range DefaultPlaceholders {
		placeholders[p] = true
	}
	return &Surface{
		bindings:     make(map[string][]Binding),
		placeholders: placeholders,
		editing:      editing,
	}
}

// Bind registers a binding for a profile field.
func (s *Surface) Bind(field string, b Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[field] = append(s.bindings[field], b)
}

// AddPlaceholder adds a value to the non-user-string guard list.
func (s *Surface) AddPlaceholder(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeholders[value] = true
}

// Apply pushes p's display fields through the bindings and returns the
// number of elements updated. Nothing is touched while editing is
// flagged, and input/label bindings are never touched.
func (s *Surface) Apply(p *profile.Profile) int {
	if p == nil {
		return 0
	}
	if s.editing != nil && s.editing() {
		logger.Debug("display: edit mode active, skipping refresh")
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	updated += s.applyField(FieldFullname, p.Fullname)
	updated += s.applyField(FieldAvatar, p.Avatar)
	updated += s.applyField(FieldEmail, p.Email)
	return updated
}

// applyField updates every refreshable binding of one field.
// Caller holds the lock.
func (s *Surface) applyField(field, value string) int {
	if value == "" {
		return 0
	}

	updated := 0
	for _, b := range s.bindings[field] {
		if b.Kind == KindInput || b.Kind == KindLabel {
			continue
		}
		if b.Get != nil {
			current := b.Get()
			if s.placeholders[current] {
				continue
			}
			if current == value {
				continue
			}
		}
		if b.Set != nil {
			b.Set(value)
			updated++
		}
	}
	return updated
}
