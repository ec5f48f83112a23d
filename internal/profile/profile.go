// Package profile maintains the current user's display profile: an
// in-memory copy backed by the shared store, optionally reconciled with
// the remote API.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lumohealth/tabsync/internal/api"
	"github.com/lumohealth/tabsync/internal/logger"
	"github.com/lumohealth/tabsync/internal/notify"
	"github.com/lumohealth/tabsync/internal/store"
)

// CurrentUserID is the fixed identity of the single profile a store
// holds. Exactly one profile exists per store.
const CurrentUserID = "currentUser"

// ErrStoreWrite is returned when the shared store rejects a profile
// write. It is the one storage failure that propagates, so the caller
// can tell the user the edit did not persist.
var ErrStoreWrite = errors.New("profile: shared store write failed")

// Profile is the user's display profile. Fields beyond the identity
// trio are opaque: the coordinator stores and forwards them without
// interpreting their contents.
type Profile struct {
	ID         string          `json:"id"`
	Fullname   string          `json:"fullname,omitempty"`
	Avatar     string          `json:"avatar,omitempty"`
	Email      string          `json:"email,omitempty"`
	Gender     string          `json:"gender,omitempty"`
	Age        json.RawMessage `json:"age,omitempty"`
	Occupation string          `json:"occupation,omitempty"`
	Bio        string          `json:"bio,omitempty"`
	Interests  json.RawMessage `json:"interests,omitempty"`
	Concerns   json.RawMessage `json:"concerns,omitempty"`
	UpdatedAt  string          `json:"updatedAt,omitempty"`
}

// Event is the payload of a profile-updated broadcast.
type Event struct {
	Profile   *Profile
	Timestamp time.Time
}

// Cache resolves and persists the profile. remote may be nil (or
// unauthenticated) for local-only operation.
type Cache struct {
	store  store.Store
	bus    *notify.Bus
	remote *api.Client

	mu      sync.Mutex
	editing bool
}

// NewCache creates a profile cache over the given store. bus and remote
// are optional.
func NewCache(s store.Store, bus *notify.Bus, remote *api.Client) *Cache {
	return &Cache{store: s, bus: bus, remote: remote}
}

// Get returns the current profile, or nil if none exists anywhere.
//
// Resolution order: remote API when authenticated, then the canonical
// store key, then each legacy key. A remote failure falls back silently
// to the local path. Data found under a legacy key is rewritten under
// the canonical key so the next read is direct.
func (c *Cache) Get(ctx context.Context) *Profile {
	if c.remote.IsAuthenticated() {
		if remote, err := c.remote.GetProfile(ctx); err == nil && remote != nil {
			p := fromAPI(remote)
			p.ID = CurrentUserID
			store.SetJSON(c.store, store.KeyProfile, p)
			return p
		} else if err != nil {
			logger.Debug("profile: remote fetch failed, using local: %v", err)
		}
	}

	var p Profile
	if store.GetJSON(c.store, store.KeyProfile, &p) {
		return &p
	}

	for _, key := range store.LegacyProfileKeys {
		var legacy Profile
		if store.GetJSON(c.store, key, &legacy) {
			legacy.ID = CurrentUserID
			// Migration-on-read: rewrite under the canonical key. The
			// legacy key stays for older coordinator generations.
			store.SetJSON(c.store, store.KeyProfile, &legacy)
			logger.Info("profile: migrated data from legacy key %q", key)
			return &legacy
		}
	}

	return nil
}

// Save overwrites the stored profile with p, forcing the fixed identity
// and a fresh updatedAt. The whole value is replaced; there is no
// field-level merge beyond this shallow spread. On success it pushes to
// the remote best-effort, signals other contexts to resync, and
// broadcasts profile-updated.
func (c *Cache) Save(ctx context.Context, p Profile) (*Profile, error) {
	now := time.Now()
	p.ID = CurrentUserID
	p.UpdatedAt = now.UTC().Format(time.RFC3339)

	if !store.SetJSON(c.store, store.KeyProfile, &p) {
		return nil, ErrStoreWrite
	}

	if c.remote.IsAuthenticated() {
		if _, err := c.remote.UpdateProfile(ctx, toAPI(&p)); err != nil {
			logger.Warn("profile: remote push failed, local copy saved: %v", err)
		}
	}

	store.SignalSync(c.store)
	if c.bus != nil {
		c.bus.Publish(notify.EventProfileUpdated, &Event{Profile: &p, Timestamp: now})
	}

	return &p, nil
}

// SetEditing flags that the user is actively editing the profile form.
// While true, no sync-driven display refresh may overwrite the display
// surface; a background sync would otherwise clobber in-progress edits.
func (c *Cache) SetEditing(editing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = editing
}

// Editing reports whether edit mode is active.
func (c *Cache) Editing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

// Refresh is the sync-pass pull: it re-resolves the profile and
// broadcasts the result so display subscribers can update. Returns the
// resolved profile, which may be nil.
func (c *Cache) Refresh(ctx context.Context) *Profile {
	p := c.Get(ctx)
	if p != nil && c.bus != nil {
		c.bus.Publish(notify.EventProfileUpdated, &Event{Profile: p, Timestamp: time.Now()})
	}
	return p
}

// fromAPI converts a wire profile to the domain type.
func fromAPI(p *api.Profile) *Profile {
	return &Profile{
		ID:         p.ID,
		Fullname:   p.Fullname,
		Avatar:     p.Avatar,
		Email:      p.Email,
		Gender:     p.Gender,
		Age:        p.Age,
		Occupation: p.Occupation,
		Bio:        p.Bio,
		Interests:  p.Interests,
		Concerns:   p.Concerns,
		UpdatedAt:  p.UpdatedAt,
	}
}

// toAPI converts a domain profile to the wire type.
func toAPI(p *Profile) *api.Profile {
	return &api.Profile{
		ID:         p.ID,
		Fullname:   p.Fullname,
		Avatar:     p.Avatar,
		Email:      p.Email,
		Gender:     p.Gender,
		Age:        p.Age,
		Occupation: p.Occupation,
		Bio:        p.Bio,
		Interests:  p.Interests,
		Concerns:   p.Concerns,
		UpdatedAt:  p.UpdatedAt,
	}
}
