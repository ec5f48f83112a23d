// Package store provides the shared key-value store that every
// application context reads and writes. All contexts of the same
// installation point at the same store, so a write from one context is
// visible to every other context on its next read.
//
// Store operations never panic and never propagate the underlying
// engine's failures: a failed read reports absence, a failed write
// reports false. Callers that need to surface a failed write (the
// profile and history mutators) branch on the boolean.
package store

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/lumohealth/tabsync/internal/logger"
)

// Canonical storage keys. Every generation of the coordinator must use
// these names consistently so contexts running different builds still
// observe each other's writes.
const (
	KeyProfile     = "profile"
	KeyHistory     = "analysisHistory"
	KeySyncTrigger = "syncTrigger"
	KeyLastSync    = "lastSyncTime"
	KeyHeartbeat   = "heartbeat"
)

// Legacy key names used by earlier coordinator generations. They are
// read-migrated but never deleted, since older builds may still be
// running against the same store.
var (
	LegacyProfileKeys = []string{"userProfileData", "userProfile", "profileData"}
	LegacyHistoryKeys = []string{"healthAnalysisHistory"}
)

// TriggerClearDelay is how long a sync trigger stays in the store before
// the writer clears it. Long enough for other contexts' watchers to see
// the write, short enough to avoid reprocessing on next load.
const TriggerClearDelay = 1 * time.Second

// Store is the shared key-value store contract.
type Store interface {
	// Get returns the raw value for key, or ok=false if the key is
	// absent or the underlying engine failed.
	Get(key string) (value string, ok bool)
	// Set writes a raw value. Returns false on failure.
	Set(key, value string) bool
	// Remove deletes a key. Removing an absent key succeeds.
	Remove(key string) bool
}

// SetJSON serializes v and stores it under key. Serialization failures
// are contained and reported as false.
func SetJSON(s Store, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("store: failed to serialize value for %q: %v", key, err)
		return false
	}
	return s.Set(key, string(data))
}

// GetJSON loads and decodes the value under key into out. A malformed
// value is treated as absence and the offending key is cleared so the
// parse failure does not repeat on every read.
func GetJSON(s Store, key string, out any) bool {
	raw, ok := s.Get(key)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Warn("store: corrupt JSON under %q, clearing key: %v", key, err)
		s.Remove(key)
		return false
	}
	return true
}

// SignalSync writes the cross-context resync broadcast: the current
// epoch-millis timestamp under the trigger key. The trigger is cleared
// after TriggerClearDelay so a context loading later does not reprocess
// a stale signal.
func SignalSync(s Store) bool {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if !s.Set(KeySyncTrigger, now) {
		return false
	}
	time.AfterFunc(TriggerClearDelay, func() {
		s.Remove(KeySyncTrigger)
	})
	return true
}
