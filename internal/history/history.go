// Package history maintains the bounded, ordered list of analysis
// records shared across application contexts.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lumohealth/tabsync/internal/api"
	"github.com/lumohealth/tabsync/internal/logger"
	"github.com/lumohealth/tabsync/internal/notify"
	"github.com/lumohealth/tabsync/internal/store"
)

// MaxRecords bounds the stored list. Entries beyond the cap are dropped
// silently on insert, oldest first.
const MaxRecords = 100

// ErrStoreWrite is returned when the shared store rejects a history
// write. It is the one storage failure that propagates, so the caller
// can tell the user the record was not saved.
var ErrStoreWrite = errors.New("history: shared store write failed")

// Record is one analysis result. Details and AnalysisData are opaque
// payloads carried verbatim; Timestamp is epoch millis and orders the
// list.
type Record struct {
	ID           FlexID          `json:"id,omitempty"`
	Score        float64         `json:"score,omitempty"`
	HealthIndex  float64         `json:"healthIndex,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	AnalysisData json.RawMessage `json:"analysisData,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// Patch holds the fields an Update may change. Nil fields are left
// untouched; the merge is shallow.
type Patch struct {
	Score        *float64
	HealthIndex  *float64
	Details      json.RawMessage
	AnalysisData json.RawMessage
	Timestamp    *int64
}

// Cache is the history list backed by the shared store. remote may be
// nil (or unauthenticated) for local-only operation.
type Cache struct {
	store  store.Store
	bus    *notify.Bus
	remote *api.Client
}

// NewCache creates a history cache over the given store. bus and remote
// are optional.
func NewCache(s store.Store, bus *notify.Bus, remote *api.Client) *Cache {
	return &Cache{store: s, bus: bus, remote: remote}
}

// GetAll returns the stored records sorted by descending timestamp.
// An absent or malformed list is an empty list, never an error.
func (c *Cache) GetAll() []Record {
	var records []Record
	if !store.GetJSON(c.store, store.KeyHistory, &records) {
		return []Record{}
	}
	sortDescending(records)
	return records
}

// Add stores a record, minting an id and timestamp when absent, and
// returns the stored record including generated fields. The list is
// truncated to MaxRecords, evicting the oldest entries. On success the
// record is pushed to the remote best-effort, other contexts are
// signalled, and history-updated is broadcast.
func (c *Cache) Add(ctx context.Context, r Record) (*Record, error) {
	now := time.Now()
	if r.ID == "" {
		r.ID = FlexID(uuid.NewString())
	}
	if r.Timestamp == 0 {
		r.Timestamp = now.UnixMilli()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = now.UTC().Format(time.RFC3339)
	}

	records := c.GetAll()
	records = append([]Record{r}, records...)
	sortDescending(records)
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}

	if !store.SetJSON(c.store, store.KeyHistory, records) {
		return nil, ErrStoreWrite
	}

	if c.remote.IsAuthenticated() {
		if _, err := c.remote.AddRecord(ctx, toAPI(&r)); err != nil {
			logger.Warn("history: remote push failed, local copy saved: %v", err)
		}
	}

	store.SignalSync(c.store)
	c.publishUpdated(records)

	return &r, nil
}

// DeleteOne removes the record matching id and returns the count
// removed. Zero removed is a normal negative result.
func (c *Cache) DeleteOne(ctx context.Context, id FlexID) int {
	return c.DeleteMany(ctx, []FlexID{id})
}

// DeleteMany removes every record matching any of ids, using coercing
// equality, and returns the count removed.
func (c *Cache) DeleteMany(ctx context.Context, ids []FlexID) int {
	records := c.GetAll()

	kept := records[:0]
	removed := 0
	var removedIDs []string
	for _, r := range records {
		matched := false
		for _, id := range ids {
			if r.ID.Equal(id) {
				matched = true
				break
			}
		}
		if matched {
			removed++
			removedIDs = append(removedIDs, string(r.ID))
			continue
		}
		kept = append(kept, r)
	}

	if removed == 0 {
		return 0
	}

	if !store.SetJSON(c.store, store.KeyHistory, kept) {
		logger.Warn("history: failed to persist deletion of %d records", removed)
		return 0
	}

	if c.remote.IsAuthenticated() {
		if err := c.remote.DeleteRecords(ctx, removedIDs); err != nil {
			logger.Warn("history: remote delete failed: %v", err)
		}
	}

	store.SignalSync(c.store)
	c.publishUpdated(kept)

	return removed
}

// Update locates the record matching id, shallow-merges patch over it,
// refreshes updatedAt, and persists. Returns the updated record, or nil
// when no record matches (a negative result, not an error).
func (c *Cache) Update(ctx context.Context, id FlexID, patch Patch) *Record {
	records := c.GetAll()

	for i := range records {
		if !records[i].ID.Equal(id) {
			continue
		}

		if patch.Score != nil {
			records[i].Score = *patch.Score
		}
		if patch.HealthIndex != nil {
			records[i].HealthIndex = *patch.HealthIndex
		}
		if patch.Details != nil {
			records[i].Details = patch.Details
		}
		if patch.AnalysisData != nil {
			records[i].AnalysisData = patch.AnalysisData
		}
		if patch.Timestamp != nil {
			records[i].Timestamp = *patch.Timestamp
		}
		records[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)

		updated := records[i]
		sortDescending(records)

		if !store.SetJSON(c.store, store.KeyHistory, records) {
			logger.Warn("history: failed to persist update of %s", id)
			return nil
		}

		if c.remote.IsAuthenticated() {
			if _, err := c.remote.UpdateRecord(ctx, string(updated.ID), toAPI(&updated)); err != nil {
				logger.Warn("history: remote update failed: %v", err)
			}
		}

		store.SignalSync(c.store)
		c.publishUpdated(records)

		return &updated
	}

	return nil
}

// Contains reports whether a record matching id is present, using
// coercing equality.
func (c *Cache) Contains(id FlexID) bool {
	for _, r := range c.GetAll() {
		if r.ID.Equal(id) {
			return true
		}
	}
	return false
}

// Refresh is the sync-pass pull: when authenticated it replaces the
// local list with the remote one; otherwise it re-reads the store. The
// result is broadcast either way so display subscribers can update.
func (c *Cache) Refresh(ctx context.Context) []Record {
	if c.remote.IsAuthenticated() {
		remote, err := c.remote.ListRecords(ctx, MaxRecords, 0)
		if err != nil {
			logger.Debug("history: remote refresh failed, using local: %v", err)
		} else {
			records := make([]Record, len(remote))
			for i := range remote {
				records[i] = fromAPI(&remote[i])
			}
			sortDescending(records)
			if len(records) > MaxRecords {
				records = records[:MaxRecords]
			}
			if !store.SetJSON(c.store, store.KeyHistory, records) {
				logger.Warn("history: failed to persist remote refresh")
			}
			c.publishUpdated(records)
			return records
		}
	}

	records := c.GetAll()
	c.publishUpdated(records)
	return records
}

func (c *Cache) publishUpdated(records []Record) {
	if c.bus != nil {
		c.bus.Publish(notify.EventHistoryUpdated, records)
	}
}

// sortDescending orders records newest first. The sort is stable so
// same-timestamp records keep their insertion order.
func sortDescending(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}

// fromAPI converts a wire record to the domain type.
func fromAPI(r *api.Record) Record {
	return Record{
		ID:           FlexID(r.ID),
		Score:        r.Score,
		HealthIndex:  r.HealthIndex,
		Details:      r.Details,
		AnalysisData: r.AnalysisData,
		Timestamp:    r.Timestamp,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// toAPI converts a domain record to the wire type.
func toAPI(r *Record) *api.Record {
	return &api.Record{
		ID:           string(r.ID),
		Score:        r.Score,
		HealthIndex:  r.HealthIndex,
		Details:      r.Details,
		AnalysisData: r.AnalysisData,
		Timestamp:    r.Timestamp,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
