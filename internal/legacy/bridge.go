// Package legacy migrates data left behind by superseded coordinator
// generations into the current key names.
package legacy

import (
	"context"
	"encoding/json"

	"github.com/lumohealth/tabsync/internal/history"
	"github.com/lumohealth/tabsync/internal/logger"
	"github.com/lumohealth/tabsync/internal/profile"
	"github.com/lumohealth/tabsync/internal/store"
)

// Result summarizes one migration run.
type Result struct {
	ProfileMigrated int
	RecordsMigrated int
	Skipped         int
}

// Migrate scans the fixed legacy key list and feeds whatever it finds
// through the normal profile and history save paths. It is one-shot per
// startup and idempotent: a canonical profile already present is left
// alone, and history records whose ids are already known are skipped.
// Legacy keys are never deleted, since older coordinator generations
// may still be running against the same store. Unparseable legacy data
// is skipped, never fatal.
func Migrate(ctx context.Context, s store.Store, profiles *profile.Cache, records *history.Cache) Result {
	var result Result

	result.migrateProfile(ctx, s, profiles)
	result.migrateHistory(ctx, s, records)

	if result.ProfileMigrated > 0 || result.RecordsMigrated > 0 || result.Skipped > 0 {
		logger.Info("legacy: migration done: profile=%d records=%d skipped=%d",
			result.ProfileMigrated, result.RecordsMigrated, result.Skipped)
	}
	return result
}

func (r *Result) migrateProfile(ctx context.Context, s store.Store, profiles *profile.Cache) {
	// A canonical profile wins over any legacy copy; re-running the
	// migration must not clobber newer data with older.
	if raw, ok := s.Get(store.KeyProfile); ok && raw != "" {
		return
	}

	for _, key := range store.LegacyProfileKeys {
		raw, ok := s.Get(key)
		if !ok || raw == "" {
			continue
		}

		var p profile.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			logger.Warn("legacy: unparseable data under %q, skipping: %v", key, err)
			r.Skipped++
			continue
		}

		if _, err := profiles.Save(ctx, p); err != nil {
			logger.Warn("legacy: failed to migrate profile from %q: %v", key, err)
			continue
		}
		logger.Info("legacy: migrated profile from %q", key)
		r.ProfileMigrated++
		return
	}
}

func (r *Result) migrateHistory(ctx context.Context, s store.Store, records *history.Cache) {
	for _, key := range store.LegacyHistoryKeys {
		raw, ok := s.Get(key)
		if !ok || raw == "" {
			continue
		}

		var legacyRecords []history.Record
		if err := json.Unmarshal([]byte(raw), &legacyRecords); err != nil {
			logger.Warn("legacy: unparseable data under %q, skipping: %v", key, err)
			r.Skipped++
			continue
		}

		for _, rec := range legacyRecords {
			if rec.ID != "" && records.Contains(rec.ID) {
				continue
			}
			if _, err := records.Add(ctx, rec); err != nil {
				logger.Warn("legacy: failed to migrate record %s from %q: %v", rec.ID, key, err)
				continue
			}
			r.RecordsMigrated++
		}
	}
}
