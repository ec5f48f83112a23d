// Package syncer provides the sync coordinator: the one component that
// decides when to reconcile the profile and history caches with the
// shared store and the remote API.
//
// Concurrent profile edits in two contexts resolve last-write-wins with
// no merge. This is an accepted limitation, not an oversight: the store
// offers whole-value read-modify-write only, and inventing a merge
// policy here would change observable behavior.
package syncer

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumohealth/tabsync/internal/display"
	"github.com/lumohealth/tabsync/internal/history"
	"github.com/lumohealth/tabsync/internal/logger"
	"github.com/lumohealth/tabsync/internal/notify"
	"github.com/lumohealth/tabsync/internal/profile"
	"github.com/lumohealth/tabsync/internal/store"
)

// Config holds the engine's timing knobs.
type Config struct {
	// SyncInterval is the periodic reconciliation cadence.
	SyncInterval time.Duration

	// FocusCooldown suppresses focus/visibility-triggered syncs that
	// arrive too soon after the last completed pass, bounding event
	// storm amplification.
	FocusCooldown time.Duration

	// HeartbeatInterval is how often the liveness heartbeat is written.
	// Zero disables the heartbeat.
	HeartbeatInterval time.Duration

	// Version is recorded in the heartbeat for diagnostics.
	Version string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SyncInterval:      30 * time.Second,
		FocusCooldown:     10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		Version:           "dev",
	}
}

// Heartbeat is the ephemeral liveness signal. It is written
// periodically for diagnostics and never read back by the coordinator.
type Heartbeat struct {
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
	Active    bool   `json:"active"`
}

// Engine is the sync coordinator. Construct one per context with New
// and inject it into whatever composes the application; there is no
// implicit global instance.
type Engine struct {
	store    store.Store
	profiles *profile.Cache
	records  *history.Cache
	bus      *notify.Bus
	surface  *display.Surface // optional
	watcher  *notify.Watcher  // optional, FileStore only
	config   Config

	syncing  atomic.Bool
	mu       sync.Mutex
	lastSync time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an engine. surface and watcher are optional; without a
// watcher the engine relies on the periodic interval alone.
func New(s store.Store, profiles *profile.Cache, records *history.Cache, bus *notify.Bus, surface *display.Surface, watcher *notify.Watcher, config Config) *Engine {
	if config.SyncInterval <= 0 {
		config.SyncInterval = DefaultConfig().SyncInterval
	}
	if config.FocusCooldown <= 0 {
		config.FocusCooldown = DefaultConfig().FocusCooldown
	}
	return &Engine{
		store:    s,
		profiles: profiles,
		records:  records,
		bus:      bus,
		surface:  surface,
		watcher:  watcher,
		config:   config,
	}
}

// SyncNow runs one full sync pass, unless one is already in flight, in
// which case the request is dropped (not queued) and false is returned.
//
// A pass refreshes the profile and the history independently; a failure
// in one never aborts the other. The pass always runs to completion and
// records lastSyncTime before the in-flight flag releases, regardless
// of sub-results.
func (e *Engine) SyncNow(ctx context.Context) bool {
	if !e.syncing.CompareAndSwap(false, true) {
		logger.Debug("syncer: pass already in flight, dropping request")
		return false
	}
	defer e.syncing.Store(false)

	logger.Debug("syncer: starting sync pass")

	p := e.profiles.Refresh(ctx)
	if e.surface != nil {
		e.surface.Apply(p)
	}

	e.records.Refresh(ctx)

	now := time.Now()
	e.store.Set(store.KeyLastSync, strconv.FormatInt(now.UnixMilli(), 10))

	e.mu.Lock()
	e.lastSync = now
	e.mu.Unlock()

	logger.Debug("syncer: sync pass complete")
	return true
}

// LastSync returns when the last pass completed, zero if none has.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// Syncing reports whether a pass is currently in flight.
func (e *Engine) Syncing() bool {
	return e.syncing.Load()
}

// OnFocus handles a page-focus trigger, subject to the cooldown.
// Returns true if a pass ran.
func (e *Engine) OnFocus(ctx context.Context) bool {
	return e.throttled(ctx, "focus")
}

// OnVisible handles a visibility-regained trigger, subject to the
// cooldown. Returns true if a pass ran.
func (e *Engine) OnVisible(ctx context.Context) bool {
	return e.throttled(ctx, "visibility")
}

func (e *Engine) throttled(ctx context.Context, trigger string) bool {
	e.mu.Lock()
	since := time.Since(e.lastSync)
	e.mu.Unlock()

	if since < e.config.FocusCooldown {
		logger.Debug("syncer: %s trigger within cooldown (%s ago), skipping", trigger, since.Round(time.Millisecond))
		return false
	}
	return e.SyncNow(ctx)
}

// Run starts the background loops: watcher-driven syncs, the periodic
// interval, and the heartbeat. It performs one initial pass, then
// blocks until ctx is cancelled. A pass in flight when ctx is cancelled
// runs to completion.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	e.SyncNow(runCtx)

	if e.watcher != nil {
		e.wg.Add(1)
		go e.watchStoreEvents(runCtx)
	}

	e.wg.Add(1)
	go e.periodicSync(runCtx)

	if e.config.HeartbeatInterval > 0 {
		e.wg.Add(1)
		go e.heartbeatLoop(runCtx)
	}

	<-runCtx.Done()
	e.wg.Wait()

	logger.Info("syncer: stopped")
	return nil
}

// Stop cancels the background loops started by Run. It does not
// interrupt a pass in flight.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// watchStoreEvents reacts to other contexts' writes to the shared
// store. Any change to the trigger key or the data keys means
// "re-pull now".
func (e *Engine) watchStoreEvents(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-e.watcher.Events():
			if !ok {
				return
			}

			switch event.Key {
			case store.KeySyncTrigger, store.KeyProfile, store.KeyHistory:
				if event.Op == notify.OpRemove && event.Key == store.KeySyncTrigger {
					// Trigger clears are housekeeping, not signals.
					continue
				}
				logger.Debug("syncer: store event %s on %q", event.Op, event.Key)
				e.SyncNow(ctx)
			}

		case err, ok := <-e.watcher.Errors():
			if !ok {
				return
			}
			logger.Warn("syncer: watcher error: %v", err)
		}
	}
}

// periodicSync runs the interval-driven reconciliation.
func (e *Engine) periodicSync(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.SyncNow(ctx)
		}
	}
}

// heartbeatLoop writes the liveness signal. On shutdown it writes one
// final inactive heartbeat.
func (e *Engine) heartbeatLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.HeartbeatInterval)
	defer ticker.Stop()

	e.writeHeartbeat(true)
	for {
		select {
		case <-ctx.Done():
			e.writeHeartbeat(false)
			return
		case <-ticker.C:
			e.writeHeartbeat(true)
		}
	}
}

func (e *Engine) writeHeartbeat(active bool) {
	store.SetJSON(e.store, store.KeyHeartbeat, &Heartbeat{
		Timestamp: time.Now().UnixMilli(),
		Version:   e.config.Version,
		Active:    active,
	})
}
